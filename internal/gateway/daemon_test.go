package gateway

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer is a goroutine-safe writer for observing daemon output.
type syncBuffer struct {
	mu sync.Mutex
	b  strings.Builder
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func TestNewDaemonValidation(t *testing.T) {
	e := newTestEnv(t)
	cases := []struct {
		name string
		opts DaemonOpts
		want string
	}{
		{"missing gateway", DaemonOpts{Config: e.cfg, Adapter: e.adapter}, "gateway is required"},
		{"missing config", DaemonOpts{Gateway: e.gw, Adapter: e.adapter}, "config is required"},
		{"missing adapter", DaemonOpts{Gateway: e.gw, Config: e.cfg}, "adapter is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewDaemon(tc.opts)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("err = %v, want %q", err, tc.want)
			}
		})
	}
}

func TestDaemonPumpsInboundMessages(t *testing.T) {
	e := newTestEnv(t)
	d, err := NewDaemon(DaemonOpts{Gateway: e.gw, Config: e.cfg, Adapter: e.adapter, Out: e.gw.out})
	if err != nil {
		t.Fatalf("NewDaemon: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	e.adapter.SimulateInbound(inboundText("u1", "hello"))
	waitFor(t, "reply to pumped message", func() bool {
		return containsText(e.adapter, "Hi there")
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on context cancellation")
	}
}

func TestDaemonStopsWhenInboundCloses(t *testing.T) {
	e := newTestEnv(t)
	out := &syncBuffer{}
	d, err := NewDaemon(DaemonOpts{Gateway: e.gw, Config: e.cfg, Adapter: e.adapter, Out: out})
	if err != nil {
		t.Fatalf("NewDaemon: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()

	// Wait for the pump to come up, then close the adapter under it.
	waitFor(t, "daemon online", func() bool {
		return strings.Contains(out.String(), "online")
	})
	e.adapter.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop when the inbound channel closed")
	}
}

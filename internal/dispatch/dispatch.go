// Package dispatch serializes message handling per user. Each user owns
// one mutual-exclusion slot with an optional handle to the in-flight
// generation; different users never block each other.
package dispatch

import (
	"context"
	"errors"
	"sync"
)

// ErrBusy reports that a generation is already in flight for the user.
// It is a normal, user-visible condition, not a system fault.
var ErrBusy = errors.New("dispatch: busy")

type slot struct {
	busy   bool
	cancel context.CancelFunc
}

// Dispatcher is the per-user slot registry. Slots are created lazily on
// first dispatch and never removed.
type Dispatcher struct {
	mu    sync.Mutex
	slots map[string]*slot
}

func New() *Dispatcher {
	return &Dispatcher{slots: make(map[string]*slot)}
}

// Dispatch runs fn under the user's exclusion slot. If a generation is
// already in flight for the user it returns ErrBusy without running fn.
// fn receives a context that Cancel aborts; the slot is released on
// every exit path. Callers for different users proceed in parallel.
func (d *Dispatcher) Dispatch(ctx context.Context, userID string, fn func(ctx context.Context) error) error {
	d.mu.Lock()
	s, ok := d.slots[userID]
	if !ok {
		s = &slot{}
		d.slots[userID] = s
	}
	if s.busy {
		d.mu.Unlock()
		return ErrBusy
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.busy = true
	s.cancel = cancel
	d.mu.Unlock()

	defer func() {
		cancel()
		d.mu.Lock()
		s.busy = false
		s.cancel = nil
		d.mu.Unlock()
	}()

	return fn(runCtx)
}

// Cancel requests cooperative cancellation of the user's in-flight
// generation. Returns false when nothing is in flight.
func (d *Dispatcher) Cancel(userID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.slots[userID]
	if !ok || !s.busy || s.cancel == nil {
		return false
	}
	s.cancel()
	return true
}

// Busy reports whether a generation is in flight for the user.
func (d *Dispatcher) Busy(userID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.slots[userID]
	return ok && s.busy
}

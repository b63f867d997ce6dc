package gateway

import (
	"context"
	"strings"
	"testing"

	"github.com/parleybot/parley/internal/completion"
	"github.com/parleybot/parley/internal/platform"
)

func newTestRelay(t *testing.T) (*relay, *platform.MockAdapter, string) {
	t.Helper()
	adapter := platform.NewMockAdapter()
	if err := adapter.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	id, err := adapter.Send(context.Background(), "chan-1", placeholderText)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	return newRelay(adapter, "chan-1", id), adapter, id
}

func chunk(n int) string { return strings.Repeat("a", n) }

func TestRelayThrottlesEdits(t *testing.T) {
	rel, adapter, id := newTestRelay(t)
	ctx := context.Background()

	for _, n := range []int{10, 50, 90, 150, 240} {
		if err := rel.push(ctx, completion.Partial{Text: chunk(n)}); err != nil {
			t.Fatalf("push(%d): %v", n, err)
		}
	}
	if err := rel.push(ctx, completion.Partial{Text: chunk(250), Final: true}); err != nil {
		t.Fatalf("final push: %v", err)
	}

	// Growth since the last edit gates non-final pushes: 10, 50 and 90
	// are under the threshold, 150 crosses it, 240 has only grown by 90
	// since, and the final chunk always lands.
	edits := adapter.EditsOf(id)
	if len(edits) != 2 {
		t.Fatalf("edits = %d, want 2: %v", len(edits), editLens(edits))
	}
	if len(edits[0]) != 150 {
		t.Errorf("first edit length = %d, want 150", len(edits[0]))
	}
	if len(edits[1]) != 250 {
		t.Errorf("final edit length = %d, want 250", len(edits[1]))
	}
}

func editLens(edits []string) []int {
	lens := make([]int, len(edits))
	for i, e := range edits {
		lens[i] = len(e)
	}
	return lens
}

func TestRelayFirstEditNeedsThresholdGrowth(t *testing.T) {
	rel, adapter, id := newTestRelay(t)
	ctx := context.Background()

	rel.push(ctx, completion.Partial{Text: chunk(99)})
	if got := adapter.EditsOf(id); len(got) != 0 {
		t.Fatalf("99-char chunk was pushed")
	}
	rel.push(ctx, completion.Partial{Text: chunk(100)})
	if got := adapter.EditsOf(id); len(got) != 1 {
		t.Fatalf("100-char chunk was not pushed")
	}
}

func TestRelayFinalAlwaysPushes(t *testing.T) {
	rel, adapter, id := newTestRelay(t)
	ctx := context.Background()

	rel.push(ctx, completion.Partial{Text: chunk(150)})
	rel.push(ctx, completion.Partial{Text: chunk(151), Final: true})

	edits := adapter.EditsOf(id)
	if len(edits) != 2 || len(edits[1]) != 151 {
		t.Errorf("edit lengths = %v, want [150 151]", editLens(edits))
	}
}

func TestRelayNeverPushesEmptyText(t *testing.T) {
	rel, adapter, id := newTestRelay(t)
	ctx := context.Background()

	rel.push(ctx, completion.Partial{Text: ""})
	rel.push(ctx, completion.Partial{Text: "", Final: true})

	if got := adapter.EditsOf(id); len(got) != 0 {
		t.Errorf("empty text was pushed: %v", got)
	}
}

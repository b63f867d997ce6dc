package gateway

import (
	"context"
	"log"

	"github.com/parleybot/parley/internal/completion"
	"github.com/parleybot/parley/internal/platform"
)

// editThreshold is the minimum growth of the answer text, in
// characters, between consecutive message edits. It bounds edit-API
// call volume during streaming.
const editThreshold = 100

// relay pushes the accreting answer into one platform message via
// throttled edits. Non-final chunks are pushed only once the text has
// grown by editThreshold since the last push; the final chunk always
// pushes.
type relay struct {
	adapter   platform.Adapter
	channelID string
	messageID string
	pushedLen int
	text      string
}

func newRelay(adapter platform.Adapter, channelID, messageID string) *relay {
	return &relay{adapter: adapter, channelID: channelID, messageID: messageID}
}

// push is wired as the onPartial sink of completion.Run.
func (r *relay) push(ctx context.Context, p completion.Partial) error {
	r.text = p.Text
	if !p.Final && len(p.Text)-r.pushedLen < editThreshold {
		return nil
	}
	if p.Text == "" {
		return nil
	}
	if err := r.adapter.Edit(ctx, r.channelID, r.messageID, p.Text); err != nil {
		// Edit failures must not kill the generation; the next push or
		// the final edit will retry with fresher text.
		log.Printf("gateway: relay edit: %v", err)
		return nil
	}
	r.pushedLen = len(p.Text)
	return nil
}

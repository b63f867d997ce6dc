// Package completion abstracts cancellable, incremental text
// generation. A Streamer turns a composed context window into a finite
// sequence of partial answers; Run drives it under the trim-on-overflow
// retry policy.
package completion

import (
	"context"
	"errors"
)

// Entry roles, matching the chat completion wire roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Entry is one role-tagged element of the context window. Images are
// base64 payloads attached as independent content parts.
type Entry struct {
	Role   string
	Text   string
	Images []string
}

// Partial is one element of a generation stream. Token counts are only
// populated on the final element; a severed stream never yields one.
type Partial struct {
	Text         string
	Final        bool
	InputTokens  int64
	OutputTokens int64
}

// Stream is a single in-flight generation. Recv returns io.EOF after
// the final element; Close severs the stream early.
type Stream interface {
	Recv() (Partial, error)
	Close()
}

// Streamer starts generations. Implementations must honor ctx
// cancellation between elements and surface ErrContextTooLong when the
// provider rejects the window as too large.
type Streamer interface {
	Stream(ctx context.Context, model string, entries []Entry) (Stream, error)
}

// ErrContextTooLong reports that the composed entries exceed the
// model's input budget. It drives the trim-and-retry loop in Run and
// becomes fatal only once history is exhausted.
var ErrContextTooLong = errors.New("completion: context too long")

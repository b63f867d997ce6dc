// Package platform bridges the gateway to chat platforms (Discord,
// Slack). Adapters normalize inbound events and expose the small
// outbound surface the relay loop needs: send, edit, typing.
package platform

import (
	"context"
	"time"
)

// Adapter is the interface platform-specific implementations satisfy.
// Each adapter owns connection management and message I/O for a single
// chat platform.
type Adapter interface {
	// Connect establishes a connection to the chat platform.
	Connect(ctx context.Context) error

	// Listen returns a channel of inbound messages. The channel is
	// closed when the context is cancelled or the adapter is closed.
	// Listen must only be called after Connect.
	Listen(ctx context.Context) (<-chan InboundMessage, error)

	// Send posts a message and returns its platform message id, which
	// later Edit calls and reply-based context switches refer to.
	Send(ctx context.Context, channelID, text string) (string, error)

	// Edit replaces the text of a previously sent message in place.
	Edit(ctx context.Context, channelID, messageID, text string) error

	// SendImage posts a binary image attachment.
	SendImage(ctx context.Context, channelID, filename string, payload []byte) (string, error)

	// Typing shows the platform's typing indicator where supported.
	Typing(ctx context.Context, channelID string) error

	// Close gracefully shuts down the adapter connection.
	Close() error
}

// InboundMessage is a normalized message received from the platform.
// Adapters resolve attachments before handing the message over: images
// arrive as base64 payloads, voice notes as raw audio bytes.
type InboundMessage struct {
	Platform         string // e.g. "slack", "discord"
	ChannelID        string
	MessageID        string
	UserID           string // platform-specific user identifier
	UserName         string
	Text             string
	Images           []string // base64-encoded image attachments
	Audio            []byte   // voice note payload, nil if none
	AudioName        string   // attachment filename, hints the format
	AudioSeconds     float64  // voice note duration, 0 when unreported
	ReplyToMessageID string   // id of the message this one replies to
	ReplyAuthorIsBot bool     // whether the replied-to message is ours
	Timestamp        time.Time
}

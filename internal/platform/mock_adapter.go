package platform

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// SentMessage records one outbound message or edit made through the
// MockAdapter.
type SentMessage struct {
	ChannelID string
	MessageID string
	Text      string
	Filename  string // set for image sends
	Edit      bool
}

// MockAdapter implements Adapter for testing. It records sent messages
// and edits, and allows simulating inbound messages via
// SimulateInbound.
type MockAdapter struct {
	mu        sync.Mutex
	connected bool
	closed    bool
	inbound   chan InboundMessage
	sent      []SentMessage
	typing    int
	nextID    int
	sendErr   error
}

// NewMockAdapter creates a MockAdapter with a buffered inbound channel.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{inbound: make(chan InboundMessage, 100)}
}

// Connect marks the adapter as connected.
func (m *MockAdapter) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("mock adapter: already closed")
	}
	m.connected = true
	return nil
}

// Listen returns the inbound message channel. Must be called after Connect.
func (m *MockAdapter) Listen(ctx context.Context) (<-chan InboundMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return nil, fmt.Errorf("mock adapter: not connected")
	}
	return m.inbound, nil
}

// Send records the outbound message and assigns it a sequential id.
func (m *MockAdapter) Send(ctx context.Context, channelID, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return "", fmt.Errorf("mock adapter: not connected")
	}
	if m.sendErr != nil {
		return "", m.sendErr
	}
	m.nextID++
	id := fmt.Sprintf("m-%d", m.nextID)
	m.sent = append(m.sent, SentMessage{ChannelID: channelID, MessageID: id, Text: text})
	return id, nil
}

// Edit records an in-place edit of a previously sent message.
func (m *MockAdapter) Edit(ctx context.Context, channelID, messageID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return fmt.Errorf("mock adapter: not connected")
	}
	m.sent = append(m.sent, SentMessage{ChannelID: channelID, MessageID: messageID, Text: text, Edit: true})
	return nil
}

// SendImage records an image send.
func (m *MockAdapter) SendImage(ctx context.Context, channelID, filename string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return "", fmt.Errorf("mock adapter: not connected")
	}
	m.nextID++
	id := fmt.Sprintf("m-%d", m.nextID)
	m.sent = append(m.sent, SentMessage{ChannelID: channelID, MessageID: id, Filename: filename})
	return id, nil
}

// Typing counts typing-indicator calls.
func (m *MockAdapter) Typing(ctx context.Context, channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.typing++
	return nil
}

// Close shuts down the mock adapter and closes the inbound channel.
func (m *MockAdapter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.connected = false
	close(m.inbound)
	return nil
}

// --- Test helpers ---

// SimulateInbound sends a message into the inbound channel as if it
// came from the chat platform. Safe to call from any goroutine.
func (m *MockAdapter) SimulateInbound(msg InboundMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	m.inbound <- msg
}

// SetSendError makes subsequent Send calls fail with err.
func (m *MockAdapter) SetSendError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

// LastSent returns the most recent send or edit. Returns false if
// nothing was sent.
func (m *MockAdapter) LastSent() (SentMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return SentMessage{}, false
	}
	return m.sent[len(m.sent)-1], true
}

// AllSent returns a copy of every recorded send and edit, in order.
func (m *MockAdapter) AllSent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

// EditsOf returns the texts of all edits applied to messageID, in order.
func (m *MockAdapter) EditsOf(messageID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var texts []string
	for _, s := range m.sent {
		if s.Edit && s.MessageID == messageID {
			texts = append(texts, s.Text)
		}
	}
	return texts
}

// TypingCalls returns the number of typing-indicator calls.
func (m *MockAdapter) TypingCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.typing
}

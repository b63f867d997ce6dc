// Package discord implements the platform Adapter for Discord using the
// Gateway WebSocket.
package discord

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/parleybot/parley/internal/platform"
)

const (
	// maxRetries is the max number of retries for rate-limited API calls.
	maxRetries = 3
	// baseBackoff is the initial backoff duration for rate-limit retries.
	baseBackoff = 2 * time.Second
	// maxBackoff caps the exponential backoff.
	maxBackoff = 2 * time.Minute
)

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	Open() error
	Close() error
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEdit(channelID, messageID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelFileSend(channelID, name string, r io.Reader, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
	AddHandler(handler interface{}) func()
}

// realSession wraps *discordgo.Session to implement the session interface.
type realSession struct {
	s *discordgo.Session
}

func (r *realSession) Open() error  { return r.s.Open() }
func (r *realSession) Close() error { return r.s.Close() }
func (r *realSession) ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return r.s.ChannelMessageSend(channelID, content, options...)
}
func (r *realSession) ChannelMessageEdit(channelID, messageID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return r.s.ChannelMessageEdit(channelID, messageID, content, options...)
}
func (r *realSession) ChannelFileSend(channelID, name string, reader io.Reader, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return r.s.ChannelFileSend(channelID, name, reader, options...)
}
func (r *realSession) ChannelTyping(channelID string, options ...discordgo.RequestOption) error {
	return r.s.ChannelTyping(channelID, options...)
}
func (r *realSession) AddHandler(handler interface{}) func() {
	return r.s.AddHandler(handler)
}

// Adapter implements platform.Adapter for Discord via the Gateway WebSocket.
type Adapter struct {
	sess          session
	botToken      string
	channelID     string // restrict listening to this channel, empty for all
	botUserID     string
	download      func(ctx context.Context, url string) ([]byte, error)
	mu            sync.Mutex
	connected     bool
	closed        bool
	inbound       chan platform.InboundMessage
	cancelFunc    context.CancelFunc
	removeHandler func()
	baseBackoff   time.Duration
	maxBackoff    time.Duration
}

// AdapterOpts holds parameters for creating a Discord Adapter.
type AdapterOpts struct {
	BotToken  string // Discord bot token
	ChannelID string // only messages from this channel are surfaced (empty: all)
	// For testing: inject a mock session instead of real Discord API.
	Session session
	// For testing: override attachment fetching.
	Download func(ctx context.Context, url string) ([]byte, error)
}

// New creates a Discord Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Session == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}

	a := &Adapter{
		botToken:    opts.BotToken,
		channelID:   opts.ChannelID,
		inbound:     make(chan platform.InboundMessage, 100),
		download:    opts.Download,
		baseBackoff: baseBackoff,
		maxBackoff:  maxBackoff,
	}

	if opts.Session != nil {
		a.sess = opts.Session
	}
	if a.download == nil {
		a.download = fetchURL
	}

	return a, nil
}

// Connect establishes the Discord Gateway WebSocket connection.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("discord: adapter already closed")
	}
	if a.connected {
		return nil
	}

	// Create real session if not injected (production path).
	if a.sess == nil {
		dg, err := discordgo.New("Bot " + a.botToken)
		if err != nil {
			return fmt.Errorf("discord: create session: %w", err)
		}
		dg.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent
		a.sess = &realSession{s: dg}
	}

	// Capture bot user ID on connect/reconnect for self-message filtering.
	a.sess.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		a.mu.Lock()
		a.botUserID = r.User.ID
		a.mu.Unlock()
		log.Printf("discord: connected as %s (ID: %s)", r.User.Username, r.User.ID)
	})

	a.sess.AddHandler(func(_ *discordgo.Session, d *discordgo.Disconnect) {
		log.Printf("discord: gateway disconnected, discordgo will auto-reconnect")
	})

	if err := a.sess.Open(); err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}

	a.connected = true
	return nil
}

// Listen returns a channel of inbound messages from Discord. Registers a
// message handler on the Gateway session. Must be called after Connect.
func (a *Adapter) Listen(ctx context.Context) (<-chan platform.InboundMessage, error) {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return nil, fmt.Errorf("discord: not connected")
	}
	a.mu.Unlock()

	listenCtx, cancel := context.WithCancel(ctx)
	remove := a.sess.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		a.handleMessage(listenCtx, m)
	})

	a.mu.Lock()
	a.cancelFunc = cancel
	a.removeHandler = remove
	a.mu.Unlock()

	return a.inbound, nil
}

// Send posts a message and returns the Discord message ID.
func (a *Adapter) Send(ctx context.Context, channelID, text string) (string, error) {
	if err := a.requireConnected(); err != nil {
		return "", err
	}

	var msg *discordgo.Message
	err := a.retryOnRateLimit(ctx, func() error {
		var sendErr error
		msg, sendErr = a.sess.ChannelMessageSend(channelID, text)
		return sendErr
	})
	if err != nil {
		return "", fmt.Errorf("discord: send message: %w", err)
	}
	return msg.ID, nil
}

// Edit replaces the text of a previously sent message.
func (a *Adapter) Edit(ctx context.Context, channelID, messageID, text string) error {
	if err := a.requireConnected(); err != nil {
		return err
	}

	err := a.retryOnRateLimit(ctx, func() error {
		_, editErr := a.sess.ChannelMessageEdit(channelID, messageID, text)
		return editErr
	})
	if err != nil {
		return fmt.Errorf("discord: edit message: %w", err)
	}
	return nil
}

// SendImage posts a binary image attachment.
func (a *Adapter) SendImage(ctx context.Context, channelID, filename string, payload []byte) (string, error) {
	if err := a.requireConnected(); err != nil {
		return "", err
	}

	var msg *discordgo.Message
	err := a.retryOnRateLimit(ctx, func() error {
		var sendErr error
		msg, sendErr = a.sess.ChannelFileSend(channelID, filename, bytes.NewReader(payload))
		return sendErr
	})
	if err != nil {
		return "", fmt.Errorf("discord: send image: %w", err)
	}
	return msg.ID, nil
}

// Typing shows the typing indicator in the channel.
func (a *Adapter) Typing(ctx context.Context, channelID string) error {
	if err := a.requireConnected(); err != nil {
		return err
	}
	if err := a.sess.ChannelTyping(channelID); err != nil {
		return fmt.Errorf("discord: typing: %w", err)
	}
	return nil
}

// Close gracefully shuts down the adapter connection.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	a.connected = false
	if a.cancelFunc != nil {
		a.cancelFunc()
	}
	if a.removeHandler != nil {
		a.removeHandler()
	}
	close(a.inbound)
	if a.sess != nil {
		return a.sess.Close()
	}
	return nil
}

// BotUserID returns the bot's Discord user ID (available after Connect).
func (a *Adapter) BotUserID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.botUserID
}

// SetBotUserID sets the bot user ID (used for self-message filtering).
func (a *Adapter) SetBotUserID(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.botUserID = id
}

func (a *Adapter) requireConnected() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return fmt.Errorf("discord: not connected")
	}
	return nil
}

// handleMessage converts a Discord message event to an InboundMessage.
func (a *Adapter) handleMessage(ctx context.Context, m *discordgo.MessageCreate) {
	if ctx.Err() != nil || m.Author == nil {
		return
	}

	a.mu.Lock()
	botID := a.botUserID
	channel := a.channelID
	a.mu.Unlock()

	// Filter self-messages and other bots.
	if m.Author.ID == botID || m.Author.Bot {
		return
	}
	if channel != "" && m.ChannelID != channel {
		return
	}

	msg := platform.InboundMessage{
		Platform:  "discord",
		ChannelID: m.ChannelID,
		MessageID: m.ID,
		UserID:    m.Author.ID,
		UserName:  m.Author.Username,
		Text:      m.Content,
	}
	msg.Timestamp, _ = discordgo.SnowflakeTimestamp(m.ID)

	if ref := m.ReferencedMessage; ref != nil {
		msg.ReplyToMessageID = ref.ID
		if ref.Author != nil {
			msg.ReplyAuthorIsBot = ref.Author.ID == botID || ref.Author.Bot
		}
	}

	a.resolveAttachments(ctx, m, &msg)

	select {
	case a.inbound <- msg:
	case <-ctx.Done():
	}
}

// resolveAttachments downloads image and voice attachments so the
// gateway never has to touch platform URLs.
func (a *Adapter) resolveAttachments(ctx context.Context, m *discordgo.MessageCreate, msg *platform.InboundMessage) {
	for _, att := range m.Attachments {
		switch {
		case strings.HasPrefix(att.ContentType, "image/"):
			data, err := a.download(ctx, att.URL)
			if err != nil {
				log.Printf("discord: download attachment %s: %v", att.ID, err)
				continue
			}
			msg.Images = append(msg.Images, base64.StdEncoding.EncodeToString(data))
		case strings.HasPrefix(att.ContentType, "audio/"):
			if msg.Audio != nil {
				continue // one voice note per message
			}
			data, err := a.download(ctx, att.URL)
			if err != nil {
				log.Printf("discord: download attachment %s: %v", att.ID, err)
				continue
			}
			msg.Audio = data
			msg.AudioName = att.Filename
		}
	}
}

func fetchURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// retryOnRateLimit calls fn and retries with exponential backoff on
// Discord rate limit errors. It respects context cancellation.
func (a *Adapter) retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		restErr, ok := err.(*discordgo.RESTError)
		if !ok || restErr.Response == nil || restErr.Response.StatusCode != 429 {
			return err // not a rate limit error
		}

		if attempt == maxRetries {
			return err
		}

		wait := time.Duration(math.Pow(2, float64(attempt))) * a.baseBackoff
		if wait > a.maxBackoff {
			wait = a.maxBackoff
		}

		log.Printf("discord: rate limited (attempt %d/%d), retrying in %v",
			attempt+1, maxRetries, wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil // unreachable
}

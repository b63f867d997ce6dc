// Package gateway is the conversational core: it serializes per-user
// message handling, reconstructs dialog context, streams completions
// back with throttled edits, and persists turns and usage counters.
package gateway

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/parleybot/parley/internal/completion"
	"github.com/parleybot/parley/internal/config"
	"github.com/parleybot/parley/internal/dispatch"
	"github.com/parleybot/parley/internal/models"
	"github.com/parleybot/parley/internal/modes"
	"github.com/parleybot/parley/internal/platform"
	"github.com/parleybot/parley/internal/store"
	"github.com/parleybot/parley/internal/usage"
)

// Transcriber converts a voice note to text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

// ImageGenerator renders images for a prompt (artist mode).
type ImageGenerator interface {
	GenerateImages(ctx context.Context, prompt string, n int) ([]string, error)
}

// Gateway routes inbound messages to command handlers or the streaming
// generation pipeline.
type Gateway struct {
	store       store.Store
	streamer    completion.Streamer
	adapter     platform.Adapter
	dispatcher  *dispatch.Dispatcher
	modes       *modes.Registry
	calc        *usage.Calculator
	cfg         *config.Config
	transcriber Transcriber
	artist      ImageGenerator
	lang        string
	out         io.Writer
}

// Opts holds parameters for creating a Gateway.
type Opts struct {
	Store      store.Store
	Streamer   completion.Streamer
	Adapter    platform.Adapter
	Dispatcher *dispatch.Dispatcher
	Modes      *modes.Registry
	Calculator *usage.Calculator
	Config     *config.Config
	// Transcriber enables voice note handling (optional).
	Transcriber Transcriber
	// Artist enables image generation in artist mode (optional).
	Artist ImageGenerator
	Out    io.Writer // defaults to os.Stdout
}

// New creates a Gateway.
func New(opts Opts) (*Gateway, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("gateway: store is required")
	}
	if opts.Streamer == nil {
		return nil, fmt.Errorf("gateway: streamer is required")
	}
	if opts.Adapter == nil {
		return nil, fmt.Errorf("gateway: adapter is required")
	}
	if opts.Dispatcher == nil {
		return nil, fmt.Errorf("gateway: dispatcher is required")
	}
	if opts.Modes == nil {
		return nil, fmt.Errorf("gateway: modes registry is required")
	}
	if opts.Config == nil {
		return nil, fmt.Errorf("gateway: config is required")
	}
	calc := opts.Calculator
	if calc == nil {
		calc = usage.NewCalculator(opts.Config.Pricing)
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Gateway{
		store:       opts.Store,
		streamer:    opts.Streamer,
		adapter:     opts.Adapter,
		dispatcher:  opts.Dispatcher,
		modes:       opts.Modes,
		calc:        calc,
		cfg:         opts.Config,
		transcriber: opts.Transcriber,
		artist:      opts.Artist,
		lang:        opts.Config.Bot.Language,
		out:         out,
	}, nil
}

// slotKey is the dispatcher key for a user.
func slotKey(user *models.User) string {
	return strconv.FormatUint(uint64(user.ID), 10)
}

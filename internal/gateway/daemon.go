package gateway

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/parleybot/parley/internal/config"
	"github.com/parleybot/parley/internal/platform"
)

// Daemon is the main gateway process: it connects the platform adapter,
// pumps inbound messages into the Gateway, and runs the scheduled usage
// digest.
type Daemon struct {
	gw      *Gateway
	cfg     *config.Config
	adapter platform.Adapter
	out     io.Writer
}

// DaemonOpts holds parameters for creating a Daemon.
type DaemonOpts struct {
	Gateway *Gateway
	Config  *config.Config
	Adapter platform.Adapter
	Out     io.Writer // defaults to os.Stdout
}

// NewDaemon creates a Daemon.
func NewDaemon(opts DaemonOpts) (*Daemon, error) {
	if opts.Gateway == nil {
		return nil, fmt.Errorf("gateway: daemon: gateway is required")
	}
	if opts.Config == nil {
		return nil, fmt.Errorf("gateway: daemon: config is required")
	}
	if opts.Adapter == nil {
		return nil, fmt.Errorf("gateway: daemon: adapter is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Daemon{gw: opts.Gateway, cfg: opts.Config, adapter: opts.Adapter, out: out}, nil
}

// Run connects the adapter and blocks pumping inbound messages until
// the context is cancelled. Each message is handled on its own
// goroutine so a long generation never delays other users; per-user
// ordering is enforced by the dispatch slots, not the pump.
func (d *Daemon) Run(ctx context.Context) error {
	fmt.Fprintf(d.out, "Parley connecting...\n")
	if err := d.adapter.Connect(ctx); err != nil {
		return fmt.Errorf("gateway: connect: %w", err)
	}

	inbound, err := d.adapter.Listen(ctx)
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("gateway: listen: %w", err)
	}

	if d.cfg.Digest.Enabled {
		scheduler := cron.New()
		if _, err := scheduler.AddFunc(d.cfg.Digest.Cron, func() {
			d.postDigest(ctx)
		}); err != nil {
			d.adapter.Close()
			return fmt.Errorf("gateway: digest schedule %q: %w", d.cfg.Digest.Cron, err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	fmt.Fprintf(d.out, "Parley online\n")

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(d.out, "Parley shutting down...\n")
			if err := d.adapter.Close(); err != nil {
				log.Printf("gateway: close adapter: %v", err)
			}
			return nil

		case msg, ok := <-inbound:
			if !ok {
				fmt.Fprintf(d.out, "Parley inbound channel closed\n")
				return nil
			}
			go d.gw.Route(ctx, msg)
		}
	}
}

// postDigest sends the per-user spend summary to the digest channel.
func (d *Daemon) postDigest(ctx context.Context) {
	channel := d.cfg.DigestChannel()
	if channel == "" {
		return
	}
	digest, err := d.gw.UsageDigest()
	if err != nil {
		log.Printf("gateway: build digest: %v", err)
		return
	}
	if digest == "" {
		return // no activity, suppress
	}
	if _, err := d.adapter.Send(ctx, channel, digest); err != nil {
		log.Printf("gateway: send digest: %v", err)
	}
}

// UsageDigest renders the cumulative per-user spend summary. Returns an
// empty string when no user has any usage.
func (g *Gateway) UsageDigest() (string, error) {
	users, err := g.store.AllUsers()
	if err != nil {
		return "", fmt.Errorf("gateway: digest users: %w", err)
	}

	var b strings.Builder
	active := 0
	for _, u := range users {
		rows, err := g.store.Usage(u.ID)
		if err != nil {
			return "", fmt.Errorf("gateway: digest usage for user %d: %w", u.ID, err)
		}
		total := g.calc.Total(rows, u.NGeneratedImages, u.NTranscribedSeconds)
		if total == 0 && len(rows) == 0 {
			continue
		}
		active++
		name := u.Username
		if name == "" {
			name = u.PlatformUserID
		}
		fmt.Fprintf(&b, "- %s (%s): $%.3f\n", name, u.Platform, total)
	}
	if active == 0 {
		return "", nil
	}
	return "📊 Daily usage digest:\n" + strings.TrimRight(b.String(), "\n"), nil
}

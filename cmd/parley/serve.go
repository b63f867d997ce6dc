package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/parleybot/parley/internal/completion"
	"github.com/parleybot/parley/internal/config"
	"github.com/parleybot/parley/internal/dashboard"
	"github.com/parleybot/parley/internal/db"
	"github.com/parleybot/parley/internal/dispatch"
	"github.com/parleybot/parley/internal/gateway"
	"github.com/parleybot/parley/internal/modes"
	"github.com/parleybot/parley/internal/platform"
	"github.com/parleybot/parley/internal/platform/discord"
	"github.com/parleybot/parley/internal/platform/slack"
	"github.com/parleybot/parley/internal/store"
	"github.com/parleybot/parley/internal/usage"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat-bot gateway",
		Long:  "Connects to the configured chat platform and serves completions until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "parley.yaml", "path to Parley config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Loaded config for platform %q from %s\n", cfg.Platform, configPath)

	gormDB, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}

	st, err := store.New(gormDB)
	if err != nil {
		return err
	}

	client, err := completion.NewClient(completion.Opts{
		APIKey:     cfg.OpenAI.APIKey,
		BaseURL:    cfg.OpenAI.BaseURL,
		SingleShot: cfg.Bot.DisableStreaming,
	})
	if err != nil {
		return err
	}

	registry, err := modes.LoadDir(cfg.Modes.Dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Loaded mode packs for languages: %v\n", registry.Languages())

	adapter, err := newAdapter(cfg)
	if err != nil {
		return err
	}

	gw, err := gateway.New(gateway.Opts{
		Store:       st,
		Streamer:    client,
		Adapter:     adapter,
		Dispatcher:  dispatch.New(),
		Modes:       registry,
		Config:      cfg,
		Transcriber: client,
		Artist:      client,
		Out:         out,
	})
	if err != nil {
		return err
	}

	daemon, err := gateway.NewDaemon(gateway.DaemonOpts{
		Gateway: gw,
		Config:  cfg,
		Adapter: adapter,
		Out:     out,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Status.Enabled {
		go func() {
			err := dashboard.Start(ctx, dashboard.StartOpts{
				Store:      st,
				Calculator: usage.NewCalculator(cfg.Pricing),
				Port:       cfg.Status.Port,
				Out:        out,
			})
			if err != nil {
				fmt.Fprintf(out, "status server: %v\n", err)
			}
		}()
	}

	return daemon.Run(ctx)
}

// openDatabase connects to the backend selected in config.
func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	switch cfg.Database.Driver {
	case "mysql":
		return db.ConnectMySQL(cfg.Database.User, cfg.Database.Password,
			cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
	default:
		return db.ConnectSQLite(cfg.Database.Path)
	}
}

// newAdapter builds the platform adapter selected in config.
func newAdapter(cfg *config.Config) (platform.Adapter, error) {
	switch cfg.Platform {
	case "discord":
		return discord.New(discord.AdapterOpts{
			BotToken:  cfg.Discord.BotToken,
			ChannelID: cfg.Discord.ChannelID,
		})
	case "slack":
		return slack.New(slack.AdapterOpts{
			AppToken:  cfg.Slack.AppToken,
			BotToken:  cfg.Slack.BotToken,
			ChannelID: cfg.Slack.ChannelID,
		})
	default:
		return nil, fmt.Errorf("unsupported platform %q", cfg.Platform)
	}
}

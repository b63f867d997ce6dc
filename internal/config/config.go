// Package config provides YAML-based configuration loading for Parley.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Parley configuration, loaded from parley.yaml.
type Config struct {
	Platform string         `yaml:"platform"` // "discord" or "slack"
	Discord  DiscordConfig  `yaml:"discord"`
	Slack    SlackConfig    `yaml:"slack"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Database DatabaseConfig `yaml:"database"`
	Bot      BotConfig      `yaml:"bot"`
	Modes    ModesConfig    `yaml:"modes"`
	Pricing  PricingConfig  `yaml:"pricing"`
	Digest   DigestConfig   `yaml:"digest"`
	Status   StatusConfig   `yaml:"status"`
}

// DiscordConfig holds Discord connection settings.
type DiscordConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"` // default channel for digests
}

// SlackConfig holds Slack Socket Mode connection settings.
type SlackConfig struct {
	AppToken  string `yaml:"app_token"` // xapp-...
	BotToken  string `yaml:"bot_token"` // xoxb-...
	ChannelID string `yaml:"channel_id"`
}

// OpenAIConfig holds completion provider settings.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"` // optional override for compatible providers
}

// DatabaseConfig selects and configures the storage backend. Exactly one
// backend is active per process; sqlite is the default.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "sqlite" or "mysql"
	Path     string `yaml:"path"`   // sqlite file path
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// BotConfig holds conversational behavior settings.
type BotConfig struct {
	Language            string   `yaml:"language"` // reply language, "en" or "ru"
	DefaultModel        string   `yaml:"default_model"`
	AvailableModels     []string `yaml:"available_models"`
	NewDialogTimeoutSec int      `yaml:"new_dialog_timeout_sec"`
	DisableStreaming    bool     `yaml:"disable_streaming"`
	AdminUserID         string   `yaml:"admin_user_id"`
	AllowedUsers        []string `yaml:"allowed_users"` // empty = everyone
	NImagesPerRequest   int      `yaml:"n_images_per_request"`
}

// ModesConfig locates the response-mode YAML packs.
type ModesConfig struct {
	Dir string `yaml:"dir"`
}

// PricingConfig holds billing rates for the usage calculator.
type PricingConfig struct {
	Models              map[string]ModelPricing `yaml:"models"`
	PricePerImage       float64                 `yaml:"price_per_image"`
	PricePerAudioMinute float64                 `yaml:"price_per_audio_minute"`
}

// ModelPricing is the per-1000-token rate for one completion model.
type ModelPricing struct {
	InputPer1K  float64 `yaml:"input_per_1k"`
	OutputPer1K float64 `yaml:"output_per_1k"`
}

// DigestConfig schedules the daily usage digest posted to the admin channel.
type DigestConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Cron      string `yaml:"cron"` // 5-field cron expression
	ChannelID string `yaml:"channel_id"`
}

// StatusConfig configures the health/usage HTTP server.
type StatusConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "parley.db"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.Name == "" {
		c.Database.Name = "parley"
	}
	if c.Database.User == "" {
		c.Database.User = "parley"
	}
	if c.Bot.Language == "" {
		c.Bot.Language = "en"
	}
	if c.Bot.DefaultModel == "" {
		c.Bot.DefaultModel = "gpt-4o-mini"
	}
	if len(c.Bot.AvailableModels) == 0 {
		c.Bot.AvailableModels = []string{c.Bot.DefaultModel}
	}
	if c.Bot.NewDialogTimeoutSec == 0 {
		c.Bot.NewDialogTimeoutSec = 900
	}
	if c.Bot.NImagesPerRequest == 0 {
		c.Bot.NImagesPerRequest = 1
	}
	if c.Modes.Dir == "" {
		c.Modes.Dir = "modes"
	}
	if c.Digest.Cron == "" {
		c.Digest.Cron = "0 9 * * *"
	}
	if c.Status.Port == 0 {
		c.Status.Port = 8080
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string

	switch c.Platform {
	case "discord":
		if c.Discord.BotToken == "" {
			errs = append(errs, "discord.bot_token is required")
		}
	case "slack":
		if c.Slack.AppToken == "" {
			errs = append(errs, "slack.app_token is required")
		}
		if c.Slack.BotToken == "" {
			errs = append(errs, "slack.bot_token is required")
		}
	case "":
		errs = append(errs, "platform is required")
	default:
		errs = append(errs, fmt.Sprintf("unsupported platform %q", c.Platform))
	}

	if c.OpenAI.APIKey == "" {
		errs = append(errs, "openai.api_key is required")
	}

	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("unsupported database driver %q", c.Database.Driver))
	}

	if !contains(c.Bot.AvailableModels, c.Bot.DefaultModel) {
		errs = append(errs, fmt.Sprintf("default model %q is not in available_models", c.Bot.DefaultModel))
	}

	if c.Digest.Enabled && c.Digest.ChannelID == "" && c.defaultChannel() == "" {
		errs = append(errs, "digest.channel_id is required when digest is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// DigestChannel returns the channel the usage digest is posted to,
// falling back to the platform's default channel.
func (c *Config) DigestChannel() string {
	if c.Digest.ChannelID != "" {
		return c.Digest.ChannelID
	}
	return c.defaultChannel()
}

func (c *Config) defaultChannel() string {
	switch c.Platform {
	case "discord":
		return c.Discord.ChannelID
	case "slack":
		return c.Slack.ChannelID
	}
	return ""
}

// UserAllowed reports whether the platform user id passes the allow-list.
// An empty allow-list admits everyone.
func (c *Config) UserAllowed(platformUserID string) bool {
	if len(c.Bot.AllowedUsers) == 0 {
		return true
	}
	return contains(c.Bot.AllowedUsers, platformUserID) || platformUserID == c.Bot.AdminUserID
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

package config

import (
	"strings"
	"testing"
)

const validYAML = `
platform: discord
discord:
  bot_token: token-123
  channel_id: C1
openai:
  api_key: sk-test
bot:
  default_model: gpt-4o
  available_models: [gpt-4o, gpt-4o-mini]
`

func TestParseValid(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Platform != "discord" {
		t.Errorf("Platform = %q, want discord", cfg.Platform)
	}
	if cfg.Bot.DefaultModel != "gpt-4o" {
		t.Errorf("DefaultModel = %q", cfg.Bot.DefaultModel)
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Database.Path != "parley.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Bot.NewDialogTimeoutSec != 900 {
		t.Errorf("NewDialogTimeoutSec = %d, want 900", cfg.Bot.NewDialogTimeoutSec)
	}
	if cfg.Bot.DisableStreaming {
		t.Error("streaming should be enabled by default")
	}
	if cfg.Status.Port != 8080 {
		t.Errorf("Status.Port = %d, want 8080", cfg.Status.Port)
	}
}

func TestParseMissingPlatform(t *testing.T) {
	_, err := Parse([]byte("openai:\n  api_key: sk-test\n"))
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "platform is required") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseSlackRequiresTokens(t *testing.T) {
	yaml := `
platform: slack
openai:
  api_key: sk-test
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "slack.app_token") || !strings.Contains(err.Error(), "slack.bot_token") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseDefaultModelMustBeAvailable(t *testing.T) {
	yaml := `
platform: discord
discord:
  bot_token: t
openai:
  api_key: sk-test
bot:
  default_model: gpt-4o
  available_models: [gpt-4o-mini]
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "not in available_models") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("platform: [unclosed"))
	if err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDigestRequiresChannel(t *testing.T) {
	yaml := `
platform: discord
discord:
  bot_token: t
openai:
  api_key: sk-test
digest:
  enabled: true
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestDigestChannelFallback(t *testing.T) {
	cfg, err := Parse([]byte(validYAML + "digest:\n  enabled: true\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := cfg.DigestChannel(); got != "C1" {
		t.Errorf("DigestChannel = %q, want C1", got)
	}
}

func TestUserAllowed(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !cfg.UserAllowed("anyone") {
		t.Error("empty allow-list should admit everyone")
	}

	cfg.Bot.AllowedUsers = []string{"u1"}
	cfg.Bot.AdminUserID = "admin"
	if !cfg.UserAllowed("u1") {
		t.Error("listed user should be allowed")
	}
	if !cfg.UserAllowed("admin") {
		t.Error("admin should always be allowed")
	}
	if cfg.UserAllowed("u2") {
		t.Error("unlisted user should be rejected")
	}
}

package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestConfig creates a minimal valid config backed by a temp
// SQLite file and returns its path.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "parley.db")
	cfg := fmt.Sprintf(`platform: discord
discord:
  bot_token: test-token
openai:
  api_key: test-key
database:
  driver: sqlite
  path: %s
`, dbPath)
	path := filepath.Join(dir, "parley.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDBInit(t *testing.T) {
	configPath := writeTestConfig(t)

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"db", "init", "--config", configPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("db init failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Migrated 4 tables") {
		t.Errorf("output = %s", out)
	}
	if !strings.Contains(out, "initialized successfully") {
		t.Errorf("output = %s", out)
	}
}

func TestDBResetWithYes(t *testing.T) {
	configPath := writeTestConfig(t)

	// Initialize first.
	initCmd := newRootCmd()
	initCmd.SetOut(new(bytes.Buffer))
	initCmd.SetArgs([]string{"db", "init", "--config", configPath})
	if err := initCmd.Execute(); err != nil {
		t.Fatalf("db init failed: %v", err)
	}

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"db", "reset", "--config", configPath, "--yes"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("db reset failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Dropped 4 tables") {
		t.Errorf("output = %s", out)
	}
	if !strings.Contains(out, "reset successfully") {
		t.Errorf("output = %s", out)
	}
}

func TestDBResetAbortsWithoutConfirmation(t *testing.T) {
	configPath := writeTestConfig(t)

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetIn(strings.NewReader("no\n"))
	cmd.SetArgs([]string{"db", "reset", "--config", configPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("db reset failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Aborted.") {
		t.Errorf("output = %s", buf.String())
	}
}

func TestStatsEmptyDatabase(t *testing.T) {
	configPath := writeTestConfig(t)

	initCmd := newRootCmd()
	initCmd.SetOut(new(bytes.Buffer))
	initCmd.SetArgs([]string{"db", "init", "--config", configPath})
	if err := initCmd.Execute(); err != nil {
		t.Fatalf("db init failed: %v", err)
	}

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"stats", "--config", configPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No registered users.") {
		t.Errorf("output = %s", buf.String())
	}
}

func TestServeRejectsMissingConfig(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"serve", "--config", "/nonexistent/parley.yaml"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("serve with missing config should fail")
	}
}

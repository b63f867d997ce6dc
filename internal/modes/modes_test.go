package modes

import (
	"os"
	"path/filepath"
	"testing"
)

func writeModesDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	en := `
assistant:
  name: "Assistant"
  welcome_message: "Hello!"
  prompt_start: "You are a helpful assistant."
  parse_mode: markdown
artist:
  name: "Artist"
  welcome_message: "Describe an image."
  prompt_start: ""
  parse_mode: html
`
	ru := `
assistant:
  name: "Ассистент"
  welcome_message: "Привет!"
  prompt_start: "Ты полезный ассистент."
  parse_mode: markdown
`
	if err := os.WriteFile(filepath.Join(dir, "en.yml"), []byte(en), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ru.yml"), []byte(ru), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoadDir(t *testing.T) {
	r, err := LoadDir(writeModesDir(t))
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}

	langs := r.Languages()
	if len(langs) != 2 || langs[0] != "en" || langs[1] != "ru" {
		t.Errorf("Languages = %v", langs)
	}

	all := r.All("en")
	if len(all) != 2 || all[0] != "artist" || all[1] != "assistant" {
		t.Errorf("All(en) = %v", all)
	}

	m, err := r.Get("ru", "assistant")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if m.Name != "Ассистент" {
		t.Errorf("Name = %q", m.Name)
	}
}

func TestUnknownLanguageFallsBack(t *testing.T) {
	r, err := LoadDir(writeModesDir(t))
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	m, err := r.Get("de", "assistant")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if m.Name != "Assistant" {
		t.Errorf("expected en fallback, got %q", m.Name)
	}
}

func TestUnknownModeIsError(t *testing.T) {
	r, err := LoadDir(writeModesDir(t))
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if _, err := r.Get("en", "pirate"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
	if r.Has("en", "pirate") {
		t.Error("Has should be false for unknown mode")
	}
}

func TestEmptyDirGetsBuiltinAssistant(t *testing.T) {
	r, err := LoadDir(t.TempDir())
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if !r.Has("en", DefaultMode) {
		t.Fatal("built-in assistant mode missing")
	}
	if r.SystemPrompt("en", DefaultMode) == "" {
		t.Error("built-in assistant has empty system prompt")
	}
}

func TestSystemPromptFallsBackForUnknownMode(t *testing.T) {
	r, err := LoadDir(writeModesDir(t))
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if r.SystemPrompt("en", "no-such-mode") == "" {
		t.Error("SystemPrompt should never be empty")
	}
}

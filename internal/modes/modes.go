// Package modes loads response-mode packs: named persona configurations
// (system prompt, welcome message, render hints) selectable per user,
// localized per language.
package modes

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultMode is the response mode assigned to newly registered users.
const DefaultMode = "assistant"

// DefaultLanguage is the fallback language for unknown language codes.
const DefaultLanguage = "en"

// ArtistMode routes messages to image generation instead of chat
// completion when an image generator is configured.
const ArtistMode = "artist"

// Mode is one persona configuration within a language pack.
type Mode struct {
	Name           string `yaml:"name"`
	WelcomeMessage string `yaml:"welcome_message"`
	PromptStart    string `yaml:"prompt_start"`
	ParseMode      string `yaml:"parse_mode"` // "html" or "markdown"
}

// Registry holds all loaded mode packs keyed by language code.
type Registry struct {
	packs map[string]map[string]Mode
}

// builtinAssistant keeps the gateway functional when no mode packs are
// installed.
var builtinAssistant = Mode{
	Name:           "🤖 Assistant",
	WelcomeMessage: "Hi, I'm your assistant. How can I help?",
	PromptStart:    "You are a helpful assistant. Answer concisely and accurately.",
	ParseMode:      "markdown",
}

// LoadDir reads every *.yml file in dir as a language pack; the file
// basename (e.g. "en", "ru") is the language code. A missing or empty
// directory yields a registry with only the built-in assistant mode.
func LoadDir(dir string) (*Registry, error) {
	r := &Registry{packs: map[string]map[string]Mode{}}

	paths, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("modes: glob %s: %w", dir, err)
	}

	for _, path := range paths {
		lang := strings.TrimSuffix(filepath.Base(path), ".yml")
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("modes: read %s: %w", path, err)
		}
		pack := map[string]Mode{}
		if err := yaml.Unmarshal(data, &pack); err != nil {
			return nil, fmt.Errorf("modes: parse %s: %w", path, err)
		}
		r.packs[lang] = pack
	}

	if _, ok := r.packs[DefaultLanguage]; !ok {
		r.packs[DefaultLanguage] = map[string]Mode{DefaultMode: builtinAssistant}
	}
	if _, ok := r.packs[DefaultLanguage][DefaultMode]; !ok {
		r.packs[DefaultLanguage][DefaultMode] = builtinAssistant
	}

	return r, nil
}

// Languages returns the sorted list of loaded language codes.
func (r *Registry) Languages() []string {
	langs := make([]string, 0, len(r.packs))
	for lang := range r.packs {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// All returns the sorted mode keys for a language.
func (r *Registry) All(lang string) []string {
	pack := r.pack(lang)
	keys := make([]string, 0, len(pack))
	for k := range pack {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the Mode for (lang, mode). Unknown modes are an error;
// unknown languages fall back to the default language.
func (r *Registry) Get(lang, mode string) (Mode, error) {
	pack := r.pack(lang)
	m, ok := pack[mode]
	if !ok {
		return Mode{}, fmt.Errorf("modes: unknown mode %q", mode)
	}
	return m, nil
}

// Has reports whether the mode exists for the language (after fallback).
func (r *Registry) Has(lang, mode string) bool {
	_, ok := r.pack(lang)[mode]
	return ok
}

// SystemPrompt returns the mode's prompt_start, falling back to the
// built-in assistant prompt for unknown modes so generation never runs
// without a system entry.
func (r *Registry) SystemPrompt(lang, mode string) string {
	m, err := r.Get(lang, mode)
	if err != nil {
		return builtinAssistant.PromptStart
	}
	return m.PromptStart
}

// pack resolves the language pack with default-language fallback.
func (r *Registry) pack(lang string) map[string]Mode {
	if pack, ok := r.packs[lang]; ok {
		return pack
	}
	return r.packs[DefaultLanguage]
}

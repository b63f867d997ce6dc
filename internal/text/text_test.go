package text

import (
	"strings"
	"testing"
)

func TestFallbackToEnglish(t *testing.T) {
	if got := WaitForReply("de"); got != WaitForReply("en") {
		t.Errorf("unsupported language should fall back to en, got %q", got)
	}
}

func TestRussianTable(t *testing.T) {
	if Cancelled("ru") == Cancelled("en") {
		t.Error("ru table not used")
	}
}

func TestDialogTooLongPlural(t *testing.T) {
	one := DialogTooLong("en", 1)
	if strings.Contains(one, "%d") || strings.Contains(one, "1 first") {
		t.Errorf("singular form wrong: %q", one)
	}
	three := DialogTooLong("en", 3)
	if !strings.Contains(three, "3") {
		t.Errorf("plural form should contain the count: %q", three)
	}
}

func TestFormattedStrings(t *testing.T) {
	if !strings.Contains(NewDialogDueToTimeout("en", "Assistant"), "Assistant") {
		t.Error("mode name missing from timeout notice")
	}
	if !strings.Contains(ModelSet("en", "gpt-4o"), "gpt-4o") {
		t.Error("model name missing")
	}
	if !strings.Contains(TokensUsed("en", 1234), "1234") {
		t.Error("token count missing")
	}
}

func TestAllKeysPresentInAllLanguages(t *testing.T) {
	en := tables["en"]
	for lang, table := range tables {
		for k := range en {
			if _, ok := table[k]; !ok {
				t.Errorf("language %s missing key %s", lang, k)
			}
		}
		if len(table) != len(en) {
			t.Errorf("language %s has %d keys, en has %d", lang, len(table), len(en))
		}
	}
}

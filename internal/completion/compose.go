package completion

import "github.com/parleybot/parley/internal/models"

// Compose assembles the context window: one system entry, then one
// user/assistant pair per history turn in chronological order, then the
// new user entry. It only assembles; trimming is the caller's decision,
// driven by ErrContextTooLong from the provider.
func Compose(systemPrompt string, history []models.Turn, userText string, userImages []string) []Entry {
	entries := make([]Entry, 0, 2*len(history)+2)
	entries = append(entries, Entry{Role: RoleSystem, Text: systemPrompt})
	for _, turn := range history {
		entries = append(entries, Entry{Role: RoleUser, Text: turn.UserText, Images: turn.Images()})
		entries = append(entries, Entry{Role: RoleAssistant, Text: turn.BotText})
	}
	entries = append(entries, Entry{Role: RoleUser, Text: userText, Images: userImages})
	return entries
}

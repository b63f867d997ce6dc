// Package text provides the localized user-facing reply strings.
// English is the fallback for unsupported language codes.
package text

import "fmt"

type key string

const (
	keyWelcome           key = "welcome"
	keyHelp              key = "help"
	keyWaitForReply      key = "wait_for_reply"
	keyCancelled         key = "cancelled"
	keyNothingToCancel   key = "nothing_to_cancel"
	keyNewDialog         key = "new_dialog"
	keyNewDialogTimeout  key = "new_dialog_timeout"
	keyDialogTooLongOne  key = "dialog_too_long_one"
	keyDialogTooLongMany key = "dialog_too_long_many"
	keyEmptyMessage      key = "empty_message"
	keyCantSwitch        key = "cant_switch"
	keyGenerationFailed  key = "generation_failed"
	keyNoMessageToRetry  key = "no_message_to_retry"
	keyModelSet          key = "model_set"
	keySelectModel       key = "select_model"
	keyUnknownModel      key = "unknown_model"
	keyUnknownMode       key = "unknown_mode"
	keySelectMode        key = "select_mode"
	keyYouSpent          key = "you_spent"
	keyTokensUsed        key = "tokens_used"
	keyImagesGenerated   key = "images_generated"
	keyAudioTranscribed  key = "audio_transcribed"
	keyTranscribedPrefix key = "transcribed_prefix"
)

var tables = map[string]map[key]string{
	"en": {
		keyWelcome:           "Hi! I'm Parley, a chat assistant bot.",
		keyHelp:              "Commands:\n/new — start a new dialog\n/cancel — cancel the current reply\n/retry — regenerate the last answer\n/mode — list or set response modes\n/model — list or set models\n/balance — show your usage\n/help — this message",
		keyWaitForReply:      "⏳ Please wait for a reply to the previous message, or /cancel it.",
		keyCancelled:         "✅ Cancelled.",
		keyNothingToCancel:   "There is nothing to cancel.",
		keyNewDialog:         "Starting a new dialog ✅",
		keyNewDialogTimeout:  "Starting a new dialog (%s) due to timeout ✅",
		keyDialogTooLongOne:  "✍️ Note: your current dialog is too long, so the first message was removed from the context.",
		keyDialogTooLongMany: "✍️ Note: your current dialog is too long, so %d first messages were removed from the context.",
		keyEmptyMessage:      "🥲 You sent an empty message. Please try again.",
		keyCantSwitch:        "Can't find the dialog for that message, sorry.",
		keyGenerationFailed:  "Something went wrong during completion. Please try again.",
		keyNoMessageToRetry:  "No message to retry.",
		keyModelSet:          "Model set to %s. Starting a new dialog.",
		keySelectModel:       "Current model: %s. Available: %s",
		keyUnknownModel:      "Unknown model %q. Available: %s",
		keyUnknownMode:       "Unknown mode %q. Available: %s",
		keySelectMode:        "Select a mode with /mode <name>. Available: %s",
		keyYouSpent:          "You spent",
		keyTokensUsed:        "%d tokens used",
		keyImagesGenerated:   "%d images generated",
		keyAudioTranscribed:  "%.0f seconds transcribed",
		keyTranscribedPrefix: "🎤: %s",
	},
	"ru": {
		keyWelcome:           "Привет! Я Parley, чат-ассистент.",
		keyHelp:              "Команды:\n/new — начать новый диалог\n/cancel — отменить текущий ответ\n/retry — повторить последний ответ\n/mode — выбрать режим\n/model — выбрать модель\n/balance — показать расходы\n/help — это сообщение",
		keyWaitForReply:      "⏳ Пожалуйста, дождитесь ответа на предыдущее сообщение или отмените его командой /cancel.",
		keyCancelled:         "✅ Отменено.",
		keyNothingToCancel:   "Нечего отменять.",
		keyNewDialog:         "Начинаю новый диалог ✅",
		keyNewDialogTimeout:  "Начинаю новый диалог (%s) из-за тайм-аута ✅",
		keyDialogTooLongOne:  "✍️ Примечание: диалог слишком длинный, первое сообщение удалено из контекста.",
		keyDialogTooLongMany: "✍️ Примечание: диалог слишком длинный, удалено первых сообщений из контекста: %d.",
		keyEmptyMessage:      "🥲 Вы отправили пустое сообщение. Попробуйте ещё раз.",
		keyCantSwitch:        "Не удалось найти диалог для этого сообщения.",
		keyGenerationFailed:  "Что-то пошло не так при генерации ответа. Попробуйте ещё раз.",
		keyNoMessageToRetry:  "Нет сообщения для повтора.",
		keyModelSet:          "Модель переключена на %s. Начинаю новый диалог.",
		keySelectModel:       "Текущая модель: %s. Доступны: %s",
		keyUnknownModel:      "Неизвестная модель %q. Доступны: %s",
		keyUnknownMode:       "Неизвестный режим %q. Доступны: %s",
		keySelectMode:        "Выберите режим командой /mode <name>. Доступны: %s",
		keyYouSpent:          "Вы потратили",
		keyTokensUsed:        "использовано токенов: %d",
		keyImagesGenerated:   "изображений сгенерировано: %d",
		keyAudioTranscribed:  "распознано секунд аудио: %.0f",
		keyTranscribedPrefix: "🎤: %s",
	},
}

func lookup(lang string, k key) string {
	if table, ok := tables[lang]; ok {
		if s, ok := table[k]; ok {
			return s
		}
	}
	return tables["en"][k]
}

func Welcome(lang string) string         { return lookup(lang, keyWelcome) }
func Help(lang string) string            { return lookup(lang, keyHelp) }
func WaitForReply(lang string) string    { return lookup(lang, keyWaitForReply) }
func Cancelled(lang string) string       { return lookup(lang, keyCancelled) }
func NothingToCancel(lang string) string { return lookup(lang, keyNothingToCancel) }
func NewDialog(lang string) string       { return lookup(lang, keyNewDialog) }
func EmptyMessage(lang string) string    { return lookup(lang, keyEmptyMessage) }
func CantSwitch(lang string) string      { return lookup(lang, keyCantSwitch) }
func NoMessageToRetry(lang string) string {
	return lookup(lang, keyNoMessageToRetry)
}
func GenerationFailed(lang string) string {
	return lookup(lang, keyGenerationFailed)
}

// NewDialogDueToTimeout names the mode the fresh dialog keeps.
func NewDialogDueToTimeout(lang, modeName string) string {
	return fmt.Sprintf(lookup(lang, keyNewDialogTimeout), modeName)
}

// DialogTooLong reports how many leading messages were dropped from the
// context window.
func DialogTooLong(lang string, count int) string {
	if count == 1 {
		return lookup(lang, keyDialogTooLongOne)
	}
	return fmt.Sprintf(lookup(lang, keyDialogTooLongMany), count)
}

func ModelSet(lang, model string) string {
	return fmt.Sprintf(lookup(lang, keyModelSet), model)
}

func SelectModel(lang, current, available string) string {
	return fmt.Sprintf(lookup(lang, keySelectModel), current, available)
}

func UnknownModel(lang, model, available string) string {
	return fmt.Sprintf(lookup(lang, keyUnknownModel), model, available)
}

func UnknownMode(lang, mode, available string) string {
	return fmt.Sprintf(lookup(lang, keyUnknownMode), mode, available)
}

func SelectMode(lang, available string) string {
	return fmt.Sprintf(lookup(lang, keySelectMode), available)
}

func YouSpent(lang string) string { return lookup(lang, keyYouSpent) }

func TokensUsed(lang string, count int64) string {
	return fmt.Sprintf(lookup(lang, keyTokensUsed), count)
}

func ImagesGenerated(lang string, count int64) string {
	return fmt.Sprintf(lookup(lang, keyImagesGenerated), count)
}

func AudioTranscribed(lang string, seconds float64) string {
	return fmt.Sprintf(lookup(lang, keyAudioTranscribed), seconds)
}

func Transcribed(lang, transcript string) string {
	return fmt.Sprintf(lookup(lang, keyTranscribedPrefix), transcript)
}

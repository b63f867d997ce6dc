package models

import (
	"encoding/json"
	"time"
)

// Dialog is an ordered sequence of turns belonging to one user. It is
// tagged with the response mode and model that were active when it
// started. Old dialogs are retained for reply-based context switches.
type Dialog struct {
	ID        string `gorm:"primaryKey;size:36"`
	UserID    uint   `gorm:"not null;index"`
	Mode      string `gorm:"size:64"`
	Model     string `gorm:"size:64"`
	StartedAt time.Time
}

// Turn is one user-message/bot-response pair within a dialog. Turns are
// immutable once frozen; only the in-progress last turn's bot text
// accretes during the streaming relay. BotMessageID is the platform
// message id of the bot's response, used for reply-based dialog lookups.
type Turn struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	DialogID     string `gorm:"size:36;not null;index"`
	Sequence     int    `gorm:"not null"`
	UserText     string `gorm:"type:text"`
	UserImages   string `gorm:"type:text"` // JSON array of base64 image payloads
	BotText      string `gorm:"type:text"`
	BotMessageID string `gorm:"size:64;index"`
	CreatedAt    time.Time
}

// Images decodes the attached image payloads. Returns nil when the turn
// has none or the stored value is malformed.
func (t Turn) Images() []string {
	if t.UserImages == "" {
		return nil
	}
	var images []string
	if err := json.Unmarshal([]byte(t.UserImages), &images); err != nil {
		return nil
	}
	return images
}

// EncodeImages serializes image payloads for storage on a Turn. Empty
// input encodes to the empty string.
func EncodeImages(images []string) string {
	if len(images) == 0 {
		return ""
	}
	raw, err := json.Marshal(images)
	if err != nil {
		return ""
	}
	return string(raw)
}

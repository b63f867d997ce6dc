package models

import "time"

// User is a conversation owner, created on first contact and never deleted.
// Usage counters on related rows are append-only.
type User struct {
	ID                  uint   `gorm:"primaryKey;autoIncrement"`
	Platform            string `gorm:"size:16;not null;uniqueIndex:idx_platform_user"`
	PlatformUserID      string `gorm:"size:64;not null;uniqueIndex:idx_platform_user"`
	ChannelID           string `gorm:"size:64"`
	Username            string `gorm:"size:128"`
	CurrentMode         string `gorm:"size:64;default:assistant"`
	CurrentModel        string `gorm:"size:64"`
	CurrentDialogID     string `gorm:"size:36"`
	LastInteractionAt   time.Time
	NGeneratedImages    int64
	NTranscribedSeconds float64
	CreatedAt           time.Time
}

package models

import "time"

// ModelUsage accumulates token counts per (user, model) pair. Counters
// are only ever incremented.
type ModelUsage struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	UserID       uint   `gorm:"not null;uniqueIndex:idx_user_model"`
	Model        string `gorm:"size:64;not null;uniqueIndex:idx_user_model"`
	InputTokens  int64
	OutputTokens int64
	UpdatedAt    time.Time
}

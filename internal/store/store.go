// Package store persists users, dialogs, turns, and usage counters.
// It is the single storage boundary of the gateway: one interface, one
// GORM-backed implementation selected at startup.
package store

import (
	"errors"
	"time"

	"github.com/parleybot/parley/internal/models"
)

// ErrNotFound is returned for lookups that match no stored record.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence contract the gateway depends on. Usage
// counters are strictly additive; dialogs are never deleted.
type Store interface {
	// RegisterUser creates the user and their first dialog if the
	// (platform, platformUserID) pair is unknown. Idempotent.
	RegisterUser(platform, platformUserID, channelID, username, mode, model string) (*models.User, error)
	GetUser(platform, platformUserID string) (*models.User, error)
	UserByID(id uint) (*models.User, error)
	AllUsers() ([]models.User, error)

	CurrentDialogID(userID uint) (string, error)
	// StartNewDialog allocates a fresh dialog carrying the user's active
	// mode and model, and makes it current.
	StartNewDialog(userID uint) (string, error)
	// ForkDialog starts a new current dialog pre-populated with turns and
	// carrying the given mode (context-switch fork).
	ForkDialog(userID uint, mode string, turns []models.Turn) (string, error)
	Dialog(dialogID string) (*models.Dialog, error)

	// Turns returns the ordered turns of a dialog; empty dialogID means
	// the user's current dialog.
	Turns(userID uint, dialogID string) ([]models.Turn, error)
	AppendTurn(userID uint, dialogID string, turn models.Turn) error
	// SetTurns replaces a dialog's turns wholesale (used by /retry).
	SetTurns(userID uint, dialogID string, turns []models.Turn) error
	// FindTurnByBotMessage locates the dialog and zero-based turn index
	// whose bot response has the given platform message id. Scans all of
	// the user's dialogs. Returns ErrNotFound when unmatched.
	FindTurnByBotMessage(userID uint, botMessageID string) (string, int, error)

	SetMode(userID uint, mode string) error
	SetModel(userID uint, model string) error
	LastInteraction(userID uint) (time.Time, error)
	SetLastInteraction(userID uint, t time.Time) error

	// AppendUsage adds token counts to the (user, model) counter:
	// new = old + delta, never overwritten wholesale.
	AppendUsage(userID uint, model string, inputTokens, outputTokens int64) error
	Usage(userID uint) ([]models.ModelUsage, error)
	AddGeneratedImages(userID uint, n int64) error
	AddTranscribedSeconds(userID uint, seconds float64) error
}

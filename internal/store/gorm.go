package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/parleybot/parley/internal/models"
	"gorm.io/gorm"
)

// GormStore implements Store on a GORM connection (SQLite or MySQL).
type GormStore struct {
	db *gorm.DB
}

// New creates a GormStore.
func New(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("store: db is required")
	}
	return &GormStore{db: db}, nil
}

// RegisterUser creates the user and their first dialog if unknown.
func (s *GormStore) RegisterUser(platform, platformUserID, channelID, username, mode, model string) (*models.User, error) {
	var user models.User

	err := s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("platform = ? AND platform_user_id = ?", platform, platformUserID).First(&user)
		if result.Error == nil {
			return nil
		}
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return fmt.Errorf("lookup user: %w", result.Error)
		}

		now := time.Now().UTC()
		user = models.User{
			Platform:          platform,
			PlatformUserID:    platformUserID,
			ChannelID:         channelID,
			Username:          username,
			CurrentMode:       mode,
			CurrentModel:      model,
			LastInteractionAt: now,
		}
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		dialog := models.Dialog{
			ID:        uuid.NewString(),
			UserID:    user.ID,
			Mode:      mode,
			Model:     model,
			StartedAt: now,
		}
		if err := tx.Create(&dialog).Error; err != nil {
			return fmt.Errorf("create first dialog: %w", err)
		}

		user.CurrentDialogID = dialog.ID
		if err := tx.Model(&user).Update("current_dialog_id", dialog.ID).Error; err != nil {
			return fmt.Errorf("set current dialog: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: register user: %w", err)
	}
	return &user, nil
}

// GetUser fetches a user by platform identity.
func (s *GormStore) GetUser(platform, platformUserID string) (*models.User, error) {
	var user models.User
	result := s.db.Where("platform = ? AND platform_user_id = ?", platform, platformUserID).First(&user)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if result.Error != nil {
		return nil, fmt.Errorf("store: get user: %w", result.Error)
	}
	return &user, nil
}

// UserByID fetches a user by primary key.
func (s *GormStore) UserByID(id uint) (*models.User, error) {
	var user models.User
	result := s.db.First(&user, id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if result.Error != nil {
		return nil, fmt.Errorf("store: user by id: %w", result.Error)
	}
	return &user, nil
}

// AllUsers returns every registered user, oldest first.
func (s *GormStore) AllUsers() ([]models.User, error) {
	var users []models.User
	if err := s.db.Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("store: all users: %w", err)
	}
	return users, nil
}

// CurrentDialogID returns the user's current dialog id.
func (s *GormStore) CurrentDialogID(userID uint) (string, error) {
	user, err := s.UserByID(userID)
	if err != nil {
		return "", err
	}
	return user.CurrentDialogID, nil
}

// StartNewDialog allocates a fresh dialog carrying the user's active
// mode and model, and makes it current.
func (s *GormStore) StartNewDialog(userID uint) (string, error) {
	var dialogID string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return fmt.Errorf("lookup user: %w", err)
		}

		dialog := models.Dialog{
			ID:        uuid.NewString(),
			UserID:    userID,
			Mode:      user.CurrentMode,
			Model:     user.CurrentModel,
			StartedAt: time.Now().UTC(),
		}
		if err := tx.Create(&dialog).Error; err != nil {
			return fmt.Errorf("create dialog: %w", err)
		}
		if err := tx.Model(&user).Update("current_dialog_id", dialog.ID).Error; err != nil {
			return fmt.Errorf("set current dialog: %w", err)
		}
		dialogID = dialog.ID
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("store: start new dialog: %w", err)
	}
	return dialogID, nil
}

// ForkDialog starts a new current dialog pre-populated with turns,
// carrying the given mode. The user's active model tags the fork.
func (s *GormStore) ForkDialog(userID uint, mode string, turns []models.Turn) (string, error) {
	var dialogID string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return fmt.Errorf("lookup user: %w", err)
		}

		dialog := models.Dialog{
			ID:        uuid.NewString(),
			UserID:    userID,
			Mode:      mode,
			Model:     user.CurrentModel,
			StartedAt: time.Now().UTC(),
		}
		if err := tx.Create(&dialog).Error; err != nil {
			return fmt.Errorf("create dialog: %w", err)
		}

		for i, turn := range turns {
			copied := models.Turn{
				DialogID:     dialog.ID,
				Sequence:     i,
				UserText:     turn.UserText,
				UserImages:   turn.UserImages,
				BotText:      turn.BotText,
				BotMessageID: turn.BotMessageID,
				CreatedAt:    turn.CreatedAt,
			}
			if err := tx.Create(&copied).Error; err != nil {
				return fmt.Errorf("copy turn %d: %w", i, err)
			}
		}

		updates := map[string]interface{}{
			"current_dialog_id": dialog.ID,
			"current_mode":      mode,
		}
		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			return fmt.Errorf("set current dialog: %w", err)
		}
		dialogID = dialog.ID
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("store: fork dialog: %w", err)
	}
	return dialogID, nil
}

// Dialog fetches a dialog by id.
func (s *GormStore) Dialog(dialogID string) (*models.Dialog, error) {
	var dialog models.Dialog
	result := s.db.First(&dialog, "id = ?", dialogID)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if result.Error != nil {
		return nil, fmt.Errorf("store: dialog: %w", result.Error)
	}
	return &dialog, nil
}

// Turns returns the ordered turns of a dialog; empty dialogID means the
// user's current dialog.
func (s *GormStore) Turns(userID uint, dialogID string) ([]models.Turn, error) {
	if dialogID == "" {
		var err error
		dialogID, err = s.CurrentDialogID(userID)
		if err != nil {
			return nil, err
		}
	}
	var turns []models.Turn
	if err := s.db.Where("dialog_id = ?", dialogID).Order("sequence").Find(&turns).Error; err != nil {
		return nil, fmt.Errorf("store: turns: %w", err)
	}
	return turns, nil
}

// AppendTurn appends a turn to a dialog, assigning the next sequence
// number. Empty dialogID means the user's current dialog.
func (s *GormStore) AppendTurn(userID uint, dialogID string, turn models.Turn) error {
	if dialogID == "" {
		var err error
		dialogID, err = s.CurrentDialogID(userID)
		if err != nil {
			return err
		}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var maxSeq int
		tx.Model(&models.Turn{}).
			Where("dialog_id = ?", dialogID).
			Select("COALESCE(MAX(sequence), -1)").Scan(&maxSeq)

		turn.DialogID = dialogID
		turn.Sequence = maxSeq + 1
		if turn.CreatedAt.IsZero() {
			turn.CreatedAt = time.Now().UTC()
		}
		if err := tx.Create(&turn).Error; err != nil {
			return fmt.Errorf("create turn: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store: append turn: %w", err)
	}
	return nil
}

// SetTurns replaces a dialog's turns wholesale. Empty dialogID means
// the user's current dialog.
func (s *GormStore) SetTurns(userID uint, dialogID string, turns []models.Turn) error {
	if dialogID == "" {
		var err error
		dialogID, err = s.CurrentDialogID(userID)
		if err != nil {
			return err
		}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("dialog_id = ?", dialogID).Delete(&models.Turn{}).Error; err != nil {
			return fmt.Errorf("clear turns: %w", err)
		}
		for i, turn := range turns {
			turn.ID = 0
			turn.DialogID = dialogID
			turn.Sequence = i
			if err := tx.Create(&turn).Error; err != nil {
				return fmt.Errorf("write turn %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store: set turns: %w", err)
	}
	return nil
}

// FindTurnByBotMessage locates the dialog and zero-based turn index
// whose bot response carries the platform message id.
func (s *GormStore) FindTurnByBotMessage(userID uint, botMessageID string) (string, int, error) {
	var turn models.Turn
	result := s.db.
		Where("bot_message_id = ? AND dialog_id IN (?)", botMessageID,
			s.db.Model(&models.Dialog{}).Select("id").Where("user_id = ?", userID)).
		First(&turn)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return "", 0, ErrNotFound
	}
	if result.Error != nil {
		return "", 0, fmt.Errorf("store: find turn by bot message: %w", result.Error)
	}
	return turn.DialogID, turn.Sequence, nil
}

// SetMode updates the user's active response mode.
func (s *GormStore) SetMode(userID uint, mode string) error {
	return s.updateUser(userID, "current_mode", mode)
}

// SetModel updates the user's active model.
func (s *GormStore) SetModel(userID uint, model string) error {
	return s.updateUser(userID, "current_model", model)
}

// LastInteraction returns the user's last-interaction timestamp.
func (s *GormStore) LastInteraction(userID uint) (time.Time, error) {
	user, err := s.UserByID(userID)
	if err != nil {
		return time.Time{}, err
	}
	return user.LastInteractionAt, nil
}

// SetLastInteraction refreshes the user's last-interaction timestamp.
func (s *GormStore) SetLastInteraction(userID uint, t time.Time) error {
	return s.updateUser(userID, "last_interaction_at", t)
}

// AppendUsage adds token counts to the (user, model) counter.
func (s *GormStore) AppendUsage(userID uint, model string, inputTokens, outputTokens int64) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var usage models.ModelUsage
		result := tx.Where("user_id = ? AND model = ?", userID, model).First(&usage)
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			usage = models.ModelUsage{
				UserID:       userID,
				Model:        model,
				InputTokens:  inputTokens,
				OutputTokens: outputTokens,
			}
			if err := tx.Create(&usage).Error; err != nil {
				return fmt.Errorf("create usage row: %w", err)
			}
			return nil
		}
		if result.Error != nil {
			return fmt.Errorf("lookup usage row: %w", result.Error)
		}

		updates := map[string]interface{}{
			"input_tokens":  gorm.Expr("input_tokens + ?", inputTokens),
			"output_tokens": gorm.Expr("output_tokens + ?", outputTokens),
		}
		if err := tx.Model(&usage).Updates(updates).Error; err != nil {
			return fmt.Errorf("increment usage row: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store: append usage: %w", err)
	}
	return nil
}

// Usage returns the per-model token counters for a user, sorted by model.
func (s *GormStore) Usage(userID uint) ([]models.ModelUsage, error) {
	var rows []models.ModelUsage
	if err := s.db.Where("user_id = ?", userID).Order("model").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: usage: %w", err)
	}
	return rows, nil
}

// AddGeneratedImages increments the user's generated-images counter.
func (s *GormStore) AddGeneratedImages(userID uint, n int64) error {
	result := s.db.Model(&models.User{}).Where("id = ?", userID).
		Update("n_generated_images", gorm.Expr("n_generated_images + ?", n))
	if result.Error != nil {
		return fmt.Errorf("store: add generated images: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AddTranscribedSeconds increments the user's transcribed-audio counter.
func (s *GormStore) AddTranscribedSeconds(userID uint, seconds float64) error {
	result := s.db.Model(&models.User{}).Where("id = ?", userID).
		Update("n_transcribed_seconds", gorm.Expr("n_transcribed_seconds + ?", seconds))
	if result.Error != nil {
		return fmt.Errorf("store: add transcribed seconds: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) updateUser(userID uint, column string, value interface{}) error {
	result := s.db.Model(&models.User{}).Where("id = ?", userID).Update(column, value)
	if result.Error != nil {
		return fmt.Errorf("store: update %s: %w", column, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

package gateway

import (
	"errors"
	"fmt"

	"github.com/parleybot/parley/internal/models"
	"github.com/parleybot/parley/internal/platform"
	"github.com/parleybot/parley/internal/store"
)

// Resolution is the outcome of the reply-based context-switch check.
type Resolution int

const (
	// NotNeeded: not a reply to one of our messages, or already in the
	// right context.
	NotNeeded Resolution = iota
	// Switched: a new current dialog was forked from the target dialog.
	Switched
	// CantSwitch: the replied-to message resolves to no stored turn;
	// the message must not be processed further.
	CantSwitch
)

// resolveContextSwitch inspects a reply reference and, when the user
// replied to an older bot response, forks a new current dialog whose
// history is the target dialog's prefix up to and including the
// replied-to turn. The fork carries the target dialog's response mode.
func (g *Gateway) resolveContextSwitch(user *models.User, msg platform.InboundMessage) (Resolution, error) {
	if msg.ReplyToMessageID == "" || !msg.ReplyAuthorIsBot {
		return NotNeeded, nil
	}

	dialogID, index, err := g.store.FindTurnByBotMessage(user.ID, msg.ReplyToMessageID)
	if errors.Is(err, store.ErrNotFound) {
		return CantSwitch, nil
	}
	if err != nil {
		return NotNeeded, fmt.Errorf("gateway: resolve reply: %w", err)
	}

	currentID, err := g.store.CurrentDialogID(user.ID)
	if err != nil {
		return NotNeeded, fmt.Errorf("gateway: current dialog: %w", err)
	}

	targetTurns, err := g.store.Turns(user.ID, dialogID)
	if err != nil {
		return NotNeeded, fmt.Errorf("gateway: target turns: %w", err)
	}

	// Reply to the last turn of the already-current dialog: no fork.
	if dialogID == currentID && index == len(targetTurns)-1 {
		return NotNeeded, nil
	}

	target, err := g.store.Dialog(dialogID)
	if err != nil {
		return NotNeeded, fmt.Errorf("gateway: target dialog: %w", err)
	}

	if _, err := g.store.ForkDialog(user.ID, target.Mode, targetTurns[:index+1]); err != nil {
		return NotNeeded, fmt.Errorf("gateway: fork dialog: %w", err)
	}
	return Switched, nil
}

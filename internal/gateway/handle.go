package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/parleybot/parley/internal/completion"
	"github.com/parleybot/parley/internal/dispatch"
	"github.com/parleybot/parley/internal/models"
	"github.com/parleybot/parley/internal/modes"
	"github.com/parleybot/parley/internal/platform"
	"github.com/parleybot/parley/internal/text"
)

// placeholderText seeds the bot's reply message before the first
// streamed edit arrives.
const placeholderText = "..."

type chatOpts struct {
	// bypassTimeout skips the stale-dialog check (used by /retry).
	bypassTimeout bool
}

// handleChat runs one conversational message through the full pipeline:
// voice transcription, context-switch resolution, per-user dispatch,
// streaming generation, and turn/usage persistence.
func (g *Gateway) handleChat(ctx context.Context, user *models.User, msg platform.InboundMessage, opts chatOpts) {
	msgText := strings.TrimSpace(msg.Text)
	images := msg.Images

	if len(msg.Audio) > 0 {
		transcript, ok := g.transcribeVoice(ctx, user, msg)
		if !ok {
			return
		}
		msgText = transcript
	}

	if msgText == "" && len(images) == 0 {
		g.sendText(ctx, msg.ChannelID, text.EmptyMessage(g.lang))
		return
	}

	// The context-switch check and any fork must complete, and the
	// last-interaction timestamp must be refreshed, before the
	// stale-dialog check runs. Otherwise a context switch would be
	// treated as a timed-out dialog.
	switch res, err := g.resolveContextSwitch(user, msg); {
	case err != nil:
		log.Printf("gateway: context switch for user %d: %v", user.ID, err)
	case res == CantSwitch:
		g.sendText(ctx, msg.ChannelID, text.CantSwitch(g.lang))
		return
	case res == Switched:
		if err := g.store.SetLastInteraction(user.ID, time.Now()); err != nil {
			log.Printf("gateway: refresh interaction for user %d: %v", user.ID, err)
		}
	}

	err := g.dispatcher.Dispatch(ctx, slotKey(user), func(runCtx context.Context) error {
		return g.generate(runCtx, user.ID, msg.ChannelID, msgText, images, opts)
	})
	switch {
	case err == nil:
	case errors.Is(err, dispatch.ErrBusy):
		g.sendText(ctx, msg.ChannelID, text.WaitForReply(g.lang))
	case errors.Is(err, context.Canceled):
		g.sendText(ctx, msg.ChannelID, text.Cancelled(g.lang))
	default:
		log.Printf("gateway: generation for user %d: %v", user.ID, err)
		g.sendText(ctx, msg.ChannelID, text.GenerationFailed(g.lang))
	}
}

// transcribeVoice turns a voice note into message text, echoes the
// transcript back, and charges the transcribed seconds.
func (g *Gateway) transcribeVoice(ctx context.Context, user *models.User, msg platform.InboundMessage) (string, bool) {
	if g.transcriber == nil {
		g.sendText(ctx, msg.ChannelID, text.EmptyMessage(g.lang))
		return "", false
	}
	transcript, err := g.transcriber.Transcribe(ctx, msg.AudioName, bytes.NewReader(msg.Audio))
	if err != nil {
		log.Printf("gateway: transcribe for user %d: %v", user.ID, err)
		g.sendText(ctx, msg.ChannelID, text.GenerationFailed(g.lang))
		return "", false
	}
	g.sendText(ctx, msg.ChannelID, text.Transcribed(g.lang, transcript))

	seconds := msg.AudioSeconds
	if seconds <= 0 {
		// Platforms don't always report duration; approximate from the
		// payload size at a nominal voice-note bitrate.
		seconds = float64(len(msg.Audio)) / 16000
	}
	if err := g.store.AddTranscribedSeconds(user.ID, seconds); err != nil {
		log.Printf("gateway: charge transcription for user %d: %v", user.ID, err)
	}
	return transcript, true
}

// generate runs under the user's dispatch slot. Errors returned here
// surface at the dispatcher boundary in handleChat; cancellation
// arrives through runCtx.
func (g *Gateway) generate(ctx context.Context, userID uint, channelID, msgText string, images []string, opts chatOpts) error {
	// Re-read the user: commands may have changed mode or model since
	// the message was received.
	user, err := g.store.UserByID(userID)
	if err != nil {
		return fmt.Errorf("gateway: load user: %w", err)
	}

	if !opts.bypassTimeout {
		if err := g.maybeExpireDialog(ctx, user, channelID); err != nil {
			log.Printf("gateway: expire dialog for user %d: %v", user.ID, err)
		}
	}
	if err := g.store.SetLastInteraction(user.ID, time.Now()); err != nil {
		log.Printf("gateway: refresh interaction for user %d: %v", user.ID, err)
	}

	if user.CurrentMode == modes.ArtistMode && g.artist != nil {
		return g.paint(ctx, user, channelID, msgText)
	}

	placeholderID, err := g.adapter.Send(ctx, channelID, placeholderText)
	if err != nil {
		return fmt.Errorf("gateway: send placeholder: %w", err)
	}
	if err := g.adapter.Typing(ctx, channelID); err != nil {
		log.Printf("gateway: typing indicator: %v", err)
	}

	history, err := g.store.Turns(user.ID, "")
	if err != nil {
		return fmt.Errorf("gateway: load history: %w", err)
	}

	rel := newRelay(g.adapter, channelID, placeholderID)
	systemPrompt := g.modes.SystemPrompt(g.lang, user.CurrentMode)
	result, err := completion.Run(ctx, g.streamer, user.CurrentModel, systemPrompt, history, msgText, images,
		func(p completion.Partial) error { return rel.push(ctx, p) })
	if err != nil {
		return err
	}

	turn := models.Turn{
		UserText:     msgText,
		UserImages:   models.EncodeImages(images),
		BotText:      result.Answer,
		BotMessageID: placeholderID,
	}
	if err := g.store.AppendTurn(user.ID, "", turn); err != nil {
		return fmt.Errorf("gateway: append turn: %w", err)
	}
	if err := g.store.AppendUsage(user.ID, user.CurrentModel, result.InputTokens, result.OutputTokens); err != nil {
		log.Printf("gateway: append usage for user %d: %v", user.ID, err)
	}

	if result.HistoryDropped > 0 {
		g.sendText(ctx, channelID, text.DialogTooLong(g.lang, result.HistoryDropped))
	}
	return nil
}

// maybeExpireDialog starts a fresh dialog when the user has been silent
// longer than the configured timeout and the current dialog has turns.
func (g *Gateway) maybeExpireDialog(ctx context.Context, user *models.User, channelID string) error {
	last, err := g.store.LastInteraction(user.ID)
	if err != nil {
		return err
	}
	timeout := time.Duration(g.cfg.Bot.NewDialogTimeoutSec) * time.Second
	if last.IsZero() || time.Since(last) < timeout {
		return nil
	}
	turns, err := g.store.Turns(user.ID, "")
	if err != nil {
		return err
	}
	if len(turns) == 0 {
		return nil
	}
	if _, err := g.store.StartNewDialog(user.ID); err != nil {
		return err
	}
	modeName := user.CurrentMode
	if m, err := g.modes.Get(g.lang, user.CurrentMode); err == nil {
		modeName = m.Name
	}
	g.sendText(ctx, channelID, text.NewDialogDueToTimeout(g.lang, modeName))
	return nil
}

// paint handles artist mode: the message is an image prompt.
func (g *Gateway) paint(ctx context.Context, user *models.User, channelID, prompt string) error {
	if err := g.adapter.Typing(ctx, channelID); err != nil {
		log.Printf("gateway: typing indicator: %v", err)
	}
	rendered, err := g.artist.GenerateImages(ctx, prompt, g.cfg.Bot.NImagesPerRequest)
	if err != nil {
		return fmt.Errorf("gateway: generate images: %w", err)
	}
	for i, img := range rendered {
		payload, err := base64.StdEncoding.DecodeString(img)
		if err != nil {
			log.Printf("gateway: decode image %d for user %d: %v", i, user.ID, err)
			continue
		}
		name := fmt.Sprintf("image-%d.png", i+1)
		if _, err := g.adapter.SendImage(ctx, channelID, name, payload); err != nil {
			log.Printf("gateway: send image for user %d: %v", user.ID, err)
		}
	}
	if err := g.store.AddGeneratedImages(user.ID, int64(len(rendered))); err != nil {
		log.Printf("gateway: charge images for user %d: %v", user.ID, err)
	}
	return nil
}

func (g *Gateway) sendText(ctx context.Context, channelID, body string) {
	if _, err := g.adapter.Send(ctx, channelID, body); err != nil {
		log.Printf("gateway: send: %v", err)
	}
}

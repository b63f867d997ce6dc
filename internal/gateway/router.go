package gateway

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/parleybot/parley/internal/models"
	"github.com/parleybot/parley/internal/modes"
	"github.com/parleybot/parley/internal/platform"
	"github.com/parleybot/parley/internal/text"
)

// Route is the entry point for one inbound message: it enforces the
// allow-list, registers the user, and routes slash commands or
// conversational messages.
func (g *Gateway) Route(ctx context.Context, msg platform.InboundMessage) {
	if !g.cfg.UserAllowed(msg.UserID) {
		fmt.Fprintf(g.out, "gateway: ignoring message from unlisted user %s\n", msg.UserID)
		return
	}

	user, err := g.store.RegisterUser(msg.Platform, msg.UserID, msg.ChannelID, msg.UserName,
		modes.DefaultMode, g.cfg.Bot.DefaultModel)
	if err != nil {
		log.Printf("gateway: register user %s: %v", msg.UserID, err)
		return
	}

	cmd, arg := parseCommand(msg.Text)
	if cmd == "" {
		g.handleChat(ctx, user, msg, chatOpts{})
		return
	}

	switch cmd {
	case "start":
		g.sendText(ctx, msg.ChannelID, text.Welcome(g.lang)+"\n\n"+text.Help(g.lang))
	case "help":
		g.sendText(ctx, msg.ChannelID, text.Help(g.lang))
	case "new":
		g.handleNew(ctx, user, msg.ChannelID)
	case "cancel":
		g.handleCancel(ctx, user, msg.ChannelID)
	case "retry":
		g.handleRetry(ctx, user, msg)
	case "mode":
		g.handleMode(ctx, user, msg.ChannelID, arg)
	case "model":
		g.handleModel(ctx, user, msg.ChannelID, arg)
	case "balance":
		g.handleBalance(ctx, user, msg.ChannelID)
	case "stats":
		g.handleStats(ctx, user, msg.ChannelID)
	default:
		g.sendText(ctx, msg.ChannelID, text.Help(g.lang))
	}
}

// parseCommand splits "/mode artist" into ("mode", "artist"). Returns
// an empty command for non-command text.
func parseCommand(body string) (string, string) {
	body = strings.TrimSpace(body)
	if !strings.HasPrefix(body, "/") {
		return "", ""
	}
	fields := strings.Fields(body[1:])
	if len(fields) == 0 {
		return "", ""
	}
	return strings.ToLower(fields[0]), strings.Join(fields[1:], " ")
}

func (g *Gateway) handleNew(ctx context.Context, user *models.User, channelID string) {
	if _, err := g.store.StartNewDialog(user.ID); err != nil {
		log.Printf("gateway: new dialog for user %d: %v", user.ID, err)
		g.sendText(ctx, channelID, text.GenerationFailed(g.lang))
		return
	}
	g.sendText(ctx, channelID, text.NewDialog(g.lang))
	if m, err := g.modes.Get(g.lang, user.CurrentMode); err == nil && m.WelcomeMessage != "" {
		g.sendText(ctx, channelID, m.WelcomeMessage)
	}
}

// handleCancel requests cooperative cancellation. The cancelled reply
// itself comes from the unwinding generation path, so only the
// nothing-in-flight case answers here.
func (g *Gateway) handleCancel(ctx context.Context, user *models.User, channelID string) {
	if !g.dispatcher.Cancel(slotKey(user)) {
		g.sendText(ctx, channelID, text.NothingToCancel(g.lang))
	}
}

// handleRetry removes the last turn from the current dialog and replays
// its user message, bypassing the stale-dialog timeout.
func (g *Gateway) handleRetry(ctx context.Context, user *models.User, msg platform.InboundMessage) {
	turns, err := g.store.Turns(user.ID, "")
	if err != nil {
		log.Printf("gateway: retry turns for user %d: %v", user.ID, err)
		return
	}
	if len(turns) == 0 {
		g.sendText(ctx, msg.ChannelID, text.NoMessageToRetry(g.lang))
		return
	}
	last := turns[len(turns)-1]
	if err := g.store.SetTurns(user.ID, "", turns[:len(turns)-1]); err != nil {
		log.Printf("gateway: retry truncate for user %d: %v", user.ID, err)
		return
	}

	replay := msg
	replay.Text = last.UserText
	replay.Images = last.Images()
	replay.Audio = nil
	replay.ReplyToMessageID = ""
	g.handleChat(ctx, user, replay, chatOpts{bypassTimeout: true})
}

func (g *Gateway) handleMode(ctx context.Context, user *models.User, channelID, arg string) {
	available := strings.Join(g.modes.All(g.lang), ", ")
	if arg == "" {
		g.sendText(ctx, channelID, text.SelectMode(g.lang, available))
		return
	}
	key := strings.ToLower(arg)
	if !g.modes.Has(g.lang, key) {
		g.sendText(ctx, channelID, text.UnknownMode(g.lang, arg, available))
		return
	}
	if err := g.store.SetMode(user.ID, key); err != nil {
		log.Printf("gateway: set mode for user %d: %v", user.ID, err)
		return
	}
	if _, err := g.store.StartNewDialog(user.ID); err != nil {
		log.Printf("gateway: new dialog for user %d: %v", user.ID, err)
		return
	}
	if m, err := g.modes.Get(g.lang, key); err == nil {
		g.sendText(ctx, channelID, m.WelcomeMessage)
	}
}

func (g *Gateway) handleModel(ctx context.Context, user *models.User, channelID, arg string) {
	available := strings.Join(g.cfg.Bot.AvailableModels, ", ")
	if arg == "" {
		g.sendText(ctx, channelID, text.SelectModel(g.lang, user.CurrentModel, available))
		return
	}
	found := false
	for _, m := range g.cfg.Bot.AvailableModels {
		if m == arg {
			found = true
			break
		}
	}
	if !found {
		g.sendText(ctx, channelID, text.UnknownModel(g.lang, arg, available))
		return
	}
	if err := g.store.SetModel(user.ID, arg); err != nil {
		log.Printf("gateway: set model for user %d: %v", user.ID, err)
		return
	}
	// A model switch changes the context budget, so start fresh.
	if _, err := g.store.StartNewDialog(user.ID); err != nil {
		log.Printf("gateway: new dialog for user %d: %v", user.ID, err)
		return
	}
	g.sendText(ctx, channelID, text.ModelSet(g.lang, arg))
}

func (g *Gateway) handleBalance(ctx context.Context, user *models.User, channelID string) {
	fresh, err := g.store.UserByID(user.ID)
	if err != nil {
		log.Printf("gateway: balance for user %d: %v", user.ID, err)
		return
	}
	rows, err := g.store.Usage(user.ID)
	if err != nil {
		log.Printf("gateway: usage for user %d: %v", user.ID, err)
		return
	}
	g.sendText(ctx, channelID, g.calc.Report(g.lang, rows, fresh.NGeneratedImages, fresh.NTranscribedSeconds))
}

// handleStats is the admin-only per-user spend summary.
func (g *Gateway) handleStats(ctx context.Context, user *models.User, channelID string) {
	if g.cfg.Bot.AdminUserID == "" || user.PlatformUserID != g.cfg.Bot.AdminUserID {
		g.sendText(ctx, channelID, text.Help(g.lang))
		return
	}
	users, err := g.store.AllUsers()
	if err != nil {
		log.Printf("gateway: stats: %v", err)
		return
	}
	var b strings.Builder
	b.WriteString("📊 Usage by user:\n")
	for _, u := range users {
		rows, err := g.store.Usage(u.ID)
		if err != nil {
			log.Printf("gateway: stats usage for user %d: %v", u.ID, err)
			continue
		}
		total := g.calc.Total(rows, u.NGeneratedImages, u.NTranscribedSeconds)
		name := u.Username
		if name == "" {
			name = u.PlatformUserID
		}
		fmt.Fprintf(&b, "- %s (%s): $%.3f\n", name, u.Platform, total)
	}
	g.sendText(ctx, channelID, strings.TrimRight(b.String(), "\n"))
}

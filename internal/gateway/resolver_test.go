package gateway

import (
	"context"
	"testing"

	"github.com/parleybot/parley/internal/completion"
	"github.com/parleybot/parley/internal/models"
	"github.com/parleybot/parley/internal/platform"
)

// seedDialog routes n conversational messages for the user and returns
// the user record and the recorded turns of the current dialog.
func seedDialog(t *testing.T, e *env, userID string, texts ...string) (*models.User, []models.Turn) {
	t.Helper()
	for _, txt := range texts {
		e.gw.Route(context.Background(), inboundText(userID, txt))
	}
	user, err := e.store.GetUser("discord", userID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	turns, err := e.store.Turns(user.ID, "")
	if err != nil {
		t.Fatalf("Turns: %v", err)
	}
	return user, turns
}

func replyTo(userID, body, botMessageID string) platform.InboundMessage {
	msg := inboundText(userID, body)
	msg.ReplyToMessageID = botMessageID
	msg.ReplyAuthorIsBot = true
	return msg
}

func TestResolveIgnoresNonReplies(t *testing.T) {
	e := newTestEnv(t)
	user, _ := seedDialog(t, e, "u1", "hello")

	res, err := e.gw.resolveContextSwitch(user, inboundText("u1", "plain message"))
	if err != nil || res != NotNeeded {
		t.Errorf("plain message: res=%v err=%v", res, err)
	}

	// A reply to another human's message is not a context switch.
	msg := inboundText("u1", "agreed")
	msg.ReplyToMessageID = "someone-elses-message"
	msg.ReplyAuthorIsBot = false
	res, err = e.gw.resolveContextSwitch(user, msg)
	if err != nil || res != NotNeeded {
		t.Errorf("human reply: res=%v err=%v", res, err)
	}
}

func TestResolveUnknownBotMessage(t *testing.T) {
	e := newTestEnv(t)
	user, _ := seedDialog(t, e, "u1", "hello")

	res, err := e.gw.resolveContextSwitch(user, replyTo("u1", "what was that?", "m-9999"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res != CantSwitch {
		t.Errorf("res = %v, want CantSwitch", res)
	}
}

func TestResolveReplyToCurrentLastTurn(t *testing.T) {
	e := newTestEnv(t)
	user, turns := seedDialog(t, e, "u1", "one", "two")
	before := user.CurrentDialogID

	res, err := e.gw.resolveContextSwitch(user, replyTo("u1", "go on", turns[1].BotMessageID))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res != NotNeeded {
		t.Errorf("res = %v, want NotNeeded", res)
	}
	current, _ := e.store.CurrentDialogID(user.ID)
	if current != before {
		t.Error("reply to the current last turn forked a dialog")
	}
}

func TestResolveForksFromEarlierTurn(t *testing.T) {
	e := newTestEnv(t)
	user, turns := seedDialog(t, e, "u1", "one", "two", "three")
	before := user.CurrentDialogID

	res, err := e.gw.resolveContextSwitch(user, replyTo("u1", "back up", turns[1].BotMessageID))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res != Switched {
		t.Fatalf("res = %v, want Switched", res)
	}

	current, _ := e.store.CurrentDialogID(user.ID)
	if current == before {
		t.Fatal("no new dialog was forked")
	}
	forked, err := e.store.Turns(user.ID, "")
	if err != nil {
		t.Fatalf("Turns: %v", err)
	}
	if len(forked) != 2 || forked[0].UserText != "one" || forked[1].UserText != "two" {
		t.Errorf("forked turns = %+v, want the prefix through the replied-to turn", forked)
	}

	// The original dialog is untouched.
	original, _ := e.store.Turns(user.ID, before)
	if len(original) != 3 {
		t.Errorf("original dialog has %d turns, want 3", len(original))
	}
}

func TestResolveForkCarriesDialogMode(t *testing.T) {
	e := newTestEnv(t)
	user, turns := seedDialog(t, e, "u1", "hello")
	assistantDialog := user.CurrentDialogID

	// Switch to artist mode, which starts a new dialog.
	e.gw.Route(context.Background(), inboundText("u1", "/mode artist"))
	user, _ = e.store.GetUser("discord", "u1")
	if user.CurrentMode != "artist" {
		t.Fatalf("mode = %q", user.CurrentMode)
	}

	res, err := e.gw.resolveContextSwitch(user, replyTo("u1", "back to chat", turns[0].BotMessageID))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res != Switched {
		t.Fatalf("res = %v, want Switched", res)
	}

	user, _ = e.store.GetUser("discord", "u1")
	if user.CurrentMode != "assistant" {
		t.Errorf("mode after fork = %q, want the target dialog's mode", user.CurrentMode)
	}
	if user.CurrentDialogID == assistantDialog {
		t.Error("fork reused the original dialog instead of copying it")
	}
}

func TestRouteReplyRebuildsContextWindow(t *testing.T) {
	e := newTestEnv(t)
	_, turns := seedDialog(t, e, "u1", "one", "two")

	// Reply to the first turn's bot response: generation must see only
	// that prefix plus the new message.
	e.gw.Route(context.Background(), replyTo("u1", "actually, about the first thing", turns[0].BotMessageID))

	attempts := e.streamer.entries
	last := attempts[len(attempts)-1]
	want := []struct {
		role string
		text string
	}{
		{completion.RoleSystem, ""},
		{completion.RoleUser, "one"},
		{completion.RoleAssistant, "Hi there"},
		{completion.RoleUser, "actually, about the first thing"},
	}
	if len(last) != len(want) {
		t.Fatalf("window has %d entries, want %d: %+v", len(last), len(want), last)
	}
	for i, w := range want {
		if last[i].Role != w.role {
			t.Errorf("entry %d role = %q, want %q", i, last[i].Role, w.role)
		}
		if w.text != "" && last[i].Text != w.text {
			t.Errorf("entry %d text = %q, want %q", i, last[i].Text, w.text)
		}
	}

	user, _ := e.store.GetUser("discord", "u1")
	forked, _ := e.store.Turns(user.ID, "")
	if len(forked) != 2 || forked[1].UserText != "actually, about the first thing" {
		t.Errorf("forked dialog turns = %+v", forked)
	}
}

func TestRouteReplyToUnknownMessageAborts(t *testing.T) {
	e := newTestEnv(t)
	user, _ := seedDialog(t, e, "u1", "hello")
	callsBefore := len(e.streamer.entries)

	e.gw.Route(context.Background(), replyTo("u1", "what?", "m-404"))

	if !containsText(e.adapter, "Can't find the dialog") {
		t.Errorf("no notice in %v", sentTexts(e.adapter))
	}
	if len(e.streamer.entries) != callsBefore {
		t.Error("unresolvable reply still triggered a generation")
	}
	turns, _ := e.store.Turns(user.ID, "")
	if len(turns) != 1 {
		t.Errorf("unresolvable reply appended turns: %+v", turns)
	}
}

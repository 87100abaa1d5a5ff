package bot

import (
	"context"
	"strconv"
	"strings"

	"github.com/oggyb/matchbot/internal/session"
)

const helpText = "Available commands:\n" +
	"/start - Start the bot\n" +
	"/menu - Show the main menu\n" +
	"/profile - View your profile\n" +
	"/browse - Browse other profiles\n" +
	"/matches - View your matches\n" +
	"/help - Show this message"

// route dispatches in order: commands, callback queries, the active flow,
// main menu buttons, and finally a hint.
func (b *Bot) route(ctx context.Context, in incoming, sess *session.Session) error {
	if in.command != "" {
		return b.handleCommand(ctx, in, sess)
	}
	if in.callback != nil {
		return b.handleCallback(ctx, in)
	}

	switch sess.Flow {
	case session.FlowSetup:
		return b.handleSetup(ctx, in, sess)
	case session.FlowQuestions:
		return b.handleQuestions(ctx, in, sess)
	case session.FlowUpdate:
		return b.handleUpdate(ctx, in, sess)
	case session.FlowBrowse:
		if handled, err := b.handleBrowse(ctx, in, sess); handled || err != nil {
			return err
		}
	}

	return b.handleMenu(ctx, in, sess)
}

func (b *Bot) handleCommand(ctx context.Context, in incoming, sess *session.Session) error {
	switch in.command {
	case "start":
		return b.start(ctx, in, sess)
	case "help":
		b.sendText(ctx, in.chatID, helpText, nil)
		return nil
	case "menu":
		sess.Reset()
		b.sendText(ctx, in.chatID, "What would you like to do?", mainMenu())
		return nil
	case "profile":
		return b.showProfile(ctx, in)
	case "browse":
		return b.showNext(ctx, in, sess)
	case "matches":
		return b.showMatches(ctx, in, "")
	}
	b.sendText(ctx, in.chatID, "I don't know that command. Use /help to see what I can do.", nil)
	return nil
}

func (b *Bot) handleCallback(ctx context.Context, in incoming) error {
	data := in.callback.Data
	var err error
	switch {
	case strings.HasPrefix(data, cbUnmatch):
		id, perr := strconv.ParseUint(strings.TrimPrefix(data, cbUnmatch), 10, 64)
		if perr != nil {
			b.answer(in.callback, "That button is out of date.")
			return nil
		}
		err = b.unmatch(ctx, in, id)
	case strings.HasPrefix(data, cbMatches):
		err = b.showMatches(ctx, in, strings.TrimPrefix(data, cbMatches))
	default:
		b.answer(in.callback, "")
		return nil
	}
	if err != nil {
		return err
	}
	b.answer(in.callback, "")
	return nil
}

func (b *Bot) handleMenu(ctx context.Context, in incoming, sess *session.Session) error {
	switch in.text {
	case btnStartSetup:
		return b.startSetup(ctx, in, sess)
	case btnMyProfile:
		return b.showProfile(ctx, in)
	case btnBrowse, btnContinueBrowsing:
		return b.showNext(ctx, in, sess)
	case btnMyMatches:
		return b.showMatches(ctx, in, "")
	case btnUpdateProfile:
		return b.startUpdate(ctx, in, sess)
	}
	b.sendText(ctx, in.chatID, "I didn't get that. Use the buttons below or /help.", nil)
	return nil
}

// start registers the user on first contact and ends any flow in progress.
func (b *Bot) start(ctx context.Context, in incoming, sess *session.Session) error {
	p, _, err := b.profiles.FindOrCreate(ctx, in.user)
	if err != nil {
		return err
	}
	sess.Reset()

	if !p.Onboarded {
		b.sendText(ctx, in.chatID,
			"Welcome to the Dating Bot! 💝\nI'll help you find your perfect match.",
			onboardingMenu())
		return nil
	}
	b.sendText(ctx, in.chatID, "Welcome back! What would you like to do?", mainMenu())
	return nil
}

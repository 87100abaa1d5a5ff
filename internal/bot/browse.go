package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oggyb/matchbot/internal/service/swipe"
	"github.com/oggyb/matchbot/internal/session"
)

const limitReachedText = "You've reached your daily limit of %d swipes. Come back tomorrow! ✨"

// handleBrowse consumes the browsing buttons. Anything else falls through to
// the main menu with the browse state kept.
func (b *Bot) handleBrowse(ctx context.Context, in incoming, sess *session.Session) (bool, error) {
	switch in.text {
	case btnLike:
		return true, b.decide(ctx, in, sess, swipe.Like)
	case btnSkipProfile:
		return true, b.decide(ctx, in, sess, swipe.Skip)
	case btnBrowseMore:
		b.swipe.Refresh(sess)
		return true, b.showNext(ctx, in, sess)
	case btnContinueBrowsing:
		return true, b.showNext(ctx, in, sess)
	case btnStopBrowsing:
		b.swipe.Stop(sess)
		b.sendText(ctx, in.chatID, "Stopped browsing. What would you like to do?", mainMenu())
		return true, nil
	}
	return false, nil
}

func (b *Bot) showNext(ctx context.Context, in incoming, sess *session.Session) error {
	pres, err := b.swipe.Next(ctx, in.userID, sess)
	if errors.Is(err, swipe.ErrNotOnboarded) {
		b.sendText(ctx, in.chatID, "Please set up your profile first!", onboardingMenu())
		return nil
	}
	if err != nil {
		return err
	}

	switch pres.Status {
	case swipe.StatusLimitReached:
		b.sendText(ctx, in.chatID, fmt.Sprintf(limitReachedText, pres.Limit), idleMenu())
	case swipe.StatusExhausted:
		text := "🔍 No more profiles to show right now!\nCheck back later for new matches."
		if pres.NoMatchingRule {
			text = "🔍 There are no profiles to show for you yet.\nCheck back later!"
		}
		b.sendText(ctx, in.chatID, text, idleMenu())
	case swipe.StatusPresenting:
		b.sendCard(ctx, in.chatID, pres.Candidate.PhotoURL, candidateCard(pres), browseKeyboard())
	}
	return nil
}

func (b *Bot) decide(ctx context.Context, in incoming, sess *session.Session, action swipe.Action) error {
	res, err := b.swipe.Decide(ctx, in.userID, sess, action)
	switch {
	case errors.Is(err, swipe.ErrNoActiveSession):
		b.sendText(ctx, in.chatID, "Please start browsing first!", mainMenu())
		return nil
	case errors.Is(err, swipe.ErrLimitReached):
		b.sendText(ctx, in.chatID, fmt.Sprintf(limitReachedText, swipe.DailySwipeLimit), idleMenu())
		return nil
	case errors.Is(err, swipe.ErrNotOnboarded):
		b.sendText(ctx, in.chatID, "Please set up your profile first!", onboardingMenu())
		return nil
	case err != nil:
		return err
	}

	if res.Outcome == swipe.MatchFormed {
		b.sendText(ctx, in.chatID, "It's a match! 🎉\nYou can find them in your matches.", matchFormedKeyboard())
		return nil
	}
	if res.BatchDone {
		b.sendText(ctx, in.chatID, "You've seen all profiles in this batch! Want to see more?", batchDoneKeyboard())
		return nil
	}
	return b.showNext(ctx, in, sess)
}

func candidateCard(pres swipe.Presentation) string {
	c := pres.Candidate
	lines := []string{fmt.Sprintf("*%s*, %s", esc(c.Name), esc(c.Age)), ""}
	if c.About != "" {
		lines = append(lines, fmt.Sprintf("_%s_", esc(c.About)), "")
	}
	interests := "No interests added"
	if len(c.Interests) > 0 {
		interests = esc(strings.Join(c.Interests, ", "))
	}
	lines = append(lines,
		"*Interests:* "+interests,
		"",
		fmt.Sprintf("Swipes today: %d/%d", pres.SwipesToday, pres.Limit),
	)
	return strings.Join(lines, "\n")
}

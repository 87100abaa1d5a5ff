package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	svcErr "github.com/oggyb/matchbot/internal/errors"
	"github.com/oggyb/matchbot/internal/service/match"
)

const profileNotFoundText = "Profile not found. Please use /start to create your profile."

// showMatches sends one message per active match, then a "More matches"
// button when another page exists.
func (b *Bot) showMatches(ctx context.Context, in incoming, token string) error {
	list, next, err := b.matches.List(ctx, in.userID, token)
	if svcErr.IsNotFound(err) {
		b.sendText(ctx, in.chatID, profileNotFoundText, nil)
		return nil
	}
	if err != nil {
		return err
	}

	if len(list) == 0 && token == "" {
		b.sendText(ctx, in.chatID, "You don't have any matches yet. Keep browsing! ✨", noMatchesKeyboard())
		return nil
	}

	for _, m := range list {
		b.sendCard(ctx, in.chatID, m.PhotoURL, matchCard(m), unmatchButton(m.ProfileID))
	}

	if next != "" {
		if kb, ok := moreMatchesButton(next); ok {
			b.sendText(ctx, in.chatID, "There are more matches waiting for you.", kb)
			return nil
		}
		b.log.Warn("pagination token too long for a button", "user", in.userID, "len", len(next))
	}
	b.sendText(ctx, in.chatID, "What would you like to do next?", mainMenu())
	return nil
}

func (b *Bot) unmatch(ctx context.Context, in incoming, target uint64) error {
	err := b.matches.Unmatch(ctx, in.userID, target)
	if svcErr.IsNotFound(err) {
		b.sendText(ctx, in.chatID, "That match no longer exists.", nil)
		return nil
	}
	if err != nil {
		return err
	}

	if msg := in.callback.Message; msg != nil {
		edit := tgbotapi.NewEditMessageReplyMarkup(msg.Chat.ID, msg.MessageID,
			tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
		if _, err := b.api.Request(edit); err != nil {
			b.log.Warn("failed to clear unmatch button", "user", in.userID, "err", err)
		}
	}
	b.sendText(ctx, in.chatID, "Match removed.", nil)
	return nil
}

func matchCard(m match.Summary) string {
	lines := []string{fmt.Sprintf("*%s*, %s", esc(m.Name), esc(m.Age))}
	if m.Username != "" {
		lines = append(lines, "@"+esc(m.Username))
	}
	if len(m.Interests) > 0 {
		lines = append(lines, "", "*Interests:* "+esc(strings.Join(m.Interests, ", ")))
	}
	if len(m.Questions) > 0 {
		lines = append(lines, "", "*Questions:*")
		for _, q := range m.Questions {
			lines = append(lines, "• "+esc(q))
		}
	}
	lines = append(lines, "", "Send them a message to start chatting! 💌")
	return strings.Join(lines, "\n")
}

// showProfile renders the caller's own profile card.
func (b *Bot) showProfile(ctx context.Context, in incoming) error {
	p, err := b.profiles.Get(ctx, in.userID)
	if svcErr.IsNotFound(err) {
		b.sendText(ctx, in.chatID, profileNotFoundText, nil)
		return nil
	}
	if err != nil {
		return err
	}
	if !p.Onboarded {
		b.sendText(ctx, in.chatID, "Your profile isn't finished yet.", onboardingMenu())
		return nil
	}

	likedBy, err := b.profiles.LikedByCount(ctx, p.ID)
	if err != nil {
		b.log.Warn("failed to count likes", "user", in.userID, "err", err)
	}

	lines := []string{
		"👤 *Your Profile*",
		"",
		"*Name:* " + esc(p.Name),
		"*Age:* " + orNotSet(esc(p.Age)),
		"*Gender:* " + orNotSet(capitalize(p.Gender)),
		"",
	}
	if p.About != "" {
		lines = append(lines, fmt.Sprintf("*About:* _%s_", esc(p.About)), "")
	}
	lines = append(lines, "*Interests:*")
	if len(p.Interests) == 0 {
		lines = append(lines, "No interests added")
	}
	for _, i := range p.Interests {
		lines = append(lines, "• "+esc(i))
	}
	if texts := b.profiles.QuestionTexts(p.Questions); len(texts) > 0 {
		lines = append(lines, "", "*Questions:*")
		for _, q := range texts {
			lines = append(lines, "• "+esc(q))
		}
	}
	if err == nil {
		lines = append(lines, "", fmt.Sprintf("❤️ Liked by %d", likedBy))
	}

	b.sendCard(ctx, in.chatID, p.PhotoURL, strings.Join(lines, "\n"), mainMenu())
	return nil
}

func orNotSet(s string) string {
	if s == "" {
		return "Not set"
	}
	return s
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

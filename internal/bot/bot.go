// Package bot is the Telegram transport: it turns updates into calls on the
// profile, wizard, swipe and match services and renders their results as
// messages and keyboards.
package bot

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/oggyb/matchbot/internal/app"
	svcErr "github.com/oggyb/matchbot/internal/errors"
	"github.com/oggyb/matchbot/internal/service/match"
	"github.com/oggyb/matchbot/internal/service/profile"
	"github.com/oggyb/matchbot/internal/service/swipe"
	"github.com/oggyb/matchbot/internal/service/wizard"
	"github.com/oggyb/matchbot/internal/session"
)

// API is the slice of the Telegram Bot API the bot talks to.
// *tgbotapi.BotAPI satisfies it.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Deps are the services the handlers drive.
type Deps struct {
	Sessions *session.Store
	Profiles *profile.Service
	Swipe    *swipe.Engine
	Matches  *match.Service
	Wizard   *wizard.Wizard
}

// Bot routes Telegram updates. Updates are handled one at a time.
type Bot struct {
	api      API
	sessions *session.Store
	profiles *profile.Service
	swipe    *swipe.Engine
	matches  *match.Service
	wizard   *wizard.Wizard
	http     *http.Client
	log      *slog.Logger
}

// New creates a bot over explicit services.
func New(api API, deps Deps, log *slog.Logger) *Bot {
	return &Bot{
		api:      api,
		sessions: deps.Sessions,
		profiles: deps.Profiles,
		swipe:    deps.Swipe,
		matches:  deps.Matches,
		wizard:   deps.Wizard,
		http:     &http.Client{Timeout: 30 * time.Second},
		log:      log,
	}
}

// NewFromApp wires every service from AppContext.
func NewFromApp(api API, appCtx *app.AppContext) *Bot {
	return New(api, Deps{
		Sessions: session.NewStore(appCtx.RedisCache, appCtx.Logger),
		Profiles: profile.NewService(appCtx),
		Swipe:    swipe.NewService(appCtx),
		Matches:  match.NewService(appCtx),
		Wizard:   wizard.New(appCtx.Catalog),
	}, appCtx.Logger)
}

// Run consumes updates until ctx is cancelled or the channel closes.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	b.log.Info("telegram bot started, waiting for updates")
	for {
		select {
		case <-ctx.Done():
			b.log.Info("telegram bot: context cancelled, stopping")
			return
		case upd, ok := <-updates:
			if !ok {
				b.log.Info("telegram bot: updates channel closed")
				return
			}
			b.HandleUpdate(ctx, upd)
		}
	}
}

// incoming is the part of an update the handlers care about.
type incoming struct {
	userID   int64
	chatID   int64
	user     profile.TelegramUser
	text     string
	command  string
	photos   []tgbotapi.PhotoSize
	album    bool
	callback *tgbotapi.CallbackQuery
}

func parseUpdate(upd tgbotapi.Update) (incoming, bool) {
	switch {
	case upd.CallbackQuery != nil && upd.CallbackQuery.From != nil && upd.CallbackQuery.Message != nil:
		cq := upd.CallbackQuery
		return incoming{
			userID:   cq.From.ID,
			chatID:   cq.Message.Chat.ID,
			user:     telegramUser(cq.From),
			callback: cq,
		}, true
	case upd.Message != nil && upd.Message.From != nil:
		msg := upd.Message
		in := incoming{
			userID: msg.From.ID,
			chatID: msg.Chat.ID,
			user:   telegramUser(msg.From),
			text:   strings.TrimSpace(msg.Text),
			photos: msg.Photo,
			album:  msg.MediaGroupID != "",
		}
		if msg.IsCommand() {
			in.command = msg.Command()
		}
		return in, true
	}
	return incoming{}, false
}

func telegramUser(u *tgbotapi.User) profile.TelegramUser {
	return profile.TelegramUser{ID: u.ID, FirstName: u.FirstName, Username: u.UserName}
}

// HandleUpdate loads the session, routes the update and saves the session
// only when the handler succeeded.
func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	in, ok := parseUpdate(upd)
	if !ok {
		return
	}
	log := b.log.With("user", in.userID)

	sess, err := b.sessions.Load(ctx, in.userID)
	if err != nil {
		b.fail(ctx, log, in, "load session", err)
		return
	}

	if err := b.route(ctx, in, sess); err != nil {
		b.fail(ctx, log, in, "handle update", err)
		return
	}

	if err := b.sessions.Save(ctx, in.userID, sess); err != nil {
		b.fail(ctx, log, in, "save session", err)
	}
}

// fail reports err to the user. Validation errors re-prompt with their own
// message; anything else is logged and answered with a generic apology.
func (b *Bot) fail(ctx context.Context, log *slog.Logger, in incoming, op string, err error) {
	if svcErr.IsValidation(err) {
		log.Debug("rejected input", "op", op, "err", err)
	} else {
		log.Error("update failed", "op", op, "kind", svcErr.KindOf(err).String(), "err", err)
	}
	if in.callback != nil {
		b.answer(in.callback, "")
	}
	b.sendText(ctx, in.chatID, svcErr.UserMessage(err), nil)
}

// sendText sends a Markdown message. Callers escape user-provided text.
func (b *Bot) sendText(_ context.Context, chatID int64, text string, markup any) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn("failed to send telegram message", "chat_id", chatID, "err", err)
	}
}

// sendCard sends a photo with caption, or plain text when there is no photo.
func (b *Bot) sendCard(ctx context.Context, chatID int64, photoURL, caption string, markup any) {
	if photoURL == "" {
		b.sendText(ctx, chatID, caption, markup)
		return
	}
	msg := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(photoURL))
	msg.Caption = caption
	msg.ParseMode = tgbotapi.ModeMarkdown
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn("failed to send telegram photo", "chat_id", chatID, "err", err)
	}
}

func (b *Bot) answer(cq *tgbotapi.CallbackQuery, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, text)); err != nil {
		b.log.Warn("failed to answer callback", "callback", cq.ID, "err", err)
	}
}

// esc escapes user-provided text for Markdown messages.
func esc(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

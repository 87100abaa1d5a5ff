package bot_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oggyb/matchbot/internal/app"
	"github.com/oggyb/matchbot/internal/bot"
	"github.com/oggyb/matchbot/internal/cache"
	"github.com/oggyb/matchbot/internal/catalog"
	"github.com/oggyb/matchbot/internal/config"
	"github.com/oggyb/matchbot/internal/db"
	svcErr "github.com/oggyb/matchbot/internal/errors"
	applog "github.com/oggyb/matchbot/internal/logger"
	"github.com/oggyb/matchbot/internal/service/match"
	"github.com/oggyb/matchbot/internal/service/profile"
	"github.com/oggyb/matchbot/internal/service/swipe"
	"github.com/oggyb/matchbot/internal/service/wizard"
	"github.com/oggyb/matchbot/internal/session"
)

// fakeAPI records everything the bot sends.
type fakeAPI struct {
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	fileURL  string
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetFileDirectURL(string) (string, error) { return f.fileURL, nil }

// texts returns message texts and photo captions in send order.
func (f *fakeAPI) texts() []string {
	var out []string
	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.PhotoConfig:
			out = append(out, m.Caption)
		}
	}
	return out
}

func (f *fakeAPI) last() string {
	t := f.texts()
	if len(t) == 0 {
		return ""
	}
	return t[len(t)-1]
}

type fakePhotos struct{ uploads int }

func (f *fakePhotos) Upload(context.Context, []byte, string, string) (string, error) {
	f.uploads++
	return fmt.Sprintf("https://cdn.example.com/profile-photos/%d.jpg", f.uploads), nil
}

func (f *fakePhotos) Delete(context.Context, string) error { return nil }

type harness struct {
	bot      *bot.Bot
	api      *fakeAPI
	gdb      *gorm.DB
	mr       *miniredis.Miniredis
	sessions *session.Store
	photos   *fakePhotos
}

// newHarness wires the bot over in-memory SQLite, miniredis and fakes for
// Telegram and the photo bucket.
func newHarness(t *testing.T) *harness {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(gdb))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	rc := cache.NewRedisCache(cfg)
	t.Cleanup(func() { rc.Close() })

	appCtx := app.New(gdb, rc, applog.Discard(), nil)
	photos := &fakePhotos{}
	sessions := session.NewStore(rc, appCtx.Logger)
	now := func() time.Time { return time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC) }

	api := &fakeAPI{}
	b := bot.New(api, bot.Deps{
		Sessions: sessions,
		Profiles: profile.NewService(appCtx).WithPhotoStore(photos),
		Swipe:    swipe.NewService(appCtx).WithClock(now),
		Matches:  match.NewService(appCtx),
		Wizard:   wizard.New(appCtx.Catalog),
	}, appCtx.Logger)

	return &harness{bot: b, api: api, gdb: gdb, mr: mr, sessions: sessions, photos: photos}
}

func message(uid int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		From: &tgbotapi.User{ID: uid, FirstName: fmt.Sprintf("User%d", uid)},
		Chat: &tgbotapi.Chat{ID: uid},
		Text: text,
	}
	if strings.HasPrefix(text, "/") {
		cmd := strings.Fields(text)[0]
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return tgbotapi.Update{Message: msg}
}

func photo(uid int64, album string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: uid},
		Chat: &tgbotapi.Chat{ID: uid},
		Photo: []tgbotapi.PhotoSize{
			{FileID: "small", Width: 90, Height: 90},
			{FileID: "large", Width: 1280, Height: 1280},
		},
		MediaGroupID: album,
	}}
}

func callback(uid int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: uid},
		Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: uid}},
		Data:    data,
	}}
}

func (h *harness) send(t *testing.T, upd tgbotapi.Update) string {
	t.Helper()
	h.bot.HandleUpdate(context.Background(), upd)
	return h.api.last()
}

func (h *harness) session(t *testing.T, uid int64) *session.Session {
	t.Helper()
	s, err := h.sessions.Load(context.Background(), uid)
	require.NoError(t, err)
	return s
}

func (h *harness) onboarded(t *testing.T, tgID int64, name, gender string) *db.Profile {
	t.Helper()
	p := &db.Profile{
		TelegramID: tgID,
		Name:       name,
		Username:   strings.ToLower(name),
		Age:        "30",
		Gender:     gender,
		Interests:  []string{"Chai"},
		Questions:  []string{"cv_1"},
		Onboarded:  true,
	}
	require.NoError(t, h.gdb.Create(p).Error)
	return p
}

func TestStartCreatesProfile(t *testing.T) {
	h := newHarness(t)

	reply := h.send(t, message(1, "/start"))
	assert.Contains(t, reply, "Welcome to the Dating Bot!")

	var p db.Profile
	require.NoError(t, h.gdb.Where("telegram_id = ?", 1).First(&p).Error)
	assert.Equal(t, "User1", p.Name)
	assert.Equal(t, "user_1", p.Username)
	assert.False(t, p.Onboarded)
}

func TestSetupEndToEnd(t *testing.T) {
	h := newHarness(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("jpegbytes"))
	}))
	t.Cleanup(srv.Close)
	h.api.fileURL = srv.URL + "/file/photos/file_1.jpg"

	cat := catalog.Default()
	first := cat.InCategory(cat.Categories()[0])[0]

	h.send(t, message(1, "/start"))
	assert.Contains(t, h.send(t, message(1, "Start Profile Setup 🎯")), "what's your age?")

	// rejected age keeps the step
	assert.Contains(t, h.send(t, message(1, "12")), "valid age")
	assert.Equal(t, session.StepAge, h.session(t, 1).Setup.Step)

	assert.Contains(t, h.send(t, message(1, "34")), "gender")
	assert.Contains(t, h.send(t, message(1, "Female 👩")), "Question Selection")
	assert.Contains(t, h.send(t, message(1, cat.Categories()[0])), "Page 1 of")
	h.send(t, message(1, "❌ Q1"))
	assert.Equal(t, []string{first.ID}, h.session(t, 1).Setup.Selection.Selected)

	assert.Contains(t, h.send(t, message(1, "✅ Done")), "interests")
	assert.Contains(t, h.send(t, message(1, "Chai, Books")), "You have 2/5 interests")
	assert.Contains(t, h.send(t, message(1, "Done ✅")), "one-liner")
	assert.Contains(t, h.send(t, message(1, "Skip ⏭️")), "photo")

	assert.Contains(t, h.send(t, photo(1, "album-1")), "only one photo")
	assert.Contains(t, h.send(t, photo(1, "")), "profile is now complete")

	var p db.Profile
	require.NoError(t, h.gdb.Where("telegram_id = ?", 1).First(&p).Error)
	assert.True(t, p.Onboarded)
	assert.Equal(t, "34", p.Age)
	assert.Equal(t, db.GenderFemale, p.Gender)
	assert.Equal(t, []string{first.ID}, p.Questions)
	assert.Equal(t, []string{"Chai", "Books"}, p.Interests)
	assert.Equal(t, "https://cdn.example.com/profile-photos/1.jpg", p.PhotoURL)
	assert.Equal(t, session.FlowNone, h.session(t, 1).Flow)
}

func TestBrowseLikeFormsMatchAndUnmatch(t *testing.T) {
	h := newHarness(t)
	a := h.onboarded(t, 1, "Arun", db.GenderMale)
	b := h.onboarded(t, 2, "Bela", db.GenderFemale)
	require.NoError(t, h.gdb.Create(&db.Decision{ActorID: b.ID, RecipientID: a.ID, Liked: true}).Error)

	card := h.send(t, message(1, "Browse Matches 👥"))
	assert.Contains(t, card, "*Bela*, 30")
	assert.Contains(t, card, "Swipes today: 0/50")

	assert.Contains(t, h.send(t, message(1, "👍 Like")), "It's a match!")
	assert.Equal(t, 1, h.session(t, 1).Quota.Count)

	// a second press has nothing left to decide
	assert.Contains(t, h.send(t, message(1, "👍 Like")), "start browsing first")
	assert.Equal(t, 1, h.session(t, 1).Quota.Count)

	h.send(t, message(1, "My Matches 💕"))
	texts := h.api.texts()
	require.GreaterOrEqual(t, len(texts), 2)
	assert.Contains(t, texts[len(texts)-2], "*Bela*")

	assert.Contains(t, h.send(t, callback(1, fmt.Sprintf("unmatch:%d", b.ID))), "Match removed")
	assert.Contains(t, h.send(t, message(2, "/matches")), "don't have any matches yet")
}

func TestStopBrowsingKeepsQuota(t *testing.T) {
	h := newHarness(t)
	h.onboarded(t, 1, "Arun", db.GenderMale)
	h.onboarded(t, 2, "Bela", db.GenderFemale)
	h.onboarded(t, 3, "Chitra", db.GenderFemale)

	h.send(t, message(1, "/browse"))
	h.send(t, message(1, "👎 Skip"))
	assert.Contains(t, h.send(t, message(1, "Stop Browsing 🔚")), "Stopped browsing")

	s := h.session(t, 1)
	assert.Equal(t, session.FlowNone, s.Flow)
	assert.Equal(t, 1, s.Quota.Count)
	assert.Equal(t, "2026-10-15", s.Quota.Date)
}

func TestUpdateInterests(t *testing.T) {
	h := newHarness(t)
	h.onboarded(t, 1, "Arun", db.GenderMale)

	assert.Contains(t, h.send(t, message(1, "Update Profile ✏️")), "What would you like to update?")
	h.send(t, message(1, "Interests 🎯"))
	assert.Contains(t, h.send(t, message(1, "Hiking, Jazz")), "2/5")
	assert.Contains(t, h.send(t, message(1, "a, b, c, d")), "up to 5 interests")
	assert.Contains(t, h.send(t, message(1, "Done ✅")), "updated successfully")

	var p db.Profile
	require.NoError(t, h.gdb.Where("telegram_id = ?", 1).First(&p).Error)
	assert.Equal(t, []string{"Hiking", "Jazz"}, p.Interests)
}

func TestUpdatePhotoRequiresFinishedSetup(t *testing.T) {
	h := newHarness(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("jpegbytes"))
	}))
	t.Cleanup(srv.Close)
	h.api.fileURL = srv.URL + "/file/photos/file_1.jpg"

	h.send(t, message(1, "/start"))
	assert.Contains(t, h.send(t, message(1, "Update Profile ✏️")), "finish setting up")
	assert.Equal(t, session.FlowNone, h.session(t, 1).Flow)
	h.send(t, message(1, "Photo 📸"))
	h.send(t, photo(1, ""))

	var p db.Profile
	require.NoError(t, h.gdb.Where("telegram_id = ?", 1).First(&p).Error)
	assert.False(t, p.Onboarded)
	assert.Empty(t, p.PhotoURL)
	assert.Contains(t, h.send(t, message(1, "Browse Matches 👥")), "set up your profile first")
}

func TestUpdatePhotoKeepsOnboarded(t *testing.T) {
	h := newHarness(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("jpegbytes"))
	}))
	t.Cleanup(srv.Close)
	h.api.fileURL = srv.URL + "/file/photos/file_1.jpg"
	h.onboarded(t, 1, "Arun", db.GenderMale)

	h.send(t, message(1, "Update Profile ✏️"))
	assert.Contains(t, h.send(t, message(1, "Photo 📸")), "new profile photo")
	assert.Contains(t, h.send(t, photo(1, "")), "updated successfully")

	var p db.Profile
	require.NoError(t, h.gdb.Where("telegram_id = ?", 1).First(&p).Error)
	assert.True(t, p.Onboarded)
	assert.Equal(t, "https://cdn.example.com/profile-photos/1.jpg", p.PhotoURL)
}

func TestUpdateQuestionsStartsPrechecked(t *testing.T) {
	h := newHarness(t)
	h.onboarded(t, 1, "Arun", db.GenderMale)
	cat := catalog.Default()

	h.send(t, message(1, "Update Profile ✏️"))
	h.send(t, message(1, "Questions ❓"))
	s := h.session(t, 1)
	require.Equal(t, session.FlowQuestions, s.Flow)
	assert.Equal(t, []string{"cv_1"}, s.Questions.Selected)

	h.send(t, message(1, cat.Categories()[0]))
	h.send(t, message(1, "❌ Q2"))
	assert.Contains(t, h.send(t, message(1, "✅ Done")), "updated successfully")

	var p db.Profile
	require.NoError(t, h.gdb.Where("telegram_id = ?", 1).First(&p).Error)
	assert.Equal(t, []string{"cv_1", "cv_2"}, p.Questions)
}

func TestUnknownTextGetsHint(t *testing.T) {
	h := newHarness(t)

	assert.Contains(t, h.send(t, message(1, "hello?")), "I didn't get that")
}

func TestStoreFailureApologizes(t *testing.T) {
	h := newHarness(t)
	h.mr.Close()

	assert.Equal(t, svcErr.GenericMessage, h.send(t, message(1, "/start")))
}

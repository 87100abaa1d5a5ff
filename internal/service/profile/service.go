package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/oggyb/matchbot/internal/app"
	"github.com/oggyb/matchbot/internal/cache"
	"github.com/oggyb/matchbot/internal/catalog"
	"github.com/oggyb/matchbot/internal/db"
	svcErr "github.com/oggyb/matchbot/internal/errors"
	"github.com/oggyb/matchbot/internal/repository"
	"github.com/oggyb/matchbot/internal/service/wizard"
	"github.com/oggyb/matchbot/internal/session"
)

// PhotoStore uploads and deletes profile photos.
type PhotoStore interface {
	Upload(ctx context.Context, data []byte, name, mime string) (string, error)
	Delete(ctx context.Context, publicURL string) error
}

// TelegramUser is the platform identity a profile is created from.
type TelegramUser struct {
	ID        int64
	FirstName string
	Username  string
}

// Service implements profile creation, viewing and field updates.
type Service struct {
	profiles     *repository.ProfileRepository
	decisionRepo *repository.DecisionRepository
	cache        *cache.RedisCache
	photos       PhotoStore
	catalog      *catalog.Catalog
	log          *slog.Logger
}

// NewService creates a profile service with dependencies from AppContext.
// Dependencies include:
//   - DB connection (via Profile/Decision repositories)
//   - RedisCache for the liked-by counter (optional)
//   - PhotoStore for uploads
func NewService(appCtx *app.AppContext) *Service {
	s := &Service{
		profiles:     repository.NewProfileRepository(appCtx.DB),
		decisionRepo: repository.NewDecisionRepository(appCtx.DB),
		cache:        appCtx.RedisCache,
		catalog:      appCtx.Catalog,
		log:          appCtx.Logger,
	}
	if appCtx.Photos != nil {
		s.photos = appCtx.Photos
	}
	return s
}

// WithPhotoStore replaces the photo store.
func (s *Service) WithPhotoStore(p PhotoStore) *Service {
	s.photos = p
	return s
}

// FindOrCreate returns the caller's profile, creating a placeholder on first contact.
//
// Behavior:
//   - name defaults to the Telegram first name, handle to the Telegram username
//   - either falls back to user_<telegram id>; a handle taken by someone else too
//   - the new profile is not onboarded
func (s *Service) FindOrCreate(ctx context.Context, u TelegramUser) (*db.Profile, bool, error) {
	p, err := s.profiles.FindByTelegramID(ctx, u.ID)
	if err == nil {
		return p, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, svcErr.External("find profile", err)
	}

	fallback := fmt.Sprintf("user_%d", u.ID)
	name := strings.TrimSpace(u.FirstName)
	if name == "" {
		name = fallback
	}
	username := strings.TrimSpace(u.Username)
	if username == "" {
		username = fallback
	} else if taken, err := s.profiles.UsernameTaken(ctx, username); err != nil {
		return nil, false, svcErr.External("check username", err)
	} else if taken {
		username = fallback
	}

	p = &db.Profile{TelegramID: u.ID, Name: name, Username: username}
	if err := s.profiles.Create(ctx, p); err != nil {
		return nil, false, svcErr.External("create profile", err)
	}
	s.log.Info("profile created", "user", u.ID, "profile", p.ID)
	return p, true, nil
}

// Get loads the caller's profile. NotFound when it was never created.
func (s *Service) Get(ctx context.Context, telegramID int64) (*db.Profile, error) {
	p, err := s.profiles.FindByTelegramID(ctx, telegramID)
	if err != nil {
		if err = svcErr.Map(err); svcErr.IsNotFound(err) {
			return nil, svcErr.NotFound("profile not found")
		}
		return nil, err
	}
	return p, nil
}

// LikedByCount returns how many profiles liked this one.
// Cache-first strategy:
//  1. Attempts to read from Redis (likes:count:profileID).
//  2. On cache miss falls back to DB via repository.CountLikers.
//  3. On DB fetch, updates Redis with a 1h TTL.
func (s *Service) LikedByCount(ctx context.Context, profileID uint64) (int64, error) {
	if s.cache != nil {
		if n, ok, err := s.cache.GetLikeCount(ctx, profileID); err == nil && ok {
			return n, nil
		} else if err != nil {
			s.log.Warn("like count cache read failed", "profile", profileID, "err", err)
		}
	}

	count, err := s.decisionRepo.CountLikers(ctx, profileID)
	if err != nil {
		return 0, svcErr.Map(err)
	}

	if s.cache != nil {
		if err := s.cache.UpdateLikeCount(ctx, profileID, count); err != nil {
			s.log.Warn("like count cache write failed", "profile", profileID, "err", err)
		}
	}
	return count, nil
}

// UpdateName sets the display name (trimmed, at least 2 characters).
func (s *Service) UpdateName(ctx context.Context, telegramID int64, text string) error {
	name, err := wizard.ParseName(text)
	if err != nil {
		return err
	}
	return s.update(ctx, telegramID, &db.Profile{Name: name}, "name")
}

// UpdateAge sets the age (15..100).
func (s *Service) UpdateAge(ctx context.Context, telegramID int64, text string) error {
	age, err := wizard.ParseAge(text)
	if err != nil {
		return err
	}
	return s.update(ctx, telegramID, &db.Profile{Age: age}, "age")
}

// UpdateGender sets the gender from free text or a keyboard label.
func (s *Service) UpdateGender(ctx context.Context, telegramID int64, text string) error {
	gender, err := wizard.ParseGender(text)
	if err != nil {
		return err
	}
	return s.update(ctx, telegramID, &db.Profile{Gender: gender}, "gender")
}

// UpdateInterests replaces the interest list (1..5 entries).
func (s *Service) UpdateInterests(ctx context.Context, telegramID int64, interests []string) error {
	if err := validateInterests(interests); err != nil {
		return err
	}
	return s.update(ctx, telegramID, &db.Profile{Interests: interests}, "interests")
}

// UpdateAbout sets the about line. The 150 character guidance is not enforced.
func (s *Service) UpdateAbout(ctx context.Context, telegramID int64, text string) error {
	about := strings.TrimSpace(text)
	if about == "" {
		return svcErr.Validation("Please write a short line about yourself.")
	}
	return s.update(ctx, telegramID, &db.Profile{About: about}, "about")
}

// UpdateQuestions replaces the selected questions (1..5 known catalog ids).
func (s *Service) UpdateQuestions(ctx context.Context, telegramID int64, ids []string) error {
	if err := s.validateQuestions(ids); err != nil {
		return err
	}
	return s.update(ctx, telegramID, &db.Profile{Questions: ids}, "questions")
}

// UploadPhoto stores a photo and returns its URL without touching the profile.
func (s *Service) UploadPhoto(ctx context.Context, data []byte, name, mime string) (string, error) {
	if s.photos == nil {
		return "", svcErr.External("upload photo", errors.New("photo store not configured"))
	}
	return s.photos.Upload(ctx, data, name, mime)
}

// UpdatePhoto uploads a new photo, points the profile at it and removes the old one.
// It never changes the onboarding flag; only CompleteSetup does.
func (s *Service) UpdatePhoto(ctx context.Context, telegramID int64, data []byte, name, mime string) (string, error) {
	p, err := s.Get(ctx, telegramID)
	if err != nil {
		return "", err
	}
	url, err := s.UploadPhoto(ctx, data, name, mime)
	if err != nil {
		return "", err
	}
	if err := s.profiles.Update(ctx, &db.Profile{ID: p.ID, PhotoURL: url}, "photo_url"); err != nil {
		s.deletePhoto(ctx, url)
		return "", svcErr.Map(err)
	}
	if p.PhotoURL != "" && p.PhotoURL != url {
		s.deletePhoto(ctx, p.PhotoURL)
	}
	return url, nil
}

// CompleteSetup writes the wizard's staged data in a single update and marks
// the profile onboarded. A photo replaced by the wizard is deleted afterwards.
func (s *Service) CompleteSetup(ctx context.Context, telegramID int64, st session.SetupState) (*db.Profile, error) {
	if st.Step != session.StepComplete {
		return nil, svcErr.Invariant(fmt.Sprintf("setup completed at step %q", st.Step))
	}
	if _, err := wizard.ParseAge(st.Age); err != nil {
		return nil, err
	}
	if _, err := wizard.ParseGender(st.Gender); err != nil {
		return nil, err
	}
	if err := s.validateQuestions(st.Questions); err != nil {
		return nil, err
	}
	if err := validateInterests(st.Interests); err != nil {
		return nil, err
	}
	if st.PhotoURL == "" {
		return nil, svcErr.Validation("Please send a photo.")
	}

	p, err := s.Get(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	previous := p.PhotoURL

	p.Age, p.Gender, p.About, p.PhotoURL = st.Age, st.Gender, st.About, st.PhotoURL
	p.Questions, p.Interests = st.Questions, st.Interests
	p.Onboarded = true
	err = s.profiles.Update(ctx, p,
		"age", "gender", "questions", "interests", "about", "photo_url", "onboarded")
	if err != nil {
		return nil, svcErr.Map(err)
	}

	if previous != "" && previous != st.PhotoURL {
		s.deletePhoto(ctx, previous)
	}
	s.log.Info("profile setup completed", "user", telegramID, "profile", p.ID)
	return p, nil
}

// QuestionTexts resolves selected question ids for display.
func (s *Service) QuestionTexts(ids []string) []string {
	return s.catalog.Texts(ids)
}

func (s *Service) update(ctx context.Context, telegramID int64, values *db.Profile, columns ...string) error {
	p, err := s.Get(ctx, telegramID)
	if err != nil {
		return err
	}
	values.ID = p.ID
	if err := s.profiles.Update(ctx, values, columns...); err != nil {
		return svcErr.Map(err)
	}
	return nil
}

func (s *Service) validateQuestions(ids []string) error {
	if len(ids) == 0 || len(ids) > wizard.MaxQuestions {
		return svcErr.Validation(fmt.Sprintf("Please select between 1 and %d questions.", wizard.MaxQuestions))
	}
	if unknown := s.catalog.Unknown(ids); len(unknown) > 0 {
		return svcErr.Validation("Some selected questions no longer exist. Please select again.")
	}
	return nil
}

func validateInterests(interests []string) error {
	if len(interests) == 0 {
		return svcErr.Validation("Please add at least one interest.")
	}
	if len(interests) > wizard.MaxInterests {
		return svcErr.Validation(fmt.Sprintf("You can only have up to %d interests.", wizard.MaxInterests))
	}
	return nil
}

// deletePhoto is best effort: a leftover object is logged, not surfaced.
func (s *Service) deletePhoto(ctx context.Context, url string) {
	if s.photos == nil {
		return
	}
	if err := s.photos.Delete(ctx, url); err != nil {
		s.log.Warn("failed to delete photo", "url", url, "err", err)
	}
}

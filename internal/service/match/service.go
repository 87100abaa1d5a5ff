package match

import (
	"context"
	"log/slog"
	"time"

	"github.com/oggyb/matchbot/internal/app"
	"github.com/oggyb/matchbot/internal/catalog"
	"github.com/oggyb/matchbot/internal/db"
	svcErr "github.com/oggyb/matchbot/internal/errors"
	"github.com/oggyb/matchbot/internal/repository"
	"github.com/oggyb/matchbot/internal/utils/pagination"
)

// PageSize is how many matches one List call returns.
const PageSize = 10

// ProfileStore resolves match members.
type ProfileStore interface {
	FindByTelegramID(ctx context.Context, telegramID int64) (*db.Profile, error)
	FindByIDs(ctx context.Context, ids []uint64) ([]db.Profile, error)
}

// MatchStore lists and archives matches.
type MatchStore interface {
	ActiveFor(ctx context.Context, profileID uint64, cursor *pagination.Cursor, limit int) ([]db.Match, *pagination.Cursor, error)
	Archive(ctx context.Context, a, b uint64, now time.Time) (bool, error)
}

// Summary is one entry of the match list, describing the other member.
type Summary struct {
	MatchID   uint64
	ProfileID uint64
	Name      string
	Age       string
	Username  string
	PhotoURL  string
	Interests []string
	Questions []string // question texts
	MatchedAt time.Time
}

// Service implements the match list and unmatch.
type Service struct {
	profiles ProfileStore
	matches  MatchStore
	catalog  *catalog.Catalog
	log      *slog.Logger
	now      func() time.Time
}

// New creates a match service over explicit stores.
func New(profiles ProfileStore, matches MatchStore, cat *catalog.Catalog, log *slog.Logger) *Service {
	return &Service{profiles: profiles, matches: matches, catalog: cat, log: log, now: time.Now}
}

// NewService creates a match service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return New(
		repository.NewProfileRepository(appCtx.DB),
		repository.NewMatchRepository(appCtx.DB),
		appCtx.Catalog,
		appCtx.Logger,
	)
}

// List returns the caller's active matches, newest first.
//
// Behavior:
//   - Empty token starts at the newest match; nextToken is "" on the last page.
//   - Each entry resolves the other member; self-references are skipped.
//   - Question ids are resolved to their texts via the catalog.
//
// Example:
//
//	page, next, err := svc.List(ctx, tgID, "")
func (s *Service) List(ctx context.Context, telegramID int64, token string) ([]Summary, string, error) {
	caller, err := s.caller(ctx, telegramID)
	if err != nil {
		return nil, "", err
	}

	cursor, err := pagination.Decode(token)
	if err != nil {
		return nil, "", svcErr.Validation("That list is out of date. Please open My Matches again.")
	}

	matches, next, err := s.matches.ActiveFor(ctx, caller.ID, &cursor, PageSize)
	if err != nil {
		return nil, "", svcErr.External("list matches", err)
	}

	ids := make([]uint64, 0, len(matches))
	for _, m := range matches {
		other, ok := m.Other(caller.ID)
		if !ok || other == caller.ID {
			s.log.Warn("skipping self-referencing match", "match", m.ID, "profile", caller.ID)
			continue
		}
		ids = append(ids, other)
	}

	profiles, err := s.profiles.FindByIDs(ctx, ids)
	if err != nil {
		return nil, "", svcErr.External("load match profiles", err)
	}
	byID := make(map[uint64]db.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	out := make([]Summary, 0, len(matches))
	for _, m := range matches {
		other, ok := m.Other(caller.ID)
		if !ok || other == caller.ID {
			continue
		}
		p, ok := byID[other]
		if !ok {
			continue
		}
		out = append(out, Summary{
			MatchID:   m.ID,
			ProfileID: p.ID,
			Name:      p.Name,
			Age:       p.Age,
			Username:  p.Username,
			PhotoURL:  p.PhotoURL,
			Interests: p.Interests,
			Questions: s.catalog.Texts(p.Questions),
			MatchedAt: m.MatchedAt,
		})
	}

	var nextToken string
	if next != nil {
		if nextToken, err = pagination.Encode(*next); err != nil {
			return nil, "", svcErr.Invariant(err.Error())
		}
	}
	return out, nextToken, nil
}

// Unmatch archives the active match between the caller and target.
// Both members stop seeing it at once. NotFound when there is no such match.
func (s *Service) Unmatch(ctx context.Context, telegramID int64, targetProfileID uint64) error {
	caller, err := s.caller(ctx, telegramID)
	if err != nil {
		return err
	}
	if targetProfileID == 0 || targetProfileID == caller.ID {
		return svcErr.NotFound("match not found")
	}

	ok, err := s.matches.Archive(ctx, caller.ID, targetProfileID, s.now())
	if err != nil {
		return svcErr.External("archive match", err)
	}
	if !ok {
		return svcErr.NotFound("match not found")
	}
	s.log.Info("match archived", "profile", caller.ID, "target", targetProfileID)
	return nil
}

func (s *Service) caller(ctx context.Context, telegramID int64) (*db.Profile, error) {
	p, err := s.profiles.FindByTelegramID(ctx, telegramID)
	if err != nil {
		if err = svcErr.Map(err); svcErr.IsNotFound(err) {
			return nil, svcErr.NotFound("profile not found")
		}
		return nil, err
	}
	return p, nil
}

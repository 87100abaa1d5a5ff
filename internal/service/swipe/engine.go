// Package swipe is the browse/swipe engine: candidate batches, the daily
// quota, like/skip bookkeeping and mutual match detection.
package swipe

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oggyb/matchbot/internal/app"
	"github.com/oggyb/matchbot/internal/db"
	svcErr "github.com/oggyb/matchbot/internal/errors"
	"github.com/oggyb/matchbot/internal/repository"
	"github.com/oggyb/matchbot/internal/session"
)

const (
	// DailySwipeLimit caps like/skip decisions per UTC day.
	DailySwipeLimit = 50
	// BatchSize is how many candidates one query caches in the session.
	BatchSize = 20
)

var (
	ErrNotOnboarded    = errors.New("profile setup not finished")
	ErrNoActiveSession = errors.New("no candidate awaiting a decision")
	ErrLimitReached    = errors.New("daily swipe limit reached")
)

// ProfileStore is what the engine reads profiles from.
type ProfileStore interface {
	FindByTelegramID(ctx context.Context, telegramID int64) (*db.Profile, error)
	Candidates(ctx context.Context, callerID uint64, gender string, limit int) ([]db.Profile, error)
}

// DecisionStore records likes/skips.
type DecisionStore interface {
	Record(ctx context.Context, actorID, recipientID uint64, liked bool) error
	HasLiked(ctx context.Context, actorID, recipientID uint64) (bool, error)
}

// MatchStore persists matches.
type MatchStore interface {
	Create(ctx context.Context, m *db.Match) error
}

// LikeCounter is the cached "liked by" counter, dropped whenever a like lands.
type LikeCounter interface {
	InvalidateLikeCount(ctx context.Context, profileID uint64) error
}

// Status is the result of Next.
type Status int

const (
	StatusPresenting Status = iota + 1
	StatusLimitReached
	StatusExhausted
)

// Presentation is what Next shows the caller.
type Presentation struct {
	Status      Status
	Candidate   session.Candidate // set when Status == StatusPresenting
	SwipesToday int
	Limit       int
	// NoMatchingRule is set with StatusExhausted when the caller's gender has no pairing rule.
	NoMatchingRule bool
}

// Action is a browsing decision.
type Action int

const (
	Like Action = iota + 1
	Skip
)

// Outcome is the result of Decide.
type Outcome int

const (
	Recorded Outcome = iota + 1
	MatchFormed
)

// Result reports a decision.
type Result struct {
	Outcome   Outcome
	Candidate session.Candidate
	// BatchDone is set when the cached batch ran empty; the next Next re-queries.
	BatchDone bool
}

// Engine serves candidates one at a time, records decisions and detects mutual likes.
type Engine struct {
	profiles  ProfileStore
	decisions DecisionStore
	matches   MatchStore
	likes     LikeCounter
	log       *slog.Logger
	now       func() time.Time
}

// NewEngine creates an engine over explicit stores.
func NewEngine(profiles ProfileStore, decisions DecisionStore, matches MatchStore, log *slog.Logger) *Engine {
	return &Engine{
		profiles:  profiles,
		decisions: decisions,
		matches:   matches,
		log:       log,
		now:       time.Now,
	}
}

// NewService wires the engine from AppContext.
// Dependencies include:
//   - DB connection (via Profile/Decision/Match repositories)
//   - RedisCache for the liked-by counter
func NewService(appCtx *app.AppContext) *Engine {
	e := NewEngine(
		repository.NewProfileRepository(appCtx.DB),
		repository.NewDecisionRepository(appCtx.DB),
		repository.NewMatchRepository(appCtx.DB),
		appCtx.Logger,
	)
	if appCtx.RedisCache != nil {
		e.likes = appCtx.RedisCache
	}
	return e
}

// WithClock replaces the clock used for the quota day and match timestamps.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Next presents the next candidate.
//
// Behavior:
//   - ErrNotOnboarded when the caller has no finished profile.
//   - Resets the quota when its day is not today (UTC).
//   - StatusLimitReached once DailySwipeLimit decisions were made today.
//   - Re-queries up to BatchSize candidates when the cached batch is empty.
//   - StatusExhausted when nothing is left to show.
//   - Otherwise the batch head becomes the current candidate.
func (e *Engine) Next(ctx context.Context, telegramID int64, sess *session.Session) (Presentation, error) {
	caller, err := e.caller(ctx, telegramID)
	if err != nil {
		return Presentation{}, err
	}

	browse := sess.BeginBrowse()
	e.rollQuota(sess)
	pres := Presentation{SwipesToday: sess.Quota.Count, Limit: DailySwipeLimit}

	if sess.Quota.Count >= DailySwipeLimit {
		browse.Current = 0
		pres.Status = StatusLimitReached
		return pres, nil
	}

	wanted, ok := PreferredGender(caller.Gender)
	if !ok {
		browse.Batch, browse.Current = nil, 0
		pres.Status, pres.NoMatchingRule = StatusExhausted, true
		return pres, nil
	}

	if len(browse.Batch) == 0 {
		found, err := e.profiles.Candidates(ctx, caller.ID, wanted, BatchSize)
		if err != nil {
			return Presentation{}, svcErr.External("query candidates", err)
		}
		browse.Batch = make([]session.Candidate, 0, len(found))
		for _, p := range found {
			browse.Batch = append(browse.Batch, card(p))
		}
	}

	if len(browse.Batch) == 0 {
		browse.Current = 0
		pres.Status = StatusExhausted
		return pres, nil
	}

	browse.Current = browse.Batch[0].ID
	pres.Status = StatusPresenting
	pres.Candidate = browse.Batch[0]
	return pres, nil
}

// Decide records a like or skip on the current candidate.
//
// Behavior:
//   - ErrNoActiveSession unless Next presented a candidate that is still undecided,
//     so a repeated button press cannot decide twice.
//   - ErrLimitReached before any mutation once the quota is spent.
//   - The decision marks the candidate seen; Like also adds it to likes.
//   - A Like on someone who already liked the caller creates the match (MatchFormed).
//   - The session is only advanced after every store write succeeded.
func (e *Engine) Decide(ctx context.Context, telegramID int64, sess *session.Session, action Action) (Result, error) {
	browse := sess.Browse
	if sess.Flow != session.FlowBrowse || browse == nil || browse.Current == 0 ||
		len(browse.Batch) == 0 || browse.Batch[0].ID != browse.Current {
		return Result{}, ErrNoActiveSession
	}

	e.rollQuota(sess)
	if sess.Quota.Count >= DailySwipeLimit {
		return Result{}, ErrLimitReached
	}

	caller, err := e.caller(ctx, telegramID)
	if err != nil {
		return Result{}, err
	}

	cand := browse.Batch[0]
	liked := action == Like
	if err := e.decisions.Record(ctx, caller.ID, cand.ID, liked); err != nil {
		return Result{}, svcErr.Map(err)
	}

	res := Result{Outcome: Recorded, Candidate: cand}
	if liked {
		e.invalidateLikes(ctx, cand.ID)

		mutual, err := e.decisions.HasLiked(ctx, cand.ID, caller.ID)
		if err != nil {
			return Result{}, svcErr.External("check mutual like", err)
		}
		if mutual {
			m, err := db.NewMatch(caller.ID, cand.ID, caller.ID, e.now())
			if err != nil {
				return Result{}, err
			}
			if err := e.matches.Create(ctx, m); err != nil {
				return Result{}, svcErr.Map(err)
			}
			e.log.Info("match formed", "match", m.ID, "a", m.UserLowID, "b", m.UserHighID)
			res.Outcome = MatchFormed
		}
	}

	sess.Quota.Count++
	browse.Batch = browse.Batch[1:]
	browse.Current = 0
	res.BatchDone = len(browse.Batch) == 0
	return res, nil
}

// Stop leaves browsing. The cached batch and current pointer go, the quota stays.
func (e *Engine) Stop(sess *session.Session) {
	if sess.Flow == session.FlowBrowse {
		sess.Reset()
	}
}

// Refresh drops the cached batch so the next Next queries again.
func (e *Engine) Refresh(sess *session.Session) {
	browse := sess.BeginBrowse()
	browse.Batch, browse.Current = nil, 0
}

// PreferredGender returns the gender shown to a caller.
// Only male and female have a pairing rule.
func PreferredGender(gender string) (string, bool) {
	switch gender {
	case db.GenderMale:
		return db.GenderFemale, true
	case db.GenderFemale:
		return db.GenderMale, true
	}
	return "", false
}

func (e *Engine) caller(ctx context.Context, telegramID int64) (*db.Profile, error) {
	p, err := e.profiles.FindByTelegramID(ctx, telegramID)
	if err != nil {
		if err = svcErr.Map(err); svcErr.IsNotFound(err) {
			return nil, ErrNotOnboarded
		}
		return nil, err
	}
	if !p.Onboarded {
		return nil, ErrNotOnboarded
	}
	return p, nil
}

// rollQuota resets the counter on the first call of a new UTC day.
func (e *Engine) rollQuota(sess *session.Session) {
	today := e.now().UTC().Format(time.DateOnly)
	if sess.Quota.Date != today {
		sess.Quota = session.Quota{Count: 0, Date: today}
	}
}

func (e *Engine) invalidateLikes(ctx context.Context, profileID uint64) {
	if e.likes == nil {
		return
	}
	if err := e.likes.InvalidateLikeCount(ctx, profileID); err != nil {
		e.log.Warn("failed to invalidate like count", "profile", profileID, "err", err)
	}
}

func card(p db.Profile) session.Candidate {
	return session.Candidate{
		ID:        p.ID,
		Name:      p.Name,
		Age:       p.Age,
		About:     p.About,
		Interests: p.Interests,
		PhotoURL:  p.PhotoURL,
	}
}

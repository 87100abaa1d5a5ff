package swipe_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oggyb/matchbot/internal/app"
	"github.com/oggyb/matchbot/internal/cache"
	"github.com/oggyb/matchbot/internal/db"
	svcErr "github.com/oggyb/matchbot/internal/errors"
	applog "github.com/oggyb/matchbot/internal/logger"
	"github.com/oggyb/matchbot/internal/repository"
	"github.com/oggyb/matchbot/internal/service/swipe"
	"github.com/oggyb/matchbot/internal/session"
)

//
// Test helpers
//

var today = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

type fixture struct {
	gdb       *gorm.DB
	engine    *swipe.Engine
	decisions *repository.DecisionRepository
	matches   *repository.MatchRepository
	clock     time.Time
}

func setup(t *testing.T) *fixture {
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

	f := &fixture{
		gdb:       gdb,
		decisions: repository.NewDecisionRepository(gdb),
		matches:   repository.NewMatchRepository(gdb),
		clock:     today,
	}
	f.engine = swipe.NewEngine(
		repository.NewProfileRepository(gdb),
		f.decisions,
		f.matches,
		applog.Discard(),
	).WithClock(func() time.Time { return f.clock })
	return f
}

func (f *fixture) profile(t *testing.T, tgID int64, gender string, onboarded bool) *db.Profile {
	t.Helper()
	p := &db.Profile{
		TelegramID: tgID,
		Name:       fmt.Sprintf("User %d", tgID),
		Username:   fmt.Sprintf("user_%d", tgID),
		Age:        "30",
		Gender:     gender,
		Interests:  []string{"Coffee"},
		Onboarded:  onboarded,
	}
	require.NoError(t, f.gdb.Create(p).Error)
	return p
}

//
// Tests
//

func TestMutualLikeScenario(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	a := f.profile(t, 1, db.GenderMale, true)
	b := f.profile(t, 2, db.GenderFemale, true)

	sessA, sessB := &session.Session{}, &session.Session{}

	pres, err := f.engine.Next(ctx, 1, sessA)
	require.NoError(t, err)
	require.Equal(t, swipe.StatusPresenting, pres.Status)
	assert.Equal(t, b.ID, pres.Candidate.ID)
	assert.Equal(t, 0, pres.SwipesToday)

	res, err := f.engine.Decide(ctx, 1, sessA, swipe.Like)
	require.NoError(t, err)
	assert.Equal(t, swipe.Recorded, res.Outcome)
	_, err = f.matches.FindActiveBetween(ctx, a.ID, b.ID)
	assert.Error(t, err)

	pres, err = f.engine.Next(ctx, 2, sessB)
	require.NoError(t, err)
	require.Equal(t, swipe.StatusPresenting, pres.Status)
	assert.Equal(t, a.ID, pres.Candidate.ID)

	res, err = f.engine.Decide(ctx, 2, sessB, swipe.Like)
	require.NoError(t, err)
	assert.Equal(t, swipe.MatchFormed, res.Outcome)

	// both members see the same match
	for _, id := range []uint64{a.ID, b.ID} {
		page, _, err := f.matches.ActiveFor(ctx, id, nil, 10)
		require.NoError(t, err)
		require.Len(t, page, 1)
		other, ok := page[0].Other(id)
		assert.True(t, ok)
		assert.NotEqual(t, id, other)
	}
}

func TestLikeWithoutMutualIsRecorded(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	a := f.profile(t, 1, db.GenderMale, true)
	b := f.profile(t, 2, db.GenderFemale, true)
	// b skipped a earlier
	require.NoError(t, f.decisions.Record(ctx, b.ID, a.ID, false))

	sess := &session.Session{}
	_, err := f.engine.Next(ctx, 1, sess)
	require.NoError(t, err)
	res, err := f.engine.Decide(ctx, 1, sess, swipe.Like)
	require.NoError(t, err)
	assert.Equal(t, swipe.Recorded, res.Outcome)

	var count int64
	require.NoError(t, f.gdb.Model(&db.Match{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSkipMarksSeenOnly(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	a := f.profile(t, 1, db.GenderMale, true)
	b := f.profile(t, 2, db.GenderFemale, true)

	sess := &session.Session{}
	_, err := f.engine.Next(ctx, 1, sess)
	require.NoError(t, err)
	res, err := f.engine.Decide(ctx, 1, sess, swipe.Skip)
	require.NoError(t, err)
	assert.Equal(t, swipe.Recorded, res.Outcome)
	assert.True(t, res.BatchDone)

	seen, err := f.decisions.Seen(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint64{b.ID}, seen)
	likes, err := f.decisions.Likes(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, likes)

	// seen profiles are not served again
	pres, err := f.engine.Next(ctx, 1, sess)
	require.NoError(t, err)
	assert.Equal(t, swipe.StatusExhausted, pres.Status)
	assert.False(t, pres.NoMatchingRule)
}

func TestDecideTwiceWithoutNext(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.profile(t, 1, db.GenderMale, true)
	f.profile(t, 2, db.GenderFemale, true)
	f.profile(t, 3, db.GenderFemale, true)

	sess := &session.Session{}
	_, err := f.engine.Next(ctx, 1, sess)
	require.NoError(t, err)
	_, err = f.engine.Decide(ctx, 1, sess, swipe.Like)
	require.NoError(t, err)

	_, err = f.engine.Decide(ctx, 1, sess, swipe.Like)
	assert.ErrorIs(t, err, swipe.ErrNoActiveSession)
	assert.Equal(t, 1, sess.Quota.Count)

	_, err = f.engine.Decide(ctx, 1, &session.Session{}, swipe.Skip)
	assert.ErrorIs(t, err, swipe.ErrNoActiveSession)
}

func TestDailyLimit(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	caller := f.profile(t, 1, db.GenderMale, true)
	for i := int64(0); i < 60; i++ {
		f.profile(t, 100+i, db.GenderFemale, true)
	}

	sess := &session.Session{}
	for i := 0; i < swipe.DailySwipeLimit; i++ {
		pres, err := f.engine.Next(ctx, 1, sess)
		require.NoError(t, err)
		require.Equal(t, swipe.StatusPresenting, pres.Status, "decision %d", i)
		assert.Equal(t, i, pres.SwipesToday)
		assert.NotEqual(t, caller.ID, pres.Candidate.ID)

		action := swipe.Skip
		if i%2 == 0 {
			action = swipe.Like
		}
		_, err = f.engine.Decide(ctx, 1, sess, action)
		require.NoError(t, err)
	}

	pres, err := f.engine.Next(ctx, 1, sess)
	require.NoError(t, err)
	assert.Equal(t, swipe.StatusLimitReached, pres.Status)
	assert.Zero(t, pres.Candidate.ID)
	assert.Equal(t, swipe.DailySwipeLimit, sess.Quota.Count)

	seen, err := f.decisions.Seen(ctx, caller.ID)
	require.NoError(t, err)
	assert.Len(t, seen, swipe.DailySwipeLimit)
	assert.NotContains(t, seen, caller.ID)
}

func TestLimitRejectsBeforeMutation(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	caller := f.profile(t, 1, db.GenderMale, true)
	b := f.profile(t, 2, db.GenderFemale, true)

	sess := &session.Session{
		Flow:   session.FlowBrowse,
		Browse: &session.BrowseState{Batch: []session.Candidate{{ID: b.ID}}, Current: b.ID},
		Quota:  session.Quota{Count: swipe.DailySwipeLimit, Date: today.Format(time.DateOnly)},
	}

	_, err := f.engine.Decide(ctx, 1, sess, swipe.Like)
	assert.ErrorIs(t, err, swipe.ErrLimitReached)
	assert.Equal(t, swipe.DailySwipeLimit, sess.Quota.Count)
	assert.Equal(t, b.ID, sess.Browse.Current)
	assert.Len(t, sess.Browse.Batch, 1)

	seen, err := f.decisions.Seen(ctx, caller.ID)
	require.NoError(t, err)
	assert.Empty(t, seen)
}

func TestQuotaResetsOnNewDay(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.profile(t, 1, db.GenderMale, true)
	f.profile(t, 2, db.GenderFemale, true)

	yesterday := today.AddDate(0, 0, -1).Format(time.DateOnly)
	sess := &session.Session{Quota: session.Quota{Count: swipe.DailySwipeLimit, Date: yesterday}}

	pres, err := f.engine.Next(ctx, 1, sess)
	require.NoError(t, err)
	assert.Equal(t, swipe.StatusPresenting, pres.Status)
	assert.Equal(t, 0, pres.SwipesToday)
	assert.Equal(t, today.Format(time.DateOnly), sess.Quota.Date)

	// a later call on the same day keeps the counter
	_, err = f.engine.Decide(ctx, 1, sess, swipe.Skip)
	require.NoError(t, err)
	f.clock = today.Add(10 * time.Hour)
	_, err = f.engine.Next(ctx, 1, sess)
	require.NoError(t, err)
	assert.Equal(t, 1, sess.Quota.Count)

	// next UTC day starts again from 0
	f.clock = today.Add(24 * time.Hour)
	pres, err = f.engine.Next(ctx, 1, sess)
	require.NoError(t, err)
	assert.Equal(t, 0, pres.SwipesToday)
}

func TestNotOnboarded(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.profile(t, 1, db.GenderMale, false)

	_, err := f.engine.Next(ctx, 1, &session.Session{})
	assert.ErrorIs(t, err, swipe.ErrNotOnboarded)

	_, err = f.engine.Next(ctx, 404, &session.Session{})
	assert.ErrorIs(t, err, swipe.ErrNotOnboarded)
}

func TestOtherGenderHasNoRule(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.profile(t, 1, db.GenderOther, true)
	f.profile(t, 2, db.GenderOther, true)
	f.profile(t, 3, db.GenderFemale, true)

	pres, err := f.engine.Next(ctx, 1, &session.Session{})
	require.NoError(t, err)
	assert.Equal(t, swipe.StatusExhausted, pres.Status)
	assert.True(t, pres.NoMatchingRule)

	// and "other" is never served to male/female callers
	f.profile(t, 4, db.GenderMale, true)
	sess := &session.Session{}
	pres, err = f.engine.Next(ctx, 4, sess)
	require.NoError(t, err)
	require.Equal(t, swipe.StatusPresenting, pres.Status)
	for _, c := range sess.Browse.Batch {
		assert.NotEqual(t, uint64(1), c.ID)
		assert.NotEqual(t, uint64(2), c.ID)
	}
}

func TestStopAndRefresh(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.profile(t, 1, db.GenderMale, true)
	f.profile(t, 2, db.GenderFemale, true)
	f.profile(t, 3, db.GenderFemale, true)

	sess := &session.Session{}
	_, err := f.engine.Next(ctx, 1, sess)
	require.NoError(t, err)
	_, err = f.engine.Decide(ctx, 1, sess, swipe.Skip)
	require.NoError(t, err)

	f.engine.Refresh(sess)
	assert.Empty(t, sess.Browse.Batch)
	assert.Zero(t, sess.Browse.Current)

	_, err = f.engine.Next(ctx, 1, sess)
	require.NoError(t, err)
	f.engine.Stop(sess)
	assert.Equal(t, session.FlowNone, sess.Flow)
	assert.Nil(t, sess.Browse)
	assert.Equal(t, 1, sess.Quota.Count)

	_, err = f.engine.Decide(ctx, 1, sess, swipe.Like)
	assert.ErrorIs(t, err, swipe.ErrNoActiveSession)
}

func TestServiceInvalidatesLikeCount(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.profile(t, 1, db.GenderMale, true)
	b := f.profile(t, 2, db.GenderFemale, true)

	mr := miniredis.RunT(t)
	rc := cache.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = rc.Close() })
	require.NoError(t, rc.UpdateLikeCount(ctx, b.ID, 0))

	engine := swipe.NewService(app.New(f.gdb, rc, applog.Discard(), nil))
	sess := &session.Session{}
	_, err := engine.Next(ctx, 1, sess)
	require.NoError(t, err)
	_, err = engine.Decide(ctx, 1, sess, swipe.Like)
	require.NoError(t, err)

	assert.False(t, mr.Exists(rc.KeyForLikeCount(b.ID)))
}

func TestStoreFailureLeavesSessionUnchanged(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.profile(t, 1, db.GenderMale, true)
	f.profile(t, 2, db.GenderFemale, true)

	sess := &session.Session{}
	_, err := f.engine.Next(ctx, 1, sess)
	require.NoError(t, err)

	require.NoError(t, f.gdb.Migrator().DropTable(&db.Decision{}))
	_, err = f.engine.Decide(ctx, 1, sess, swipe.Like)
	require.Error(t, err)
	assert.Equal(t, svcErr.KindExternal, svcErr.KindOf(err))
	assert.Equal(t, 0, sess.Quota.Count)
	assert.NotZero(t, sess.Browse.Current)
}

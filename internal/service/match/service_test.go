package match_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oggyb/matchbot/internal/app"
	"github.com/oggyb/matchbot/internal/db"
	svcErr "github.com/oggyb/matchbot/internal/errors"
	applog "github.com/oggyb/matchbot/internal/logger"
	"github.com/oggyb/matchbot/internal/repository"
	"github.com/oggyb/matchbot/internal/service/match"
)

func setupService(t *testing.T) (*match.Service, *gorm.DB) {
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

	return match.NewService(app.New(gdb, nil, applog.Discard(), nil)), gdb
}

func createProfile(t *testing.T, gdb *gorm.DB, tgID int64, gender string) *db.Profile {
	t.Helper()
	p := &db.Profile{
		TelegramID: tgID,
		Name:       fmt.Sprintf("User %d", tgID),
		Username:   fmt.Sprintf("user_%d", tgID),
		Age:        "29",
		Gender:     gender,
		Interests:  []string{"Chai", "Books"},
		Questions:  []string{"cv_1", "ep_3"},
		Onboarded:  true,
	}
	require.NoError(t, gdb.Create(p).Error)
	return p
}

func createMatch(t *testing.T, gdb *gorm.DB, a, b uint64, at time.Time) {
	t.Helper()
	m, err := db.NewMatch(a, b, a, at)
	require.NoError(t, err)
	require.NoError(t, repository.NewMatchRepository(gdb).Create(context.Background(), m))
}

func TestListResolvesOtherMember(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t)
	a := createProfile(t, gdb, 1, db.GenderMale)
	b := createProfile(t, gdb, 2, db.GenderFemale)
	createMatch(t, gdb, a.ID, b.ID, time.Now())

	got, next, err := svc.List(ctx, 1, "")
	require.NoError(t, err)
	assert.Empty(t, next)
	require.Len(t, got, 1)
	assert.Equal(t, b.ID, got[0].ProfileID)
	assert.Equal(t, "user_2", got[0].Username)
	assert.Len(t, got[0].Questions, 2)
	assert.Equal(t, []string{"Chai", "Books"}, got[0].Interests)

	// symmetric
	got, _, err = svc.List(ctx, 2, "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ProfileID)
}

func TestListPages(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t)
	caller := createProfile(t, gdb, 1, db.GenderMale)
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	for i := int64(0); i < match.PageSize+3; i++ {
		p := createProfile(t, gdb, 100+i, db.GenderFemale)
		createMatch(t, gdb, caller.ID, p.ID, base.Add(time.Duration(i)*time.Hour))
	}

	first, next, err := svc.List(ctx, 1, "")
	require.NoError(t, err)
	require.Len(t, first, match.PageSize)
	require.NotEmpty(t, next)
	assert.True(t, first[0].MatchedAt.After(first[1].MatchedAt))

	second, next, err := svc.List(ctx, 1, next)
	require.NoError(t, err)
	assert.Len(t, second, 3)
	assert.Empty(t, next)

	seen := map[uint64]bool{}
	for _, s := range append(first, second...) {
		assert.False(t, seen[s.ProfileID], "duplicate %d", s.ProfileID)
		seen[s.ProfileID] = true
	}

	_, _, err = svc.List(ctx, 1, "%%%")
	assert.True(t, svcErr.IsValidation(err))
}

func TestUnmatch(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t)
	a := createProfile(t, gdb, 1, db.GenderMale)
	b := createProfile(t, gdb, 2, db.GenderFemale)
	createMatch(t, gdb, a.ID, b.ID, time.Now())

	require.NoError(t, svc.Unmatch(ctx, 1, b.ID))

	for _, tg := range []int64{1, 2} {
		got, _, err := svc.List(ctx, tg, "")
		require.NoError(t, err)
		assert.Empty(t, got)
	}

	err := svc.Unmatch(ctx, 2, a.ID)
	assert.True(t, svcErr.IsNotFound(err))

	err = svc.Unmatch(ctx, 1, a.ID)
	assert.True(t, svcErr.IsNotFound(err))
}

func TestUnknownCaller(t *testing.T) {
	svc, _ := setupService(t)

	_, _, err := svc.List(context.Background(), 404, "")
	assert.True(t, svcErr.IsNotFound(err))
}

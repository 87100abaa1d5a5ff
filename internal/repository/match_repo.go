package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/matchbot/internal/db"
	"github.com/oggyb/matchbot/internal/utils/pagination"
)

// MatchRepository provides data access methods for the Match model.
type MatchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a new repository bound to the given DB connection.
func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// Create stores m, or reactivates the existing row for the same pair.
//
// Behavior:
//   - Upsert on (user_low_id, user_high_id), so two mutual likes racing each
//     other converge on a single row.
//   - An archived pair that matches again becomes active with a fresh MatchedAt.
//   - m is reloaded afterwards so m.ID always refers to the stored row.
func (r *MatchRepository) Create(ctx context.Context, m *db.Match) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_low_id"}, {Name: "user_high_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "initiated_by", "matched_at", "last_interaction_at", "updated_at",
			}),
		}).
		Create(m).Error
	if err != nil {
		return err
	}
	var stored db.Match
	err = r.db.WithContext(ctx).
		Where("user_low_id = ? AND user_high_id = ?", m.UserLowID, m.UserHighID).
		First(&stored).Error
	if err != nil {
		return err
	}
	*m = stored
	return nil
}

// FindActiveBetween returns the active match between a and b.
// Returns gorm.ErrRecordNotFound when there is none.
func (r *MatchRepository) FindActiveBetween(ctx context.Context, a, b uint64) (*db.Match, error) {
	var m db.Match
	err := r.db.WithContext(ctx).
		Where("user_low_id = ? AND user_high_id = ? AND status = ?", min(a, b), max(a, b), db.MatchActive).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ActiveFor returns active matches of profileID, newest first.
//
// Pagination:
//   - Ordered by (matched_at DESC, id DESC).
//   - A non-zero cursor continues strictly after the row it points at.
//   - next is nil when there is no further page.
//
// Example:
//
//	page, next, err := repo.ActiveFor(ctx, 7, nil, 10)
func (r *MatchRepository) ActiveFor(
	ctx context.Context,
	profileID uint64,
	cursor *pagination.Cursor,
	limit int,
) ([]db.Match, *pagination.Cursor, error) {
	q := r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("(user_low_id = ? OR user_high_id = ?) AND status = ?", profileID, profileID, db.MatchActive)

	if cursor != nil && !cursor.IsZero() {
		ts := time.UnixMilli(cursor.TimeUnix).UTC()
		q = q.Where("(matched_at < ?) OR (matched_at = ? AND id < ?)", ts, ts, cursor.ID)
	}

	var matches []db.Match
	// fetch one extra row to know whether another page exists
	err := q.Order("matched_at DESC").Order("id DESC").Limit(limit + 1).Find(&matches).Error
	if err != nil {
		return nil, nil, err
	}

	var next *pagination.Cursor
	if len(matches) > limit {
		matches = matches[:limit]
		last := matches[len(matches)-1]
		next = &pagination.Cursor{ID: last.ID, TimeUnix: last.MatchedAt.UnixMilli()}
	}
	return matches, next, nil
}

// Archive marks the active match between a and b as archived.
//
// Behavior:
//   - One single-row update: both members stop seeing the match at once.
//   - Returns false when there was no active match to archive.
func (r *MatchRepository) Archive(ctx context.Context, a, b uint64, now time.Time) (bool, error) {
	// the zero-value model would fail the pair validation hook
	res := r.db.WithContext(ctx).
		Session(&gorm.Session{SkipHooks: true}).
		Model(&db.Match{}).
		Where("user_low_id = ? AND user_high_id = ? AND status = ?", min(a, b), max(a, b), db.MatchActive).
		Updates(map[string]any{
			"status":              db.MatchArchived,
			"last_interaction_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

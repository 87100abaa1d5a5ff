package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/matchbot/internal/db"
)

// ProfileRepository is the profile document store.
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new repository bound to the given DB connection.
func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: database}
}

// Create inserts a new profile.
func (r *ProfileRepository) Create(ctx context.Context, p *db.Profile) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// FindByTelegramID loads a profile by platform identity.
// Returns gorm.ErrRecordNotFound when the user never contacted the bot.
func (r *ProfileRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*db.Profile, error) {
	var p db.Profile
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByID loads a profile by its identifier.
func (r *ProfileRepository) FindByID(ctx context.Context, id uint64) (*db.Profile, error) {
	var p db.Profile
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByIDs loads several profiles. Missing ids are silently absent from the result.
func (r *ProfileRepository) FindByIDs(ctx context.Context, ids []uint64) ([]db.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var profiles []db.Profile
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error
	return profiles, err
}

// UsernameTaken reports whether a handle is already used by another profile.
func (r *ProfileRepository) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.Profile{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

// Update writes the listed columns of p to the row with p.ID in one statement.
//
// Zero values are written too (e.g. clearing About), which is why the columns
// are named explicitly instead of relying on non-zero struct fields.
//
// Example:
//
//	repo.Update(ctx, &db.Profile{ID: 7, Age: "34"}, "age")
func (r *ProfileRepository) Update(ctx context.Context, p *db.Profile, columns ...string) error {
	if len(columns) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("id = ?", p.ID).
		Select(columns).
		Updates(p)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Candidates returns up to limit onboarded profiles of the given gender that
// the caller has not decided on yet, excluding the caller.
//
// Behavior:
//   - id <> caller
//   - no decision row (caller -> candidate) exists, i.e. not liked and not seen
//   - onboarded = true and gender = wanted
//   - ordered by id so batches are deterministic
func (r *ProfileRepository) Candidates(
	ctx context.Context,
	callerID uint64,
	gender string,
	limit int,
) ([]db.Profile, error) {
	var profiles []db.Profile
	err := r.db.WithContext(ctx).
		Table("profiles p").
		Where("p.id <> ? AND p.onboarded = ? AND p.gender = ?", callerID, true, gender).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM decisions d
				WHERE d.actor_id = ?
				  AND d.recipient_id = p.id
			)`, callerID).
		Order("p.id ASC").
		Limit(limit).
		Find(&profiles).Error
	return profiles, err
}

package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/matchbot/internal/db"
	svcErr "github.com/oggyb/matchbot/internal/errors"
)

// DecisionRepository provides data access methods for the Decision model.
// It encapsulates all queries related to likes/skips between profiles.
type DecisionRepository struct {
	db *gorm.DB
}

// NewDecisionRepository creates a new repository bound to the given DB connection.
func NewDecisionRepository(database *gorm.DB) *DecisionRepository {
	return &DecisionRepository{db: database}
}

// Record stores a decision made by actor -> recipient.
//
// Behavior:
//   - Any decision marks the recipient as seen by the actor.
//   - A like upgrades an existing row to liked = true.
//   - A skip never downgrades an existing like (on conflict → no-op).
//   - actor == recipient is rejected: a profile never appears in its own sets.
//
// Example:
//
//	repo.Record(ctx, 1, 2, true) // profile 1 liked profile 2
func (r *DecisionRepository) Record(
	ctx context.Context,
	actorID, recipientID uint64,
	liked bool,
) error {
	if actorID == recipientID {
		return svcErr.Invariant("cannot decide on yourself")
	}

	decision := db.Decision{
		ActorID:     actorID,
		RecipientID: recipientID,
		Liked:       liked,
	}

	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "actor_id"}, {Name: "recipient_id"}},
		DoNothing: true,
	}
	if liked {
		onConflict = clause.OnConflict{
			Columns:   []clause.Column{{Name: "actor_id"}, {Name: "recipient_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"liked", "updated_at"}),
		}
	}

	return r.db.WithContext(ctx).Clauses(onConflict).Create(&decision).Error
}

// HasLiked checks whether an actor has liked a recipient.
//
// Behavior:
//   - Returns true if there exists a decision row where actor_id = X,
//     recipient_id = Y, and liked = true.
//   - Used for the mutual like check when a like is recorded.
//
// Example:
//
//	repo.HasLiked(ctx, 1, 2) // -> true if profile 1 liked profile 2
func (r *DecisionRepository) HasLiked(
	ctx context.Context,
	actorID, recipientID uint64,
) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("decisions d").
		Where("d.actor_id = ? AND d.recipient_id = ? AND d.liked = ?", actorID, recipientID, true).
		Count(&count).Error
	return count > 0, err
}

// Likes returns every profile the actor liked.
func (r *DecisionRepository) Likes(ctx context.Context, actorID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&db.Decision{}).
		Where("actor_id = ? AND liked = ?", actorID, true).
		Order("recipient_id").
		Pluck("recipient_id", &ids).Error
	return ids, err
}

// Seen returns every profile the actor has already been shown and decided on.
func (r *DecisionRepository) Seen(ctx context.Context, actorID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&db.Decision{}).
		Where("actor_id = ?", actorID).
		Order("recipient_id").
		Pluck("recipient_id", &ids).Error
	return ids, err
}

// CountLikers returns how many profiles liked the given recipient.
//
// Behavior:
//   - Counts only decisions where recipient_id = X and liked = true.
//   - Excludes profiles that the recipient explicitly skipped.
//   - Used in conjunction with the Redis cache (DB is fallback).
//
// Example:
//
//	repo.CountLikers(ctx, 42) // -> 12
func (r *DecisionRepository) CountLikers(
	ctx context.Context,
	recipientID uint64,
) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("decisions d").
		Where("d.recipient_id = ? AND d.liked = ?", recipientID, true).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM decisions d2
				WHERE d2.actor_id = ?
				  AND d2.recipient_id = d.actor_id
				  AND d2.liked = ?
			)`, recipientID, false).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

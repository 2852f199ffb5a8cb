package repository

import (
	"context"

	"github.com/yogull/yogull-social-platform-sub001/internal/counters"
	"github.com/yogull/yogull-social-platform-sub001/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReactionRepository manages likes and shares. Every call that changes a row
// moves the matching counter in the same transaction; no-op calls leave it.
type ReactionRepository interface {
	Like(ctx context.Context, targetType string, targetID, userID uint) (bool, error)
	Unlike(ctx context.Context, targetType string, targetID, userID uint) (bool, error)
	Toggle(ctx context.Context, targetType string, targetID, userID uint) (*models.LikeState, error)
	LikedBy(ctx context.Context, targetType string, userID uint, targetIDs []uint) (map[uint]bool, error)
	Share(ctx context.Context, targetType string, targetID, userID uint) (bool, error)
	Unshare(ctx context.Context, targetType string, targetID, userID uint) (bool, error)
}

type reactionRepository struct {
	db *gorm.DB
}

// NewReactionRepository returns a new ReactionRepository implementation.
func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

func (r *reactionRepository) Like(ctx context.Context, targetType string, targetID, userID uint) (bool, error) {
	var changed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		changed, err = like(tx, targetType, targetID, userID)
		return err
	})
	return changed, mapError(err, "Like", targetID)
}

func (r *reactionRepository) Unlike(ctx context.Context, targetType string, targetID, userID uint) (bool, error) {
	var changed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		changed, err = unlike(tx, targetType, targetID, userID)
		return err
	})
	return changed, mapError(err, "Like", targetID)
}

// Toggle flips the user's like on the target and returns the resulting state.
func (r *reactionRepository) Toggle(ctx context.Context, targetType string, targetID, userID uint) (*models.LikeState, error) {
	state := &models.LikeState{TargetType: targetType, TargetID: targetID}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tgt, err := lookupTarget(targetType)
		if err != nil {
			return err
		}

		var existing int64
		err = tx.Model(&models.Like{}).
			Where("target_type = ? AND target_id = ? AND user_id = ?", targetType, targetID, userID).
			Count(&existing).Error
		if err != nil {
			return err
		}

		if existing > 0 {
			_, err = unlike(tx, targetType, targetID, userID)
		} else {
			_, err = like(tx, targetType, targetID, userID)
		}
		if err != nil {
			return err
		}
		state.Liked = existing == 0

		return tx.Table(tgt.likes.Table).
			Select(tgt.likes.Column).
			Where("id = ?", targetID).
			Scan(&state.Count).Error
	})
	if err != nil {
		return nil, mapError(err, "Like", targetID)
	}
	return state, nil
}

func (r *reactionRepository) LikedBy(ctx context.Context, targetType string, userID uint, targetIDs []uint) (map[uint]bool, error) {
	out := make(map[uint]bool, len(targetIDs))
	if userID == 0 || len(targetIDs) == 0 {
		return out, nil
	}
	var liked []uint
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("target_type = ? AND user_id = ? AND target_id IN ?", targetType, userID, targetIDs).
		Pluck("target_id", &liked).Error
	if err != nil {
		return nil, mapError(err, "Like", nil)
	}
	for _, id := range liked {
		out[id] = true
	}
	return out, nil
}

func (r *reactionRepository) Share(ctx context.Context, targetType string, targetID, userID uint) (bool, error) {
	var changed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tgt, err := shareTarget(targetType)
		if err != nil {
			return err
		}
		if err := requireLive(tx, tgt.model, tgt.resource, targetID); err != nil {
			return err
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Share{TargetType: targetType, TargetID: targetID, UserID: userID})
		if res.Error != nil {
			return res.Error
		}
		changed = res.RowsAffected > 0
		if !changed {
			return nil
		}
		return counters.Adjust(tx, *tgt.shares, targetID, 1)
	})
	return changed, mapError(err, "Share", targetID)
}

func (r *reactionRepository) Unshare(ctx context.Context, targetType string, targetID, userID uint) (bool, error) {
	var changed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tgt, err := shareTarget(targetType)
		if err != nil {
			return err
		}
		res := tx.Where("target_type = ? AND target_id = ? AND user_id = ?", targetType, targetID, userID).
			Delete(&models.Share{})
		if res.Error != nil {
			return res.Error
		}
		changed = res.RowsAffected > 0
		if !changed {
			return nil
		}
		return counters.Adjust(tx, *tgt.shares, targetID, -res.RowsAffected)
	})
	return changed, mapError(err, "Share", targetID)
}

func like(tx *gorm.DB, targetType string, targetID, userID uint) (bool, error) {
	tgt, err := lookupTarget(targetType)
	if err != nil {
		return false, err
	}
	if err := requireLive(tx, tgt.model, tgt.resource, targetID); err != nil {
		return false, err
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Like{TargetType: targetType, TargetID: targetID, UserID: userID})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, counters.Adjust(tx, *tgt.likes, targetID, 1)
}

// unlike removes the like without requiring a live target, so likes on a
// tombstoned row can still be withdrawn.
func unlike(tx *gorm.DB, targetType string, targetID, userID uint) (bool, error) {
	tgt, err := lookupTarget(targetType)
	if err != nil {
		return false, err
	}
	res := tx.Where("target_type = ? AND target_id = ? AND user_id = ?", targetType, targetID, userID).
		Delete(&models.Like{})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, counters.Adjust(tx, *tgt.likes, targetID, -res.RowsAffected)
}

func shareTarget(targetType string) (targetSpec, error) {
	tgt, err := lookupTarget(targetType)
	if err != nil {
		return tgt, err
	}
	if tgt.shares == nil {
		return tgt, models.NewValidationError("target type " + targetType + " cannot be shared")
	}
	return tgt, nil
}

package repository

import (
	"context"

	"github.com/yogull/yogull-social-platform-sub001/internal/cache"
	"github.com/yogull/yogull-social-platform-sub001/internal/counters"
	"github.com/yogull/yogull-social-platform-sub001/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DiscussionRepository defines persistence operations for discussion
// categories, threads, participants and messages.
type DiscussionRepository interface {
	ListCategories(ctx context.Context) ([]models.DiscussionCategory, error)
	GetCategory(ctx context.Context, id uint) (*models.DiscussionCategory, error)
	CreateCategory(ctx context.Context, category *models.DiscussionCategory) error

	Create(ctx context.Context, discussion *models.Discussion) error
	GetByID(ctx context.Context, id uint) (*models.Discussion, error)
	List(ctx context.Context, categoryID uint, limit, offset int) ([]models.Discussion, error)
	Update(ctx context.Context, id uint, fields map[string]any) (*models.Discussion, error)
	Delete(ctx context.Context, id uint) (*models.CascadeSummary, error)

	AddMessage(ctx context.Context, message *models.DiscussionMessage) (joined bool, err error)
	GetMessage(ctx context.Context, id uint) (*models.DiscussionMessage, error)
	ListMessages(ctx context.Context, discussionID uint, limit, offset int) ([]models.DiscussionMessage, error)
	UpdateMessage(ctx context.Context, id uint, fields map[string]any) (*models.DiscussionMessage, error)
	DeleteMessage(ctx context.Context, id uint) error
	ParticipantIDs(ctx context.Context, discussionID uint) ([]uint, error)
}

type discussionRepository struct {
	db *gorm.DB
}

// NewDiscussionRepository returns a new DiscussionRepository implementation.
func NewDiscussionRepository(db *gorm.DB) DiscussionRepository {
	return &discussionRepository{db: db}
}

func (r *discussionRepository) ListCategories(ctx context.Context) ([]models.DiscussionCategory, error) {
	var categories []models.DiscussionCategory
	err := cache.Aside(ctx, cache.CategoryListKey, &categories, cache.CategoryTTL, func() error {
		return r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error
	})
	if err != nil {
		return nil, mapError(err, "Discussion category", nil)
	}
	return categories, nil
}

func (r *discussionRepository) GetCategory(ctx context.Context, id uint) (*models.DiscussionCategory, error) {
	var category models.DiscussionCategory
	err := cache.Aside(ctx, cache.CategoryKey(id), &category, cache.CategoryTTL, func() error {
		return r.db.WithContext(ctx).First(&category, id).Error
	})
	if err != nil {
		return nil, mapError(err, "Discussion category", id)
	}
	return &category, nil
}

func (r *discussionRepository) CreateCategory(ctx context.Context, category *models.DiscussionCategory) error {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		return mapError(err, "Discussion category", nil)
	}
	cache.InvalidateCategories(ctx, category.ID)
	return nil
}

// Create inserts the discussion and records its author as first participant.
func (r *discussionRepository) Create(ctx context.Context, discussion *models.Discussion) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireLive(tx, &models.DiscussionCategory{}, "Discussion category", discussion.CategoryID); err != nil {
			return err
		}
		discussion.IsActive = true
		if err := tx.Create(discussion).Error; err != nil {
			return err
		}
		_, err := joinDiscussion(tx, discussion.ID, discussion.AuthorID)
		return err
	})
	if err != nil {
		return mapError(err, "Discussion", nil)
	}
	discussion.ParticipantCount = 1
	return nil
}

func (r *discussionRepository) GetByID(ctx context.Context, id uint) (*models.Discussion, error) {
	var discussion models.Discussion
	if err := r.db.WithContext(ctx).First(&discussion, id).Error; err != nil {
		return nil, mapError(err, "Discussion", id)
	}
	return &discussion, nil
}

// List returns live discussions newest first, optionally within one category.
func (r *discussionRepository) List(ctx context.Context, categoryID uint, limit, offset int) ([]models.Discussion, error) {
	limit, offset = clampPage(limit, offset)
	query := r.db.WithContext(ctx).Model(&models.Discussion{})
	if categoryID != 0 {
		query = query.Where("category_id = ?", categoryID)
	}
	var discussions []models.Discussion
	err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&discussions).Error
	if err != nil {
		return nil, mapError(err, "Discussion", nil)
	}
	return discussions, nil
}

func (r *discussionRepository) Update(ctx context.Context, id uint, fields map[string]any) (*models.Discussion, error) {
	res := r.db.WithContext(ctx).Model(&models.Discussion{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, mapError(res.Error, "Discussion", id)
	}
	if res.RowsAffected == 0 {
		return nil, models.NewNotFoundError("Discussion", id)
	}
	return r.GetByID(ctx, id)
}

// Delete tombstones the discussion and its messages and zeroes the message
// count. Participant rows are kept.
func (r *discussionRepository) Delete(ctx context.Context, id uint) (*models.CascadeSummary, error) {
	summary := &models.CascadeSummary{TargetType: models.TargetDiscussion, TargetID: id}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var discussion models.Discussion
		if err := forUpdate(tx).First(&discussion, id).Error; err != nil {
			return err
		}
		res := tx.Where("discussion_id = ?", id).Delete(&models.DiscussionMessage{})
		if res.Error != nil {
			return res.Error
		}
		summary.Messages = res.RowsAffected
		if err := counters.Reset(tx, counters.DiscussionMessages, id); err != nil {
			return err
		}
		return tx.Delete(&discussion).Error
	})
	if err != nil {
		return nil, mapError(err, "Discussion", id)
	}
	return summary, nil
}

// AddMessage inserts message into a live, active discussion and joins its
// author as a participant. joined reports whether the author is new.
func (r *discussionRepository) AddMessage(ctx context.Context, message *models.DiscussionMessage) (bool, error) {
	var joined bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var discussion models.Discussion
		if err := tx.First(&discussion, message.DiscussionID).Error; err != nil {
			return mapError(err, "Discussion", message.DiscussionID)
		}
		if !discussion.IsActive {
			return models.NewValidationError("discussion is closed")
		}
		if message.ParentID != nil {
			var parent models.DiscussionMessage
			if err := tx.First(&parent, *message.ParentID).Error; err != nil {
				return mapError(err, "Discussion message", *message.ParentID)
			}
			if parent.DiscussionID != message.DiscussionID {
				return models.NewValidationError("parent message belongs to a different discussion")
			}
		}
		if err := tx.Create(message).Error; err != nil {
			return err
		}
		if err := counters.Adjust(tx, counters.DiscussionMessages, message.DiscussionID, 1); err != nil {
			return err
		}
		var err error
		joined, err = joinDiscussion(tx, message.DiscussionID, message.AuthorID)
		return err
	})
	return joined, mapError(err, "Discussion message", nil)
}

func (r *discussionRepository) GetMessage(ctx context.Context, id uint) (*models.DiscussionMessage, error) {
	var message models.DiscussionMessage
	if err := r.db.WithContext(ctx).First(&message, id).Error; err != nil {
		return nil, mapError(err, "Discussion message", id)
	}
	return &message, nil
}

func (r *discussionRepository) ListMessages(ctx context.Context, discussionID uint, limit, offset int) ([]models.DiscussionMessage, error) {
	limit, offset = clampPage(limit, offset)
	var messages []models.DiscussionMessage
	err := r.db.WithContext(ctx).
		Where("discussion_id = ?", discussionID).
		Order("created_at ASC").Order("id ASC").
		Limit(limit).Offset(offset).
		Find(&messages).Error
	if err != nil {
		return nil, mapError(err, "Discussion message", nil)
	}
	return messages, nil
}

func (r *discussionRepository) UpdateMessage(ctx context.Context, id uint, fields map[string]any) (*models.DiscussionMessage, error) {
	res := r.db.WithContext(ctx).Model(&models.DiscussionMessage{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, mapError(res.Error, "Discussion message", id)
	}
	if res.RowsAffected == 0 {
		return nil, models.NewNotFoundError("Discussion message", id)
	}
	return r.GetMessage(ctx, id)
}

// DeleteMessage tombstones one message. The participant count is historical
// and does not change.
func (r *discussionRepository) DeleteMessage(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var message models.DiscussionMessage
		if err := forUpdate(tx).First(&message, id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&message).Error; err != nil {
			return err
		}
		return counters.Adjust(tx, counters.DiscussionMessages, message.DiscussionID, -1)
	})
	return mapError(err, "Discussion message", id)
}

func (r *discussionRepository) ParticipantIDs(ctx context.Context, discussionID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.DiscussionParticipant{}).
		Where("discussion_id = ?", discussionID).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, mapError(err, "Discussion", discussionID)
	}
	return ids, nil
}

func joinDiscussion(tx *gorm.DB, discussionID, userID uint) (bool, error) {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.DiscussionParticipant{DiscussionID: discussionID, UserID: userID})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, counters.Adjust(tx, counters.DiscussionParticipants, discussionID, 1)
}

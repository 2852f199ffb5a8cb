package repository

import (
	"context"

	"github.com/yogull/yogull-social-platform-sub001/internal/counters"
	"github.com/yogull/yogull-social-platform-sub001/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines persistence operations for post comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByPost(ctx context.Context, postID uint, limit, offset int) ([]models.Comment, error)
	Update(ctx context.Context, id uint, fields map[string]any) (*models.Comment, error)
	Delete(ctx context.Context, id uint) (*models.CascadeSummary, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository returns a new CommentRepository implementation.
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Create inserts comment under a live post (and live parent comment, for
// replies) and bumps the post's comment count.
func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireLive(tx, &models.Post{}, "Post", comment.PostID); err != nil {
			return err
		}
		if comment.ParentID != nil {
			var parent models.Comment
			if err := tx.First(&parent, *comment.ParentID).Error; err != nil {
				return mapError(err, "Comment", *comment.ParentID)
			}
			if parent.PostID != comment.PostID {
				return models.NewValidationError("parent comment belongs to a different post")
			}
		}
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		return counters.Adjust(tx, counters.PostComments, comment.PostID, 1)
	})
	return mapError(err, "Comment", nil)
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return nil, mapError(err, "Comment", id)
	}
	return &comment, nil
}

func (r *commentRepository) ListByPost(ctx context.Context, postID uint, limit, offset int) ([]models.Comment, error) {
	limit, offset = clampPage(limit, offset)
	var comments []models.Comment
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC").Order("id ASC").
		Limit(limit).Offset(offset).
		Find(&comments).Error
	if err != nil {
		return nil, mapError(err, "Comment", nil)
	}
	return comments, nil
}

func (r *commentRepository) Update(ctx context.Context, id uint, fields map[string]any) (*models.Comment, error) {
	res := r.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, mapError(res.Error, "Comment", id)
	}
	if res.RowsAffected == 0 {
		return nil, models.NewNotFoundError("Comment", id)
	}
	return r.GetByID(ctx, id)
}

// Delete tombstones the comment and its live reply subtree, removes likes on
// every comment in it and decrements the post's comment count by its size.
func (r *commentRepository) Delete(ctx context.Context, id uint) (*models.CascadeSummary, error) {
	summary := &models.CascadeSummary{TargetType: models.TargetComment, TargetID: id}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var root models.Comment
		if err := forUpdate(tx).First(&root, id).Error; err != nil {
			return err
		}

		subtree, err := commentSubtree(tx, root.ID)
		if err != nil {
			return err
		}

		res := tx.Where("target_type = ? AND target_id IN ?", models.TargetComment, subtree).Delete(&models.Like{})
		if res.Error != nil {
			return res.Error
		}
		summary.Likes = res.RowsAffected

		if err := tx.Model(&models.Comment{}).Where("id IN ?", subtree).UpdateColumn("like_count", 0).Error; err != nil {
			return err
		}
		res = tx.Where("id IN ?", subtree).Delete(&models.Comment{})
		if res.Error != nil {
			return res.Error
		}
		summary.Comments = res.RowsAffected

		return counters.Adjust(tx, counters.PostComments, root.PostID, -res.RowsAffected)
	})
	if err != nil {
		return nil, mapError(err, "Comment", id)
	}
	return summary, nil
}

// commentSubtree returns rootID and the ids of its live descendants,
// breadth first.
func commentSubtree(tx *gorm.DB, rootID uint) ([]uint, error) {
	all := []uint{rootID}
	frontier := []uint{rootID}
	for len(frontier) > 0 {
		var children []uint
		if err := tx.Model(&models.Comment{}).Where("parent_id IN ?", frontier).Pluck("id", &children).Error; err != nil {
			return nil, err
		}
		all = append(all, children...)
		frontier = children
	}
	return all, nil
}

package repository

import (
	"context"

	"github.com/yogull/yogull-social-platform-sub001/internal/counters"
	"github.com/yogull/yogull-social-platform-sub001/internal/models"

	"gorm.io/gorm"
)

// FeedQuery selects a page of posts newest first.
type FeedQuery struct {
	ViewerID      uint
	ViewerIsAdmin bool
	// WallUserID restricts the page to one profile wall when non-zero.
	WallUserID uint
	Cursor     *Cursor
	Limit      int
}

// PostRepository defines persistence operations for wall posts.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	Feed(ctx context.Context, q FeedQuery) ([]models.Post, string, error)
	Update(ctx context.Context, id uint, fields map[string]any) (*models.Post, error)
	Delete(ctx context.Context, id uint) (*models.CascadeSummary, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository returns a new PostRepository implementation.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if post.Visibility == "" {
		post.Visibility = models.VisibilityPublic
	}
	return mapError(r.db.WithContext(ctx).Create(post).Error, "Post", nil)
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, mapError(err, "Post", id)
	}
	return &post, nil
}

// Feed returns up to q.Limit posts visible to the viewer ordered by
// (created_at, id) descending, plus the cursor for the next page. The cursor
// is empty on the last page.
func (r *postRepository) Feed(ctx context.Context, q FeedQuery) ([]models.Post, string, error) {
	limit, err := PageLimit(q.Limit)
	if err != nil {
		return nil, "", err
	}

	query := r.db.WithContext(ctx).Model(&models.Post{})
	if q.WallUserID != 0 {
		query = query.Where("profile_user_id = ?", q.WallUserID)
	}
	if !q.ViewerIsAdmin {
		query = query.Where("visibility = ? OR author_id = ? OR profile_user_id = ?",
			models.VisibilityPublic, q.ViewerID, q.ViewerID)
	}
	if q.Cursor != nil {
		query = query.Where("created_at < ? OR (created_at = ? AND id < ?)",
			q.Cursor.CreatedAt, q.Cursor.CreatedAt, q.Cursor.ID)
	}

	var posts []models.Post
	if err := query.Order("created_at DESC").Order("id DESC").Limit(limit + 1).Find(&posts).Error; err != nil {
		return nil, "", mapError(err, "Post", nil)
	}

	next := ""
	if len(posts) > limit {
		posts = posts[:limit]
		last := posts[limit-1]
		next = EncodeCursor(Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return posts, next, nil
}

func (r *postRepository) Update(ctx context.Context, id uint, fields map[string]any) (*models.Post, error) {
	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, mapError(res.Error, "Post", id)
	}
	if res.RowsAffected == 0 {
		return nil, models.NewNotFoundError("Post", id)
	}
	return r.GetByID(ctx, id)
}

// Delete tombstones the post and its comments, removes likes on both and the
// post's shares, zeroes its counters and revokes its media attachment.
func (r *postRepository) Delete(ctx context.Context, id uint) (*models.CascadeSummary, error) {
	summary := &models.CascadeSummary{TargetType: models.TargetPost, TargetID: id}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := forUpdate(tx).First(&post, id).Error; err != nil {
			return err
		}

		commentIDs := tx.Unscoped().Model(&models.Comment{}).Select("id").Where("post_id = ?", id)
		res := tx.Where("(target_type = ? AND target_id = ?) OR (target_type = ? AND target_id IN (?))",
			models.TargetPost, id, models.TargetComment, commentIDs).
			Delete(&models.Like{})
		if res.Error != nil {
			return res.Error
		}
		summary.Likes = res.RowsAffected

		res = tx.Where("target_type = ? AND target_id = ?", models.TargetPost, id).Delete(&models.Share{})
		if res.Error != nil {
			return res.Error
		}
		summary.Shares = res.RowsAffected

		if err := tx.Model(&models.Comment{}).Where("post_id = ?", id).UpdateColumn("like_count", 0).Error; err != nil {
			return err
		}
		res = tx.Where("post_id = ?", id).Delete(&models.Comment{})
		if res.Error != nil {
			return res.Error
		}
		summary.Comments = res.RowsAffected

		for _, c := range []counters.Counter{counters.PostLikes, counters.PostShares, counters.PostComments} {
			if err := counters.Reset(tx, c, id); err != nil {
				return err
			}
		}
		if err := tx.Delete(&post).Error; err != nil {
			return err
		}
		_, err := revokeContext(tx, models.TargetPost, id)
		return err
	})
	if err != nil {
		return nil, mapError(err, "Post", id)
	}
	return summary, nil
}

package repository

import (
	"context"

	"github.com/yogull/yogull-social-platform-sub001/internal/counters"
	"github.com/yogull/yogull-social-platform-sub001/internal/models"

	"gorm.io/gorm"
)

// GalleryRepository defines persistence operations for galleries and their items.
type GalleryRepository interface {
	Create(ctx context.Context, gallery *models.Gallery) error
	GetByID(ctx context.Context, id uint) (*models.Gallery, error)
	ListByOwner(ctx context.Context, ownerID uint, limit, offset int) ([]models.Gallery, error)
	AddItem(ctx context.Context, item *models.GalleryItem) error
	GetItem(ctx context.Context, id uint) (*models.GalleryItem, error)
	ListItems(ctx context.Context, galleryID uint, limit, offset int) ([]models.GalleryItem, error)
	DeleteItem(ctx context.Context, id uint) (*models.CascadeSummary, error)
	RecordView(ctx context.Context, itemID uint, viewerID *uint) (int64, error)
}

type galleryRepository struct {
	db *gorm.DB
}

// NewGalleryRepository returns a new GalleryRepository implementation.
func NewGalleryRepository(db *gorm.DB) GalleryRepository {
	return &galleryRepository{db: db}
}

func (r *galleryRepository) Create(ctx context.Context, gallery *models.Gallery) error {
	return mapError(r.db.WithContext(ctx).Create(gallery).Error, "Gallery", nil)
}

func (r *galleryRepository) GetByID(ctx context.Context, id uint) (*models.Gallery, error) {
	var gallery models.Gallery
	if err := r.db.WithContext(ctx).First(&gallery, id).Error; err != nil {
		return nil, mapError(err, "Gallery", id)
	}
	return &gallery, nil
}

func (r *galleryRepository) ListByOwner(ctx context.Context, ownerID uint, limit, offset int) ([]models.Gallery, error) {
	limit, offset = clampPage(limit, offset)
	var galleries []models.Gallery
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&galleries).Error
	if err != nil {
		return nil, mapError(err, "Gallery", nil)
	}
	return galleries, nil
}

// AddItem inserts item into a live gallery. The caller attaches the file.
func (r *galleryRepository) AddItem(ctx context.Context, item *models.GalleryItem) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireLive(tx, &models.Gallery{}, "Gallery", item.GalleryID); err != nil {
			return err
		}
		return tx.Create(item).Error
	})
	return mapError(err, "Gallery item", nil)
}

func (r *galleryRepository) GetItem(ctx context.Context, id uint) (*models.GalleryItem, error) {
	var item models.GalleryItem
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, mapError(err, "Gallery item", id)
	}
	return &item, nil
}

func (r *galleryRepository) ListItems(ctx context.Context, galleryID uint, limit, offset int) ([]models.GalleryItem, error) {
	limit, offset = clampPage(limit, offset)
	var items []models.GalleryItem
	err := r.db.WithContext(ctx).
		Where("gallery_id = ?", galleryID).
		Order("created_at ASC").Order("id ASC").
		Limit(limit).Offset(offset).
		Find(&items).Error
	if err != nil {
		return nil, mapError(err, "Gallery item", nil)
	}
	return items, nil
}

// DeleteItem tombstones the item, removes its likes, shares and views,
// zeroes its counters and revokes its file attachment.
func (r *galleryRepository) DeleteItem(ctx context.Context, id uint) (*models.CascadeSummary, error) {
	summary := &models.CascadeSummary{TargetType: models.TargetGalleryItem, TargetID: id}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.GalleryItem
		if err := forUpdate(tx).First(&item, id).Error; err != nil {
			return err
		}

		res := tx.Where("target_type = ? AND target_id = ?", models.TargetGalleryItem, id).Delete(&models.Like{})
		if res.Error != nil {
			return res.Error
		}
		summary.Likes = res.RowsAffected

		res = tx.Where("target_type = ? AND target_id = ?", models.TargetGalleryItem, id).Delete(&models.Share{})
		if res.Error != nil {
			return res.Error
		}
		summary.Shares = res.RowsAffected

		res = tx.Where("item_id = ?", id).Delete(&models.GalleryItemView{})
		if res.Error != nil {
			return res.Error
		}
		summary.Views = res.RowsAffected

		for _, c := range []counters.Counter{counters.GalleryItemLikes, counters.GalleryItemShares, counters.GalleryItemViews} {
			if err := counters.Reset(tx, c, id); err != nil {
				return err
			}
		}
		if err := tx.Delete(&item).Error; err != nil {
			return err
		}
		_, err := revokeContext(tx, models.TargetGalleryItem, id)
		return err
	})
	if err != nil {
		return nil, mapError(err, "Gallery item", id)
	}
	return summary, nil
}

// RecordView appends a view row and returns the item's new view count.
func (r *galleryRepository) RecordView(ctx context.Context, itemID uint, viewerID *uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireLive(tx, &models.GalleryItem{}, "Gallery item", itemID); err != nil {
			return err
		}
		if err := tx.Create(&models.GalleryItemView{ItemID: itemID, ViewerID: viewerID}).Error; err != nil {
			return err
		}
		if err := counters.Adjust(tx, counters.GalleryItemViews, itemID, 1); err != nil {
			return err
		}
		return tx.Model(&models.GalleryItem{}).Select("view_count").Where("id = ?", itemID).Scan(&count).Error
	})
	if err != nil {
		return 0, mapError(err, "Gallery item", itemID)
	}
	return count, nil
}

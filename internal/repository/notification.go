package repository

import (
	"context"
	"time"

	"github.com/yogull/yogull-social-platform-sub001/internal/models"

	"gorm.io/gorm"
)

// NotificationRepository defines persistence operations for a recipient's
// notifications. Every read and write is scoped to the recipient.
type NotificationRepository interface {
	CreateBatch(ctx context.Context, notifications []models.Notification) error
	ListForRecipient(ctx context.Context, recipientID uint, unreadOnly bool, limit, offset int) ([]models.Notification, error)
	UnreadCount(ctx context.Context, recipientID uint) (int64, error)
	MarkRead(ctx context.Context, recipientID, id uint) (*models.Notification, error)
	MarkAllRead(ctx context.Context, recipientID uint) (int64, error)
	Delete(ctx context.Context, recipientID, id uint) error
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository returns a new NotificationRepository implementation.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) CreateBatch(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return mapError(r.db.WithContext(ctx).Create(&notifications).Error, "Notification", nil)
}

func (r *notificationRepository) ListForRecipient(ctx context.Context, recipientID uint, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	limit, offset = clampPage(limit, offset)
	query := r.db.WithContext(ctx).Where("recipient_id = ?", recipientID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	var notifications []models.Notification
	err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&notifications).Error
	if err != nil {
		return nil, mapError(err, "Notification", nil)
	}
	return notifications, nil
}

func (r *notificationRepository) UnreadCount(ctx context.Context, recipientID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	if err != nil {
		return 0, mapError(err, "Notification", nil)
	}
	return count, nil
}

// MarkRead marks one of the recipient's notifications read. A notification
// that is deleted or belongs to someone else is NOT_FOUND.
func (r *notificationRepository) MarkRead(ctx context.Context, recipientID, id uint) (*models.Notification, error) {
	db := r.db.WithContext(ctx)
	var n models.Notification
	if err := db.Where("id = ? AND recipient_id = ?", id, recipientID).First(&n).Error; err != nil {
		return nil, mapError(err, "Notification", id)
	}
	if n.IsRead {
		return &n, nil
	}
	now := time.Now()
	if err := db.Model(&n).UpdateColumns(map[string]any{"is_read": true, "read_at": now}).Error; err != nil {
		return nil, mapError(err, "Notification", id)
	}
	n.IsRead = true
	n.ReadAt = &now
	return &n, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		UpdateColumns(map[string]any{"is_read": true, "read_at": time.Now()})
	if res.Error != nil {
		return 0, mapError(res.Error, "Notification", nil)
	}
	return res.RowsAffected, nil
}

func (r *notificationRepository) Delete(ctx context.Context, recipientID, id uint) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Delete(&models.Notification{})
	if res.Error != nil {
		return mapError(res.Error, "Notification", id)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Notification", id)
	}
	return nil
}

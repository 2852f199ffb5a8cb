package service

import (
	"context"

	"github.com/yogull/yogull-social-platform-sub001/internal/models"
	"github.com/yogull/yogull-social-platform-sub001/internal/repository"
)

// NotificationService serves a recipient's own notifications. Every call is
// scoped to the recipient; other users' rows are reported as missing.
type NotificationService struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
}

func NewNotificationService(notifications repository.NotificationRepository, users repository.UserRepository) *NotificationService {
	return &NotificationService{notifications: notifications, users: users}
}

func (s *NotificationService) List(ctx context.Context, recipientID uint, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	list, err := s.notifications.ListForRecipient(ctx, recipientID, unreadOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	actors := make([]uint, 0, len(list))
	for _, n := range list {
		actors = append(actors, n.ActorID)
	}
	summaries := authorSummaries(ctx, s.users, actors)
	for i := range list {
		list[i].Actor = summaries[list[i].ActorID]
	}
	return list, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, recipientID uint) (int64, error) {
	return s.notifications.UnreadCount(ctx, recipientID)
}

func (s *NotificationService) MarkRead(ctx context.Context, recipientID, id uint) (*models.Notification, error) {
	return s.notifications.MarkRead(ctx, recipientID, id)
}

// MarkAllRead returns how many notifications changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID uint) (int64, error) {
	return s.notifications.MarkAllRead(ctx, recipientID)
}

func (s *NotificationService) Delete(ctx context.Context, recipientID, id uint) error {
	return s.notifications.Delete(ctx, recipientID, id)
}

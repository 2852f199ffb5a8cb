package models

import (
	"time"

	"gorm.io/gorm"
)

// Notification types.
const (
	NotificationPostComment       = "post_comment"
	NotificationCommentReply      = "comment_reply"
	NotificationDiscussionMessage = "discussion_message"
	NotificationWallPost          = "wall_post"
)

// Notification is addressed to exactly one recipient. It is created only by
// fan-out and mutated only by its recipient (read or deleted).
type Notification struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	RecipientID uint           `gorm:"not null;index:idx_notification_recipient,priority:1" json:"recipient_id"`
	ActorID     uint           `gorm:"not null" json:"actor_id"`
	Type        string         `gorm:"size:32;not null" json:"type"`
	TargetType  string         `gorm:"size:32;not null" json:"target_type"`
	TargetID    uint           `gorm:"not null" json:"target_id"`
	CategoryID  *uint          `json:"category_id,omitempty"`
	IsRead      bool           `gorm:"not null;default:false;index:idx_notification_recipient,priority:2" json:"is_read"`
	ReadAt      *time.Time     `json:"read_at,omitempty"`
	Actor       *UserSummary   `gorm:"-" json:"actor,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// Visibility levels for wall posts.
const (
	VisibilityPublic  = "public"
	VisibilityFriends = "friends"
	VisibilityPrivate = "private"
)

// ValidVisibility reports whether v is a known visibility level.
func ValidVisibility(v string) bool {
	switch v {
	case VisibilityPublic, VisibilityFriends, VisibilityPrivate:
		return true
	}
	return false
}

// Post is a profile wall post. ProfileUserID owns the wall, AuthorID wrote it.
type Post struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	ProfileUserID uint           `gorm:"not null;index" json:"profile_user_id"`
	AuthorID      uint           `gorm:"not null;index" json:"author_id"`
	Content       string         `gorm:"type:text;not null" json:"content"`
	MediaFileID   *uint          `json:"media_file_id,omitempty"`
	Visibility    string         `gorm:"size:16;not null;default:public" json:"visibility"`
	LikeCount     int64          `gorm:"not null;default:0" json:"like_count"`
	ShareCount    int64          `gorm:"not null;default:0" json:"share_count"`
	CommentCount  int64          `gorm:"not null;default:0" json:"comment_count"`
	Author        *UserSummary   `gorm:"-" json:"author,omitempty"`
	Liked         bool           `gorm:"-" json:"liked"`
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// Comment is a comment on a wall post. ParentID forms an unbounded reply tree.
type Comment struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	PostID    uint           `gorm:"not null;index" json:"post_id"`
	AuthorID  uint           `gorm:"not null;index" json:"author_id"`
	ParentID  *uint          `gorm:"index" json:"parent_id,omitempty"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	LikeCount int64          `gorm:"not null;default:0" json:"like_count"`
	Author    *UserSummary   `gorm:"-" json:"author,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Target types for likes, shares and generic content operations.
const (
	TargetPost              = "post"
	TargetComment           = "comment"
	TargetGalleryItem       = "gallery_item"
	TargetDiscussion        = "discussion"
	TargetDiscussionMessage = "discussion_message"
	TargetChatMessage       = "chat_message"
)

// Like is a single user's like on a post, comment or gallery item.
// Rows are physically deleted on unlike.
type Like struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TargetType string    `gorm:"size:32;not null;uniqueIndex:idx_like_target_user,priority:1" json:"target_type"`
	TargetID   uint      `gorm:"not null;uniqueIndex:idx_like_target_user,priority:2" json:"target_id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_like_target_user,priority:3;index" json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Share records that a user shared a post or gallery item.
type Share struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TargetType string    `gorm:"size:32;not null;uniqueIndex:idx_share_target_user,priority:1" json:"target_type"`
	TargetID   uint      `gorm:"not null;uniqueIndex:idx_share_target_user,priority:2" json:"target_id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_share_target_user,priority:3;index" json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// LikeState is the result of a like toggle.
type LikeState struct {
	TargetType string `json:"target_type"`
	TargetID   uint   `json:"target_id"`
	Liked      bool   `json:"liked"`
	Count      int64  `json:"count"`
}

// CascadeSummary reports how many dependent rows a delete removed.
type CascadeSummary struct {
	TargetType string `json:"target_type"`
	TargetID   uint   `json:"target_id"`
	Comments   int64  `json:"comments"`
	Messages   int64  `json:"messages"`
	Likes      int64  `json:"likes"`
	Shares     int64  `json:"shares"`
	Views      int64  `json:"views"`
}

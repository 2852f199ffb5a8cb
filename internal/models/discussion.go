package models

import (
	"time"

	"gorm.io/gorm"
)

// DiscussionCategory groups community discussions (e.g. "Health").
type DiscussionCategory struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:80;not null;uniqueIndex" json:"name"`
	Slug        string    `gorm:"size:80;not null;uniqueIndex" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Discussion is a community discussion thread. The creator is always its
// first participant.
type Discussion struct {
	ID               uint                `gorm:"primaryKey" json:"id"`
	CategoryID       uint                `gorm:"not null;index" json:"category_id"`
	AuthorID         uint                `gorm:"not null;index" json:"author_id"`
	Title            string              `gorm:"size:200;not null" json:"title"`
	Content          string              `gorm:"type:text" json:"content"`
	IsActive         bool                `gorm:"not null;default:true" json:"is_active"`
	ParticipantCount int64               `gorm:"not null;default:0" json:"participant_count"`
	MessageCount     int64               `gorm:"not null;default:0" json:"message_count"`
	Author           *UserSummary        `gorm:"-" json:"author,omitempty"`
	Category         *DiscussionCategory `gorm:"-" json:"category,omitempty"`
	CreatedAt        time.Time           `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	DeletedAt        gorm.DeletedAt      `gorm:"index" json:"-"`
}

// DiscussionParticipant records that a user has taken part in a discussion.
type DiscussionParticipant struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	DiscussionID uint      `gorm:"not null;uniqueIndex:idx_discussion_participant,priority:1" json:"discussion_id"`
	UserID       uint      `gorm:"not null;uniqueIndex:idx_discussion_participant,priority:2;index" json:"user_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// DiscussionMessage is a message posted in a discussion, optionally replying
// to another message.
type DiscussionMessage struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	DiscussionID uint           `gorm:"not null;index" json:"discussion_id"`
	AuthorID     uint           `gorm:"not null;index" json:"author_id"`
	ParentID     *uint          `gorm:"index" json:"parent_id,omitempty"`
	Content      string         `gorm:"type:text;not null" json:"content"`
	Author       *UserSummary   `gorm:"-" json:"author,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

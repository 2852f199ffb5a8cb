package models

import (
	"time"

	"gorm.io/gorm"
)

// ChatRoom is a direct or group chat. LastMessageSeq is the highest sequence
// number handed out to a message in the room.
type ChatRoom struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"size:100" json:"name"`
	IsGroup        bool      `gorm:"not null;default:false" json:"is_group"`
	CreatedBy      uint      `gorm:"not null;index" json:"created_by"`
	LastMessageSeq int64     `gorm:"not null;default:0" json:"last_message_seq"`
	ParticipantIDs []uint    `gorm:"-" json:"participant_ids,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ChatParticipant is a current member of a chat room.
type ChatParticipant struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	RoomID   uint      `gorm:"not null;uniqueIndex:idx_chat_participant,priority:1" json:"room_id"`
	UserID   uint      `gorm:"not null;uniqueIndex:idx_chat_participant,priority:2;index" json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

// ChatMessage is a message in a chat room, totally ordered by Seq.
type ChatMessage struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	RoomID    uint           `gorm:"not null;uniqueIndex:idx_chat_room_seq,priority:1" json:"room_id"`
	SenderID  uint           `gorm:"not null;index" json:"sender_id"`
	Seq       int64          `gorm:"not null;uniqueIndex:idx_chat_room_seq,priority:2" json:"seq"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	Sender    *UserSummary   `gorm:"-" json:"sender,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

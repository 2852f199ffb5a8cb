package repository

import (
	"context"
	"time"

	"github.com/yogull/yogull-social-platform-sub001/internal/models"
	"github.com/yogull/yogull-social-platform-sub001/internal/policy"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChatRepository defines persistence operations for chat rooms and messages.
type ChatRepository interface {
	CreateRoom(ctx context.Context, room *models.ChatRoom, participantIDs []uint) error
	GetRoom(ctx context.Context, id uint) (*models.ChatRoom, error)
	ListRoomsForUser(ctx context.Context, userID uint) ([]models.ChatRoom, error)
	IsParticipant(ctx context.Context, roomID, userID uint) (bool, error)
	AddParticipant(ctx context.Context, roomID, userID uint) (bool, error)
	RemoveParticipant(ctx context.Context, roomID, userID uint) (bool, error)
	SendMessage(ctx context.Context, message *models.ChatMessage) error
	ListMessages(ctx context.Context, roomID uint, afterSeq int64, limit int) ([]models.ChatMessage, error)
	GetMessage(ctx context.Context, id uint) (*models.ChatMessage, error)
	DeleteMessage(ctx context.Context, id uint) error
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository returns a new ChatRepository implementation.
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

// CreateRoom inserts room with the creator and participantIDs as members.
func (r *chatRepository) CreateRoom(ctx context.Context, room *models.ChatRoom, participantIDs []uint) error {
	members := uniqueIDs(append([]uint{room.CreatedBy}, participantIDs...))
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var found int64
		if err := tx.Model(&models.User{}).Where("id IN ?", members).Count(&found).Error; err != nil {
			return err
		}
		if int(found) != len(members) {
			return models.NewValidationError("unknown participant")
		}
		if err := tx.Create(room).Error; err != nil {
			return err
		}
		now := time.Now()
		rows := make([]models.ChatParticipant, 0, len(members))
		for _, id := range members {
			rows = append(rows, models.ChatParticipant{RoomID: room.ID, UserID: id, JoinedAt: now})
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return mapError(err, "Chat room", nil)
	}
	room.ParticipantIDs = members
	return nil
}

func (r *chatRepository) GetRoom(ctx context.Context, id uint) (*models.ChatRoom, error) {
	db := r.db.WithContext(ctx)
	var room models.ChatRoom
	if err := db.First(&room, id).Error; err != nil {
		return nil, mapError(err, "Chat room", id)
	}
	if err := db.Model(&models.ChatParticipant{}).
		Where("room_id = ?", id).
		Order("user_id ASC").
		Pluck("user_id", &room.ParticipantIDs).Error; err != nil {
		return nil, mapError(err, "Chat room", id)
	}
	return &room, nil
}

// ListRoomsForUser returns the user's rooms, most recently active first.
func (r *chatRepository) ListRoomsForUser(ctx context.Context, userID uint) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	err := r.db.WithContext(ctx).
		Where("id IN (?)", r.db.Model(&models.ChatParticipant{}).Select("room_id").Where("user_id = ?", userID)).
		Order("updated_at DESC").Order("id DESC").
		Find(&rooms).Error
	if err != nil {
		return nil, mapError(err, "Chat room", nil)
	}
	return rooms, nil
}

func (r *chatRepository) IsParticipant(ctx context.Context, roomID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ChatParticipant{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	if err != nil {
		return false, mapError(err, "Chat room", roomID)
	}
	return count > 0, nil
}

func (r *chatRepository) AddParticipant(ctx context.Context, roomID, userID uint) (bool, error) {
	var added bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireLive(tx, &models.ChatRoom{}, "Chat room", roomID); err != nil {
			return err
		}
		if err := requireLive(tx, &models.User{}, "User", userID); err != nil {
			return err
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.ChatParticipant{RoomID: roomID, UserID: userID, JoinedAt: time.Now()})
		if res.Error != nil {
			return res.Error
		}
		added = res.RowsAffected > 0
		return nil
	})
	return added, mapError(err, "Chat room", roomID)
}

// RemoveParticipant takes the room row lock before deleting, so a removal
// commits either before or after any in-flight send.
func (r *chatRepository) RemoveParticipant(ctx context.Context, roomID, userID uint) (bool, error) {
	var removed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lock := tx.Model(&models.ChatRoom{}).Where("id = ?", roomID).UpdateColumn("updated_at", time.Now())
		if lock.Error != nil {
			return lock.Error
		}
		if lock.RowsAffected == 0 {
			return models.NewNotFoundError("Chat room", roomID)
		}
		res := tx.Where("room_id = ? AND user_id = ?", roomID, userID).Delete(&models.ChatParticipant{})
		removed = res.RowsAffected > 0
		return res.Error
	})
	if err != nil {
		return false, mapError(err, "Chat room", roomID)
	}
	return removed, nil
}

// SendMessage assigns the room's next sequence number to message and inserts
// it. The room row update serializes concurrent senders, so seq order matches
// commit order. Membership is checked again under that lock; a sender removed
// since the caller's check gets FORBIDDEN.
func (r *chatRepository) SendMessage(ctx context.Context, message *models.ChatMessage) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ChatRoom{}).
			Where("id = ?", message.RoomID).
			UpdateColumns(map[string]any{
				"last_message_seq": gorm.Expr("last_message_seq + 1"),
				"updated_at":       time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Chat room", message.RoomID)
		}

		var member int64
		if err := tx.Model(&models.ChatParticipant{}).
			Where("room_id = ? AND user_id = ?", message.RoomID, message.SenderID).
			Count(&member).Error; err != nil {
			return err
		}
		if member == 0 {
			return policy.Decision{Reason: policy.ReasonNotRoomParticipant}.Err()
		}

		var seq int64
		if err := tx.Model(&models.ChatRoom{}).
			Select("last_message_seq").
			Where("id = ?", message.RoomID).
			Scan(&seq).Error; err != nil {
			return err
		}
		message.Seq = seq
		return tx.Create(message).Error
	})
	return mapError(err, "Chat message", nil)
}

// ListMessages returns up to limit live messages with seq greater than
// afterSeq, in seq order.
func (r *chatRepository) ListMessages(ctx context.Context, roomID uint, afterSeq int64, limit int) ([]models.ChatMessage, error) {
	limit, err := PageLimit(limit)
	if err != nil {
		return nil, err
	}
	var messages []models.ChatMessage
	err = r.db.WithContext(ctx).
		Where("room_id = ? AND seq > ?", roomID, afterSeq).
		Order("seq ASC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, mapError(err, "Chat message", nil)
	}
	return messages, nil
}

func (r *chatRepository) GetMessage(ctx context.Context, id uint) (*models.ChatMessage, error) {
	var message models.ChatMessage
	if err := r.db.WithContext(ctx).First(&message, id).Error; err != nil {
		return nil, mapError(err, "Chat message", id)
	}
	return &message, nil
}

func (r *chatRepository) DeleteMessage(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.ChatMessage{}, id)
	if res.Error != nil {
		return mapError(res.Error, "Chat message", id)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Chat message", id)
	}
	return nil
}

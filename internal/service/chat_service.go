package service

import (
	"context"
	"log/slog"

	"github.com/yogull/yogull-social-platform-sub001/internal/featureflags"
	"github.com/yogull/yogull-social-platform-sub001/internal/middleware"
	"github.com/yogull/yogull-social-platform-sub001/internal/models"
	"github.com/yogull/yogull-social-platform-sub001/internal/notifications"
	"github.com/yogull/yogull-social-platform-sub001/internal/observability"
	"github.com/yogull/yogull-social-platform-sub001/internal/policy"
	"github.com/yogull/yogull-social-platform-sub001/internal/repository"
	"github.com/yogull/yogull-social-platform-sub001/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

const resourceChatParticipant = "chat_participant"

// RoomPublisher pushes a frame to the members of a chat room.
// notifications.Notifier satisfies it.
type RoomPublisher interface {
	PublishRoomEvent(ctx context.Context, roomID uint, recipients []uint, frameType string, payload any) error
}

// ChatService owns chat rooms, their membership and messages.
type ChatService struct {
	store    *repository.Store
	policy   *policy.Policy
	realtime RoomPublisher
	flags    *featureflags.Manager
}

type CreateRoomInput struct {
	ActorID        uint
	Name           string
	IsGroup        bool
	ParticipantIDs []uint
}

type SendMessageInput struct {
	ActorID uint
	RoomID  uint
	Content string
}

type ListChatMessagesInput struct {
	ActorID  uint
	RoomID   uint
	AfterSeq int64
	Limit    int
}

func NewChatService(store *repository.Store, pol *policy.Policy, realtime RoomPublisher, flags *featureflags.Manager) *ChatService {
	return &ChatService{store: store, policy: pol, realtime: realtime, flags: flags}
}

// CreateRoom creates a room with the actor and the listed users as members.
// A direct room has exactly one other member.
func (s *ChatService) CreateRoom(ctx context.Context, in CreateRoomInput) (*models.ChatRoom, error) {
	actor, err := loadActor(ctx, s.store.Users, in.ActorID)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.policy, actor, policy.OpCreate, policy.Resource{
		Type: policy.ResourceChatRoom, AuthorID: in.ActorID,
	}); err != nil {
		return nil, err
	}

	others := make([]uint, 0, len(in.ParticipantIDs))
	for _, id := range in.ParticipantIDs {
		if id != 0 && id != in.ActorID {
			others = append(others, id)
		}
	}
	if !in.IsGroup && len(others) != 1 {
		return nil, models.NewValidationError("a direct chat needs exactly one other participant")
	}
	if in.IsGroup && len(others) == 0 {
		return nil, models.NewValidationError("a group chat needs at least one other participant")
	}
	name, err := validation.OptionalText("name", in.Name, validation.MaxRoomNameLen)
	if err != nil {
		return nil, validationErr(err)
	}

	room := &models.ChatRoom{Name: name, IsGroup: in.IsGroup, CreatedBy: in.ActorID}
	if err := s.store.Chat.CreateRoom(ctx, room, others); err != nil {
		return nil, err
	}
	countMutation(policy.ResourceChatRoom, "create")
	return room, nil
}

func (s *ChatService) GetRoom(ctx context.Context, actorID, roomID uint) (*models.ChatRoom, error) {
	if err := s.requireParticipant(ctx, actorID, roomID, policy.OpChatRead); err != nil {
		return nil, err
	}
	return s.store.Chat.GetRoom(ctx, roomID)
}

func (s *ChatService) ListRooms(ctx context.Context, actorID uint) ([]models.ChatRoom, error) {
	if _, err := loadActor(ctx, s.store.Users, actorID); err != nil {
		return nil, err
	}
	return s.store.Chat.ListRoomsForUser(ctx, actorID)
}

// AddParticipant adds userID to a group room. Any current member may invite.
func (s *ChatService) AddParticipant(ctx context.Context, actorID, roomID, userID uint) (bool, error) {
	if err := s.requireParticipant(ctx, actorID, roomID, policy.OpChatSend); err != nil {
		return false, err
	}
	room, err := s.store.Chat.GetRoom(ctx, roomID)
	if err != nil {
		return false, err
	}
	if !room.IsGroup {
		return false, models.NewValidationError("participants cannot be added to a direct chat")
	}
	added, err := s.store.Chat.AddParticipant(ctx, roomID, userID)
	if err == nil && added {
		countMutation(resourceChatParticipant, "create")
	}
	return added, err
}

// RemoveParticipant removes userID from a room. Members may leave; the room's
// creator and administrators may remove anyone.
func (s *ChatService) RemoveParticipant(ctx context.Context, actorID, roomID, userID uint) (bool, error) {
	actor, err := loadActor(ctx, s.store.Users, actorID)
	if err != nil {
		return false, err
	}
	room, err := s.store.Chat.GetRoom(ctx, roomID)
	if err != nil {
		return false, err
	}
	if err := authorize(s.policy, actor, policy.OpDelete, policy.Resource{
		Type: resourceChatParticipant, AuthorID: userID, ContextOwnerID: room.CreatedBy,
	}); err != nil {
		return false, err
	}
	removed, err := s.store.Chat.RemoveParticipant(ctx, roomID, userID)
	if err == nil && removed {
		countMutation(resourceChatParticipant, "delete")
	}
	return removed, err
}

// SendMessage appends a message to the room with the next sequence number and
// pushes it to connected members.
func (s *ChatService) SendMessage(ctx context.Context, in SendMessageInput) (msg *models.ChatMessage, err error) {
	span, ctx := observability.NewSpan(ctx, "ChatService.SendMessage",
		attribute.Int64("chat.room_id", int64(in.RoomID)))
	defer func() { span.Finish(err) }()

	if err := s.requireParticipant(ctx, in.ActorID, in.RoomID, policy.OpChatSend); err != nil {
		return nil, err
	}
	content, err := validation.Text("content", in.Content, validation.MaxMessageLen)
	if err != nil {
		return nil, validationErr(err)
	}

	msg = &models.ChatMessage{RoomID: in.RoomID, SenderID: in.ActorID, Content: content}
	if err := s.store.Chat.SendMessage(ctx, msg); err != nil {
		return nil, err
	}
	span.AddAttributes(attribute.Int64("chat.seq", msg.Seq))
	countMutation(models.TargetChatMessage, "create")

	if summaries := authorSummaries(ctx, s.store.Users, []uint{msg.SenderID}); summaries != nil {
		msg.Sender = summaries[msg.SenderID]
	}
	s.push(ctx, msg)
	return msg, nil
}

func (s *ChatService) push(ctx context.Context, msg *models.ChatMessage) {
	if s.realtime == nil {
		return
	}
	room, err := s.store.Chat.GetRoom(ctx, msg.RoomID)
	if err != nil {
		return
	}
	recipients := make([]uint, 0, len(room.ParticipantIDs))
	for _, id := range room.ParticipantIDs {
		if s.flags.Enabled(featureflags.RealtimeChat, id) {
			recipients = append(recipients, id)
		}
	}
	if len(recipients) == 0 {
		return
	}
	if err := s.realtime.PublishRoomEvent(ctx, msg.RoomID, recipients, notifications.FrameChatMessage, msg); err != nil {
		middleware.Logger.WarnContext(ctx, "chat realtime publish failed",
			slog.Uint64("room_id", uint64(msg.RoomID)), slog.String("error", err.Error()))
	}
}

// ListMessages returns messages with seq greater than AfterSeq in seq order.
func (s *ChatService) ListMessages(ctx context.Context, in ListChatMessagesInput) ([]models.ChatMessage, error) {
	if err := s.requireParticipant(ctx, in.ActorID, in.RoomID, policy.OpChatRead); err != nil {
		return nil, err
	}
	if in.AfterSeq < 0 {
		return nil, models.NewValidationError("after_seq must not be negative")
	}
	list, err := s.store.Chat.ListMessages(ctx, in.RoomID, in.AfterSeq, in.Limit)
	if err != nil {
		return nil, err
	}
	senders := make([]uint, 0, len(list))
	for _, m := range list {
		senders = append(senders, m.SenderID)
	}
	summaries := authorSummaries(ctx, s.store.Users, senders)
	for i := range list {
		list[i].Sender = summaries[list[i].SenderID]
	}
	return list, nil
}

// DeleteMessage tombstones a message. Its sequence number is never reused.
func (s *ChatService) DeleteMessage(ctx context.Context, actorID, messageID uint) (*models.CascadeSummary, error) {
	actor, err := loadActor(ctx, s.store.Users, actorID)
	if err != nil {
		return nil, err
	}
	msg, err := s.store.Chat.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.policy, actor, policy.OpDelete, policy.Resource{
		Type: models.TargetChatMessage, AuthorID: msg.SenderID,
	}); err != nil {
		return nil, err
	}
	if err := s.store.Chat.DeleteMessage(ctx, messageID); err != nil {
		return nil, err
	}
	countMutation(models.TargetChatMessage, "delete")
	return &models.CascadeSummary{TargetType: models.TargetChatMessage, TargetID: messageID, Messages: 1}, nil
}

func (s *ChatService) requireParticipant(ctx context.Context, actorID, roomID uint, op policy.Operation) error {
	actor, err := loadActor(ctx, s.store.Users, actorID)
	if err != nil {
		return err
	}
	if _, err := s.store.Chat.GetRoom(ctx, roomID); err != nil {
		return err
	}
	member, err := s.store.Chat.IsParticipant(ctx, roomID, actorID)
	if err != nil {
		return err
	}
	return authorize(s.policy, actor, op, policy.Resource{
		Type: policy.ResourceChatRoom, IsParticipant: member,
	})
}

package server

import (
	"strconv"

	"github.com/yogull/yogull-social-platform-sub001/internal/models"
	"github.com/yogull/yogull-social-platform-sub001/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetChatRooms handles GET /api/chat/rooms
// @Summary List chat rooms
// @Description Rooms the user participates in.
// @Tags chat
// @Produce json
// @Success 200 {array} models.ChatRoom
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /chat/rooms [get]
func (s *Server) GetChatRooms(c *fiber.Ctx) error {
	rooms, err := s.chatService.ListRooms(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(rooms)
}

// CreateChatRoom handles POST /api/chat/rooms
// @Summary Create chat room
// @Description Create a room with the actor as a participant.
// @Tags chat
// @Accept json
// @Produce json
// @Param request body object{name=string,is_group=bool,participant_ids=[]int} true "Room"
// @Success 201 {object} models.ChatRoom
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /chat/rooms [post]
func (s *Server) CreateChatRoom(c *fiber.Ctx) error {
	var req struct {
		Name           string `json:"name"`
		IsGroup        bool   `json:"is_group"`
		ParticipantIDs []uint `json:"participant_ids"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	room, err := s.chatService.CreateRoom(c.UserContext(), service.CreateRoomInput{
		ActorID:        currentUserID(c),
		Name:           req.Name,
		IsGroup:        req.IsGroup,
		ParticipantIDs: req.ParticipantIDs,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(room)
}

// GetChatRoom handles GET /api/chat/rooms/:id
// @Summary Get chat room
// @Description Return a room the user participates in.
// @Tags chat
// @Produce json
// @Param id path int true "Room ID"
// @Success 200 {object} models.ChatRoom
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /chat/rooms/{id} [get]
func (s *Server) GetChatRoom(c *fiber.Ctx) error {
	roomID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	room, err := s.chatService.GetRoom(c.UserContext(), currentUserID(c), roomID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(room)
}

// AddChatParticipant handles POST /api/chat/rooms/:id/participants
// @Summary Add participant
// @Description Add a user to a room. Participants only.
// @Tags chat
// @Accept json
// @Produce json
// @Param id path int true "Room ID"
// @Param request body object{user_id=int} true "User to add"
// @Success 200 {object} object{added=bool}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /chat/rooms/{id}/participants [post]
func (s *Server) AddChatParticipant(c *fiber.Ctx) error {
	roomID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		UserID uint `json:"user_id"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	added, err := s.chatService.AddParticipant(c.UserContext(), currentUserID(c), roomID, req.UserID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"added": added})
}

// RemoveChatParticipant handles DELETE /api/chat/rooms/:id/participants/:userId
// @Summary Remove participant
// @Description Remove a user from a room. Allowed for the user, the room creator or an admin.
// @Tags chat
// @Produce json
// @Param id path int true "Room ID"
// @Param userId path int true "User ID"
// @Success 200 {object} object{removed=bool}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /chat/rooms/{id}/participants/{userId} [delete]
func (s *Server) RemoveChatParticipant(c *fiber.Ctx) error {
	roomID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	userID, err := parseID(c, "userId")
	if err != nil {
		return nil
	}

	removed, err := s.chatService.RemoveParticipant(c.UserContext(), currentUserID(c), roomID, userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"removed": removed})
}

// GetChatMessages handles GET /api/chat/rooms/:id/messages?after_seq=&limit=
// @Summary List chat messages
// @Description Messages with seq greater than after_seq, in seq order.
// @Tags chat
// @Produce json
// @Param id path int true "Room ID"
// @Param after_seq query int false "Return messages after this sequence number"
// @Param limit query int false "Page size"
// @Success 200 {array} models.ChatMessage
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /chat/rooms/{id}/messages [get]
func (s *Server) GetChatMessages(c *fiber.Ctx) error {
	roomID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var afterSeq int64
	if raw := c.Query("after_seq"); raw != "" {
		afterSeq, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid after_seq"))
		}
	}

	messages, err := s.chatService.ListMessages(c.UserContext(), service.ListChatMessagesInput{
		ActorID:  currentUserID(c),
		RoomID:   roomID,
		AfterSeq: afterSeq,
		Limit:    parsePagination(c, 50).Limit,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(messages)
}

// SendChatMessage handles POST /api/chat/rooms/:id/messages
// @Summary Send chat message
// @Description Append a message with the room's next sequence number.
// @Tags chat
// @Accept json
// @Produce json
// @Param id path int true "Room ID"
// @Param request body object{content=string} true "Message"
// @Success 201 {object} models.ChatMessage
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /chat/rooms/{id}/messages [post]
func (s *Server) SendChatMessage(c *fiber.Ctx) error {
	roomID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	msg, err := s.chatService.SendMessage(c.UserContext(), service.SendMessageInput{
		ActorID: currentUserID(c),
		RoomID:  roomID,
		Content: req.Content,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// DeleteChatMessage handles DELETE /api/chat/messages/:id
// @Summary Delete chat message
// @Description Tombstone a chat message.
// @Tags chat
// @Produce json
// @Param id path int true "Message ID"
// @Success 200 {object} models.CascadeSummary
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /chat/messages/{id} [delete]
func (s *Server) DeleteChatMessage(c *fiber.Ctx) error {
	messageID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	summary, err := s.chatService.DeleteMessage(c.UserContext(), currentUserID(c), messageID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(summary)
}

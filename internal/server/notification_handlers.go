package server

import (
	"github.com/yogull/yogull-social-platform-sub001/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetNotifications handles GET /api/notifications?unread=true
// @Summary List notifications
// @Description The user's notifications, newest first.
// @Tags notifications
// @Produce json
// @Param unread query bool false "Only unread notifications"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.Notification
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /notifications [get]
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	page := parsePagination(c, defaultPaginationLimit)
	list, err := s.notificationService.List(c.UserContext(), currentUserID(c),
		c.QueryBool("unread", false), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(list)
}

// GetUnreadCount handles GET /api/notifications/unread-count
// @Summary Unread count
// @Description Count unread notifications.
// @Tags notifications
// @Produce json
// @Success 200 {object} object{unread=int}
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /notifications/unread-count [get]
func (s *Server) GetUnreadCount(c *fiber.Ctx) error {
	count, err := s.notificationService.UnreadCount(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"unread": count})
}

// MarkNotificationRead handles POST /api/notifications/:id/read
// @Summary Mark read
// @Description Mark one notification read.
// @Tags notifications
// @Produce json
// @Param id path int true "Notification ID"
// @Success 200 {object} models.Notification
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /notifications/{id}/read [post]
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	n, err := s.notificationService.MarkRead(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(n)
}

// MarkAllNotificationsRead handles POST /api/notifications/read-all
// @Summary Mark all read
// @Description Mark every unread notification read.
// @Tags notifications
// @Produce json
// @Success 200 {object} object{updated=int}
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /notifications/read-all [post]
func (s *Server) MarkAllNotificationsRead(c *fiber.Ctx) error {
	updated, err := s.notificationService.MarkAllRead(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"updated": updated})
}

// DeleteNotification handles DELETE /api/notifications/:id
// @Summary Delete notification
// @Description Delete one notification.
// @Tags notifications
// @Param id path int true "Notification ID"
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /notifications/{id} [delete]
func (s *Server) DeleteNotification(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.notificationService.Delete(c.UserContext(), currentUserID(c), id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

package server

import (
	"github.com/yogull/yogull-social-platform-sub001/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ToggleLike handles POST /api/likes
// @Summary Toggle like
// @Description Like or unlike a post, comment or gallery item.
// @Tags likes
// @Accept json
// @Produce json
// @Param request body object{target_type=string,target_id=int} true "Target"
// @Success 200 {object} models.LikeState
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /likes [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	var req struct {
		TargetType string `json:"target_type"`
		TargetID   uint   `json:"target_id"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	return s.toggleLike(c, req.TargetID, req.TargetType)
}

func (s *Server) toggleLikeParam(c *fiber.Ctx, targetType string) error {
	targetID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	return s.toggleLike(c, targetID, targetType)
}

func (s *Server) toggleLike(c *fiber.Ctx, targetID uint, targetType string) error {
	state, err := s.contentService.ToggleLike(c.UserContext(), currentUserID(c), targetID, targetType)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(state)
}

// DeleteContent handles DELETE /api/content/:type/:id
// @Summary Delete content
// @Description Delete any content type with its dependent rows.
// @Tags content
// @Produce json
// @Param type path string true "post, comment, discussion, discussion_message, chat_message or gallery_item"
// @Param id path int true "Content ID"
// @Success 200 {object} models.CascadeSummary
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /content/{type}/{id} [delete]
func (s *Server) DeleteContent(c *fiber.Ctx) error {
	targetID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	summary, err := s.contentService.DeleteContent(c.UserContext(), currentUserID(c), targetID, c.Params("type"))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(summary)
}

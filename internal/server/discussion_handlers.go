package server

import (
	"github.com/yogull/yogull-social-platform-sub001/internal/models"
	"github.com/yogull/yogull-social-platform-sub001/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetCategories handles GET /api/discussion-categories
// @Summary List categories
// @Description List discussion categories.
// @Tags discussions
// @Produce json
// @Success 200 {array} models.DiscussionCategory
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /discussion-categories [get]
func (s *Server) GetCategories(c *fiber.Ctx) error {
	categories, err := s.discussionService.ListCategories(c.UserContext())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(categories)
}

// CreateCategory handles POST /api/discussion-categories
// @Summary Create category
// @Description Create a discussion category. Admin only.
// @Tags discussions
// @Accept json
// @Produce json
// @Param request body object{name=string,slug=string,description=string} true "Category"
// @Success 201 {object} models.DiscussionCategory
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /discussion-categories [post]
func (s *Server) CreateCategory(c *fiber.Ctx) error {
	var req struct {
		Name        string `json:"name"`
		Slug        string `json:"slug"`
		Description string `json:"description"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	category, err := s.discussionService.CreateCategory(c.UserContext(), service.CreateCategoryInput{
		ActorID:     currentUserID(c),
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

// GetDiscussions handles GET /api/discussions?category_id=
// @Summary List discussions
// @Description List discussions, newest first.
// @Tags discussions
// @Produce json
// @Param category_id query int false "Filter by category"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.Discussion
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /discussions [get]
func (s *Server) GetDiscussions(c *fiber.Ctx) error {
	categoryID := c.QueryInt("category_id", 0)
	if categoryID < 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid category ID"))
	}
	page := parsePagination(c, defaultPaginationLimit)

	discussions, err := s.discussionService.ListDiscussions(c.UserContext(), uint(categoryID), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(discussions)
}

// CreateDiscussion handles POST /api/discussions
// @Summary Create discussion
// @Description Start a discussion in a category.
// @Tags discussions
// @Accept json
// @Produce json
// @Param request body object{category_id=int,title=string,content=string} true "Discussion"
// @Success 201 {object} models.Discussion
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /discussions [post]
func (s *Server) CreateDiscussion(c *fiber.Ctx) error {
	var req struct {
		CategoryID uint   `json:"category_id"`
		Title      string `json:"title"`
		Content    string `json:"content"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	discussion, err := s.discussionService.CreateDiscussion(c.UserContext(), service.CreateDiscussionInput{
		ActorID:    currentUserID(c),
		CategoryID: req.CategoryID,
		Title:      req.Title,
		Content:    req.Content,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(discussion)
}

// GetDiscussion handles GET /api/discussions/:id
// @Summary Get discussion
// @Description Return a discussion.
// @Tags discussions
// @Produce json
// @Param id path int true "Discussion ID"
// @Success 200 {object} models.Discussion
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /discussions/{id} [get]
func (s *Server) GetDiscussion(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	discussion, err := s.discussionService.GetDiscussion(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(discussion)
}

// UpdateDiscussion handles PATCH /api/discussions/:id
// @Summary Update discussion
// @Description Authors change title or content; admins may only change is_active.
// @Tags discussions
// @Accept json
// @Produce json
// @Param id path int true "Discussion ID"
// @Param request body object true "Fields to change"
// @Success 200 {object} models.Discussion
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /discussions/{id} [patch]
func (s *Server) UpdateDiscussion(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	fields, err := parseFields(c)
	if err != nil {
		return nil
	}
	discussion, err := s.discussionService.UpdateDiscussion(c.UserContext(), service.UpdateDiscussionInput{
		ActorID:      currentUserID(c),
		DiscussionID: id,
		Fields:       fields,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(discussion)
}

// DeleteDiscussion handles DELETE /api/discussions/:id
// @Summary Delete discussion
// @Description Tombstone the discussion and its messages.
// @Tags discussions
// @Produce json
// @Param id path int true "Discussion ID"
// @Success 200 {object} models.CascadeSummary
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /discussions/{id} [delete]
func (s *Server) DeleteDiscussion(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	summary, err := s.discussionService.DeleteDiscussion(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(summary)
}

// GetDiscussionMessages handles GET /api/discussions/:id/messages
// @Summary List discussion messages
// @Description Messages in a discussion, oldest first.
// @Tags discussions
// @Produce json
// @Param id path int true "Discussion ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.DiscussionMessage
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /discussions/{id}/messages [get]
func (s *Server) GetDiscussionMessages(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 50)
	messages, err := s.discussionService.ListMessages(c.UserContext(), id, page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(messages)
}

// PostDiscussionMessage handles POST /api/discussions/:id/messages
// @Summary Post discussion message
// @Description Post to an active discussion, optionally replying to parent_id.
// @Tags discussions
// @Accept json
// @Produce json
// @Param id path int true "Discussion ID"
// @Param request body object{content=string,parent_id=int} true "Message"
// @Success 201 {object} models.DiscussionMessage
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /discussions/{id}/messages [post]
func (s *Server) PostDiscussionMessage(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Content  string `json:"content"`
		ParentID *uint  `json:"parent_id"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	msg, err := s.discussionService.PostMessage(c.UserContext(), service.PostMessageInput{
		ActorID:      currentUserID(c),
		DiscussionID: id,
		ParentID:     req.ParentID,
		Content:      req.Content,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// UpdateDiscussionMessage handles PATCH /api/discussion-messages/:id
// @Summary Update discussion message
// @Description Change message content. Author only.
// @Tags discussions
// @Accept json
// @Produce json
// @Param id path int true "Message ID"
// @Param request body object true "Fields to change"
// @Success 200 {object} models.DiscussionMessage
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /discussion-messages/{id} [patch]
func (s *Server) UpdateDiscussionMessage(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	fields, err := parseFields(c)
	if err != nil {
		return nil
	}
	msg, err := s.discussionService.UpdateMessage(c.UserContext(), service.UpdateMessageInput{
		ActorID:   currentUserID(c),
		MessageID: id,
		Fields:    fields,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(msg)
}

// DeleteDiscussionMessage handles DELETE /api/discussion-messages/:id
// @Summary Delete discussion message
// @Description Tombstone a message.
// @Tags discussions
// @Produce json
// @Param id path int true "Message ID"
// @Success 200 {object} models.CascadeSummary
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /discussion-messages/{id} [delete]
func (s *Server) DeleteDiscussionMessage(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	summary, err := s.discussionService.DeleteMessage(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(summary)
}

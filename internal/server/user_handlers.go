package server

import (
	"github.com/yogull/yogull-social-platform-sub001/internal/middleware"
	"github.com/yogull/yogull-social-platform-sub001/internal/models"
	"github.com/yogull/yogull-social-platform-sub001/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateSession handles POST /api/session. It resolves the bearer token,
// creating the user on first sign-in, and returns the user.
// @Summary Start a session
// @Description Resolve the bearer token to a community user, creating the account on first sign-in.
// @Tags session
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /session [post]
func (s *Server) CreateSession(c *fiber.Ctx) error {
	token, ok := middleware.BearerToken(c.Get("Authorization"))
	if !ok {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthenticatedError("Authorization header required"))
	}

	user, err := s.resolver.ResolveUser(c.UserContext(), token)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(user)
}

// GetMyProfile handles GET /api/users/me
// @Summary Get own profile
// @Description Return the authenticated user.
// @Tags users
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/me [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.userService.GetProfile(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(user)
}

// UpdateMyProfile handles PATCH /api/users/me
// @Summary Update own profile
// @Description Change display_name, bio or location. Naming any other field is rejected.
// @Tags users
// @Accept json
// @Produce json
// @Param request body object true "Profile fields to change"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/me [patch]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	fields, err := parseFields(c)
	if err != nil {
		return nil
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		ActorID: currentUserID(c),
		Fields:  fields,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(user)
}

type setImageRequest struct {
	FileID uint `json:"file_id"`
}

// SetProfilePicture handles PUT /api/users/me/profile-picture
// @Summary Set profile picture
// @Description Attach one of the user's files as the current profile picture, revoking the previous one.
// @Tags users
// @Accept json
// @Produce json
// @Param request body object{file_id=int} true "File to use"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/me/profile-picture [put]
func (s *Server) SetProfilePicture(c *fiber.Ctx) error {
	var req setImageRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	user, err := s.galleryService.SetProfilePicture(c.UserContext(), currentUserID(c), req.FileID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(user)
}

// SetCoverImage handles PUT /api/users/me/cover-image
// @Summary Set cover image
// @Description Attach one of the user's files as the current cover image, revoking the previous one.
// @Tags users
// @Accept json
// @Produce json
// @Param request body object{file_id=int} true "File to use"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/me/cover-image [put]
func (s *Server) SetCoverImage(c *fiber.Ctx) error {
	var req setImageRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	user, err := s.galleryService.SetCoverImage(c.UserContext(), currentUserID(c), req.FileID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(user)
}

// GetUserProfile handles GET /api/users/:id
// @Summary Get user profile
// @Description Return a user by ID.
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/{id} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	user, err := s.userService.GetProfile(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(user)
}

// GetUserGalleries handles GET /api/users/:id/galleries
// @Summary List user galleries
// @Description List the galleries a user owns.
// @Tags galleries
// @Produce json
// @Param id path int true "User ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.Gallery
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/{id}/galleries [get]
func (s *Server) GetUserGalleries(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, defaultPaginationLimit)
	galleries, err := s.galleryService.ListGalleries(c.UserContext(), id, page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(galleries)
}

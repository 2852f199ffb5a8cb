package server

import (
	"github.com/yogull/yogull-social-platform-sub001/internal/models"
	"github.com/yogull/yogull-social-platform-sub001/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createPostRequest struct {
	Content     string `json:"content"`
	Visibility  string `json:"visibility"`
	MediaFileID *uint  `json:"media_file_id"`
	// WallUserID is only read by POST /api/posts; the wall route takes it
	// from the path.
	WallUserID uint `json:"wall_user_id"`
}

// GetFeed handles GET /api/posts
// @Summary Get feed
// @Description Posts visible to the viewer, newest first, with keyset pagination.
// @Tags posts
// @Produce json
// @Param cursor query string false "Opaque cursor from next_cursor"
// @Param limit query int false "Page size, 1 to 100"
// @Success 200 {object} service.FeedPage
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts [get]
func (s *Server) GetFeed(c *fiber.Ctx) error {
	page, err := s.wallService.ListFeed(c.UserContext(), service.ListFeedInput{
		ViewerID: currentUserID(c),
		Cursor:   c.Query("cursor"),
		Limit:    c.QueryInt("limit", 0),
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(page)
}

// GetWall handles GET /api/users/:id/wall
// @Summary Get profile wall
// @Description Posts on one user's wall visible to the viewer, newest first.
// @Tags posts
// @Produce json
// @Param id path int true "Wall owner user ID"
// @Param cursor query string false "Opaque cursor from next_cursor"
// @Param limit query int false "Page size, 1 to 100"
// @Success 200 {object} service.FeedPage
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/{id}/wall [get]
func (s *Server) GetWall(c *fiber.Ctx) error {
	wallUserID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	page, err := s.wallService.ListWall(c.UserContext(), currentUserID(c), wallUserID,
		c.Query("cursor"), c.QueryInt("limit", 0))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(page)
}

// CreatePost handles POST /api/posts
// @Summary Create post
// @Description Create a post on the actor's wall, or on wall_user_id when cross-posting is allowed.
// @Tags posts
// @Accept json
// @Produce json
// @Param request body object{content=string,visibility=string,media_file_id=int,wall_user_id=int} true "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	return s.createPost(c, req, req.WallUserID)
}

// CreateWallPost handles POST /api/users/:id/wall
// @Summary Post on a wall
// @Description Create a post on the given user's wall.
// @Tags posts
// @Accept json
// @Produce json
// @Param id path int true "Wall owner user ID"
// @Param request body object{content=string,visibility=string,media_file_id=int} true "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/{id}/wall [post]
func (s *Server) CreateWallPost(c *fiber.Ctx) error {
	wallUserID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req createPostRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	return s.createPost(c, req, wallUserID)
}

func (s *Server) createPost(c *fiber.Ctx, req createPostRequest, wallUserID uint) error {
	post, err := s.wallService.CreatePost(c.UserContext(), service.CreatePostInput{
		ActorID:     currentUserID(c),
		WallUserID:  wallUserID,
		Content:     req.Content,
		Visibility:  req.Visibility,
		MediaFileID: req.MediaFileID,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPost handles GET /api/posts/:id
// @Summary Get post
// @Description Return a post the viewer may see.
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.wallService.GetPost(c.UserContext(), currentUserID(c), postID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(post)
}

// UpdatePost handles PATCH /api/posts/:id
// @Summary Update post
// @Description Change content or visibility. Author only.
// @Tags posts
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param request body object true "Fields to change"
// @Success 200 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id} [patch]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	fields, err := parseFields(c)
	if err != nil {
		return nil
	}
	post, err := s.wallService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		ActorID: currentUserID(c),
		PostID:  postID,
		Fields:  fields,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete post
// @Description Tombstone the post and its comments, and remove their likes and shares.
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.CascadeSummary
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	summary, err := s.wallService.DeletePost(c.UserContext(), currentUserID(c), postID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(summary)
}

// LikePost handles POST /api/posts/:id/like
// @Summary Toggle post like
// @Description Like or unlike a post.
// @Tags likes
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.LikeState
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id}/like [post]
func (s *Server) LikePost(c *fiber.Ctx) error {
	return s.toggleLikeParam(c, models.TargetPost)
}

// SharePost handles POST /api/posts/:id/share
// @Summary Share post
// @Description Share a post. Sharing twice is a no-op.
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} object{shared=bool,created=bool}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id}/share [post]
func (s *Server) SharePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	shared, err := s.wallService.SharePost(c.UserContext(), currentUserID(c), postID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"shared": true, "created": shared})
}

// UnsharePost handles DELETE /api/posts/:id/share
// @Summary Unshare post
// @Description Withdraw a share.
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} object{shared=bool,removed=bool}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id}/share [delete]
func (s *Server) UnsharePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	removed, err := s.wallService.UnsharePost(c.UserContext(), currentUserID(c), postID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"shared": false, "removed": removed})
}

// GetComments handles GET /api/posts/:id/comments
// @Summary List comments
// @Description Comments on a post, oldest first.
// @Tags comments
// @Produce json
// @Param id path int true "Post ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id}/comments [get]
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 50)
	comments, err := s.wallService.ListComments(c.UserContext(), currentUserID(c), postID, page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(comments)
}

// CreateComment handles POST /api/posts/:id/comments
// @Summary Create comment
// @Description Comment on a post, or reply to parent_id.
// @Tags comments
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param request body object{content=string,parent_id=int} true "Comment"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id}/comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
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

	comment, err := s.wallService.CreateComment(c.UserContext(), service.CreateCommentInput{
		ActorID:  currentUserID(c),
		PostID:   postID,
		ParentID: req.ParentID,
		Content:  req.Content,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// UpdateComment handles PATCH /api/comments/:id
// @Summary Update comment
// @Description Change comment content. Author only.
// @Tags comments
// @Accept json
// @Produce json
// @Param id path int true "Comment ID"
// @Param request body object true "Fields to change"
// @Success 200 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /comments/{id} [patch]
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	commentID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	fields, err := parseFields(c)
	if err != nil {
		return nil
	}
	comment, err := s.wallService.UpdateComment(c.UserContext(), service.UpdateCommentInput{
		ActorID:   currentUserID(c),
		CommentID: commentID,
		Fields:    fields,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(comment)
}

// DeleteComment handles DELETE /api/comments/:id
// @Summary Delete comment
// @Description Tombstone the comment and its replies.
// @Tags comments
// @Produce json
// @Param id path int true "Comment ID"
// @Success 200 {object} models.CascadeSummary
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /comments/{id} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	commentID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	summary, err := s.wallService.DeleteComment(c.UserContext(), currentUserID(c), commentID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(summary)
}

// LikeComment handles POST /api/comments/:id/like
// @Summary Toggle comment like
// @Description Like or unlike a comment.
// @Tags likes
// @Produce json
// @Param id path int true "Comment ID"
// @Success 200 {object} models.LikeState
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /comments/{id}/like [post]
func (s *Server) LikeComment(c *fiber.Ctx) error {
	return s.toggleLikeParam(c, models.TargetComment)
}

package server

import (
	"github.com/yogull/yogull-social-platform-sub001/internal/models"
	"github.com/yogull/yogull-social-platform-sub001/internal/service"

	"github.com/gofiber/fiber/v2"
)

// RegisterMediaFile handles POST /api/media/files. Without a storage_key a
// fresh key is returned for the client to upload to.
// @Summary Register media file
// @Description Record an uploaded blob. Without storage_key a fresh key is returned for the client to upload to.
// @Tags media
// @Accept json
// @Produce json
// @Param request body object{storage_key=string,content_type=string,size_bytes=int,checksum=string} true "File metadata"
// @Success 201 {object} models.MediaFile
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /media/files [post]
func (s *Server) RegisterMediaFile(c *fiber.Ctx) error {
	var req struct {
		StorageKey  string `json:"storage_key"`
		ContentType string `json:"content_type"`
		SizeBytes   int64  `json:"size_bytes"`
		Checksum    string `json:"checksum"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	file, err := s.galleryService.RegisterFile(c.UserContext(), service.RegisterFileInput{
		ActorID:     currentUserID(c),
		StorageKey:  req.StorageKey,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
		Checksum:    req.Checksum,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(file)
}

// CreateGallery handles POST /api/galleries
// @Summary Create gallery
// @Description Create a gallery owned by the actor.
// @Tags galleries
// @Accept json
// @Produce json
// @Param request body object{title=string,description=string} true "Gallery"
// @Success 201 {object} models.Gallery
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /galleries [post]
func (s *Server) CreateGallery(c *fiber.Ctx) error {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	gallery, err := s.galleryService.CreateGallery(c.UserContext(), service.CreateGalleryInput{
		ActorID:     currentUserID(c),
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(gallery)
}

// GetGallery handles GET /api/galleries/:id
// @Summary Get gallery
// @Description Return a gallery.
// @Tags galleries
// @Produce json
// @Param id path int true "Gallery ID"
// @Success 200 {object} models.Gallery
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /galleries/{id} [get]
func (s *Server) GetGallery(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	gallery, err := s.galleryService.GetGallery(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(gallery)
}

// GetGalleryItems handles GET /api/galleries/:id/items
// @Summary List gallery items
// @Description Items in a gallery, oldest first.
// @Tags galleries
// @Produce json
// @Param id path int true "Gallery ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.GalleryItem
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /galleries/{id}/items [get]
func (s *Server) GetGalleryItems(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 50)
	items, err := s.galleryService.ListItems(c.UserContext(), id, page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(items)
}

// AddGalleryItem handles POST /api/galleries/:id/items
// @Summary Add gallery item
// @Description Place one of the actor's files in one of the actor's galleries.
// @Tags galleries
// @Accept json
// @Produce json
// @Param id path int true "Gallery ID"
// @Param request body object{file_id=int,caption=string} true "Item"
// @Success 201 {object} models.GalleryItem
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /galleries/{id}/items [post]
func (s *Server) AddGalleryItem(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		FileID  uint   `json:"file_id"`
		Caption string `json:"caption"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	item, err := s.galleryService.AddItem(c.UserContext(), service.AddItemInput{
		ActorID:   currentUserID(c),
		GalleryID: id,
		FileID:    req.FileID,
		Caption:   req.Caption,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

// DeleteGalleryItem handles DELETE /api/gallery-items/:id
// @Summary Delete gallery item
// @Description Tombstone the item and remove its likes, shares and views.
// @Tags galleries
// @Produce json
// @Param id path int true "Gallery item ID"
// @Success 200 {object} models.CascadeSummary
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /gallery-items/{id} [delete]
func (s *Server) DeleteGalleryItem(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	summary, err := s.galleryService.DeleteItem(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(summary)
}

// LikeGalleryItem handles POST /api/gallery-items/:id/like
// @Summary Toggle gallery item like
// @Description Like or unlike a gallery item.
// @Tags likes
// @Produce json
// @Param id path int true "Gallery item ID"
// @Success 200 {object} models.LikeState
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /gallery-items/{id}/like [post]
func (s *Server) LikeGalleryItem(c *fiber.Ctx) error {
	return s.toggleLikeParam(c, models.TargetGalleryItem)
}

// ViewGalleryItem handles POST /api/gallery-items/:id/view
// @Summary Record view
// @Description Record a view and return the view count.
// @Tags galleries
// @Produce json
// @Param id path int true "Gallery item ID"
// @Success 200 {object} object{views=int}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /gallery-items/{id}/view [post]
func (s *Server) ViewGalleryItem(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	viewerID := currentUserID(c)
	views, err := s.galleryService.RecordView(c.UserContext(), id, &viewerID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"views": views})
}

// ShareGalleryItem handles POST /api/gallery-items/:id/share
// @Summary Share gallery item
// @Description Share a gallery item.
// @Tags galleries
// @Produce json
// @Param id path int true "Gallery item ID"
// @Success 200 {object} object{shared=bool,created=bool}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /gallery-items/{id}/share [post]
func (s *Server) ShareGalleryItem(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	created, err := s.galleryService.ShareItem(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"shared": true, "created": created})
}

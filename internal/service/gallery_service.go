package service

import (
	"context"
	"errors"
	"strings"

	"github.com/yogull/yogull-social-platform-sub001/internal/blobstore"
	"github.com/yogull/yogull-social-platform-sub001/internal/models"
	"github.com/yogull/yogull-social-platform-sub001/internal/observability"
	"github.com/yogull/yogull-social-platform-sub001/internal/policy"
	"github.com/yogull/yogull-social-platform-sub001/internal/repository"
	"github.com/yogull/yogull-social-platform-sub001/internal/validation"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// GalleryService owns media files, galleries and gallery items, and the
// attachment of files to profiles, posts and items.
type GalleryService struct {
	store  *repository.Store
	policy *policy.Policy
	blobs  blobstore.Store
}

type RegisterFileInput struct {
	ActorID uint
	// StorageKey names an uploaded blob; empty generates a fresh key for the
	// client to upload to.
	StorageKey  string
	ContentType string
	SizeBytes   int64
	Checksum    string
}

type CreateGalleryInput struct {
	ActorID     uint
	Title       string
	Description string
}

type AddItemInput struct {
	ActorID   uint
	GalleryID uint
	FileID    uint
	Caption   string
}

func NewGalleryService(store *repository.Store, pol *policy.Policy, blobs blobstore.Store) *GalleryService {
	if blobs == nil {
		blobs = blobstore.None{}
	}
	return &GalleryService{store: store, policy: pol, blobs: blobs}
}

// RegisterFile records a media file owned by the actor. When a key is given
// the blob must already exist in the store.
func (s *GalleryService) RegisterFile(ctx context.Context, in RegisterFileInput) (file *models.MediaFile, err error) {
	span, ctx := observability.NewSpan(ctx, "GalleryService.RegisterFile",
		attribute.String("blob.backend", s.blobs.Name()))
	defer func() { span.Finish(err) }()

	actor, err := loadActor(ctx, s.store.Users, in.ActorID)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.policy, actor, policy.OpCreate, policy.Resource{
		Type: policy.ResourceFile, AuthorID: in.ActorID,
	}); err != nil {
		return nil, err
	}
	if err := validation.ValidateMedia(in.ContentType, in.SizeBytes); err != nil {
		return nil, validationErr(err)
	}

	key := strings.TrimSpace(in.StorageKey)
	if key == "" {
		key = uuid.NewString()
	} else {
		ok, err := s.blobs.Exists(ctx, key)
		if err != nil {
			if errors.Is(err, blobstore.ErrInvalidKey) {
				return nil, models.NewValidationError("invalid storage_key")
			}
			return nil, models.NewUnavailableError(err)
		}
		if !ok {
			return nil, models.NewValidationError("no uploaded blob for storage_key")
		}
	}

	file = &models.MediaFile{
		OwnerID:     in.ActorID,
		StorageKey:  key,
		ContentType: strings.ToLower(in.ContentType),
		SizeBytes:   in.SizeBytes,
		Checksum:    in.Checksum,
	}
	if err := s.store.Media.CreateFile(ctx, file); err != nil {
		return nil, err
	}
	countMutation(policy.ResourceFile, "create")
	return file, nil
}

// SetProfilePicture makes fileID the actor's only current profile picture.
func (s *GalleryService) SetProfilePicture(ctx context.Context, actorID, fileID uint) (*models.User, error) {
	return s.setProfileImage(ctx, actorID, fileID, models.RoleProfilePicture, "profile_image_file_id")
}

// SetCoverImage makes fileID the actor's only current cover image.
func (s *GalleryService) SetCoverImage(ctx context.Context, actorID, fileID uint) (*models.User, error) {
	return s.setProfileImage(ctx, actorID, fileID, models.RoleCoverImage, "cover_image_file_id")
}

func (s *GalleryService) setProfileImage(ctx context.Context, actorID, fileID uint, role, field string) (user *models.User, err error) {
	span, ctx := observability.NewSpan(ctx, "GalleryService.SetProfileImage",
		attribute.String("media.role", role))
	defer func() { span.Finish(err) }()

	actor, err := loadActor(ctx, s.store.Users, actorID)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.policy, actor, policy.OpUpdate, policy.Resource{
		Type: policy.ResourceProfile, AuthorID: actorID, Fields: []string{field},
	}); err != nil {
		return nil, err
	}
	if err := s.store.Media.AttachExclusive(ctx, &models.MediaAttachment{
		FileID:      fileID,
		OwnerID:     actorID,
		Role:        role,
		ContextType: models.ContextUser,
		ContextID:   actorID,
	}); err != nil {
		return nil, err
	}
	countMutation(policy.ResourceProfile, role)
	return s.store.Users.GetByID(ctx, actorID)
}

func (s *GalleryService) CreateGallery(ctx context.Context, in CreateGalleryInput) (*models.Gallery, error) {
	actor, err := loadActor(ctx, s.store.Users, in.ActorID)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.policy, actor, policy.OpCreate, policy.Resource{
		Type: policy.ResourceGallery, AuthorID: in.ActorID,
	}); err != nil {
		return nil, err
	}
	title, err := validation.Text("title", in.Title, 120)
	if err != nil {
		return nil, validationErr(err)
	}
	description, err := validation.OptionalText("description", in.Description, validation.MaxBioLen)
	if err != nil {
		return nil, validationErr(err)
	}
	gallery := &models.Gallery{OwnerID: in.ActorID, Title: title, Description: description}
	if err := s.store.Galleries.Create(ctx, gallery); err != nil {
		return nil, err
	}
	countMutation(policy.ResourceGallery, "create")
	return gallery, nil
}

func (s *GalleryService) GetGallery(ctx context.Context, id uint) (*models.Gallery, error) {
	return s.store.Galleries.GetByID(ctx, id)
}

func (s *GalleryService) ListGalleries(ctx context.Context, ownerID uint, limit, offset int) ([]models.Gallery, error) {
	if _, err := s.store.Users.GetByID(ctx, ownerID); err != nil {
		return nil, err
	}
	return s.store.Galleries.ListByOwner(ctx, ownerID, limit, offset)
}

// AddItem places one of the actor's files in one of the actor's galleries.
// The item and its attachment are written in one transaction.
func (s *GalleryService) AddItem(ctx context.Context, in AddItemInput) (item *models.GalleryItem, err error) {
	span, ctx := observability.NewSpan(ctx, "GalleryService.AddItem",
		attribute.Int64("gallery.id", int64(in.GalleryID)))
	defer func() { span.Finish(err) }()

	actor, err := loadActor(ctx, s.store.Users, in.ActorID)
	if err != nil {
		return nil, err
	}
	gallery, err := s.store.Galleries.GetByID(ctx, in.GalleryID)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.policy, actor, policy.OpCreate, policy.Resource{
		Type: models.TargetGalleryItem, AuthorID: gallery.OwnerID,
	}); err != nil {
		return nil, err
	}
	caption, err := validation.OptionalText("caption", in.Caption, validation.MaxCaptionLen)
	if err != nil {
		return nil, validationErr(err)
	}

	item = &models.GalleryItem{GalleryID: in.GalleryID, FileID: in.FileID, Caption: caption}
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Galleries.AddItem(ctx, item); err != nil {
			return err
		}
		return tx.Media.AttachExclusive(ctx, &models.MediaAttachment{
			FileID:      in.FileID,
			OwnerID:     in.ActorID,
			Role:        models.RoleGalleryItem,
			ContextType: models.TargetGalleryItem,
			ContextID:   item.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	countMutation(models.TargetGalleryItem, "create")
	return item, nil
}

func (s *GalleryService) ListItems(ctx context.Context, galleryID uint, limit, offset int) ([]models.GalleryItem, error) {
	if _, err := s.store.Galleries.GetByID(ctx, galleryID); err != nil {
		return nil, err
	}
	return s.store.Galleries.ListItems(ctx, galleryID, limit, offset)
}

// DeleteItem tombstones an item, drops its likes, shares and views, and
// releases its file attachment.
func (s *GalleryService) DeleteItem(ctx context.Context, actorID, itemID uint) (*models.CascadeSummary, error) {
	actor, err := loadActor(ctx, s.store.Users, actorID)
	if err != nil {
		return nil, err
	}
	item, err := s.store.Galleries.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	gallery, err := s.store.Galleries.GetByID(ctx, item.GalleryID)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.policy, actor, policy.OpDelete, policy.Resource{
		Type: models.TargetGalleryItem, AuthorID: gallery.OwnerID, ContextOwnerID: gallery.OwnerID,
	}); err != nil {
		return nil, err
	}
	summary, err := s.store.Galleries.DeleteItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	countMutation(models.TargetGalleryItem, "delete")
	return summary, nil
}

// RecordView counts one view and returns the new total. viewerID may be nil.
func (s *GalleryService) RecordView(ctx context.Context, itemID uint, viewerID *uint) (int64, error) {
	return s.store.Galleries.RecordView(ctx, itemID, viewerID)
}

func (s *GalleryService) ShareItem(ctx context.Context, actorID, itemID uint) (bool, error) {
	actor, err := loadActor(ctx, s.store.Users, actorID)
	if err != nil {
		return false, err
	}
	if err := authorize(s.policy, actor, policy.OpCreate, policy.Resource{
		Type: "share", AuthorID: actorID,
	}); err != nil {
		return false, err
	}
	changed, err := s.store.Reactions.Share(ctx, models.TargetGalleryItem, itemID, actorID)
	if err == nil && changed {
		countMutation(models.TargetGalleryItem, "share")
	}
	return changed, err
}

package repository

import (
	"context"
	"time"

	"github.com/yogull/yogull-social-platform-sub001/internal/cache"
	"github.com/yogull/yogull-social-platform-sub001/internal/models"

	"gorm.io/gorm"
)

// MediaRepository tracks uploaded files and the attachments that reference
// them. A file in a given role has at most one current attachment, and an
// owner has at most one current profile picture and cover image.
type MediaRepository interface {
	CreateFile(ctx context.Context, file *models.MediaFile) error
	GetFile(ctx context.Context, id uint) (*models.MediaFile, error)
	AttachExclusive(ctx context.Context, attachment *models.MediaAttachment) error
	RevokeContext(ctx context.Context, contextType string, contextID uint) (int64, error)
	CurrentReferences(ctx context.Context, fileID uint) (int64, error)
	ListOrphans(ctx context.Context, createdBefore time.Time) ([]models.MediaFile, error)
	DeleteIfUnreferenced(ctx context.Context, fileID uint) (string, bool, error)
}

type mediaRepository struct {
	db *gorm.DB
}

// NewMediaRepository returns a new MediaRepository implementation.
func NewMediaRepository(db *gorm.DB) MediaRepository {
	return &mediaRepository{db: db}
}

func (r *mediaRepository) CreateFile(ctx context.Context, file *models.MediaFile) error {
	return mapError(r.db.WithContext(ctx).Create(file).Error, "Media file", nil)
}

func (r *mediaRepository) GetFile(ctx context.Context, id uint) (*models.MediaFile, error) {
	var file models.MediaFile
	if err := r.db.WithContext(ctx).First(&file, id).Error; err != nil {
		return nil, mapError(err, "Media file", id)
	}
	return &file, nil
}

// AttachExclusive makes attachment the file's only current reference in its
// role, revoking the owner's previous singular attachment where the role
// requires it, and points the user's image column at the file. A file that is
// current for another post or gallery item is rejected with CONFLICT, since
// that content keeps pointing at it.
func (r *mediaRepository) AttachExclusive(ctx context.Context, attachment *models.MediaAttachment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var file models.MediaFile
		if err := forUpdate(tx).First(&file, attachment.FileID).Error; err != nil {
			return mapError(err, "Media file", attachment.FileID)
		}
		if err := tx.Model(&file).UpdateColumn("updated_at", time.Now()).Error; err != nil {
			return err
		}
		if file.OwnerID != attachment.OwnerID {
			return models.NewForbiddenError("not_owner", "file belongs to another user")
		}

		if !models.SingularRole(attachment.Role) {
			var held int64
			if err := tx.Model(&models.MediaAttachment{}).
				Where("file_id = ? AND role = ? AND is_current = ?", attachment.FileID, attachment.Role, true).
				Where("NOT (context_type = ? AND context_id = ?)", attachment.ContextType, attachment.ContextID).
				Count(&held).Error; err != nil {
				return err
			}
			if held > 0 {
				return models.NewConflictError("Media file is already attached elsewhere in this role", nil)
			}
		}

		now := time.Now()
		revoke := map[string]any{"is_current": false, "revoked_at": now}
		if err := tx.Model(&models.MediaAttachment{}).
			Where("file_id = ? AND role = ? AND is_current = ?", attachment.FileID, attachment.Role, true).
			UpdateColumns(revoke).Error; err != nil {
			return err
		}
		if models.SingularRole(attachment.Role) {
			if err := tx.Model(&models.MediaAttachment{}).
				Where("owner_id = ? AND role = ? AND is_current = ?", attachment.OwnerID, attachment.Role, true).
				UpdateColumns(revoke).Error; err != nil {
				return err
			}
		}

		attachment.IsCurrent = true
		attachment.RevokedAt = nil
		if err := tx.Create(attachment).Error; err != nil {
			return err
		}

		switch attachment.Role {
		case models.RoleProfilePicture:
			return tx.Model(&models.User{}).Where("id = ?", attachment.OwnerID).
				UpdateColumn("profile_image_file_id", attachment.FileID).Error
		case models.RoleCoverImage:
			return tx.Model(&models.User{}).Where("id = ?", attachment.OwnerID).
				UpdateColumn("cover_image_file_id", attachment.FileID).Error
		}
		return nil
	})
	if err != nil {
		return mapError(err, "Media attachment", nil)
	}
	if models.SingularRole(attachment.Role) {
		cache.InvalidateUser(ctx, attachment.OwnerID)
	}
	return nil
}

func (r *mediaRepository) RevokeContext(ctx context.Context, contextType string, contextID uint) (int64, error) {
	n, err := revokeContext(r.db.WithContext(ctx), contextType, contextID)
	if err == nil && contextType == models.ContextUser {
		cache.InvalidateUser(ctx, contextID)
	}
	return n, mapError(err, "Media attachment", nil)
}

func (r *mediaRepository) CurrentReferences(ctx context.Context, fileID uint) (int64, error) {
	n, err := currentReferences(r.db.WithContext(ctx), fileID)
	return n, mapError(err, "Media file", fileID)
}

// unreferencedFile matches media_files rows that neither a current attachment
// nor a live post, gallery item or user image column points at.
const unreferencedFile = `NOT EXISTS (SELECT 1 FROM media_attachments a WHERE a.file_id = media_files.id AND a.is_current = ?)
	AND NOT EXISTS (SELECT 1 FROM posts p WHERE p.media_file_id = media_files.id AND p.deleted_at IS NULL)
	AND NOT EXISTS (SELECT 1 FROM gallery_items g WHERE g.file_id = media_files.id AND g.deleted_at IS NULL)
	AND NOT EXISTS (SELECT 1 FROM users u WHERE u.profile_image_file_id = media_files.id OR u.cover_image_file_id = media_files.id)`

// ListOrphans returns live files created before createdBefore that nothing
// references.
func (r *mediaRepository) ListOrphans(ctx context.Context, createdBefore time.Time) ([]models.MediaFile, error) {
	var files []models.MediaFile
	err := r.db.WithContext(ctx).
		Where("created_at < ?", createdBefore).
		Where(unreferencedFile, true).
		Order("id ASC").
		Find(&files).Error
	if err != nil {
		return nil, mapError(err, "Media file", nil)
	}
	return files, nil
}

// DeleteIfUnreferenced tombstones the file when nothing references it after
// locking the row. It returns the storage key of a deleted file so the caller
// can remove the blob once the transaction has committed.
func (r *mediaRepository) DeleteIfUnreferenced(ctx context.Context, fileID uint) (string, bool, error) {
	var key string
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var file models.MediaFile
		if err := forUpdate(tx).First(&file, fileID).Error; err != nil {
			return err
		}
		var unreferenced int64
		if err := tx.Model(&models.MediaFile{}).
			Where("id = ?", fileID).
			Where(unreferencedFile, true).
			Count(&unreferenced).Error; err != nil {
			return err
		}
		if unreferenced == 0 {
			return nil
		}
		if err := tx.Delete(&file).Error; err != nil {
			return err
		}
		key, deleted = file.StorageKey, true
		return nil
	})
	if err != nil {
		return "", false, mapError(err, "Media file", fileID)
	}
	return key, deleted, nil
}

func currentReferences(tx *gorm.DB, fileID uint) (int64, error) {
	var n int64
	err := tx.Model(&models.MediaAttachment{}).
		Where("file_id = ? AND is_current = ?", fileID, true).
		Count(&n).Error
	return n, err
}

// revokeContext clears every current attachment held by one content row. For
// a user it also clears the profile and cover image columns.
func revokeContext(tx *gorm.DB, contextType string, contextID uint) (int64, error) {
	res := tx.Model(&models.MediaAttachment{}).
		Where("context_type = ? AND context_id = ? AND is_current = ?", contextType, contextID, true).
		UpdateColumns(map[string]any{"is_current": false, "revoked_at": time.Now()})
	if res.Error != nil || contextType != models.ContextUser {
		return res.RowsAffected, res.Error
	}
	err := tx.Model(&models.User{}).Where("id = ?", contextID).
		UpdateColumns(map[string]any{"profile_image_file_id": nil, "cover_image_file_id": nil}).Error
	return res.RowsAffected, err
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// Attachment roles. Profile pictures and cover images are singular per owner.
const (
	RoleProfilePicture = "profile_picture"
	RoleCoverImage     = "cover_image"
	RolePostMedia      = "post_media"
	RoleGalleryItem    = "gallery_item"
)

// SingularRole reports whether an owner may hold at most one current
// attachment in role.
func SingularRole(role string) bool {
	return role == RoleProfilePicture || role == RoleCoverImage
}

// ContextUser is the attachment context for profile and cover images. Post
// and gallery attachments use TargetPost and TargetGalleryItem.
const ContextUser = "user"

// MediaFile is an uploaded blob reference. The blob itself lives in the
// configured blob store under StorageKey.
type MediaFile struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	OwnerID     uint           `gorm:"not null;index" json:"owner_id"`
	StorageKey  string         `gorm:"size:255;not null;uniqueIndex" json:"storage_key"`
	ContentType string         `gorm:"size:100;not null" json:"content_type"`
	SizeBytes   int64          `gorm:"not null;default:0" json:"size_bytes"`
	Checksum    string         `gorm:"size:128" json:"checksum,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// MediaAttachment binds a file to a role in a context. At most one attachment
// per (file, role) and per singular (owner, role) is current at a time.
type MediaAttachment struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	FileID      uint       `gorm:"not null;index" json:"file_id"`
	OwnerID     uint       `gorm:"not null;index" json:"owner_id"`
	Role        string     `gorm:"size:32;not null" json:"role"`
	ContextType string     `gorm:"size:32;not null" json:"context_type"`
	ContextID   uint       `gorm:"not null" json:"context_id"`
	IsCurrent   bool       `gorm:"not null;default:true" json:"is_current"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Gallery is a user-owned collection of media items.
type Gallery struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	OwnerID     uint           `gorm:"not null;index" json:"owner_id"`
	Title       string         `gorm:"size:120;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// GalleryItem places exactly one file in exactly one gallery.
type GalleryItem struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	GalleryID  uint           `gorm:"not null;index" json:"gallery_id"`
	FileID     uint           `gorm:"not null;index" json:"file_id"`
	Caption    string         `gorm:"size:500" json:"caption"`
	LikeCount  int64          `gorm:"not null;default:0" json:"like_count"`
	ShareCount int64          `gorm:"not null;default:0" json:"share_count"`
	ViewCount  int64          `gorm:"not null;default:0" json:"view_count"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// GalleryItemView is one recorded view of a gallery item. ViewerID is nil for
// anonymous views.
type GalleryItemView struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ItemID    uint      `gorm:"not null;index" json:"item_id"`
	ViewerID  *uint     `json:"viewer_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

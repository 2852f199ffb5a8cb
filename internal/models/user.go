// Package models contains data structures for the community's domain models.
package models

import "time"

// User is an internal account mapped from an external identity.
// Users are never physically deleted; blocking is a soft state.
type User struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	ExternalID         string     `gorm:"size:255;not null;uniqueIndex" json:"-"`
	Provider           string     `gorm:"size:64;not null" json:"-"`
	DisplayName        string     `gorm:"size:100" json:"display_name"`
	Email              string     `gorm:"size:255" json:"email,omitempty"`
	Bio                string     `gorm:"type:text" json:"bio"`
	Location           string     `gorm:"size:120" json:"location"`
	ProfileImageFileID *uint      `json:"profile_image_file_id,omitempty"`
	CoverImageFileID   *uint      `json:"cover_image_file_id,omitempty"`
	IsAdmin            bool       `gorm:"not null;default:false" json:"is_admin"`
	IsBlocked          bool       `gorm:"not null;default:false;index" json:"is_blocked"`
	BlockedReason      string     `gorm:"size:500" json:"blocked_reason,omitempty"`
	BlockedAt          *time.Time `json:"blocked_at,omitempty"`
	LastSeenAt         *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// UserSummary is the author metadata joined onto content reads.
type UserSummary struct {
	ID                 uint   `json:"id"`
	DisplayName        string `json:"display_name"`
	ProfileImageFileID *uint  `json:"profile_image_file_id,omitempty"`
	IsBlocked          bool   `json:"is_blocked"`
}

// Summary projects the user onto its public author metadata.
func (u *User) Summary() *UserSummary {
	return &UserSummary{
		ID:                 u.ID,
		DisplayName:        u.DisplayName,
		ProfileImageFileID: u.ProfileImageFileID,
		IsBlocked:          u.IsBlocked,
	}
}

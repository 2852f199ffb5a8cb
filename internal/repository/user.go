package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/yogull/yogull-social-platform-sub001/internal/cache"
	"github.com/yogull/yogull-social-platform-sub001/internal/middleware"
	"github.com/yogull/yogull-social-platform-sub001/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)
	CreateIfAbsent(ctx context.Context, user *models.User) (*models.User, error)
	TouchLastSeen(ctx context.Context, id uint) error
	UpdateProfile(ctx context.Context, id uint, fields map[string]any) (*models.User, error)
	SetBlocked(ctx context.Context, id uint, blocked bool, reason string) (*models.User, error)
	SetAdmin(ctx context.Context, id uint, admin bool) (*models.User, error)
	ListAdmins(ctx context.Context) ([]models.User, error)
	Summaries(ctx context.Context, ids []uint) (map[uint]*models.UserSummary, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, mapError(err, "User", id)
	}
	return &user, nil
}

func (r *userRepository) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&user).Error; err != nil {
		return nil, mapError(err, "User", externalID)
	}
	return &user, nil
}

// CreateIfAbsent inserts user unless its external id is already taken, then
// returns the stored row. Concurrent first logins converge on one row.
func (r *userRepository) CreateIfAbsent(ctx context.Context, user *models.User) (*models.User, error) {
	db := r.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoNothing: true,
	}).Create(user).Error
	if err != nil {
		return nil, mapError(err, "User", user.ExternalID)
	}

	var stored models.User
	if err := db.Where("external_id = ?", user.ExternalID).First(&stored).Error; err != nil {
		return nil, mapError(err, "User", user.ExternalID)
	}
	return &stored, nil
}

func (r *userRepository) TouchLastSeen(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_seen_at", time.Now()).Error
	return mapError(err, "User", id)
}

// UpdateProfile writes the given profile columns. Callers have already
// restricted fields to the mutable set.
func (r *userRepository) UpdateProfile(ctx context.Context, id uint, fields map[string]any) (*models.User, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, mapError(res.Error, "User", id)
	}
	if res.RowsAffected == 0 {
		return nil, models.NewNotFoundError("User", id)
	}
	cache.InvalidateUser(ctx, id)
	return r.GetByID(ctx, id)
}

func (r *userRepository) SetBlocked(ctx context.Context, id uint, blocked bool, reason string) (*models.User, error) {
	fields := map[string]any{
		"is_blocked":     blocked,
		"blocked_reason": reason,
		"blocked_at":     nil,
	}
	if blocked {
		fields["blocked_at"] = time.Now()
	} else {
		fields["blocked_reason"] = ""
	}
	return r.moderate(ctx, id, fields)
}

func (r *userRepository) SetAdmin(ctx context.Context, id uint, admin bool) (*models.User, error) {
	return r.moderate(ctx, id, map[string]any{"is_admin": admin})
}

func (r *userRepository) moderate(ctx context.Context, id uint, fields map[string]any) (*models.User, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, mapError(res.Error, "User", id)
	}
	if res.RowsAffected == 0 {
		return nil, models.NewNotFoundError("User", id)
	}
	cache.InvalidateUser(ctx, id)
	return r.GetByID(ctx, id)
}

func (r *userRepository) ListAdmins(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Where("is_admin = ?", true).Order("id ASC").Find(&users).Error; err != nil {
		return nil, mapError(err, "User", nil)
	}
	return users, nil
}

// Summaries returns author metadata for ids, served from the cache where
// possible. Unknown ids are absent from the result.
func (r *userRepository) Summaries(ctx context.Context, ids []uint) (map[uint]*models.UserSummary, error) {
	out := make(map[uint]*models.UserSummary, len(ids))
	var misses []uint
	for _, id := range uniqueIDs(ids) {
		var s models.UserSummary
		found, err := cache.GetJSON(ctx, cache.UserSummaryKey(id), &s)
		if err != nil {
			middleware.Logger.WarnContext(ctx, "user summary cache read failed",
				slog.Uint64("user_id", uint64(id)), slog.String("error", err.Error()))
		}
		if found {
			out[id] = &s
			continue
		}
		misses = append(misses, id)
	}
	if len(misses) == 0 {
		return out, nil
	}

	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", misses).Find(&users).Error; err != nil {
		return nil, mapError(err, "User", nil)
	}
	for i := range users {
		s := users[i].Summary()
		out[s.ID] = s
		if err := cache.SetJSON(ctx, cache.UserSummaryKey(s.ID), s, cache.UserTTL); err != nil {
			middleware.Logger.WarnContext(ctx, "user summary cache write failed",
				slog.Uint64("user_id", uint64(s.ID)), slog.String("error", err.Error()))
		}
	}
	return out, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

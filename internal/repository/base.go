// Package repository provides the gorm-backed content store: one interface
// and private implementation per aggregate, bundled by Store.
//
// Every mutation that touches a denormalized counter adjusts it inside the
// same transaction as the row change. Methods open their own transaction,
// which nests as a savepoint when the repository is already bound to one
// through Store.Transaction.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yogull/yogull-social-platform-sub001/internal/counters"
	"github.com/yogull/yogull-social-platform-sub001/internal/database"
	"github.com/yogull/yogull-social-platform-sub001/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store bundles the repositories over one database handle.
type Store struct {
	db *gorm.DB

	Users         UserRepository
	Posts         PostRepository
	Comments      CommentRepository
	Reactions     ReactionRepository
	Discussions   DiscussionRepository
	Chat          ChatRepository
	Notifications NotificationRepository
	Media         MediaRepository
	Galleries     GalleryRepository
}

// NewStore creates a store whose repositories share db.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:            db,
		Users:         NewUserRepository(db),
		Posts:         NewPostRepository(db),
		Comments:      NewCommentRepository(db),
		Reactions:     NewReactionRepository(db),
		Discussions:   NewDiscussionRepository(db),
		Chat:          NewChatRepository(db),
		Notifications: NewNotificationRepository(db),
		Media:         NewMediaRepository(db),
		Galleries:     NewGalleryRepository(db),
	}
}

// DB returns the underlying handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn with a store bound to a single transaction. Returning
// an error rolls everything back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
	return mapError(err, "", nil)
}

// mapError translates store errors into AppErrors: a missing row becomes
// NOT_FOUND, a unique violation CONFLICT and anything else UNAVAILABLE.
// AppErrors pass through unchanged.
func mapError(err error, resource string, id any) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if resource == "" {
			resource = "Record"
		}
		return models.NewNotFoundError(resource, id)
	}
	if database.IsUniqueViolation(err) {
		return models.NewConflictError("Resource already exists", err)
	}
	return models.NewUnavailableError(err)
}

// forUpdate locks selected rows on postgres. sqlite serializes writers, so
// the clause is skipped there.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// targetSpec describes a likeable or shareable content table.
type targetSpec struct {
	resource string
	model    any
	likes    *counters.Counter
	shares   *counters.Counter
}

var targets = map[string]targetSpec{
	models.TargetPost:        {"Post", &models.Post{}, &counters.PostLikes, &counters.PostShares},
	models.TargetComment:     {"Comment", &models.Comment{}, &counters.CommentLikes, nil},
	models.TargetGalleryItem: {"Gallery item", &models.GalleryItem{}, &counters.GalleryItemLikes, &counters.GalleryItemShares},
}

func lookupTarget(targetType string) (targetSpec, error) {
	tgt, ok := targets[targetType]
	if !ok {
		return targetSpec{}, models.NewValidationError(fmt.Sprintf("unsupported target type %q", targetType))
	}
	return tgt, nil
}

// requireLive fails with NOT_FOUND unless a non-deleted row of model exists.
func requireLive(tx *gorm.DB, model any, resource string, id uint) error {
	var count int64
	if err := tx.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return models.NewNotFoundError(resource, id)
	}
	return nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

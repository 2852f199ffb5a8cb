package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yogull/yogull-social-platform-sub001/internal/middleware"

	"gorm.io/gorm"
)

// partialIndexes back the media attachment invariants at the storage level.
// Both postgres and sqlite accept partial unique indexes.
var partialIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_attachment_current_file_role
		ON media_attachments (file_id, role) WHERE is_current`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_attachment_current_owner_singular
		ON media_attachments (owner_id, role)
		WHERE is_current AND role IN ('profile_picture', 'cover_image')`,
}

type foreignKey struct {
	Table    string
	Column   string
	RefTable string
	OnDelete string
}

func (fk foreignKey) name() string {
	return fmt.Sprintf("fk_%s_%s", fk.Table, fk.Column)
}

// foreignKeys enforce parent existence. Content is tombstoned rather than
// removed, so parents never disappear from under their children.
var foreignKeys = []foreignKey{
	{"posts", "profile_user_id", "users", "RESTRICT"},
	{"posts", "author_id", "users", "RESTRICT"},
	{"posts", "media_file_id", "media_files", "SET NULL"},
	{"comments", "post_id", "posts", "RESTRICT"},
	{"comments", "author_id", "users", "RESTRICT"},
	{"comments", "parent_id", "comments", "RESTRICT"},
	{"likes", "user_id", "users", "CASCADE"},
	{"shares", "user_id", "users", "CASCADE"},
	{"discussions", "category_id", "discussion_categories", "RESTRICT"},
	{"discussions", "author_id", "users", "RESTRICT"},
	{"discussion_participants", "discussion_id", "discussions", "CASCADE"},
	{"discussion_participants", "user_id", "users", "CASCADE"},
	{"discussion_messages", "discussion_id", "discussions", "RESTRICT"},
	{"discussion_messages", "author_id", "users", "RESTRICT"},
	{"discussion_messages", "parent_id", "discussion_messages", "RESTRICT"},
	{"chat_rooms", "created_by", "users", "RESTRICT"},
	{"chat_participants", "room_id", "chat_rooms", "CASCADE"},
	{"chat_participants", "user_id", "users", "CASCADE"},
	{"chat_messages", "room_id", "chat_rooms", "RESTRICT"},
	{"chat_messages", "sender_id", "users", "RESTRICT"},
	{"notifications", "recipient_id", "users", "CASCADE"},
	{"notifications", "actor_id", "users", "CASCADE"},
	{"media_files", "owner_id", "users", "RESTRICT"},
	{"media_attachments", "file_id", "media_files", "RESTRICT"},
	{"media_attachments", "owner_id", "users", "RESTRICT"},
	{"galleries", "owner_id", "users", "RESTRICT"},
	{"gallery_items", "gallery_id", "galleries", "RESTRICT"},
	{"gallery_items", "file_id", "media_files", "RESTRICT"},
	{"gallery_item_views", "item_id", "gallery_items", "CASCADE"},
}

// Migrate creates or updates every table, then adds the partial indexes and
// (on postgres) the foreign keys gorm cannot express without associations.
func Migrate(ctx context.Context, db *gorm.DB) error {
	db = db.WithContext(ctx)

	if err := db.AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	for _, stmt := range partialIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create partial index: %w", err)
		}
	}

	if db.Dialector.Name() == "postgres" {
		for _, fk := range foreignKeys {
			if err := ensureForeignKey(db, fk); err != nil {
				return err
			}
		}
	}

	middleware.Logger.Info("Database migration completed", slog.Int("tables", len(PersistentModels())))
	return nil
}

func ensureForeignKey(db *gorm.DB, fk foreignKey) error {
	var count int64
	if err := db.Raw("SELECT COUNT(*) FROM pg_constraint WHERE conname = ?", fk.name()).Scan(&count).Error; err != nil {
		return fmt.Errorf("failed to inspect constraint %s: %w", fk.name(), err)
	}
	if count > 0 {
		return nil
	}

	stmt := fmt.Sprintf(
		"ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (id) ON DELETE %s",
		fk.Table, fk.name(), fk.Column, fk.RefTable, fk.OnDelete,
	)
	if err := db.Exec(stmt).Error; err != nil {
		return fmt.Errorf("failed to add constraint %s: %w", fk.name(), err)
	}
	return nil
}

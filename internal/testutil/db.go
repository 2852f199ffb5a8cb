// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yogull/yogull-social-platform-sub001/internal/database"
	"github.com/yogull/yogull-social-platform-sub001/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB returns a migrated, isolated in-memory sqlite database.
// Everything running inside a transaction must use the tx handle: the pool
// holds one connection, so touching the outer handle mid-transaction blocks.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

// NewConcurrentTestDB returns a migrated database whose pool holds conns
// connections, for tests that race goroutines against the store. It uses the
// postgres instance named by TEST_DATABASE_DSN when set, and otherwise a WAL
// sqlite file whose transactions take the write lock on BEGIN.
func NewConcurrentTestDB(t testing.TB, conns int) *gorm.DB {
	t.Helper()

	dialector := sqlite.Open(filepath.Join(t.TempDir(), "concurrent.db") +
		"?_busy_timeout=10000&_journal_mode=WAL&_txlock=immediate")
	if dsn := os.Getenv("TEST_DATABASE_DSN"); dsn != "" {
		dialector = postgres.Open(dsn)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(conns)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

// CreateUser inserts a user with a unique external id.
func CreateUser(t testing.TB, db *gorm.DB, name string) *models.User {
	t.Helper()
	u := &models.User{
		ExternalID:  "test:" + uuid.NewString(),
		Provider:    "test",
		DisplayName: name,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateAdmin inserts an administrator.
func CreateAdmin(t testing.TB, db *gorm.DB, name string) *models.User {
	t.Helper()
	u := CreateUser(t, db, name)
	require.NoError(t, db.Model(u).Update("is_admin", true).Error)
	u.IsAdmin = true
	return u
}

// BlockUser marks u as blocked.
func BlockUser(t testing.TB, db *gorm.DB, u *models.User) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, db.Model(u).Updates(map[string]any{
		"is_blocked":     true,
		"blocked_reason": "test",
		"blocked_at":     now,
	}).Error)
	u.IsBlocked = true
}

// CreateFile registers a media file owned by ownerID.
func CreateFile(t testing.TB, db *gorm.DB, ownerID uint) *models.MediaFile {
	t.Helper()
	f := &models.MediaFile{
		OwnerID:     ownerID,
		StorageKey:  uuid.NewString(),
		ContentType: "image/png",
		SizeBytes:   128,
	}
	require.NoError(t, db.Create(f).Error)
	return f
}

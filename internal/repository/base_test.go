package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/yogull/yogull-social-platform-sub001/internal/models"
	"github.com/yogull/yogull-social-platform-sub001/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

func newTestStore(t *testing.T) (*Store, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t)
	return NewStore(db), db
}

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		code string
	}{
		{"Not Found", gorm.ErrRecordNotFound, models.CodeNotFound},
		{"Postgres Unique", &pgconn.PgError{Code: "23505"}, models.CodeConflict},
		{"Sqlite Unique", errors.New("UNIQUE constraint failed: likes.target_type"), models.CodeConflict},
		{"Other", errors.New("connection reset"), models.CodeUnavailable},
		{"Deadline", context.DeadlineExceeded, models.CodeUnavailable},
		{"App Error Passes Through", models.NewValidationError("bad"), models.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapError(tt.err, "Post", 1)
			require.Error(t, err)
			assert.Equal(t, tt.code, models.ErrorCode(err))
		})
	}

	assert.NoError(t, mapError(nil, "Post", 1))
}

func TestStoreFailureMapsToUnavailable(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "posts"`).WillReturnError(errors.New("connection refused"))

	_, err := repo.GetByID(context.Background(), 7)
	require.Error(t, err)
	assert.Equal(t, models.CodeUnavailable, models.ErrorCode(err))
	assert.Equal(t, 503, models.StatusFor(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreMissingRowMapsToNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreTransaction_RollsBackAcrossRepositories(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "author")

	err := store.Transaction(ctx, func(tx *Store) error {
		post := &models.Post{ProfileUserID: u.ID, AuthorID: u.ID, Content: "draft"}
		require.NoError(t, tx.Posts.Create(ctx, post))
		require.NoError(t, tx.Comments.Create(ctx, &models.Comment{PostID: post.ID, AuthorID: u.ID, Content: "c"}))
		return models.NewValidationError("abort")
	})
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeValidation))

	var posts, comments int64
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	require.NoError(t, db.Model(&models.Comment{}).Count(&comments).Error)
	assert.Zero(t, posts)
	assert.Zero(t, comments)
}

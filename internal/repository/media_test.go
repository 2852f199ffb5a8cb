package repository

import (
	"context"
	"testing"
	"time"

	"github.com/yogull/yogull-social-platform-sub001/internal/models"
	"github.com/yogull/yogull-social-platform-sub001/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func profileAttachment(owner, file uint) *models.MediaAttachment {
	return &models.MediaAttachment{
		FileID:      file,
		OwnerID:     owner,
		Role:        models.RoleProfilePicture,
		ContextType: models.ContextUser,
		ContextID:   owner,
	}
}

func TestMediaRepository_AttachExclusiveSingularRole(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "alice")
	first := testutil.CreateFile(t, db, u.ID)
	second := testutil.CreateFile(t, db, u.ID)

	require.NoError(t, store.Media.AttachExclusive(ctx, profileAttachment(u.ID, first.ID)))
	require.NoError(t, store.Media.AttachExclusive(ctx, profileAttachment(u.ID, second.ID)))

	var current []models.MediaAttachment
	require.NoError(t, db.Where("owner_id = ? AND role = ? AND is_current = ?", u.ID, models.RoleProfilePicture, true).Find(&current).Error)
	require.Len(t, current, 1)
	assert.Equal(t, second.ID, current[0].FileID)

	var revoked models.MediaAttachment
	require.NoError(t, db.Where("file_id = ?", first.ID).First(&revoked).Error)
	assert.False(t, revoked.IsCurrent)
	assert.NotNil(t, revoked.RevokedAt)

	user, err := store.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, user.ProfileImageFileID)
	assert.Equal(t, second.ID, *user.ProfileImageFileID)

	require.NoError(t, store.Media.AttachExclusive(ctx, &models.MediaAttachment{
		FileID: second.ID, OwnerID: u.ID, Role: models.RoleCoverImage, ContextType: models.ContextUser, ContextID: u.ID,
	}))
	refs, err := store.Media.CurrentReferences(ctx, second.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, refs, "one file may serve two roles")
}

func TestMediaRepository_AttachExclusiveRejects(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	bobs := testutil.CreateFile(t, db, bob.ID)

	err := store.Media.AttachExclusive(ctx, profileAttachment(alice.ID, bobs.ID))
	assert.True(t, models.IsCode(err, models.CodeForbidden))

	err = store.Media.AttachExclusive(ctx, profileAttachment(alice.ID, 9999))
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestMediaRepository_Orphans(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "alice")
	used := testutil.CreateFile(t, db, u.ID)
	orphan := testutil.CreateFile(t, db, u.ID)
	require.NoError(t, store.Media.AttachExclusive(ctx, profileAttachment(u.ID, used.ID)))

	orphans, err := store.Media.ListOrphans(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, orphans, "inside the grace period")

	orphans, err = store.Media.ListOrphans(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, orphan.ID, orphans[0].ID)

	key, deleted, err := store.Media.DeleteIfUnreferenced(ctx, used.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Empty(t, key)

	key, deleted, err = store.Media.DeleteIfUnreferenced(ctx, orphan.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, orphan.StorageKey, key)

	_, err = store.Media.GetFile(ctx, orphan.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	n, err := store.Media.RevokeContext(ctx, models.ContextUser, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	orphans, err = store.Media.ListOrphans(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, used.ID, orphans[0].ID)
}

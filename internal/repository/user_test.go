package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/yogull/yogull-social-platform-sub001/internal/models"
	"github.com/yogull/yogull-social-platform-sub001/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateIfAbsentConverges(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]uint, 8)
	errs := make([]error, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u, err := store.Users.CreateIfAbsent(ctx, &models.User{ExternalID: "opc:sub-1", Provider: "opc", DisplayName: "Sam"})
			errs[i] = err
			if err == nil {
				ids[i] = u.ID
			}
		}(i)
	}
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}

	var count int64
	require.NoError(t, db.Model(&models.User{}).Where("external_id = ?", "opc:sub-1").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUserRepository_ModerationAndProfile(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "alice")

	blocked, err := store.Users.SetBlocked(ctx, u.ID, true, "spam")
	require.NoError(t, err)
	assert.True(t, blocked.IsBlocked)
	assert.Equal(t, "spam", blocked.BlockedReason)
	assert.NotNil(t, blocked.BlockedAt)

	unblocked, err := store.Users.SetBlocked(ctx, u.ID, false, "ignored")
	require.NoError(t, err)
	assert.False(t, unblocked.IsBlocked)
	assert.Empty(t, unblocked.BlockedReason)
	assert.Nil(t, unblocked.BlockedAt)

	_, err = store.Users.SetAdmin(ctx, u.ID, true)
	require.NoError(t, err)
	admins, err := store.Users.ListAdmins(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, u.ID, admins[0].ID)

	updated, err := store.Users.UpdateProfile(ctx, u.ID, map[string]any{"bio": "gardener", "display_name": "Alice B"})
	require.NoError(t, err)
	assert.Equal(t, "gardener", updated.Bio)

	_, err = store.Users.SetAdmin(ctx, 9999, true)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	require.NoError(t, store.Users.TouchLastSeen(ctx, u.ID))
	got, err := store.Users.GetByExternalID(ctx, u.ExternalID)
	require.NoError(t, err)
	assert.NotNil(t, got.LastSeenAt)
}

func TestUserRepository_Summaries(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	summaries, err := store.Users.Summaries(ctx, []uint{alice.ID, bob.ID, alice.ID, 0, 9999})
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "bob", summaries[bob.ID].DisplayName)
}

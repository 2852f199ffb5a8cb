package service

import (
	"context"
	"testing"

	"github.com/yogull/yogull-social-platform-sub001/internal/models"
	"github.com/yogull/yogull-social-platform-sub001/internal/policy"
	"github.com/yogull/yogull-social-platform-sub001/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationService_Inbox(t *testing.T) {
	f := newFixture(t, policy.DefaultRules())
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")

	for i := 0; i < 3; i++ {
		_, err := f.wall.CreatePost(ctx, CreatePostInput{ActorID: bob.ID, WallUserID: alice.ID, Content: "hello"})
		require.NoError(t, err)
	}

	list, err := f.notifications.List(ctx, alice.ID, false, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for _, n := range list {
		assert.Equal(t, models.NotificationWallPost, n.Type)
		require.NotNil(t, n.Actor)
		assert.Equal(t, "bob", n.Actor.DisplayName)
	}

	_, err = f.notifications.MarkRead(ctx, bob.ID, list[0].ID)
	assertCode(t, err, models.CodeNotFound)
	read, err := f.notifications.MarkRead(ctx, alice.ID, list[0].ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)

	unread, err := f.notifications.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, unread)

	changed, err := f.notifications.MarkAllRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, changed)

	assertCode(t, f.notifications.Delete(ctx, bob.ID, list[1].ID), models.CodeNotFound)
	require.NoError(t, f.notifications.Delete(ctx, alice.ID, list[1].ID))

	list, err = f.notifications.List(ctx, alice.ID, false, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	list, err = f.notifications.List(ctx, alice.ID, true, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

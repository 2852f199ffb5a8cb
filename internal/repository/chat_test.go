package repository

import (
	"context"
	"testing"

	"github.com/yogull/yogull-social-platform-sub001/internal/models"
	"github.com/yogull/yogull-social-platform-sub001/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatRepository_RoomMembership(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	carol := testutil.CreateUser(t, db, "carol")

	err := store.Chat.CreateRoom(ctx, &models.ChatRoom{CreatedBy: alice.ID}, []uint{9999})
	assert.True(t, models.IsCode(err, models.CodeValidation))

	room := &models.ChatRoom{Name: "pair", CreatedBy: alice.ID}
	require.NoError(t, store.Chat.CreateRoom(ctx, room, []uint{bob.ID, alice.ID}))
	assert.ElementsMatch(t, []uint{alice.ID, bob.ID}, room.ParticipantIDs)

	ok, err := store.Chat.IsParticipant(ctx, room.ID, carol.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	added, err := store.Chat.AddParticipant(ctx, room.ID, carol.ID)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = store.Chat.AddParticipant(ctx, room.ID, carol.ID)
	require.NoError(t, err)
	assert.False(t, added)

	got, err := store.Chat.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{alice.ID, bob.ID, carol.ID}, got.ParticipantIDs)

	removed, err := store.Chat.RemoveParticipant(ctx, room.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	rooms, err := store.Chat.ListRoomsForUser(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, rooms)
	rooms, err = store.Chat.ListRoomsForUser(ctx, carol.ID)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
}

func TestChatRepository_SendAssignsSequence(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	room := &models.ChatRoom{CreatedBy: alice.ID}
	require.NoError(t, store.Chat.CreateRoom(ctx, room, nil))

	for i := 0; i < 5; i++ {
		m := &models.ChatMessage{RoomID: room.ID, SenderID: alice.ID, Content: "m"}
		require.NoError(t, store.Chat.SendMessage(ctx, m))
		assert.EqualValues(t, i+1, m.Seq)
	}

	messages, err := store.Chat.ListMessages(ctx, room.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.EqualValues(t, 3, messages[0].Seq)
	assert.EqualValues(t, 5, messages[2].Seq)

	require.NoError(t, store.Chat.DeleteMessage(ctx, messages[0].ID))
	err = store.Chat.DeleteMessage(ctx, messages[0].ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	messages, err = store.Chat.ListMessages(ctx, room.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, messages, 4)

	next := &models.ChatMessage{RoomID: room.ID, SenderID: alice.ID, Content: "after delete"}
	require.NoError(t, store.Chat.SendMessage(ctx, next))
	assert.EqualValues(t, 6, next.Seq)

	err = store.Chat.SendMessage(ctx, &models.ChatMessage{RoomID: 9999, SenderID: alice.ID, Content: "x"})
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yogull/yogull-social-platform-sub001/internal/featureflags"
	"github.com/yogull/yogull-social-platform-sub001/internal/models"
	"github.com/yogull/yogull-social-platform-sub001/internal/repository"
	"github.com/yogull/yogull-social-platform-sub001/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyWriter struct {
	mu       sync.Mutex
	failures int
	calls    int
	rows     []models.Notification
}

func (w *flakyWriter) CreateBatch(_ context.Context, rows []models.Notification) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if w.calls <= w.failures {
		return errors.New("database is locked")
	}
	w.rows = append(w.rows, rows...)
	return nil
}

type recordingPublisher struct {
	mu    sync.Mutex
	users []uint
}

func (p *recordingPublisher) PublishUserEvent(_ context.Context, userID uint, _ string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users = append(p.users, userID)
	return nil
}

func recipientsOf(rows []models.Notification) map[uint]string {
	out := make(map[uint]string, len(rows))
	for _, r := range rows {
		out[r.RecipientID] = r.Type
	}
	return out
}

func TestFanout_CommentRecipients(t *testing.T) {
	t.Parallel()
	f := NewFanout(FanoutConfig{})
	ctx := context.Background()

	tests := []struct {
		name string
		ev   Event
		want map[uint]string
	}{
		{
			name: "top level comment notifies post author",
			ev:   Event{Kind: CommentCreated, ActorID: 2, PostAuthorID: 1, CommentID: 10},
			want: map[uint]string{1: models.NotificationPostComment},
		},
		{
			name: "author commenting on own post notifies nobody",
			ev:   Event{Kind: CommentCreated, ActorID: 1, PostAuthorID: 1, CommentID: 10},
			want: map[uint]string{},
		},
		{
			name: "reply notifies parent author and post author",
			ev:   Event{Kind: CommentCreated, ActorID: 3, PostAuthorID: 1, ParentAuthorID: 2, CommentID: 11},
			want: map[uint]string{1: models.NotificationPostComment, 2: models.NotificationCommentReply},
		},
		{
			name: "reply to post author yields a single reply",
			ev:   Event{Kind: CommentCreated, ActorID: 3, PostAuthorID: 1, ParentAuthorID: 1, CommentID: 12},
			want: map[uint]string{1: models.NotificationCommentReply},
		},
		{
			name: "replying to yourself notifies only the post author",
			ev:   Event{Kind: CommentCreated, ActorID: 2, PostAuthorID: 1, ParentAuthorID: 2, CommentID: 13},
			want: map[uint]string{1: models.NotificationPostComment},
		},
		{
			name: "wall post notifies wall owner",
			ev:   Event{Kind: WallPostCreated, ActorID: 2, WallOwnerID: 1, PostID: 5},
			want: map[uint]string{1: models.NotificationWallPost},
		},
		{
			name: "post on own wall notifies nobody",
			ev:   Event{Kind: WallPostCreated, ActorID: 1, WallOwnerID: 1, PostID: 5},
			want: map[uint]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := f.Recipients(ctx, tt.ev)
			require.NoError(t, err)
			assert.Equal(t, tt.want, recipientsOf(rows))
			assert.Len(t, rows, len(tt.want))
			for _, r := range rows {
				assert.Equal(t, tt.ev.ActorID, r.ActorID)
			}
		})
	}

	_, err := f.Recipients(ctx, Event{Kind: "bogus"})
	assert.Error(t, err)
}

func TestFanout_DiscussionParticipants(t *testing.T) {
	db := testutil.NewTestDB(t)
	store := repository.NewStore(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	carol := testutil.CreateUser(t, db, "carol")

	category := &models.DiscussionCategory{Name: "Garden", Slug: "garden"}
	require.NoError(t, store.Discussions.CreateCategory(ctx, category))
	d := &models.Discussion{CategoryID: category.ID, AuthorID: alice.ID, Title: "Tomatoes"}
	require.NoError(t, store.Discussions.Create(ctx, d))
	_, err := store.Discussions.AddMessage(ctx, &models.DiscussionMessage{DiscussionID: d.ID, AuthorID: bob.ID, Content: "hi"})
	require.NoError(t, err)
	msg := &models.DiscussionMessage{DiscussionID: d.ID, AuthorID: carol.ID, Content: "hello"}
	_, err = store.Discussions.AddMessage(ctx, msg)
	require.NoError(t, err)

	f := NewFanout(FanoutConfig{Participants: store.Discussions, Writer: store.Notifications})
	err = f.Handle(ctx, Event{
		Kind: DiscussionMessageCreated, ActorID: carol.ID,
		DiscussionID: d.ID, MessageID: msg.ID, CategoryID: category.ID,
	})
	require.NoError(t, err)

	for _, u := range []*models.User{alice, bob} {
		list, err := store.Notifications.ListForRecipient(ctx, u.ID, true, 10, 0)
		require.NoError(t, err)
		require.Len(t, list, 1, u.DisplayName)
		assert.Equal(t, models.NotificationDiscussionMessage, list[0].Type)
		assert.Equal(t, msg.ID, list[0].TargetID)
		require.NotNil(t, list[0].CategoryID)
		assert.Equal(t, category.ID, *list[0].CategoryID)
	}
	count, err := store.Notifications.UnreadCount(ctx, carol.ID)
	require.NoError(t, err)
	assert.Zero(t, count, "the sender is never notified")
}

func TestFanout_RetriesInsert(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ev := Event{Kind: WallPostCreated, ActorID: 2, WallOwnerID: 1, PostID: 9}

	w := &flakyWriter{failures: 2}
	pub := &recordingPublisher{}
	f := NewFanout(FanoutConfig{
		Writer:      w,
		Realtime:    pub,
		Flags:       featureflags.NewManager("realtime_notifications=on"),
		MaxAttempts: 3,
		Backoff:     time.Millisecond,
	})
	require.NoError(t, f.Handle(ctx, ev))
	assert.Equal(t, 3, w.calls)
	assert.Len(t, w.rows, 1)
	assert.Equal(t, []uint{1}, pub.users)

	w = &flakyWriter{failures: 5}
	pub = &recordingPublisher{}
	f = NewFanout(FanoutConfig{Writer: w, Realtime: pub, MaxAttempts: 2, Backoff: time.Millisecond})
	assert.Error(t, f.Handle(ctx, ev))
	assert.Equal(t, 2, w.calls)
	assert.Empty(t, pub.users, "nothing is pushed when the insert fails")
}

func TestFanout_RealtimeRespectsRollout(t *testing.T) {
	t.Parallel()
	w := &flakyWriter{}
	pub := &recordingPublisher{}
	f := NewFanout(FanoutConfig{Writer: w, Realtime: pub, Flags: featureflags.NewManager("realtime_notifications=off")})

	require.NoError(t, f.Handle(context.Background(), Event{Kind: WallPostCreated, ActorID: 2, WallOwnerID: 1, PostID: 9}))
	assert.Len(t, w.rows, 1)
	assert.Empty(t, pub.users)
}

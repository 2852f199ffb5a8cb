package service

import (
	"context"
	"strings"
	"testing"

	"github.com/yogull/yogull-social-platform-sub001/internal/models"
	"github.com/yogull/yogull-social-platform-sub001/internal/notifications"
	"github.com/yogull/yogull-social-platform-sub001/internal/policy"
	"github.com/yogull/yogull-social-platform-sub001/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWallService_CreatePostValidation(t *testing.T) {
	f := newFixture(t, policy.DefaultRules())
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	blocked := testutil.CreateUser(t, f.db, "troll")
	testutil.BlockUser(t, f.db, blocked)

	tests := []struct {
		name string
		in   CreatePostInput
		code string
	}{
		{"Empty Content", CreatePostInput{ActorID: alice.ID, Content: "   "}, models.CodeValidation},
		{"Too Long", CreatePostInput{ActorID: alice.ID, Content: strings.Repeat("x", 10001)}, models.CodeValidation},
		{"Bad Visibility", CreatePostInput{ActorID: alice.ID, Content: "hi", Visibility: "everyone"}, models.CodeValidation},
		{"Unknown Wall", CreatePostInput{ActorID: alice.ID, WallUserID: 9999, Content: "hi"}, models.CodeNotFound},
		{"Anonymous", CreatePostInput{Content: "hi"}, models.CodeUnauthenticated},
		{"Blocked", CreatePostInput{ActorID: blocked.ID, Content: "hi"}, models.CodeForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.wall.CreatePost(ctx, tt.in)
			assertCode(t, err, tt.code)
		})
	}
	assert.Empty(t, f.events.events, "rejected writes emit nothing")
}

func TestWallService_CrossPosting(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, policy.DefaultRules())
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")

	post, err := f.wall.CreatePost(ctx, CreatePostInput{ActorID: bob.ID, WallUserID: alice.ID, Content: "hello alice"})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, post.ProfileUserID)
	assert.Equal(t, bob.ID, post.AuthorID)
	assert.Equal(t, models.VisibilityPublic, post.Visibility)
	require.NotNil(t, post.Author)
	assert.Equal(t, "bob", post.Author.DisplayName)

	ev := f.events.last(t)
	assert.Equal(t, notifications.WallPostCreated, ev.Kind)
	assert.Equal(t, alice.ID, ev.WallOwnerID)

	unread, err := f.notifications.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)

	strict := newFixture(t, policy.Rules{AllowCrossPosting: false, ContextOwnerMayDelete: true})
	carol := testutil.CreateUser(t, strict.db, "carol")
	dave := testutil.CreateUser(t, strict.db, "dave")
	_, err = strict.wall.CreatePost(ctx, CreatePostInput{ActorID: dave.ID, WallUserID: carol.ID, Content: "hi"})
	assertForbidden(t, err, policy.ReasonCrossPostingDisabled)
	_, err = strict.wall.CreatePost(ctx, CreatePostInput{ActorID: carol.ID, Content: "my own wall"})
	assert.NoError(t, err)
}

func TestWallService_PostWithMedia(t *testing.T) {
	f := newFixture(t, policy.DefaultRules())
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")
	file := testutil.CreateFile(t, f.db, alice.ID)

	post, err := f.wall.CreatePost(ctx, CreatePostInput{ActorID: alice.ID, Content: "look", MediaFileID: &file.ID})
	require.NoError(t, err)
	refs, err := f.store.Media.CurrentReferences(ctx, file.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, refs)

	_, err = f.wall.CreatePost(ctx, CreatePostInput{ActorID: bob.ID, Content: "stolen", MediaFileID: &file.ID})
	assertForbidden(t, err, "not_owner")

	var posts int64
	require.NoError(t, f.db.Model(&models.Post{}).Where("author_id = ?", bob.ID).Count(&posts).Error)
	assert.Zero(t, posts, "the post rolls back with the attachment")

	_, err = f.wall.DeletePost(ctx, alice.ID, post.ID)
	require.NoError(t, err)
	refs, err = f.store.Media.CurrentReferences(ctx, file.ID)
	require.NoError(t, err)
	assert.Zero(t, refs)
}

func TestWallService_Visibility(t *testing.T) {
	f := newFixture(t, policy.DefaultRules())
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")
	admin := testutil.CreateAdmin(t, f.db, "root")

	private, err := f.wall.CreatePost(ctx, CreatePostInput{ActorID: alice.ID, Content: "secret", Visibility: models.VisibilityPrivate})
	require.NoError(t, err)
	friends, err := f.wall.CreatePost(ctx, CreatePostInput{ActorID: alice.ID, Content: "close", Visibility: models.VisibilityFriends})
	require.NoError(t, err)

	for _, id := range []uint{private.ID, friends.ID} {
		_, err = f.wall.GetPost(ctx, bob.ID, id)
		assertCode(t, err, models.CodeNotFound)
		_, err = f.wall.ListComments(ctx, bob.ID, id, 0, 0)
		assertCode(t, err, models.CodeNotFound)
		_, err = f.wall.CreateComment(ctx, CreateCommentInput{ActorID: bob.ID, PostID: id, Content: "peek"})
		assertCode(t, err, models.CodeNotFound)

		got, err := f.wall.GetPost(ctx, admin.ID, id)
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		_, err = f.wall.GetPost(ctx, alice.ID, id)
		assert.NoError(t, err)
	}

	page, err := f.wall.ListFeed(ctx, ListFeedInput{ViewerID: bob.ID})
	require.NoError(t, err)
	assert.Empty(t, page.Posts)

	page, err = f.wall.ListWall(ctx, alice.ID, alice.ID, "", 0)
	require.NoError(t, err)
	assert.Len(t, page.Posts, 2)
}

func TestWallService_ListFeedInput(t *testing.T) {
	f := newFixture(t, policy.DefaultRules())
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")

	_, err := f.wall.ListFeed(ctx, ListFeedInput{ViewerID: alice.ID, Cursor: "%%%"})
	assertCode(t, err, models.CodeValidation)
	_, err = f.wall.ListFeed(ctx, ListFeedInput{ViewerID: alice.ID, Limit: 101})
	assertCode(t, err, models.CodeValidation)
	_, err = f.wall.ListWall(ctx, alice.ID, 9999, "", 0)
	assertCode(t, err, models.CodeNotFound)

	for i := 0; i < 3; i++ {
		_, err := f.wall.CreatePost(ctx, CreatePostInput{ActorID: alice.ID, Content: "post"})
		require.NoError(t, err)
	}
	page, err := f.wall.ListFeed(ctx, ListFeedInput{ViewerID: alice.ID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Posts, 2)
	require.NotEmpty(t, page.NextCursor)

	rest, err := f.wall.ListFeed(ctx, ListFeedInput{ViewerID: alice.ID, Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	assert.Len(t, rest.Posts, 1)
	assert.Empty(t, rest.NextCursor)
}

func TestWallService_CommentNotifications(t *testing.T) {
	f := newFixture(t, policy.DefaultRules())
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")
	carol := testutil.CreateUser(t, f.db, "carol")

	post, err := f.wall.CreatePost(ctx, CreatePostInput{ActorID: alice.ID, Content: "news"})
	require.NoError(t, err)

	top, err := f.wall.CreateComment(ctx, CreateCommentInput{ActorID: bob.ID, PostID: post.ID, Content: "nice"})
	require.NoError(t, err)
	require.NotNil(t, top.Author)

	reply, err := f.wall.CreateComment(ctx, CreateCommentInput{ActorID: carol.ID, PostID: post.ID, ParentID: &top.ID, Content: "agreed"})
	require.NoError(t, err)
	ev := f.events.last(t)
	assert.Equal(t, notifications.CommentCreated, ev.Kind)
	assert.Equal(t, bob.ID, ev.ParentAuthorID)
	assert.Equal(t, alice.ID, ev.PostAuthorID)
	assert.Equal(t, reply.ID, ev.CommentID)

	aliceInbox, err := f.notifications.List(ctx, alice.ID, false, 10, 0)
	require.NoError(t, err)
	require.Len(t, aliceInbox, 2)
	for _, n := range aliceInbox {
		assert.Equal(t, models.NotificationPostComment, n.Type)
	}
	require.NotNil(t, aliceInbox[0].Actor)

	bobInbox, err := f.notifications.List(ctx, bob.ID, false, 10, 0)
	require.NoError(t, err)
	require.Len(t, bobInbox, 1)
	assert.Equal(t, models.NotificationCommentReply, bobInbox[0].Type)
	assert.Equal(t, reply.ID, bobInbox[0].TargetID)

	got, err := f.wall.GetPost(ctx, alice.ID, post.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.CommentCount)

	list, err := f.wall.ListComments(ctx, alice.ID, post.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, top.ID, list[0].ID)
}

func TestWallService_UpdateRules(t *testing.T) {
	f := newFixture(t, policy.DefaultRules())
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")
	admin := testutil.CreateAdmin(t, f.db, "root")

	post, err := f.wall.CreatePost(ctx, CreatePostInput{ActorID: alice.ID, Content: "draft"})
	require.NoError(t, err)

	_, err = f.wall.UpdatePost(ctx, UpdatePostInput{ActorID: alice.ID, PostID: post.ID, Fields: map[string]any{"author_id": bob.ID}})
	assertCode(t, err, models.CodeValidation)
	_, err = f.wall.UpdatePost(ctx, UpdatePostInput{ActorID: bob.ID, PostID: post.ID, Fields: map[string]any{"content": "mine"}})
	assertForbidden(t, err, policy.ReasonNotAuthor)
	_, err = f.wall.UpdatePost(ctx, UpdatePostInput{ActorID: admin.ID, PostID: post.ID, Fields: map[string]any{"content": "edited"}})
	assertForbidden(t, err, policy.ReasonAdminModerationOnly)
	_, err = f.wall.UpdatePost(ctx, UpdatePostInput{ActorID: alice.ID, PostID: post.ID, Fields: map[string]any{"visibility": "nobody"}})
	assertCode(t, err, models.CodeValidation)

	updated, err := f.wall.UpdatePost(ctx, UpdatePostInput{ActorID: alice.ID, PostID: post.ID, Fields: map[string]any{
		"content": "  final  ", "visibility": models.VisibilityPrivate,
	}})
	require.NoError(t, err)
	assert.Equal(t, "final", updated.Content)
	assert.Equal(t, models.VisibilityPrivate, updated.Visibility)

	comment, err := f.wall.CreateComment(ctx, CreateCommentInput{ActorID: alice.ID, PostID: post.ID, Content: "first"})
	require.NoError(t, err)
	_, err = f.wall.UpdateComment(ctx, UpdateCommentInput{ActorID: alice.ID, CommentID: comment.ID, Fields: map[string]any{"post_id": 1}})
	assertCode(t, err, models.CodeValidation)
	c, err := f.wall.UpdateComment(ctx, UpdateCommentInput{ActorID: alice.ID, CommentID: comment.ID, Fields: map[string]any{"content": "second"}})
	require.NoError(t, err)
	assert.Equal(t, "second", c.Content)
}

func TestWallService_DeleteRules(t *testing.T) {
	ctx := context.Background()

	t.Run("Wall Owner Removes Visitor Comment", func(t *testing.T) {
		f := newFixture(t, policy.DefaultRules())
		owner := testutil.CreateUser(t, f.db, "owner")
		visitor := testutil.CreateUser(t, f.db, "visitor")
		stranger := testutil.CreateUser(t, f.db, "stranger")

		post, err := f.wall.CreatePost(ctx, CreatePostInput{ActorID: visitor.ID, WallUserID: owner.ID, Content: "hi"})
		require.NoError(t, err)
		comment, err := f.wall.CreateComment(ctx, CreateCommentInput{ActorID: visitor.ID, PostID: post.ID, Content: "spam"})
		require.NoError(t, err)

		_, err = f.wall.DeleteComment(ctx, stranger.ID, comment.ID)
		assertForbidden(t, err, policy.ReasonNotOwner)

		summary, err := f.wall.DeleteComment(ctx, owner.ID, comment.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, summary.Comments)

		_, err = f.wall.DeletePost(ctx, stranger.ID, post.ID)
		assertForbidden(t, err, policy.ReasonNotOwner)
		_, err = f.wall.DeletePost(ctx, owner.ID, post.ID)
		require.NoError(t, err)
		_, err = f.wall.GetPost(ctx, owner.ID, post.ID)
		assertCode(t, err, models.CodeNotFound)
	})

	t.Run("Context Owner Deletion Disabled", func(t *testing.T) {
		f := newFixture(t, policy.Rules{AllowCrossPosting: true})
		owner := testutil.CreateUser(t, f.db, "owner")
		visitor := testutil.CreateUser(t, f.db, "visitor")
		admin := testutil.CreateAdmin(t, f.db, "root")

		post, err := f.wall.CreatePost(ctx, CreatePostInput{ActorID: visitor.ID, WallUserID: owner.ID, Content: "hi"})
		require.NoError(t, err)
		_, err = f.wall.DeletePost(ctx, owner.ID, post.ID)
		assertForbidden(t, err, policy.ReasonNotOwner)
		_, err = f.wall.DeletePost(ctx, admin.ID, post.ID)
		assert.NoError(t, err)
	})
}

func TestWallService_Shares(t *testing.T) {
	f := newFixture(t, policy.DefaultRules())
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")

	post, err := f.wall.CreatePost(ctx, CreatePostInput{ActorID: alice.ID, Content: "share me"})
	require.NoError(t, err)

	changed, err := f.wall.SharePost(ctx, bob.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = f.wall.SharePost(ctx, bob.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	got, err := f.wall.GetPost(ctx, bob.ID, post.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.ShareCount)

	changed, err = f.wall.UnsharePost(ctx, bob.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, changed)
}

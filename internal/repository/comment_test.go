package repository

import (
	"context"
	"testing"

	"github.com/yogull/yogull-social-platform-sub001/internal/models"
	"github.com/yogull/yogull-social-platform-sub001/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepository_CreateRequiresLiveParents(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "alice")
	p := createPost(t, store, u, u, models.VisibilityPublic)
	other := createPost(t, store, u, u, models.VisibilityPublic)

	err := store.Comments.Create(ctx, &models.Comment{PostID: 9999, AuthorID: u.ID, Content: "x"})
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	missing := uint(9999)
	err = store.Comments.Create(ctx, &models.Comment{PostID: p.ID, AuthorID: u.ID, Content: "x", ParentID: &missing})
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	foreign := &models.Comment{PostID: other.ID, AuthorID: u.ID, Content: "elsewhere"}
	require.NoError(t, store.Comments.Create(ctx, foreign))
	err = store.Comments.Create(ctx, &models.Comment{PostID: p.ID, AuthorID: u.ID, Content: "x", ParentID: &foreign.ID})
	assert.True(t, models.IsCode(err, models.CodeValidation))

	_, err = store.Posts.Delete(ctx, other.ID)
	require.NoError(t, err)
	err = store.Comments.Create(ctx, &models.Comment{PostID: other.ID, AuthorID: u.ID, Content: "late"})
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	got, err := store.Posts.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, got.CommentCount)
}

func TestCommentRepository_ListByPostOrdered(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "alice")
	p := createPost(t, store, u, u, models.VisibilityPublic)

	var ids []uint
	for _, text := range []string{"first", "second", "third"} {
		c := &models.Comment{PostID: p.ID, AuthorID: u.ID, Content: text}
		require.NoError(t, store.Comments.Create(ctx, c))
		ids = append(ids, c.ID)
	}

	comments, err := store.Comments.ListByPost(ctx, p.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, comments, 3)
	for i, c := range comments {
		assert.Equal(t, ids[i], c.ID)
	}

	page, err := store.Comments.ListByPost(ctx, p.ID, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[1], page[0].ID)

	got, err := store.Posts.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, got.CommentCount)
}

func TestCommentRepository_DeleteRemovesSubtree(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	p := createPost(t, store, alice, alice, models.VisibilityPublic)

	root := &models.Comment{PostID: p.ID, AuthorID: bob.ID, Content: "root"}
	require.NoError(t, store.Comments.Create(ctx, root))
	reply := &models.Comment{PostID: p.ID, AuthorID: alice.ID, Content: "reply", ParentID: &root.ID}
	require.NoError(t, store.Comments.Create(ctx, reply))
	nested := &models.Comment{PostID: p.ID, AuthorID: bob.ID, Content: "nested", ParentID: &reply.ID}
	require.NoError(t, store.Comments.Create(ctx, nested))
	sibling := &models.Comment{PostID: p.ID, AuthorID: bob.ID, Content: "sibling"}
	require.NoError(t, store.Comments.Create(ctx, sibling))

	_, err := store.Reactions.Like(ctx, models.TargetComment, nested.ID, alice.ID)
	require.NoError(t, err)
	_, err = store.Reactions.Like(ctx, models.TargetComment, sibling.ID, alice.ID)
	require.NoError(t, err)

	summary, err := store.Comments.Delete(ctx, root.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, summary.Comments)
	assert.EqualValues(t, 1, summary.Likes)

	for _, id := range []uint{root.ID, reply.ID, nested.ID} {
		_, err := store.Comments.GetByID(ctx, id)
		assert.True(t, models.IsCode(err, models.CodeNotFound))
	}

	remaining, err := store.Comments.ListByPost(ctx, p.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, sibling.ID, remaining[0].ID)
	assert.EqualValues(t, 1, remaining[0].LikeCount)

	got, err := store.Posts.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.CommentCount)

	_, err = store.Comments.Delete(ctx, root.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestCommentRepository_Update(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "alice")
	p := createPost(t, store, u, u, models.VisibilityPublic)
	c := &models.Comment{PostID: p.ID, AuthorID: u.ID, Content: "typo"}
	require.NoError(t, store.Comments.Create(ctx, c))

	updated, err := store.Comments.Update(ctx, c.ID, map[string]any{"content": "fixed"})
	require.NoError(t, err)
	assert.Equal(t, "fixed", updated.Content)
}

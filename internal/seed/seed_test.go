package seed

import (
	"context"
	"testing"

	"github.com/yogull/yogull-social-platform-sub001/internal/models"
	"github.com/yogull/yogull-social-platform-sub001/internal/repository"
	"github.com/yogull/yogull-social-platform-sub001/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeed_BuildsConsistentCommunity(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()

	opts := DefaultOptions()
	opts.Users = 5
	opts.PostsPerUser = 2
	opts.Seed = 42

	sum, err := Seed(ctx, db, opts)
	require.NoError(t, err)
	assert.Equal(t, 5, sum.Users)
	assert.Equal(t, 10, sum.Posts)
	assert.Equal(t, 30, sum.Comments)
	assert.Equal(t, opts.Discussions, sum.Discussions)
	assert.Equal(t, opts.ChatRooms, sum.ChatRooms)

	var posts []models.Post
	require.NoError(t, db.Find(&posts).Error)
	require.Len(t, posts, 10)
	for _, p := range posts {
		assert.EqualValues(t, 3, p.CommentCount, "post %d", p.ID)
		var likes int64
		require.NoError(t, db.Model(&models.Like{}).
			Where("target_type = ? AND target_id = ?", models.TargetPost, p.ID).Count(&likes).Error)
		assert.Equal(t, likes, p.LikeCount, "post %d", p.ID)
	}

	var discussions []models.Discussion
	require.NoError(t, db.Find(&discussions).Error)
	for _, d := range discussions {
		assert.EqualValues(t, 3, d.MessageCount)
		assert.GreaterOrEqual(t, d.ParticipantCount, int64(1))
	}

	var rooms []models.ChatRoom
	require.NoError(t, db.Find(&rooms).Error)
	for _, r := range rooms {
		assert.EqualValues(t, 6, r.LastMessageSeq)
	}

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	for _, u := range users {
		assert.Equal(t, SeedProvider, u.Provider)
		assert.NotEmpty(t, u.DisplayName)
	}
}

func TestSeed_RejectsTooFewUsers(t *testing.T) {
	db := testutil.NewTestDB(t)
	_, err := Seed(context.Background(), db, Options{Users: 1})
	require.Error(t, err)
}

func TestSeed_CleanReplacesData(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()

	opts := DefaultOptions()
	opts.Users = 3
	_, err := Seed(ctx, db, opts)
	require.NoError(t, err)

	opts.Clean = true
	_, err = Seed(ctx, db, opts)
	require.NoError(t, err)

	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.EqualValues(t, 3, users)

	var categories int64
	require.NoError(t, db.Model(&models.DiscussionCategory{}).Count(&categories).Error)
	assert.EqualValues(t, len(categoryNames), categories)
}

func TestFactory_CreateGalleryAttachesFiles(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	store := repository.NewStore(db)
	f := NewFactory(store, 7)

	owner, err := f.CreateUser(ctx)
	require.NoError(t, err)

	gallery, items, err := f.CreateGallery(ctx, owner, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, owner.ID, gallery.OwnerID)

	for _, item := range items {
		refs, err := store.Media.CurrentReferences(ctx, item.FileID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, refs)
	}
}

func TestFactory_CreateCategoryIsIdempotent(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	f := NewFactory(repository.NewStore(db), 1)

	first, err := f.CreateCategory(ctx, "Local Events")
	require.NoError(t, err)
	again, err := f.CreateCategory(ctx, "Local Events")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "local-events", again.Slug)
}

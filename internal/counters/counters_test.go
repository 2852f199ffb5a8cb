package counters

import (
	"context"
	"testing"

	"github.com/yogull/yogull-social-platform-sub001/internal/models"
	"github.com/yogull/yogull-social-platform-sub001/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedPost(t *testing.T, db *gorm.DB) *models.Post {
	t.Helper()
	u := testutil.CreateUser(t, db, "author")
	p := &models.Post{ProfileUserID: u.ID, AuthorID: u.ID, Content: "hi", Visibility: models.VisibilityPublic}
	require.NoError(t, db.Create(p).Error)
	return p
}

func likeCount(t *testing.T, db *gorm.DB, id uint) int64 {
	t.Helper()
	var p models.Post
	require.NoError(t, db.First(&p, id).Error)
	return p.LikeCount
}

func TestAdjust_FloorsAtZero(t *testing.T) {
	db := testutil.NewTestDB(t)
	p := seedPost(t, db)

	require.NoError(t, Adjust(db, PostLikes, p.ID, 2))
	assert.EqualValues(t, 2, likeCount(t, db, p.ID))

	require.NoError(t, Adjust(db, PostLikes, p.ID, -5))
	assert.EqualValues(t, 0, likeCount(t, db, p.ID))

	require.NoError(t, Adjust(db, PostLikes, p.ID, 0))
	assert.EqualValues(t, 0, likeCount(t, db, p.ID))
}

func TestAdjust_RollsBackWithTransaction(t *testing.T) {
	db := testutil.NewTestDB(t)
	p := seedPost(t, db)

	err := db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, Adjust(tx, PostLikes, p.ID, 1))
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)
	assert.EqualValues(t, 0, likeCount(t, db, p.ID))
}

func TestScanAndRecountAll(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	p := seedPost(t, db)
	other := seedPost(t, db)

	fan := testutil.CreateUser(t, db, "fan")
	require.NoError(t, db.Create(&models.Like{TargetType: models.TargetPost, TargetID: p.ID, UserID: fan.ID}).Error)
	require.NoError(t, db.Create(&models.Like{TargetType: models.TargetPost, TargetID: p.ID, UserID: p.AuthorID}).Error)
	// other has a stale stored count with no likes behind it.
	require.NoError(t, db.Model(&models.Post{}).Where("id = ?", other.ID).UpdateColumn("like_count", 7).Error)

	drift, err := Scan(ctx, db, PostLikes)
	require.NoError(t, err)
	require.Len(t, drift, 2)
	assert.Equal(t, Drift{Counter: "posts.like_count", ID: p.ID, Stored: 0, Actual: 2}, drift[0])
	assert.Equal(t, Drift{Counter: "posts.like_count", ID: other.ID, Stored: 7, Actual: 0}, drift[1])

	fixed, err := RecountAll(ctx, db, PostLikes)
	require.NoError(t, err)
	assert.Len(t, fixed, 2)
	assert.EqualValues(t, 2, likeCount(t, db, p.ID))
	assert.EqualValues(t, 0, likeCount(t, db, other.ID))

	// Idempotent.
	fixed, err = RecountAll(ctx, db, PostLikes)
	require.NoError(t, err)
	assert.Empty(t, fixed)
}

func TestScan_SkipsTombstonedParents(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	p := seedPost(t, db)

	require.NoError(t, db.Model(&models.Post{}).Where("id = ?", p.ID).UpdateColumn("like_count", 3).Error)
	require.NoError(t, db.Delete(p).Error)

	drift, err := Scan(ctx, db, PostLikes)
	require.NoError(t, err)
	assert.Empty(t, drift)
}

func TestRecount_IgnoresTombstonedChildren(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	p := seedPost(t, db)

	live := &models.Comment{PostID: p.ID, AuthorID: p.AuthorID, Content: "a"}
	gone := &models.Comment{PostID: p.ID, AuthorID: p.AuthorID, Content: "b"}
	require.NoError(t, db.Create(live).Error)
	require.NoError(t, db.Create(gone).Error)
	require.NoError(t, db.Delete(gone).Error)

	require.NoError(t, Recount(ctx, db, PostComments, p.ID))

	var got models.Post
	require.NoError(t, db.First(&got, p.ID).Error)
	assert.EqualValues(t, 1, got.CommentCount)
}

func TestRegistryCountersAreScannable(t *testing.T) {
	db := testutil.NewTestDB(t)
	for _, c := range Registry {
		t.Run(c.Name(), func(t *testing.T) {
			drift, err := Scan(context.Background(), db, c)
			require.NoError(t, err)
			assert.Empty(t, drift)
		})
	}
}

package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/yogull/yogull-social-platform-sub001/internal/blobstore"
	"github.com/yogull/yogull-social-platform-sub001/internal/models"
	"github.com/yogull/yogull-social-platform-sub001/internal/policy"
	"github.com/yogull/yogull-social-platform-sub001/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGalleryService_RegisterFile(t *testing.T) {
	f := newFixture(t, policy.DefaultRules())
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")

	dir := t.TempDir()
	disk, err := blobstore.NewDisk(dir)
	require.NoError(t, err)
	galleries := NewGalleryService(f.store, policy.New(policy.DefaultRules()), disk)

	_, err = galleries.RegisterFile(ctx, RegisterFileInput{ActorID: alice.ID, ContentType: "application/pdf", SizeBytes: 10})
	assertCode(t, err, models.CodeValidation)
	_, err = galleries.RegisterFile(ctx, RegisterFileInput{ActorID: alice.ID, ContentType: "image/png", SizeBytes: 0})
	assertCode(t, err, models.CodeValidation)
	_, err = galleries.RegisterFile(ctx, RegisterFileInput{ActorID: alice.ID, StorageKey: "../etc/passwd", ContentType: "image/png", SizeBytes: 10})
	assertCode(t, err, models.CodeValidation)
	_, err = galleries.RegisterFile(ctx, RegisterFileInput{ActorID: alice.ID, StorageKey: "missing.png", ContentType: "image/png", SizeBytes: 10})
	assertCode(t, err, models.CodeValidation)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "cat.png"), []byte("png"), 0o600))
	file, err := galleries.RegisterFile(ctx, RegisterFileInput{ActorID: alice.ID, StorageKey: "cat.png", ContentType: "IMAGE/PNG", SizeBytes: 3})
	require.NoError(t, err)
	assert.Equal(t, "image/png", file.ContentType)
	assert.Equal(t, alice.ID, file.OwnerID)

	generated, err := galleries.RegisterFile(ctx, RegisterFileInput{ActorID: alice.ID, ContentType: "image/jpeg", SizeBytes: 1024})
	require.NoError(t, err)
	assert.NotEmpty(t, generated.StorageKey)
}

func TestGalleryService_ProfileImages(t *testing.T) {
	f := newFixture(t, policy.DefaultRules())
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")
	first := testutil.CreateFile(t, f.db, alice.ID)
	second := testutil.CreateFile(t, f.db, alice.ID)

	user, err := f.galleries.SetProfilePicture(ctx, alice.ID, first.ID)
	require.NoError(t, err)
	require.NotNil(t, user.ProfileImageFileID)
	assert.Equal(t, first.ID, *user.ProfileImageFileID)

	user, err = f.galleries.SetProfilePicture(ctx, alice.ID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, *user.ProfileImageFileID)

	refs, err := f.store.Media.CurrentReferences(ctx, first.ID)
	require.NoError(t, err)
	assert.Zero(t, refs, "the previous picture is released")

	user, err = f.galleries.SetCoverImage(ctx, alice.ID, first.ID)
	require.NoError(t, err)
	require.NotNil(t, user.CoverImageFileID)
	assert.Equal(t, first.ID, *user.CoverImageFileID)
	assert.Equal(t, second.ID, *user.ProfileImageFileID)

	_, err = f.galleries.SetProfilePicture(ctx, bob.ID, first.ID)
	assertForbidden(t, err, "not_owner")
}

func TestGalleryService_Items(t *testing.T) {
	f := newFixture(t, policy.DefaultRules())
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")
	admin := testutil.CreateAdmin(t, f.db, "root")
	file := testutil.CreateFile(t, f.db, alice.ID)
	bobsFile := testutil.CreateFile(t, f.db, bob.ID)

	_, err := f.galleries.CreateGallery(ctx, CreateGalleryInput{ActorID: alice.ID})
	assertCode(t, err, models.CodeValidation)
	gallery, err := f.galleries.CreateGallery(ctx, CreateGalleryInput{ActorID: alice.ID, Title: "Holiday"})
	require.NoError(t, err)

	_, err = f.galleries.AddItem(ctx, AddItemInput{ActorID: bob.ID, GalleryID: gallery.ID, FileID: bobsFile.ID})
	assertForbidden(t, err, policy.ReasonNotSelfAttributed)

	_, err = f.galleries.AddItem(ctx, AddItemInput{ActorID: alice.ID, GalleryID: gallery.ID, FileID: bobsFile.ID})
	assertForbidden(t, err, "not_owner")
	items, err := f.galleries.ListItems(ctx, gallery.ID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, items, "the item rolls back with the attachment")

	item, err := f.galleries.AddItem(ctx, AddItemInput{ActorID: alice.ID, GalleryID: gallery.ID, FileID: file.ID, Caption: "beach"})
	require.NoError(t, err)
	assert.Equal(t, "beach", item.Caption)

	views, err := f.galleries.RecordView(ctx, item.ID, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, views)
	views, err = f.galleries.RecordView(ctx, item.ID, &bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, views)

	shared, err := f.galleries.ShareItem(ctx, bob.ID, item.ID)
	require.NoError(t, err)
	assert.True(t, shared)
	_, err = f.content.ToggleLike(ctx, bob.ID, item.ID, models.TargetGalleryItem)
	require.NoError(t, err)

	list, err := f.galleries.ListGalleries(ctx, alice.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.galleries.DeleteItem(ctx, bob.ID, item.ID)
	assertForbidden(t, err, policy.ReasonNotOwner)

	summary, err := f.galleries.DeleteItem(ctx, admin.ID, item.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, summary.Likes)
	assert.EqualValues(t, 1, summary.Shares)
	assert.EqualValues(t, 2, summary.Views)

	refs, err := f.store.Media.CurrentReferences(ctx, file.ID)
	require.NoError(t, err)
	assert.Zero(t, refs)
}

package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yogull/yogull-social-platform-sub001/internal/blobstore"
	"github.com/yogull/yogull-social-platform-sub001/internal/counters"
	"github.com/yogull/yogull-social-platform-sub001/internal/models"
	"github.com/yogull/yogull-social-platform-sub001/internal/policy"
	"github.com/yogull/yogull-social-platform-sub001/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegrityService_ScanAndRepair(t *testing.T) {
	f := newFixture(t, policy.DefaultRules())
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")

	post, err := f.wall.CreatePost(ctx, CreatePostInput{ActorID: alice.ID, Content: "counted"})
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&models.Post{}).Where("id = ?", post.ID).UpdateColumn("like_count", 7).Error)

	attached := testutil.CreateFile(t, f.db, alice.ID)
	_, err = f.galleries.SetProfilePicture(ctx, alice.ID, attached.ID)
	require.NoError(t, err)
	orphan := testutil.CreateFile(t, f.db, alice.ID)

	dir := t.TempDir()
	disk, err := blobstore.NewDisk(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, orphan.StorageKey), []byte("x"), 0o600))

	svc := NewIntegrityService(f.store, disk, time.Hour)

	report, err := svc.Scan(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Orphans, "files inside the grace period are kept")
	require.Len(t, report.Drift, 1)
	assert.Equal(t, counters.Drift{Counter: counters.PostLikes.Name(), ID: post.ID, Stored: 7, Actual: 0}, report.Drift[0])

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	report, err = svc.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{orphan.ID}, report.Orphans)

	report, err = svc.Repair(ctx)
	require.NoError(t, err)
	assert.Len(t, report.Drift, 1)
	assert.Equal(t, []uint{orphan.ID}, report.Deleted)

	_, err = os.Stat(filepath.Join(dir, orphan.StorageKey))
	assert.True(t, os.IsNotExist(err), "orphan blob removed")
	_, err = f.store.Media.GetFile(ctx, attached.ID)
	assert.NoError(t, err)

	report, err = svc.Scan(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Drift)
	assert.Empty(t, report.Orphans)
}

func TestIntegrityService_RunStopsOnCancel(t *testing.T) {
	f := newFixture(t, policy.DefaultRules())
	svc := NewIntegrityService(f.store, nil, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx, 10*time.Millisecond, false)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

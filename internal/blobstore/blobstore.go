// Package blobstore removes and checks uploaded media blobs. Blob bytes are
// written by clients or an upstream pipeline; this service only tracks them.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
)

// Store is a blob backend keyed by MediaFile.StorageKey.
type Store interface {
	// Exists reports whether a blob is present under key.
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes the blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, key string) error
	Name() string
}

// Backend names accepted by BLOB_STORE.
const (
	BackendNone     = "none"
	BackendDisk     = "disk"
	BackendFirebase = "firebase"
)

// ErrInvalidKey rejects keys that could escape the store's namespace.
var ErrInvalidKey = errors.New("invalid storage key")

func validateKey(key string) error {
	if key == "" || strings.Contains(key, "..") || strings.ContainsAny(key, `/\`) {
		return ErrInvalidKey
	}
	return nil
}

// None tracks nothing: every blob exists and deletes succeed.
type None struct{}

func (None) Exists(context.Context, string) (bool, error) { return true, nil }
func (None) Delete(context.Context, string) error         { return nil }
func (None) Name() string                                 { return BackendNone }

// Disk keeps blobs as files in one directory.
type Disk struct {
	dir string
}

// NewDisk returns a disk store rooted at dir, creating it if needed.
func NewDisk(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &Disk{dir: dir}, nil
}

func (d *Disk) Exists(_ context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	_, err := os.Stat(filepath.Join(d.dir, key))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (d *Disk) Delete(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(d.dir, key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (d *Disk) Name() string { return BackendDisk }

// Firebase keeps blobs in the app's Cloud Storage bucket.
type Firebase struct {
	bucket *storage.BucketHandle
}

// NewFirebase opens bucket through the Firebase Admin SDK.
func NewFirebase(ctx context.Context, app *firebase.App, bucket string) (*Firebase, error) {
	client, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase storage: %w", err)
	}
	var handle *storage.BucketHandle
	if bucket == "" {
		handle, err = client.DefaultBucket()
	} else {
		handle, err = client.Bucket(bucket)
	}
	if err != nil {
		return nil, fmt.Errorf("firebase bucket %q: %w", bucket, err)
	}
	return &Firebase{bucket: handle}, nil
}

func (f *Firebase) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	_, err := f.bucket.Object(key).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (f *Firebase) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	err := f.bucket.Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return err
	}
	return nil
}

func (f *Firebase) Name() string { return BackendFirebase }

// Options selects and configures a backend.
type Options struct {
	Backend  string
	DiskDir  string
	Bucket   string
	Firebase *firebase.App
}

// New builds the configured backend.
func New(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendNone:
		return None{}, nil
	case BackendDisk:
		return NewDisk(opts.DiskDir)
	case BackendFirebase:
		if opts.Firebase == nil {
			return nil, errors.New("firebase blob store requires a firebase app")
		}
		return NewFirebase(ctx, opts.Firebase, opts.Bucket)
	}
	return nil, fmt.Errorf("unknown blob store %q", opts.Backend)
}

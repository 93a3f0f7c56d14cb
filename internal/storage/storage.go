// Package storage holds downloaded image blobs keyed by filename.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/lehigh-university-libraries/wellcome2commons/internal/config"
)

// ErrNotFound is returned when no blob exists under a name
var ErrNotFound = errors.New("blob not found")

// BlobStore is a flat namespace of image files
type BlobStore interface {
	// Size returns the stored byte length of name, or ErrNotFound
	Size(ctx context.Context, name string) (int64, error)
	// Put stores r under name. size may be -1 when unknown.
	Put(ctx context.Context, name string, r io.Reader, size int64) error
	// Open returns a reader for name, or ErrNotFound
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// New builds the store selected by cfg. root is a directory for the fs
// backend and a key prefix for the minio backend.
func New(ctx context.Context, cfg config.StorageConfig, root string) (BlobStore, error) {
	switch cfg.Backend {
	case config.BackendFS, "":
		fs, err := NewFS(root)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case config.BackendMinIO:
		store, err := NewMinIO(cfg.MinIO, root)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}

// Downloaded reports whether name exists with more than minSize bytes
func Downloaded(ctx context.Context, store BlobStore, name string, minSize int64) bool {
	size, err := store.Size(ctx, name)
	if err != nil {
		return false
	}
	return size > minSize
}

package blobstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternlund/datapact/internal/apperr"
)

// FS stores blobs on the local file system under a root directory. Used
// for local development and tests; same key layout as the S3 store.
type FS struct {
	root string
}

var _ Store = (*FS)(nil)

// NewFS creates a file-system store rooted at the given directory,
// creating it if needed.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("blobstore: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("blobstore: create root: %w", err)
	}
	return &FS{root: abs}, nil
}

func (f *FS) path(id string) string {
	return filepath.Join(f.root, filepath.FromSlash(Key(id)))
}

// Save writes atomically: tmp file, fsync, rename.
func (f *FS) Save(_ context.Context, id, content string) (string, error) {
	abs := f.path(id)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("%w: mkdir: %v", apperr.ErrStorageWrite, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(abs), ".datapact-tmp-*")
	if err != nil {
		return "", fmt.Errorf("%w: create temp: %v", apperr.ErrStorageWrite, err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.WriteString(content); err != nil {
		return "", fmt.Errorf("%w: write temp: %v", apperr.ErrStorageWrite, err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("%w: fsync: %v", apperr.ErrStorageWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: close temp: %v", apperr.ErrStorageWrite, err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return "", fmt.Errorf("%w: rename: %v", apperr.ErrStorageWrite, err)
	}
	success = true
	return "file://" + abs, nil
}

func (f *FS) Fetch(_ context.Context, id string) (string, bool, error) {
	data, err := os.ReadFile(f.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("blobstore: read %s: %w", id, err)
	}
	return string(data), true, nil
}

func (f *FS) Delete(_ context.Context, id string) error {
	if err := os.Remove(f.path(id)); err != nil {
		return fmt.Errorf("blobstore: delete %s: %w", id, err)
	}
	return nil
}

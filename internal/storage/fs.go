package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FS stores blobs as files in a single directory
type FS struct {
	root string
}

// NewFS creates root if needed and returns a store over it
func NewFS(root string) (*FS, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}
	return &FS{root: root}, nil
}

// Root is the directory blobs are written to
func (s *FS) Root() string {
	return s.root
}

func (s *FS) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid blob name %q", name)
	}
	return filepath.Join(s.root, name), nil
}

func (s *FS) Size(_ context.Context, name string) (int64, error) {
	p, err := s.path(name)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", name, err)
	}
	return info.Size(), nil
}

// Put writes to a temp file next to name and renames it into place once
// fully written. Concurrent writers to one name never share a temp file.
func (s *FS) Put(ctx context.Context, name string, r io.Reader, _ int64) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(s.root, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	tmp := f.Name()

	if _, err := io.Copy(f, &ctxReader{ctx: ctx, r: r}); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to set mode on %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename %s: %w", tmp, err)
	}
	return nil
}

func (s *FS) Open(_ context.Context, name string) (io.ReadCloser, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	return f, nil
}

// ctxReader stops a copy once ctx is done
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

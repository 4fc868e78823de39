package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Local stores objects as files below a root directory.
type Local struct {
	root string
}

var _ Store = (*Local)(nil)

// NewLocal creates root when missing and returns a store rooted there.
func NewLocal(root string) (*Local, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("imagestore: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("imagestore: create root: %w", err)
	}
	return &Local{root: root}, nil
}

func (l *Local) path(key string) (string, error) {
	rel := filepath.FromSlash(strings.TrimPrefix(key, "/"))
	if rel == "" || !filepath.IsLocal(rel) {
		return "", ErrInvalidKey
	}
	return filepath.Join(l.root, rel), nil
}

// Put writes body to a temporary file and renames it into place, so readers
// never observe a partial object.
func (l *Local) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	target, err := l.path(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("imagestore: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return fmt.Errorf("imagestore: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("imagestore: write %s: %w", key, err)
	}
	if size >= 0 && written != size {
		return fmt.Errorf("imagestore: write %s: expected %d bytes, got %d", key, size, written)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("imagestore: commit %s: %w", key, err)
	}
	return nil
}

// Open returns the stored file.
func (l *Local) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	target, err := l.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("imagestore: open %s: %w", key, err)
	}
	return f, nil
}

// Delete removes the file. Deleting a missing key is not an error.
func (l *Local) Delete(ctx context.Context, key string) error {
	target, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("imagestore: delete %s: %w", key, err)
	}
	return nil
}

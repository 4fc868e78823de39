// Package imagestore keeps the bytes of employee photos outside the database.
package imagestore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when no object is stored under a key.
var ErrNotFound = errors.New("imagestore: object not found")

// ErrInvalidKey is returned for keys that are empty or escape the store.
var ErrInvalidKey = errors.New("imagestore: invalid object key")

// Store persists image objects addressed by slash separated keys.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

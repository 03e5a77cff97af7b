package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotExist is returned by Open when nothing is stored at the path.
var ErrNotExist = errors.New("stored file does not exist")

// Store defines the interface for an attachment storage backend.
type Store interface {
	Save(ctx context.Context, path string, reader io.Reader) (int64, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
}

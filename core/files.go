package core

import (
	"context"
	"io"
)

// FileStore keeps uploaded files under generated names.
// Paths returned by Save are relative to the store root and are what entities persist.
type FileStore interface {
	Save(ctx context.Context, ext string, r io.Reader) (string, error)
	Open(path string) (io.ReadCloser, error)
	Remove(path string) error
}

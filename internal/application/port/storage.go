package port

import (
	"context"
	"io"
)

// FileStorage holds rendered documents between rendering and upload
type FileStorage interface {
	// Create opens a new scratch file named after name and returns its path
	Create(ctx context.Context, name string) (io.WriteCloser, string, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Remove(ctx context.Context, path string) error
}

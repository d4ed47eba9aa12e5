// Package storage is the owned image store: a bucket of uploaded cover
// images, the URLs they are served from, and the glue that assigns them to
// catalog items.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidPath    = errors.New("invalid object path")
	ErrTooLarge       = errors.New("upload exceeds size limit")
	ErrNotAnImage     = errors.New("upload is not an image")
)

// FileInfo contains metadata about a stored object.
type FileInfo struct {
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type,omitempty"`
	ModifiedAt  time.Time `json:"modified_at"`
}

// Client defines the object operations the application needs.
type Client interface {
	// List returns the objects whose path starts with prefix, sorted by path.
	List(ctx context.Context, prefix string) ([]FileInfo, error)

	// Download retrieves the contents of an object.
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// Upload writes content to path.
	Upload(ctx context.Context, path string, content io.Reader) (*FileInfo, error)

	// Delete removes an object.
	Delete(ctx context.Context, path string) error

	// Exists checks if an object exists.
	Exists(ctx context.Context, path string) (bool, error)
}

package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mrlokans/bookshelf/internal/covers"
)

// CoverAssigner persists an item's cover reference.
type CoverAssigner interface {
	AssignCover(ctx context.Context, id uint, path string) error
}

// Store is the owned-storage side of cover resolution and overrides.
type Store struct {
	client Client
	signer *URLSigner
	books  CoverAssigner
	prefix string
	now    func() time.Time
}

// NewStore wires a bucket, a URL signer and the catalog together. Uploads
// go under prefix.
func NewStore(client Client, signer *URLSigner, books CoverAssigner, prefix string) *Store {
	return &Store{
		client: client,
		signer: signer,
		books:  books,
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *Store) Prefix() string {
	return s.prefix
}

// ResolveURL returns the displayable URL of a stored object.
func (s *Store) ResolveURL(ctx context.Context, path string) (string, error) {
	return s.signer.URL(path)
}

// ListStoredImages lists the objects under prefix with their URLs.
func (s *Store) ListStoredImages(ctx context.Context, prefix string) ([]covers.StoredImage, error) {
	if prefix == "" {
		prefix = s.prefix
	}
	files, err := s.client.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	images := make([]covers.StoredImage, 0, len(files))
	for _, f := range files {
		url, err := s.signer.URL(f.Path)
		if err != nil {
			return nil, fmt.Errorf("url for %s: %w", f.Path, err)
		}
		images = append(images, covers.StoredImage{Name: f.Name, Path: f.Path, URL: url})
	}
	return images, nil
}

// AssignCover records the cleaned path as the item's cover and returns it.
// The object must exist.
func (s *Store) AssignCover(ctx context.Context, itemID uint, path string) (string, error) {
	cleaned, err := CleanPath(path)
	if err != nil {
		return "", err
	}
	ok, err := s.client.Exists(ctx, cleaned)
	if err != nil {
		return "", fmt.Errorf("check object: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrObjectNotFound, cleaned)
	}
	if err := s.books.AssignCover(ctx, itemID, cleaned); err != nil {
		return "", err
	}
	return cleaned, nil
}

// UploadCover stores a new cover image under the store prefix.
func (s *Store) UploadCover(ctx context.Context, filename string, content io.Reader) (covers.StoredImage, error) {
	name := ObjectName(s.prefix, filename, s.now())
	info, err := s.client.Upload(ctx, name, content)
	if err != nil {
		return covers.StoredImage{}, err
	}
	url, err := s.signer.URL(info.Path)
	if err != nil {
		return covers.StoredImage{}, err
	}
	return covers.StoredImage{
		Name: info.Name,
		Path: info.Path,
		URL:  url,
	}, nil
}

package http

import (
	"context"
	"io"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/covers"
	"github.com/mrlokans/bookshelf/internal/shelf"
)

// CatalogPager serves filtered catalog pages.
type CatalogPager interface {
	Page(ctx context.Context, q catalog.Query) (catalog.Page, error)
}

// ViewSessions remembers which view belongs to the caller.
type ViewSessions interface {
	ViewID(ctx context.Context) string
	SetViewID(ctx context.Context, id string)
}

// CoverCache returns a local copy of a remote cover.
type CoverCache interface {
	Get(ctx context.Context, itemID uint, coverURL string) (string, error)
}

// CoverStore is the owned storage as seen by the HTTP layer.
type CoverStore interface {
	covers.URLResolver
	UploadCover(ctx context.Context, filename string, content io.Reader) (covers.StoredImage, error)
}

// MediaFiles maps object paths to files on disk.
type MediaFiles interface {
	LocalPath(p string) (string, error)
}

// MediaVerifier checks media access tokens.
type MediaVerifier interface {
	Verify(objectPath, token string) error
}

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Catalog  CatalogPager
	Views    *shelf.Registry
	Sessions ViewSessions
	Database Pinger

	// Covers
	CoverCache   CoverCache
	Store        CoverStore
	Media        MediaFiles
	MediaSigner  MediaVerifier
	Capabilities covers.Authorizer

	// Authentication, all optional
	SessionManager *auth.SessionManager
	AuthMiddleware *auth.Middleware
	AuthController *auth.AuthController
	CSRFSecret     []byte
	SecureCookies  bool

	// Maximum accepted upload body size in bytes
	MaxUploadBytes int64

	// Application info
	Version string
}

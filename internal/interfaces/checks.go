package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/covers"
	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/http"
	"github.com/mrlokans/bookshelf/internal/metadata"
	"github.com/mrlokans/bookshelf/internal/scheduler"
	"github.com/mrlokans/bookshelf/internal/shelf"
	"github.com/mrlokans/bookshelf/internal/storage"
	"github.com/mrlokans/bookshelf/internal/tasks"
)

// =============================================================================
// Cover Resolution
// =============================================================================

var _ covers.Storage = (*storage.Store)(nil)
var _ covers.URLResolver = (*storage.Store)(nil)
var _ covers.Authorizer = (*auth.Capabilities)(nil)
var _ covers.MirrorProber = (*covers.StaticMirror)(nil)
var _ covers.CoverSearcher = (*metadata.GoogleBooksClient)(nil)
var _ covers.ThrottledSearcher = (*metadata.GoogleBooksClient)(nil)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ catalog.Repository = (*books.Repository)(nil)
var _ catalog.Upserter = (*books.Repository)(nil)
var _ storage.CoverAssigner = (*books.Repository)(nil)
var _ storage.Client = (*storage.Bucket)(nil)

// =============================================================================
// HTTP Layer
// =============================================================================

var _ http.CatalogPager = (*catalog.Service)(nil)
var _ http.ViewSessions = (*auth.SessionManager)(nil)
var _ http.CoverCache = (*covers.Cache)(nil)
var _ http.CoverStore = (*storage.Store)(nil)
var _ http.MediaFiles = (*storage.Bucket)(nil)
var _ http.MediaVerifier = (*storage.URLSigner)(nil)
var _ http.Pinger = (*database.Database)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ tasks.CoverCacher = (*covers.Cache)(nil)
var _ tasks.CachePruner = (*covers.Cache)(nil)
var _ tasks.Enqueuer = (*tasks.Client)(nil)
var _ scheduler.IdleEvicter = (*shelf.Registry)(nil)

// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// ## Cover Resolution
//
//   - covers.Storage: owned storage seen by the override workflow (storage.Store)
//   - covers.URLResolver: stored object path to displayable URL (storage.Store)
//   - covers.MirrorProber: static mirror lookups (covers.StaticMirror)
//   - covers.CoverSearcher: external search API (metadata.GoogleBooksClient)
//   - covers.Authorizer: may the caller override covers (auth.Capabilities)
//
// ## Data Access
//
//   - catalog.Repository: filtered catalog reads (books.Repository)
//   - storage.CoverAssigner: persist a cover reference (books.Repository)
//   - storage.Client: object storage (storage.Bucket)
//
// ## HTTP
//
//   - http.CatalogPager, http.ViewSessions, http.CoverCache, http.CoverStore,
//     http.MediaFiles, http.MediaVerifier, http.Pinger
//
// # Adding a New Cover Source
//
//  1. Implement a probe in internal/covers or internal/metadata:
//
//     type OpenLibraryClient struct {
//         httpClient *http.Client
//     }
//
//     func (c *OpenLibraryClient) SearchCover(ctx context.Context, title, author string) (string, error)
//
//  2. Add a covers.Source to the registry built in entrypoint.NewComponents.
//     Sources are probed in order; a Claims func makes a source final for
//     the items it claims.
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for examples.
package interfaces

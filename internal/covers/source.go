// Package covers resolves displayable cover images for catalog items.
//
// Resolution walks an ordered registry of sources for each item (owned
// storage, a static mirror, an external search API) and stops at the first
// hit. A Coordinator fans the per-item resolution out over a whole page of
// items and publishes the result only if no newer page was requested in the
// meantime. An OverrideWorkflow lets privileged users assign a stored image
// to one item and patches the published set in place.
package covers

import (
	"context"
	"regexp"
	"strings"
)

// SourceKind identifies which tier satisfied a resolution.
type SourceKind string

const (
	SourceNone              SourceKind = ""
	SourceOwnedStorage      SourceKind = "owned-storage"
	SourceStaticMirror      SourceKind = "static-mirror"
	SourceExternalSearchAPI SourceKind = "external-search-api"
)

// Item is a catalog entry as handed over by the catalog collaborator.
// CoverRef is nil when unresolved, empty when the item has no stored cover,
// or a path into owned storage.
type Item struct {
	ID       uint    `json:"id"`
	Title    string  `json:"title"`
	Author   string  `json:"author"`
	Language string  `json:"language"`
	Country  string  `json:"country"`
	Pages    int     `json:"pages"`
	Year     int     `json:"year"`
	Link     string  `json:"link,omitempty"`
	CoverRef *string `json:"cover_ref"`
}

// HasCoverRef reports whether the item points at a stored cover.
func (i Item) HasCoverRef() bool {
	return i.CoverRef != nil && *i.CoverRef != ""
}

// ResolvedItem is an Item with its resolved cover. Published values are
// never mutated; an override replaces the whole value.
type ResolvedItem struct {
	Item
	CoverURL    *string    `json:"cover_url"`
	CoverSource SourceKind `json:"cover_source"`
}

// HasCover reports whether a displayable URL was found.
func (r ResolvedItem) HasCover() bool {
	return r.CoverURL != nil && *r.CoverURL != ""
}

// ProbeFunc looks up a cover URL for an item. An empty URL with a nil error
// is a miss.
type ProbeFunc func(ctx context.Context, item Item) (string, error)

// Source is one tier of the fallback chain.
type Source struct {
	Kind SourceKind

	// Claims, when set, restricts the source to the items it claims and
	// makes its answer final for them: later sources are not consulted even
	// on a miss. Unclaimed items skip the source. A nil Claims means the
	// source is probed for every item and a miss falls through.
	Claims func(Item) bool

	// Admit, when set, is called with the batch context before the probe
	// and its timeout start. It blocks until the source may be called; an
	// error counts as a failed probe.
	Admit func(ctx context.Context, item Item) error

	Probe ProbeFunc
}

// Registry is the ordered, immutable list of sources.
type Registry struct {
	sources []Source
}

// NewRegistry creates a registry probing sources in the given order.
func NewRegistry(sources ...Source) *Registry {
	return &Registry{sources: append([]Source(nil), sources...)}
}

// Sources returns the sources in priority order.
func (r *Registry) Sources() []Source {
	return append([]Source(nil), r.sources...)
}

// URLResolver turns an owned-storage path into a displayable URL.
type URLResolver interface {
	ResolveURL(ctx context.Context, path string) (string, error)
}

// MirrorProber checks whether a static mirror hosts an image for a slug.
type MirrorProber interface {
	Probe(ctx context.Context, slug string) (string, error)
}

// CoverSearcher queries an external book search API for a cover image.
// An empty author means the query is built from the title alone.
type CoverSearcher interface {
	SearchCover(ctx context.Context, title, author string) (string, error)
}

// ThrottledSearcher is a CoverSearcher behind a rate limiter. Wait takes a
// token; LookupCover then makes the call without taking another one.
type ThrottledSearcher interface {
	CoverSearcher
	Wait(ctx context.Context) error
	LookupCover(ctx context.Context, title, author string) (string, error)
}

// DefaultRegistry builds the resolution policy used by the service:
// owned storage for items with a cover ref, then the static mirror keyed by
// the title slug, then the external search API.
func DefaultRegistry(storage URLResolver, mirror MirrorProber, search CoverSearcher) *Registry {
	return NewRegistry(
		Source{
			Kind:   SourceOwnedStorage,
			Claims: Item.HasCoverRef,
			Probe: func(ctx context.Context, item Item) (string, error) {
				return storage.ResolveURL(ctx, *item.CoverRef)
			},
		},
		Source{
			Kind: SourceStaticMirror,
			Probe: func(ctx context.Context, item Item) (string, error) {
				slug := Slugify(item.Title)
				if slug == "" {
					return "", nil
				}
				return mirror.Probe(ctx, slug)
			},
		},
		searchSource(search),
	)
}

// searchSource queues throttled searchers on the batch context so that
// waiting for a token never eats into the probe timeout.
func searchSource(search CoverSearcher) Source {
	src := Source{Kind: SourceExternalSearchAPI}
	lookup := search.SearchCover
	if throttled, ok := search.(ThrottledSearcher); ok {
		src.Admit = func(ctx context.Context, item Item) error {
			if !searchable(item) {
				return nil
			}
			return throttled.Wait(ctx)
		}
		lookup = throttled.LookupCover
	}
	src.Probe = func(ctx context.Context, item Item) (string, error) {
		if !searchable(item) {
			return "", nil
		}
		return lookup(ctx, item.Title, SearchAuthor(item.Author))
	}
	return src
}

func searchable(item Item) bool {
	return strings.TrimSpace(item.Title) != ""
}

var (
	slugStrip      = regexp.MustCompile(`[^a-z0-9\s]`)
	slugWhitespace = regexp.MustCompile(`\s+`)
)

// Slugify derives the mirror filename from a title: lower-case, drop
// everything but ASCII letters, digits and whitespace, then replace each
// whitespace run with a single hyphen.
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = slugStrip.ReplaceAllString(s, "")
	return slugWhitespace.ReplaceAllString(s, "-")
}

// SearchAuthor returns the author to include in a search query, or "" when
// the author is missing or the "unknown" placeholder.
func SearchAuthor(author string) string {
	author = strings.TrimSpace(author)
	if strings.EqualFold(author, "unknown") {
		return ""
	}
	return author
}

// Package shelf keeps one catalog view per browsing session. A view pairs
// the cover Coordinator holding the published page with the override
// workflow acting on it, plus the catalog metadata of that page.
package shelf

import (
	"context"
	"sync"

	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/covers"
)

// ViewState is the JSON-ready state of a view.
type ViewState struct {
	ID          string                `json:"view_id"`
	Generation  uint64                `json:"generation"`
	IsResolving bool                  `json:"is_resolving"`
	Items       []covers.ResolvedItem `json:"items"`
	Total       int64                 `json:"total"`
	TotalPages  int                   `json:"total_pages"`
	Page        int                   `json:"page"`
	PerPage     int                   `json:"per_page"`
	Countries   []string              `json:"countries"`
	Languages   []string              `json:"languages"`
	Override    covers.OverrideStatus `json:"override"`
}

type pageMeta struct {
	generation uint64
	total      int64
	totalPages int
	page       int
	perPage    int
	countries  []string
	languages  []string
}

// View is one session's catalog page and its covers.
type View struct {
	id       string
	coord    *covers.Coordinator
	override *covers.OverrideWorkflow

	mu   sync.Mutex
	meta pageMeta
}

// NewView creates an empty view.
func NewView(id string, coord *covers.Coordinator, override *covers.OverrideWorkflow) *View {
	return &View{
		id:       id,
		coord:    coord,
		override: override,
		meta:     pageMeta{page: 1, perPage: catalog.DefaultPerPage, totalPages: 1},
	}
}

func (v *View) ID() string { return v.id }

func (v *View) Coordinator() *covers.Coordinator { return v.coord }

func (v *View) Override() *covers.OverrideWorkflow { return v.override }

// PageFunc reads one catalog page.
type PageFunc func(ctx context.Context) (catalog.Page, error)

// Fetch reads a page with fetch and loads it. Overrides persisted while the
// page is being read are kept over what the page says.
func (v *View) Fetch(ctx context.Context, fetch PageFunc) (ViewState, covers.BatchResult, error) {
	mark := v.coord.Mark()
	page, err := fetch(ctx)
	if err != nil {
		return ViewState{}, covers.BatchResult{}, err
	}
	state, result := v.load(ctx, mark, page)
	return state, result, nil
}

// Load resolves covers for page and returns the resulting state. The
// BatchResult tells whether this page was published or superseded by a
// newer Load; in the latter case the state is whatever is published.
func (v *View) Load(ctx context.Context, page catalog.Page) (ViewState, covers.BatchResult) {
	return v.load(ctx, v.coord.Mark(), page)
}

func (v *View) load(ctx context.Context, mark uint64, page catalog.Page) (ViewState, covers.BatchResult) {
	result := v.coord.SubmitSince(ctx, mark, page.Items)
	if result.Published {
		v.mu.Lock()
		// Two published batches can race here; keep the newer metadata.
		if result.Generation > v.meta.generation {
			v.meta = pageMeta{
				generation: result.Generation,
				total:      page.Total,
				totalPages: page.TotalPages,
				page:       page.Page,
				perPage:    page.PerPage,
				countries:  page.Countries,
				languages:  page.Languages,
			}
		}
		v.mu.Unlock()
	}
	return v.Snapshot(), result
}

// Snapshot returns a copy of the current state.
func (v *View) Snapshot() ViewState {
	snap := v.coord.Snapshot()

	v.mu.Lock()
	meta := v.meta
	v.mu.Unlock()

	items := snap.Items
	if items == nil {
		items = []covers.ResolvedItem{}
	}
	return ViewState{
		ID:          v.id,
		Generation:  snap.Generation,
		IsResolving: snap.IsResolving,
		Items:       items,
		Total:       meta.total,
		TotalPages:  meta.totalPages,
		Page:        meta.page,
		PerPage:     meta.perPage,
		Countries:   nonNil(meta.countries),
		Languages:   nonNil(meta.languages),
		Override:    v.override.Status(),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string(nil), s...)
}

// StartOverride begins a cover override for a published item.
func (v *View) StartOverride(ctx context.Context, itemID uint) (ViewState, error) {
	_, err := v.override.Start(ctx, itemID)
	return v.Snapshot(), err
}

// SelectCandidate assigns a listed stored image to the override target.
func (v *View) SelectCandidate(ctx context.Context, path string) (ViewState, error) {
	_, err := v.override.Select(ctx, path)
	return v.Snapshot(), err
}

// CancelOverride abandons the active override, if any.
func (v *View) CancelOverride() ViewState {
	v.override.Cancel()
	return v.Snapshot()
}

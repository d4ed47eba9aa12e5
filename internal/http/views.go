package http

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/covers"
	"github.com/mrlokans/bookshelf/internal/shelf"
)

// BooksResponse is a view state plus whether the request lost to a newer one.
type BooksResponse struct {
	shelf.ViewState
	Superseded bool `json:"superseded"`
}

// SelectCandidateRequest is the body of POST /api/covers/override/select.
type SelectCandidateRequest struct {
	Path string `json:"path" binding:"required"`
}

// ViewsController serves the catalog through the caller's view.
type ViewsController struct {
	catalog  CatalogPager
	views    *shelf.Registry
	sessions ViewSessions
	cache    CoverCache
	store    covers.URLResolver
}

// NewViewsController creates a ViewsController. sessions, cache and store
// may be nil.
func NewViewsController(pager CatalogPager, views *shelf.Registry, sessions ViewSessions, cache CoverCache, store covers.URLResolver) *ViewsController {
	return &ViewsController{
		catalog:  pager,
		views:    views,
		sessions: sessions,
		cache:    cache,
		store:    store,
	}
}

// view returns the caller's view, creating one and remembering it in the
// session when needed.
func (vc *ViewsController) view(c *gin.Context) *shelf.View {
	ctx := c.Request.Context()
	id := ""
	if vc.sessions != nil {
		id = vc.sessions.ViewID(ctx)
	}
	view, created := vc.views.GetOrCreate(id)
	if created && vc.sessions != nil {
		vc.sessions.SetViewID(ctx, view.ID())
	}
	return view
}

// ListBooks loads a catalog page into the caller's view.
// GET /api/books
func (vc *ViewsController) ListBooks(c *gin.Context) {
	var q catalog.Query
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBadRequest(c, "invalid query parameters")
		return
	}

	state, result, err := vc.view(c).Fetch(c.Request.Context(), func(ctx context.Context) (catalog.Page, error) {
		return vc.catalog.Page(ctx, q)
	})
	if errors.Is(err, catalog.ErrInvalidPagesRange) || errors.Is(err, catalog.ErrInvalidCentury) {
		respondBadRequest(c, err.Error())
		return
	}
	if err != nil {
		respondInternalError(c, err, "load catalog page")
		return
	}

	c.JSON(http.StatusOK, BooksResponse{
		ViewState:  state,
		Superseded: !result.Published,
	})
}

// GetView returns the caller's current view state.
// GET /api/view
func (vc *ViewsController) GetView(c *gin.Context) {
	c.JSON(http.StatusOK, vc.view(c).Snapshot())
}

// GetCover serves the published cover of an item in the caller's view.
// GET /api/books/:id/cover
func (vc *ViewsController) GetCover(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	item, found := vc.view(c).Coordinator().Lookup(id)
	if !found || !item.HasCover() {
		respondNotFound(c, "cover")
		return
	}
	coverURL := *item.CoverURL

	if item.CoverSource == covers.SourceOwnedStorage {
		// Signed URLs expire, so owned covers get a fresh one.
		if vc.store != nil && item.HasCoverRef() {
			if fresh, err := vc.store.ResolveURL(c.Request.Context(), *item.CoverRef); err == nil {
				coverURL = fresh
			}
		}
		c.Redirect(http.StatusFound, coverURL)
		return
	}

	if vc.cache == nil {
		c.Redirect(http.StatusTemporaryRedirect, coverURL)
		return
	}
	cachePath, err := vc.cache.Get(c.Request.Context(), id, coverURL)
	if err != nil || cachePath == "" {
		if err != nil {
			log.Printf("Cover cache miss for item %d: %v", id, err)
		}
		c.Redirect(http.StatusTemporaryRedirect, coverURL)
		return
	}
	c.File(cachePath)
}

// StartOverride starts a cover override for an item.
// POST /api/books/:id/cover/override
func (vc *ViewsController) StartOverride(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	state, err := vc.view(c).StartOverride(c.Request.Context(), id)
	if err != nil {
		respondOverrideError(c, err, state)
		return
	}
	c.JSON(http.StatusOK, state)
}

// OverrideStatus returns the caller's override state.
// GET /api/covers/override
func (vc *ViewsController) OverrideStatus(c *gin.Context) {
	c.JSON(http.StatusOK, vc.view(c).Override().Status())
}

// SelectCandidate assigns a stored image to the override target.
// POST /api/covers/override/select
func (vc *ViewsController) SelectCandidate(c *gin.Context) {
	var req SelectCandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "path is required")
		return
	}
	state, err := vc.view(c).SelectCandidate(c.Request.Context(), req.Path)
	if err != nil {
		respondOverrideError(c, err, state)
		return
	}
	c.JSON(http.StatusOK, state)
}

// CancelOverride abandons the caller's override.
// DELETE /api/covers/override
func (vc *ViewsController) CancelOverride(c *gin.Context) {
	c.JSON(http.StatusOK, vc.view(c).CancelOverride())
}

// OverrideErrorResponse carries the view state alongside the error so the
// client can re-render.
type OverrideErrorResponse struct {
	ErrorResponse
	View shelf.ViewState `json:"view"`
}

func respondOverrideError(c *gin.Context, err error, state shelf.ViewState) {
	var status int
	var code string
	switch {
	case errors.Is(err, covers.ErrOverridePersist):
		status, code = http.StatusBadGateway, "override_persist_failed"
	case errors.Is(err, covers.ErrOverrideInProgress):
		status, code = http.StatusConflict, "override_in_progress"
	case errors.Is(err, covers.ErrNoActiveOverride):
		status, code = http.StatusConflict, "no_active_override"
	case errors.Is(err, covers.ErrOverrideForbidden):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(err, covers.ErrItemNotFound):
		status, code = http.StatusNotFound, "item_not_found"
	case errors.Is(err, covers.ErrUnknownCandidate):
		status, code = http.StatusBadRequest, "unknown_candidate"
	default:
		respondInternalError(c, err, "cover override")
		return
	}
	c.JSON(status, OverrideErrorResponse{
		ErrorResponse: ErrorResponse{Error: err.Error(), Code: code},
		View:          state,
	})
}

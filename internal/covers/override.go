package covers

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// OverrideState is the override workflow state. Applied and failed are only
// reported as the last outcome; the workflow itself returns to idle or
// browsing right away.
type OverrideState string

const (
	StateIdle      OverrideState = "idle"
	StateBrowsing  OverrideState = "browsing"
	StateAssigning OverrideState = "assigning"
	StateApplied   OverrideState = "applied"
	StateFailed    OverrideState = "failed"
)

var (
	ErrOverrideInProgress = errors.New("override already in progress")
	ErrOverrideForbidden  = errors.New("not allowed to override covers")
	ErrNoActiveOverride   = errors.New("no override in progress")
	ErrUnknownCandidate   = errors.New("image is not one of the stored candidates")
	ErrItemNotFound       = errors.New("item is not in the current view")
	ErrOverridePersist    = errors.New("failed to save cover")
)

// StoredImage is an image already uploaded to owned storage.
type StoredImage struct {
	Name string `json:"name"`
	Path string `json:"path"`
	URL  string `json:"url"`
}

// Storage is the persistence collaborator used by the workflow.
type Storage interface {
	URLResolver
	ListStoredImages(ctx context.Context, prefix string) ([]StoredImage, error)
	// AssignCover persists path as the item's cover and returns the path
	// as stored.
	AssignCover(ctx context.Context, itemID uint, path string) (string, error)
}

// Authorizer tells whether the caller in ctx may override covers.
type Authorizer interface {
	CanOverrideCovers(ctx context.Context) bool
}

// OverrideStatus is the workflow state exposed to the presentation layer.
type OverrideStatus struct {
	State       OverrideState `json:"state"`
	ItemID      uint          `json:"item_id,omitempty"`
	Candidates  []StoredImage `json:"candidates,omitempty"`
	LastOutcome OverrideState `json:"last_outcome,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// OverrideWorkflow assigns a stored image to one published item. At most
// one override is active at a time; a second Start is rejected with
// ErrOverrideInProgress. Local state is patched only after the storage
// write succeeds.
type OverrideWorkflow struct {
	coord   *Coordinator
	storage Storage
	auth    Authorizer
	prefix  string

	mu          sync.Mutex
	state       OverrideState
	session     uint64
	target      ResolvedItem
	candidates  []StoredImage
	lastOutcome OverrideState
	errMsg      string
}

// NewOverrideWorkflow creates an idle workflow patching coord.
func NewOverrideWorkflow(coord *Coordinator, storage Storage, auth Authorizer) *OverrideWorkflow {
	return &OverrideWorkflow{
		coord:   coord,
		storage: storage,
		auth:    auth,
		state:   StateIdle,
	}
}

// SetPrefix restricts the candidate listing to a storage prefix (optional).
func (w *OverrideWorkflow) SetPrefix(prefix string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prefix = prefix
}

// Start begins an override for a published item and lists the stored
// candidates.
func (w *OverrideWorkflow) Start(ctx context.Context, itemID uint) (OverrideStatus, error) {
	if !w.auth.CanOverrideCovers(ctx) {
		return w.Status(), ErrOverrideForbidden
	}

	w.mu.Lock()
	if w.state != StateIdle {
		defer w.mu.Unlock()
		return w.statusLocked(), ErrOverrideInProgress
	}
	target, ok := w.coord.Lookup(itemID)
	if !ok {
		defer w.mu.Unlock()
		return w.statusLocked(), ErrItemNotFound
	}
	w.session++
	session := w.session
	w.state = StateBrowsing
	w.target = target
	w.candidates = nil
	w.lastOutcome = ""
	w.errMsg = ""
	prefix := w.prefix
	w.mu.Unlock()

	candidates, err := w.storage.ListStoredImages(ctx, prefix)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.session != session {
		return w.statusLocked(), ErrNoActiveOverride
	}
	if err != nil {
		w.resetLocked()
		w.errMsg = "Could not load stored images: " + err.Error()
		return w.statusLocked(), fmt.Errorf("list stored images: %w", err)
	}

	w.candidates = candidates
	return w.statusLocked(), nil
}

// Select persists the chosen candidate for the item being overridden.
// On success the published item is patched and the workflow goes idle; on
// failure nothing local changes and the workflow goes back to browsing.
func (w *OverrideWorkflow) Select(ctx context.Context, path string) (OverrideStatus, error) {
	if !w.auth.CanOverrideCovers(ctx) {
		return w.Status(), ErrOverrideForbidden
	}

	w.mu.Lock()
	switch w.state {
	case StateIdle:
		defer w.mu.Unlock()
		return w.statusLocked(), ErrNoActiveOverride
	case StateAssigning:
		defer w.mu.Unlock()
		return w.statusLocked(), ErrOverrideInProgress
	}
	candidate, ok := w.findCandidateLocked(path)
	if !ok {
		defer w.mu.Unlock()
		return w.statusLocked(), ErrUnknownCandidate
	}
	w.state = StateAssigning
	w.errMsg = ""
	session := w.session
	target := w.target
	w.mu.Unlock()

	stored, err := w.storage.AssignCover(ctx, target.ID, candidate.Path)
	if err != nil {
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.session == session {
			w.state = StateBrowsing
			w.lastOutcome = StateFailed
			w.errMsg = ErrOverridePersist.Error() + ": " + err.Error()
		}
		return w.statusLocked(), fmt.Errorf("%w: %w", ErrOverridePersist, err)
	}

	url, err := w.storage.ResolveURL(ctx, stored)
	if err != nil || url == "" {
		url = candidate.URL
	}

	// The write is durable at this point, so the patch goes in even if the
	// user cancelled meanwhile.
	base := target
	if current, ok := w.coord.Lookup(target.ID); ok {
		base = current
	}
	w.coord.Patch(withStoredCover(base, stored, url))

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session == session {
		w.resetLocked()
		w.lastOutcome = StateApplied
	}
	return w.statusLocked(), nil
}

// Cancel drops any active override and its candidates.
func (w *OverrideWorkflow) Cancel() OverrideStatus {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.session++
	w.resetLocked()
	w.lastOutcome = ""
	w.errMsg = ""
	return w.statusLocked()
}

// Status returns the current workflow state.
func (w *OverrideWorkflow) Status() OverrideStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.statusLocked()
}

func (w *OverrideWorkflow) statusLocked() OverrideStatus {
	status := OverrideStatus{
		State:       w.state,
		LastOutcome: w.lastOutcome,
		Error:       w.errMsg,
	}
	if w.state != StateIdle {
		status.ItemID = w.target.ID
		status.Candidates = append([]StoredImage(nil), w.candidates...)
	}
	return status
}

func (w *OverrideWorkflow) resetLocked() {
	w.state = StateIdle
	w.target = ResolvedItem{}
	w.candidates = nil
}

func (w *OverrideWorkflow) findCandidateLocked(path string) (StoredImage, bool) {
	for _, c := range w.candidates {
		if c.Path == path {
			return c, true
		}
	}
	return StoredImage{}, false
}

func withStoredCover(item ResolvedItem, path, url string) ResolvedItem {
	ref := path
	item.CoverRef = &ref
	item.CoverURL = &url
	item.CoverSource = SourceOwnedStorage
	return item
}

package shelf

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mrlokans/bookshelf/internal/covers"
)

// DefaultIdleTimeout is used when the registry is given no idle timeout.
const DefaultIdleTimeout = 30 * time.Minute

type entry struct {
	view       *View
	lastAccess time.Time
}

// Registry owns the live views, keyed by an opaque ID stored in the
// caller's session. All views share one resolver and storage.
type Registry struct {
	resolver  *covers.Resolver
	storage   covers.Storage
	auth      covers.Authorizer
	prefix    string
	onPublish covers.PublishFunc
	idle      time.Duration
	now       func() time.Time

	mu    sync.Mutex
	views map[string]*entry
}

// NewRegistry creates an empty registry.
func NewRegistry(resolver *covers.Resolver, storage covers.Storage, auth covers.Authorizer, idle time.Duration) *Registry {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &Registry{
		resolver: resolver,
		storage:  storage,
		auth:     auth,
		idle:     idle,
		now:      time.Now,
		views:    make(map[string]*entry),
	}
}

// SetCandidatePrefix restricts override candidates of new views to a
// storage prefix.
func (r *Registry) SetCandidatePrefix(prefix string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefix = prefix
}

// OnPublish installs a hook on the coordinator of every new view.
func (r *Registry) OnPublish(fn covers.PublishFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onPublish = fn
}

// Get returns the view with id and marks it as used.
func (r *Registry) Get(id string) (*View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.views[id]
	if !ok {
		return nil, false
	}
	e.lastAccess = r.now()
	return e.view, true
}

// GetOrCreate returns the view with id, or a fresh view with a new ID when
// id is empty or unknown (for example after eviction). created reports the
// latter.
func (r *Registry) GetOrCreate(id string) (view *View, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if e, ok := r.views[id]; ok && id != "" {
		e.lastAccess = now
		return e.view, false
	}

	view = r.newViewLocked(uuid.NewString())
	r.views[view.ID()] = &entry{view: view, lastAccess: now}
	return view, true
}

func (r *Registry) newViewLocked(id string) *View {
	coord := covers.NewCoordinator(r.resolver)
	if r.onPublish != nil {
		coord.OnPublish(r.onPublish)
	}
	override := covers.NewOverrideWorkflow(coord, r.storage, r.auth)
	if r.prefix != "" {
		override.SetPrefix(r.prefix)
	}
	return NewView(id, coord, override)
}

// Remove drops a view, e.g. on logout.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.views, id)
}

// Len returns the number of live views.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// EvictIdle removes views not accessed within the idle timeout and returns
// how many were removed. A batch still resolving in an evicted view
// completes but is no longer reachable.
func (r *Registry) EvictIdle() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idle)
	removed := 0
	for id, e := range r.views {
		if e.lastAccess.Before(cutoff) {
			delete(r.views, id)
			removed++
		}
	}
	if removed > 0 {
		log.Printf("[VIEWS] Evicted %d idle views, %d remaining", removed, len(r.views))
	}
	return removed
}

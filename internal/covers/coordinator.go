package covers

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// BatchResult describes the outcome of one Submit call.
type BatchResult struct {
	Generation uint64
	// Published is false when a newer batch was requested before this one
	// settled, or when the caller gave up; the items were then discarded.
	Published bool
	Items     []ResolvedItem
}

// Snapshot is a copy of the published state.
type Snapshot struct {
	Generation  uint64         `json:"generation"`
	Items       []ResolvedItem `json:"items"`
	IsResolving bool           `json:"is_resolving"`
}

// PublishFunc is called after a batch is published, outside the lock.
type PublishFunc func(generation uint64, items []ResolvedItem)

type patch struct {
	seq  uint64
	item ResolvedItem
}

// Coordinator resolves batches of items concurrently and owns the published
// set. The latest requested batch wins: results of a batch superseded by a
// newer Submit are never published, whatever order they complete in.
type Coordinator struct {
	resolver  *Resolver
	onPublish PublishFunc

	mu         sync.Mutex
	issued     uint64 // latest generation handed out
	accepted   uint64 // generation of the published set
	settled    uint64 // latest issued generation that finished
	seq        uint64 // bumped by every patch
	published  []ResolvedItem
	patches    map[uint]patch
	cancelPrev context.CancelFunc
}

// NewCoordinator creates a coordinator using the given resolver.
func NewCoordinator(resolver *Resolver) *Coordinator {
	return &Coordinator{
		resolver: resolver,
		patches:  make(map[uint]patch),
	}
}

// OnPublish sets the publish hook (optional).
func (c *Coordinator) OnPublish(fn PublishFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onPublish = fn
}

// Mark returns the current patch position. Take it before reading the items
// handed to SubmitSince so that patches made while reading are not lost.
func (c *Coordinator) Mark() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Submit starts a new generation for items read just now. See SubmitSince.
func (c *Coordinator) Submit(ctx context.Context, items []Item) BatchResult {
	return c.SubmitSince(ctx, c.Mark(), items)
}

// SubmitSince starts a new generation for items read after mark and blocks
// until every item has settled. Starting a generation cancels the previous
// batch's probes; the previous batch is dropped regardless. Patches made
// after mark override what the batch resolved for the same item.
func (c *Coordinator) SubmitSince(ctx context.Context, mark uint64, items []Item) BatchResult {
	c.mu.Lock()
	c.issued++
	gen := c.issued
	if c.cancelPrev != nil {
		c.cancelPrev()
	}
	batchCtx, cancel := context.WithCancel(ctx)
	c.cancelPrev = cancel
	c.mu.Unlock()
	defer cancel()

	results := make([]ResolvedItem, len(items))
	var g errgroup.Group
	for i, item := range items {
		g.Go(func() error {
			results[i] = c.resolver.Resolve(batchCtx, item)
			return nil
		})
	}
	_ = g.Wait()

	c.mu.Lock()
	if gen != c.issued {
		c.mu.Unlock()
		return BatchResult{Generation: gen, Items: results}
	}
	c.settled = gen
	if ctx.Err() != nil {
		c.mu.Unlock()
		return BatchResult{Generation: gen, Items: results}
	}

	for i := range results {
		if p, ok := c.patches[results[i].ID]; ok && p.seq > mark {
			results[i] = p.item
		}
	}
	// The items of this batch were read after these patches were persisted.
	for id, p := range c.patches {
		if p.seq <= mark {
			delete(c.patches, id)
		}
	}

	c.published = results
	c.accepted = gen
	hook := c.onPublish
	out := c.copyPublished()
	c.mu.Unlock()

	if hook != nil {
		hook(gen, c.copyOf(out))
	}

	return BatchResult{Generation: gen, Published: true, Items: out}
}

// Snapshot returns a copy of the published set.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		Generation:  c.accepted,
		Items:       c.copyPublished(),
		IsResolving: c.issued != c.settled,
	}
}

// Lookup returns the published entry for an item.
func (c *Coordinator) Lookup(id uint) (ResolvedItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, item := range c.published {
		if item.ID == id {
			return item, true
		}
	}
	return ResolvedItem{}, false
}

// Patch replaces the published entry for item.ID without re-resolving
// anything. Call it only after the change is persisted. The patch is
// remembered until a batch whose items were read after it is published, so
// batches read earlier cannot overwrite it. Returns false when the item is
// not in the published set.
func (c *Coordinator) Patch(item ResolvedItem) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.patches[item.ID] = patch{seq: c.seq, item: item}

	replaced := false
	for i := range c.published {
		if c.published[i].ID == item.ID {
			c.published[i] = item
			replaced = true
		}
	}
	return replaced
}

func (c *Coordinator) copyPublished() []ResolvedItem {
	return c.copyOf(c.published)
}

func (c *Coordinator) copyOf(items []ResolvedItem) []ResolvedItem {
	out := make([]ResolvedItem, len(items))
	copy(out, items)
	return out
}

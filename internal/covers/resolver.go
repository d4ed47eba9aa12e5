package covers

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Resolver walks the registry for a single item.
type Resolver struct {
	registry     *Registry
	probeTimeout time.Duration
}

// NewResolver creates a resolver over the given registry.
func NewResolver(registry *Registry) *Resolver {
	return &Resolver{registry: registry}
}

// SetProbeTimeout bounds each individual probe (optional).
func (r *Resolver) SetProbeTimeout(d time.Duration) {
	r.probeTimeout = d
}

// Resolve returns the item with the first cover found, or with no cover.
// Sources are consulted strictly in order; a failing source counts as a
// miss and resolution moves on.
func (r *Resolver) Resolve(ctx context.Context, item Item) ResolvedItem {
	resolved := ResolvedItem{Item: item}

	for _, src := range r.registry.sources {
		if src.Claims != nil && !src.Claims(item) {
			continue
		}

		url, err := r.probe(ctx, src, item)
		if err != nil {
			log.Printf("[COVERS] %s probe failed for item %d (%q): %v", src.Kind, item.ID, item.Title, err)
		}
		if err == nil && url != "" {
			resolved.CoverURL = &url
			resolved.CoverSource = src.Kind
			return resolved
		}

		if src.Claims != nil {
			// claimed items never fall through
			return resolved
		}
	}

	return resolved
}

func (r *Resolver) probe(ctx context.Context, src Source, item Item) (url string, err error) {
	defer func() {
		if p := recover(); p != nil {
			url, err = "", fmt.Errorf("probe panic: %v", p)
		}
	}()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if src.Admit != nil {
		if err := src.Admit(ctx, item); err != nil {
			return "", fmt.Errorf("admit: %w", err)
		}
	}

	if r.probeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.probeTimeout)
		defer cancel()
	}

	return src.Probe(ctx, item)
}

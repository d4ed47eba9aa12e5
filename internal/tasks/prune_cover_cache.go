package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// CachePruner removes cached covers older than maxAge.
type CachePruner interface {
	Prune(maxAge time.Duration) (int, error)
}

// PruneCoverCacheTask removes stale files from the cover cache.
type PruneCoverCacheTask struct {
	MaxAge time.Duration `json:"max_age"`
}

// Config returns the queue configuration for cache pruning.
func (t PruneCoverCacheTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "prune_cover_cache",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// PruneCoverCacheProcessor creates a processor function for PruneCoverCacheTask.
func PruneCoverCacheProcessor(pruner CachePruner) backlite.QueueProcessor[PruneCoverCacheTask] {
	return func(ctx context.Context, task PruneCoverCacheTask) error {
		if pruner == nil {
			return fmt.Errorf("cover cache not configured")
		}
		if task.MaxAge <= 0 {
			return fmt.Errorf("invalid max age %v", task.MaxAge)
		}

		removed, err := pruner.Prune(task.MaxAge)
		if err != nil {
			return fmt.Errorf("prune cover cache: %w", err)
		}
		log.Printf("[TASK] Pruned %d cached covers older than %v", removed, task.MaxAge)
		return nil
	}
}

// NewPruneCoverCacheQueue creates a backlite queue for cache pruning.
func NewPruneCoverCacheQueue(pruner CachePruner) backlite.Queue {
	return backlite.NewQueue(PruneCoverCacheProcessor(pruner))
}

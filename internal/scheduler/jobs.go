package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/mrlokans/bookshelf/internal/tasks"
)

// IdleEvicter drops idle state, such as catalog views.
type IdleEvicter interface {
	EvictIdle() int
}

// EvictViewsJob evicts idle catalog views.
func EvictViewsJob(schedule string, views IdleEvicter) Job {
	return Job{
		Name:     "evict_idle_views",
		Schedule: schedule,
		Run: func(ctx context.Context) {
			views.EvictIdle()
		},
	}
}

// PruneCoverCacheJob queues a cache prune. Without a queue the pruner runs
// inline.
func PruneCoverCacheJob(schedule string, maxAge time.Duration, queue tasks.Enqueuer, pruner tasks.CachePruner) Job {
	process := tasks.PruneCoverCacheProcessor(pruner)
	return Job{
		Name:     "prune_cover_cache",
		Schedule: schedule,
		Run: func(ctx context.Context) {
			task := tasks.PruneCoverCacheTask{MaxAge: maxAge}
			if queue != nil {
				if err := queue.Enqueue(task); err != nil {
					log.Printf("[SCHEDULER] Failed to queue cover cache prune: %v", err)
				}
				return
			}
			if err := process(ctx, task); err != nil {
				log.Printf("[SCHEDULER] Cover cache prune failed: %v", err)
			}
		},
	}
}

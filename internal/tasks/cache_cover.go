package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookshelf/internal/covers"
)

// CoverCacher downloads a cover into the local cache.
type CoverCacher interface {
	Get(ctx context.Context, itemID uint, coverURL string) (string, error)
	Cached(itemID uint, coverURL string) (string, bool)
}

// CacheCoverTask downloads one published external cover.
type CacheCoverTask struct {
	ItemID uint   `json:"item_id"`
	URL    string `json:"url"`
}

// Config returns the queue configuration for cover downloads.
func (t CacheCoverTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cache_cover",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: true,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// CacheCoverProcessor creates a processor function for CacheCoverTask.
func CacheCoverProcessor(cache CoverCacher) backlite.QueueProcessor[CacheCoverTask] {
	return func(ctx context.Context, task CacheCoverTask) error {
		if cache == nil {
			return fmt.Errorf("cover cache not configured")
		}
		if _, ok := cache.Cached(task.ItemID, task.URL); ok {
			return nil
		}
		path, err := cache.Get(ctx, task.ItemID, task.URL)
		if err != nil {
			return fmt.Errorf("cache cover for item %d: %w", task.ItemID, err)
		}
		log.Printf("[TASK] Cached cover for item %d at %s", task.ItemID, path)
		return nil
	}
}

// NewCacheCoverQueue creates a backlite queue for cover downloads.
func NewCacheCoverQueue(cache CoverCacher) backlite.Queue {
	return backlite.NewQueue(CacheCoverProcessor(cache))
}

// Enqueuer saves tasks to a queue.
type Enqueuer interface {
	Enqueue(tasks ...backlite.Task) error
}

// Enqueue adds and saves tasks in one transaction.
func (c *Client) Enqueue(tasks ...backlite.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	_, err := c.Add(tasks...).Save()
	return err
}

// CachePublishedCovers returns a publish hook that queues a download for
// every external cover in a published batch. Covers from owned storage are
// served directly and covers already cached are skipped.
func CachePublishedCovers(queue Enqueuer, cache CoverCacher) covers.PublishFunc {
	return func(generation uint64, items []covers.ResolvedItem) {
		var pending []backlite.Task
		for _, item := range items {
			if !item.HasCover() || item.CoverSource == covers.SourceOwnedStorage {
				continue
			}
			if _, ok := cache.Cached(item.ID, *item.CoverURL); ok {
				continue
			}
			pending = append(pending, CacheCoverTask{ItemID: item.ID, URL: *item.CoverURL})
		}
		if len(pending) == 0 {
			return
		}
		if err := queue.Enqueue(pending...); err != nil {
			log.Printf("[TASK] Failed to queue %d cover downloads for generation %d: %v", len(pending), generation, err)
		}
	}
}

// Package scheduler runs periodic maintenance jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule checks a five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// Job is a named function run on a cron schedule.
type Job struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context)
}

// Scheduler runs maintenance jobs. Jobs never overlap with themselves.
type Scheduler struct {
	cron *cron.Cron

	mu         sync.RWMutex
	entries    map[string]cron.EntryID
	isRunning  bool
	ctx        context.Context
	cancelFunc context.CancelFunc
}

func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		entries:    make(map[string]cron.EntryID),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Add registers a job. An empty schedule disables the job.
func (s *Scheduler) Add(job Job) error {
	if job.Schedule == "" {
		log.Printf("[SCHEDULER] %s: disabled", job.Name)
		return nil
	}
	if err := ValidateSchedule(job.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s' for %s: %w", job.Schedule, job.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[job.Name]; exists {
		return fmt.Errorf("job %s already registered", job.Name)
	}

	ctx := s.ctx
	id, err := s.cron.AddFunc(job.Schedule, func() {
		start := time.Now()
		job.Run(ctx)
		log.Printf("[SCHEDULER] %s finished in %v", job.Name, time.Since(start).Round(time.Millisecond))
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", job.Name, err)
	}
	s.entries[job.Name] = id
	return nil
}

// Start begins running jobs until ctx is cancelled or Stop is called. A
// stopped scheduler cannot be restarted.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning || s.ctx.Err() != nil {
		return
	}
	s.cron.Start()
	s.isRunning = true

	for name, id := range s.entries {
		log.Printf("[SCHEDULER] %s scheduled, next run: %v", name, s.cron.Entry(id).Next)
	}

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.ctx.Done():
		}
	}()
}

// Stop waits for running jobs to finish and stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return
	}

	s.cancelFunc()
	<-s.cron.Stop().Done()
	s.isRunning = false
	log.Printf("[SCHEDULER] stopped")
}

// IsRunning returns whether the scheduler is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns when the named job runs next, or nil if it is unknown or
// the scheduler is stopped.
func (s *Scheduler) NextRun(name string) *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.entries[name]
	if !ok || !s.isRunning {
		return nil
	}
	next := s.cron.Entry(id).Next
	return &next
}

// RunNow runs the named job immediately in the background.
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	id, ok := s.entries[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown job %s", name)
	}
	go s.cron.Entry(id).WrappedJob.Run()
	return nil
}

// Package scheduler runs the periodic notification sweep inside the server process.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/diewo77/solodesk/internal/config"
	"github.com/diewo77/solodesk/internal/services"
)

// Sweeper is the part of the notification service the scheduler drives.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (services.SweepResult, error)
	ArchiveRead(ctx context.Context, now time.Time) (int64, error)
}

// Scheduler sweeps for due-soon projects and tasks every interval and archives old read
// notifications once a day, on the first tick whose hour equals CleanupHour.
// It keeps no cursor; restarts rely on the sweep's own deduplication.
type Scheduler struct {
	svc         Sweeper
	interval    time.Duration
	cleanupHour int
	now         func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	lastDay string
}

// New builds a scheduler from cfg. A non-positive interval defaults to one hour.
func New(svc Sweeper, cfg config.SchedulerConfig) *Scheduler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		svc:         svc,
		interval:    interval,
		cleanupHour: cfg.CleanupHour,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Start runs one pass immediately and then one per tick until ctx is cancelled or Stop is called.
// Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.RunOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}(s.done)
	log.Printf("scheduler: started (interval=%s cleanupHour=%d)", s.interval, s.cleanupHour)
}

// Stop cancels the loop and waits for the pass in flight to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	log.Printf("scheduler: stopped")
}

// RunOnce performs a single sweep and, when due, the daily cleanup. Errors are logged.
func (s *Scheduler) RunOnce(ctx context.Context) {
	now := s.now()
	res, err := s.svc.Sweep(ctx, now)
	if err != nil {
		log.Printf("scheduler: sweep failed: %v", err)
	} else if res.Total() > 0 {
		log.Printf("scheduler: sweep created %d notifications (projects=%d tasks=%d invoices=%d)",
			res.Total(), res.ProjectsDueSoon, res.TasksDueSoon, res.InvoicesOverdue)
	}

	if now.Hour() != s.cleanupHour || !s.claimCleanup(now) {
		return
	}
	n, err := s.svc.ArchiveRead(ctx, now)
	if err != nil {
		log.Printf("scheduler: cleanup failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("scheduler: archived %d read notifications", n)
	}
}

// claimCleanup reports whether the cleanup has not run yet on now's date.
func (s *Scheduler) claimCleanup(now time.Time) bool {
	day := now.Format("2006-01-02")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastDay == day {
		return false
	}
	s.lastDay = day
	return true
}

// Package scheduler triggers the daily run on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/thinkscotty/globaldaily/internal/pipeline"
)

// ErrBusy is returned when a run is requested while another is in progress.
var ErrBusy = errors.New("a run is already in progress")

// Runner executes one daily run.
type Runner interface {
	Run(ctx context.Context, only ...string) pipeline.Summary
}

// Purger drops ledger entries older than a cutoff.
type Purger interface {
	PurgeSeen(ctx context.Context, cutoff time.Time) (int64, error)
}

type Options struct {
	Location  *time.Location
	Retention time.Duration // 0 keeps seen URLs forever
	Purger    Purger
}

type Scheduler struct {
	runner Runner
	opts   Options
	cron   *cron.Cron
	mu     sync.Mutex // held for the duration of a run
	now    func() time.Time

	ctx context.Context
}

func New(runner Runner, opts Options) *Scheduler {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Scheduler{
		runner: runner,
		opts:   opts,
		cron:   cron.New(cron.WithLocation(opts.Location)),
		now:    time.Now,
		ctx:    context.Background(),
	}
}

// Start registers the run under the given cron expression and starts the
// cron loop. Runs fired by cron inherit ctx.
func (s *Scheduler) Start(ctx context.Context, schedule string) error {
	s.ctx = ctx
	if _, err := s.cron.AddFunc(schedule, s.fire); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	s.cron.Start()
	slog.Info("Scheduler started", "schedule", schedule, "time_zone", s.opts.Location.String())
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("Scheduler stopped")
}

// Next returns the next scheduled fire time, or zero if nothing is scheduled.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) fire() {
	if _, err := s.RunNow(s.ctx); err != nil {
		slog.Warn("Scheduled run skipped", "error", err)
	}
}

// RunNow runs immediately unless another run holds the lock.
func (s *Scheduler) RunNow(ctx context.Context, only ...string) (sum pipeline.Summary, err error) {
	if !s.mu.TryLock() {
		return pipeline.Summary{}, ErrBusy
	}
	defer s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic in daily run", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	sum = s.runner.Run(ctx, only...)
	s.purge(ctx)
	return sum, nil
}

func (s *Scheduler) purge(ctx context.Context) {
	if s.opts.Purger == nil || s.opts.Retention <= 0 {
		return
	}
	cutoff := s.now().Add(-s.opts.Retention)
	n, err := s.opts.Purger.PurgeSeen(ctx, cutoff)
	if err != nil {
		slog.Error("Failed to purge seen URLs", "error", err)
		return
	}
	if n > 0 {
		slog.Info("Purged old seen URLs", "count", n, "cutoff", cutoff.Format(time.DateOnly))
	}
}

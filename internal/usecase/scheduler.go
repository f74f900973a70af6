package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"clearfeed/internal/ports"
)

// SchedulerDeps binds the cron driver to the recurring use cases. Empty specs
// disable the corresponding job.
type SchedulerDeps struct {
	Driver       ports.Scheduler
	Pipeline     *Pipeline
	Digest       *Digest
	Articles     ports.ArticleStore
	FetchSpec    string
	DigestSpec   string
	CleanupSpec  string
	RetentionAge time.Duration
	Logger       *slog.Logger
}

// Scheduler registers the fetch, digest, and retention jobs and controls
// their lifecycle.
type Scheduler struct {
	deps SchedulerDeps
}

// NewScheduler returns a helper to start/stop the recurring jobs.
func NewScheduler(deps SchedulerDeps) *Scheduler {
	return &Scheduler{deps: deps}
}

// Start registers all configured jobs and launches the driver.
func (s *Scheduler) Start(ctx context.Context) error {
	d := s.deps
	if d.Driver == nil {
		return nil
	}

	if d.Pipeline != nil && d.FetchSpec != "" {
		err := d.Driver.AddJob(d.FetchSpec, func(time.Time) {
			if err := d.Pipeline.RunCycle(ctx); err != nil {
				d.Logger.Error("fetch cycle failed", "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("schedule fetch: %w", err)
		}
	}

	if d.Digest != nil && d.DigestSpec != "" {
		err := d.Driver.AddJob(d.DigestSpec, func(time.Time) {
			if err := d.Digest.DeliverAll(ctx); err != nil {
				d.Logger.Error("digest run failed", "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("schedule digest: %w", err)
		}
	}

	if d.Articles != nil && d.CleanupSpec != "" && d.RetentionAge > 0 {
		err := d.Driver.AddJob(d.CleanupSpec, func(time.Time) {
			removed, err := d.Articles.DeleteOlderThan(ctx, d.RetentionAge)
			if err != nil {
				d.Logger.Error("retention sweep failed", "error", err)
				return
			}
			d.Logger.Info("retention sweep complete", "removed", removed)
		})
		if err != nil {
			return fmt.Errorf("schedule cleanup: %w", err)
		}
	}

	d.Driver.Start()
	return nil
}

// Stop gracefully tears down the underlying driver.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.deps.Driver == nil {
		return nil
	}
	return s.deps.Driver.Stop(ctx)
}

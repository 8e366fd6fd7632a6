// Package scheduler runs periodic maintenance jobs with gocron.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

const pruneTimeout = time.Minute

// Pruner deletes delivery history older than a cutoff.
type Pruner interface {
	PruneNotifications(ctx context.Context, before time.Time) (int64, error)
}

// Config holds the scheduler configuration.
type Config struct {
	Store     Pruner
	Retention time.Duration
	Interval  time.Duration
	Logger    *slog.Logger
	// Now is optional and defaults to time.Now.
	Now func() time.Time
}

// Scheduler prunes expired notification history on a fixed interval.
type Scheduler struct {
	cron   gocron.Scheduler
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// New creates a new Scheduler.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("creating scheduler: store is required")
	}
	if cfg.Retention <= 0 || cfg.Interval <= 0 {
		return nil, fmt.Errorf("creating scheduler: retention and interval must be positive")
	}
	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating gocron scheduler: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{cron: cron, cfg: cfg, logger: logger, now: now}, nil
}

// Start schedules the retention job, runs it once immediately, and starts gocron.
func (s *Scheduler) Start(_ context.Context) error {
	_, err := s.cron.NewJob(
		gocron.DurationJob(s.cfg.Interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
			defer cancel()
			if _, err := s.PruneNow(ctx); err != nil {
				s.logger.Error("notification history pruning failed", "error", err)
			}
		}),
		gocron.WithName("notification-history-retention"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("scheduling retention job: %w", err)
	}
	s.cron.Start()
	s.logger.Info("scheduler started",
		"retention", s.cfg.Retention.String(),
		"interval", s.cfg.Interval.String(),
	)
	return nil
}

// Stop shuts down gocron and waits for a running job to finish.
func (s *Scheduler) Stop() error {
	return s.cron.Shutdown()
}

// PruneNow deletes history older than the retention window.
func (s *Scheduler) PruneNow(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.cfg.Retention)
	n, err := s.cfg.Store.PruneNotifications(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning history before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if n > 0 {
		s.logger.Info("pruned notification history", "removed", n, "before", cutoff)
	}
	return n, nil
}

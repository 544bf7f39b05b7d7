package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dandantas/boomerang/internal/config"
	"github.com/robfig/cron/v3"
)

// Purger removes jobs older than a number of days
type Purger interface {
	Purge(ctx context.Context, days int) (int64, error)
}

// Scheduler runs the age-based job purge on a cron schedule
type Scheduler struct {
	cfg    config.PurgeConfig
	purger Purger
	cron   *cron.Cron
}

// NewScheduler creates a new purge scheduler
func NewScheduler(cfg config.PurgeConfig, purger Purger) *Scheduler {
	logger := cronLogger{}
	return &Scheduler{
		cfg:    cfg,
		purger: purger,
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
	}
}

// Start registers the purge job and starts the cron loop
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		slog.Info("Purge scheduler is disabled by configuration")
		return nil
	}

	if _, err := s.cron.AddFunc(s.cfg.Schedule, func() { s.tick(ctx) }); err != nil {
		return fmt.Errorf("invalid purge schedule %q: %w", s.cfg.Schedule, err)
	}

	slog.Info("Starting purge scheduler",
		"schedule", s.cfg.Schedule,
		"older_than_days", s.cfg.OlderThanDays,
	)
	s.cron.Start()
	return nil
}

// Stop stops the cron loop and waits for a running purge to finish
func (s *Scheduler) Stop(ctx context.Context) {
	slog.Info("Stopping purge scheduler")

	select {
	case <-s.cron.Stop().Done():
		slog.Info("Purge scheduler stopped")
	case <-ctx.Done():
		slog.Warn("Timeout waiting for purge to complete")
	}
}

// RunOnce performs a single purge with the configured age
func (s *Scheduler) RunOnce(ctx context.Context) (int64, error) {
	return s.purger.Purge(ctx, s.cfg.OlderThanDays)
}

func (s *Scheduler) tick(ctx context.Context) {
	start := time.Now()

	removed, err := s.RunOnce(ctx)
	if err != nil {
		slog.Error("Scheduled purge failed", "error", err)
		return
	}

	slog.Info("Scheduled purge completed",
		"count", removed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// cronLogger routes cron's internal logging through slog
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}

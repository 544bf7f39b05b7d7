package database

import (
	"context"
	"fmt"
	"time"

	"github.com/dandantas/boomerang/internal/config"
	"github.com/dandantas/boomerang/internal/model"
)

// JobStore is the durable record of job state. Every mutating call is durable
// before it returns and touches at most one job atomically.
type JobStore interface {
	// Create inserts a processing job; an existing id yields model.ErrDuplicateKey.
	Create(ctx context.Context, job *model.Job) (model.JobSummary, error)

	// Get returns the job, or found=false when no row exists.
	Get(ctx context.Context, id string) (job *model.Job, found bool, err error)

	// ListByStatus returns jobs with the given status, newest first.
	ListByStatus(ctx context.Context, status model.JobStatus) ([]model.Job, error)

	// CompleteTerminal moves a processing job into a terminal state.
	// matched=false means no processing job with that id exists; the call
	// is then a no-op.
	CompleteTerminal(ctx context.Context, id string, completion model.JobCompletion) (summary model.JobSummary, matched bool, err error)

	// PurgeOlderThan deletes every job created more than days ago, whatever
	// its status, and returns how many were removed.
	PurgeOlderThan(ctx context.Context, days int) (int64, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Open connects the store selected by cfg.StoreDriver
func Open(ctx context.Context, cfg *config.Config) (JobStore, error) {
	if err := cfg.ValidateStore(); err != nil {
		return nil, err
	}

	switch cfg.StoreDriver {
	case config.DriverBadger:
		return OpenBadger(cfg.Badger)
	default:
		db, err := Connect(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		if err := CreateIndexes(ctx, db); err != nil {
			_ = db.Disconnect(context.Background())
			return nil, err
		}
		return NewJobRepository(db), nil
	}
}

// purgeCutoff is the creation time before which jobs are purged
func purgeCutoff(now time.Time, days int) (time.Time, error) {
	if days < 0 {
		return time.Time{}, fmt.Errorf("%w: days must not be negative, got %d", model.ErrInvalidInput, days)
	}
	return now.UTC().Add(-time.Duration(days) * 24 * time.Hour), nil
}

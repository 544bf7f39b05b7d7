package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/dandantas/boomerang/internal/config"
	"github.com/dandantas/boomerang/internal/model"
	"github.com/dgraph-io/badger/v4"
)

const (
	jobKeyPrefix     = "jobs/"
	maxConflictRetry = 5
	purgeDeleteBatch = 500
)

// BadgerStore is the embedded single-node job store
type BadgerStore struct {
	db  *badger.DB
	now func() time.Time
}

// OpenBadger opens the store on disk, or in memory when configured
func OpenBadger(cfg config.BadgerConfig) (*BadgerStore, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create badger dir: %w", err)
		}
		opts = badger.DefaultOptions(cfg.Dir).WithSyncWrites(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	slog.Info("Opened badger job store", "dir", cfg.Dir, "in_memory", cfg.InMemory)
	return &BadgerStore{db: db, now: time.Now}, nil
}

func jobKey(id string) []byte {
	return []byte(jobKeyPrefix + id)
}

func readJob(txn *badger.Txn, id string) (*model.Job, error) {
	item, err := txn.Get(jobKey(id))
	if err != nil {
		return nil, err
	}

	var job model.Job
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &job)
	})
	if err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &job, nil
}

func writeJob(txn *badger.Txn, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}
	return txn.Set(jobKey(job.ID), data)
}

// update runs fn in a read-write transaction, retrying on write conflicts
func (s *BadgerStore) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetry; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

// Create inserts a new job
func (s *BadgerStore) Create(ctx context.Context, job *model.Job) (model.JobSummary, error) {
	err := s.update(ctx, func(txn *badger.Txn) error {
		_, err := txn.Get(jobKey(job.ID))
		if err == nil {
			return fmt.Errorf("%w: %s", model.ErrDuplicateKey, job.ID)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return writeJob(txn, job)
	})
	if err != nil {
		if errors.Is(err, model.ErrDuplicateKey) {
			return model.JobSummary{}, err
		}
		return model.JobSummary{}, model.NewStorageError("create job", err)
	}

	return job.Summary(), nil
}

// Get retrieves a job by id
func (s *BadgerStore) Get(ctx context.Context, id string) (*model.Job, bool, error) {
	var job *model.Job
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		job, err = readJob(txn, id)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, model.NewStorageError("get job", err)
	}

	return job, true, nil
}

// scan decodes every job for which keep returns true
func (s *BadgerStore) scan(keep func(*model.Job) bool) ([]model.Job, error) {
	jobs := []model.Job{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(jobKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var job model.Job
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &job)
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			if keep(&job) {
				jobs = append(jobs, job)
			}
		}
		return nil
	})
	return jobs, err
}

// ListByStatus retrieves jobs in a status, newest first
func (s *BadgerStore) ListByStatus(ctx context.Context, status model.JobStatus) ([]model.Job, error) {
	jobs, err := s.scan(func(j *model.Job) bool { return j.Status == status })
	if err != nil {
		return nil, model.NewStorageError("list jobs", err)
	}

	sort.SliceStable(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	return jobs, nil
}

// CompleteTerminal applies a terminal transition inside one serializable
// transaction; a job already out of processing is left untouched
func (s *BadgerStore) CompleteTerminal(ctx context.Context, id string, completion model.JobCompletion) (model.JobSummary, bool, error) {
	if err := completion.Validate(); err != nil {
		return model.JobSummary{}, false, err
	}

	var (
		summary model.JobSummary
		matched bool
	)
	err := s.update(ctx, func(txn *badger.Txn) error {
		matched = false

		job, err := readJob(txn, id)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if job.Status != model.StatusProcessing {
			return nil
		}

		done := completion.Apply(*job, s.now())
		if err := writeJob(txn, &done); err != nil {
			return err
		}
		summary, matched = done.Summary(), true
		return nil
	})
	if err != nil {
		return model.JobSummary{}, false, model.NewStorageError("complete job", err)
	}

	return summary, matched, nil
}

// PurgeOlderThan deletes jobs by creation age regardless of status
func (s *BadgerStore) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	cutoff, err := purgeCutoff(s.now(), days)
	if err != nil {
		return 0, err
	}

	stale, err := s.scan(func(j *model.Job) bool { return j.CreatedAt.Before(cutoff) })
	if err != nil {
		return 0, model.NewStorageError("purge jobs", err)
	}

	var removed int64
	for start := 0; start < len(stale); start += purgeDeleteBatch {
		end := min(start+purgeDeleteBatch, len(stale))
		batch := stale[start:end]

		var n int64
		err := s.update(ctx, func(txn *badger.Txn) error {
			n = 0
			for _, job := range batch {
				if _, err := txn.Get(jobKey(job.ID)); err != nil {
					if errors.Is(err, badger.ErrKeyNotFound) {
						continue
					}
					return err
				}
				if err := txn.Delete(jobKey(job.ID)); err != nil {
					return err
				}
				n++
			}
			return nil
		})
		if err != nil {
			return removed, model.NewStorageError("purge jobs", err)
		}
		removed += n
	}

	slog.Debug("Purged jobs", "store", "badger", "cutoff", cutoff, "count", removed)
	return removed, nil
}

// Ping reports whether the database is still open
func (s *BadgerStore) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return model.NewStorageError("ping badger", errors.New("database is closed"))
	}
	return nil
}

// Close flushes and closes the database
func (s *BadgerStore) Close(ctx context.Context) error {
	if s.db.IsClosed() {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger: %w", err)
	}
	return nil
}

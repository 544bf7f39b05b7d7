package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dandantas/boomerang/internal/callback"
	"github.com/dandantas/boomerang/internal/database"
	"github.com/dandantas/boomerang/internal/model"
	"github.com/dandantas/boomerang/internal/webhook"
	"github.com/dandantas/boomerang/internal/worker"
	"github.com/google/uuid"
)

// Dispatcher sends the outbound trigger for a job
type Dispatcher interface {
	Trigger(ctx context.Context, req webhook.TriggerRequest) error
}

// TaskRunner runs dispatch tasks in the background
type TaskRunner interface {
	TrySubmit(task worker.Task) error
	Stop(ctx context.Context) error
}

// LifecycleConfig holds the lifecycle's static settings
type LifecycleConfig struct {
	// AllowedHosts are the hosts (and their subdomains) a target may point at
	AllowedHosts []string
	// CallbackURL is handed to the workflow for the later callback
	CallbackURL string
}

// Lifecycle owns the job state machine: processing -> completed | failed.
// It owns the store and the dispatch pool and releases both on Close.
type Lifecycle struct {
	store      database.JobStore
	normalizer *callback.Normalizer
	dispatcher Dispatcher
	pool       TaskRunner
	cfg        LifecycleConfig

	unmatchedCallbacks atomic.Int64

	now   func() time.Time
	newID func() string
}

// NewLifecycle creates a lifecycle controller
func NewLifecycle(
	store database.JobStore,
	normalizer *callback.Normalizer,
	dispatcher Dispatcher,
	pool TaskRunner,
	cfg LifecycleConfig,
) *Lifecycle {
	return &Lifecycle{
		store:      store,
		normalizer: normalizer,
		dispatcher: dispatcher,
		pool:       pool,
		cfg:        cfg,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Start validates the target, persists a processing job and schedules the
// trigger. Dispatch problems never fail the call; they fail the job.
func (l *Lifecycle) Start(ctx context.Context, req model.StartRequest) (model.JobSummary, error) {
	req = req.Normalize()
	if err := l.validateTarget(req.Target); err != nil {
		return model.JobSummary{}, err
	}

	job := model.NewJob(l.newID(), req.Target, req.Credential, l.now())
	summary, err := l.store.Create(ctx, job)
	if err != nil {
		return model.JobSummary{}, err
	}

	slog.Info("Job created", "job_id", job.ID, "target", job.Target)

	trigger := webhook.TriggerRequest{
		JobID:       job.ID,
		Target:      job.Target,
		Credential:  job.Credential,
		CallbackURL: l.cfg.CallbackURL,
	}
	task := worker.Task{
		JobID: job.ID,
		Run: func(ctx context.Context) {
			l.dispatch(ctx, trigger)
		},
	}

	if err := l.pool.TrySubmit(task); err != nil {
		slog.Error("Failed to schedule trigger", "job_id", job.ID, "error", err)
		l.fail(context.WithoutCancel(ctx), job.ID, fmt.Sprintf("%v: %v", model.ErrDispatchFailure, err))
	}

	return summary, nil
}

// dispatch runs on the worker pool, detached from the start request
func (l *Lifecycle) dispatch(ctx context.Context, req webhook.TriggerRequest) {
	if err := l.dispatcher.Trigger(ctx, req); err != nil {
		l.fail(ctx, req.JobID, err.Error())
	}
}

// fail records a local failure as the job's terminal state
func (l *Lifecycle) fail(ctx context.Context, jobID, reason string) {
	_, matched, err := l.store.CompleteTerminal(ctx, jobID, model.JobCompletion{
		Status:       model.StatusFailed,
		ErrorMessage: reason,
	})
	switch {
	case err != nil:
		slog.Error("Failed to record job failure", "job_id", jobID, "reason", reason, "error", err)
	case !matched:
		slog.Warn("Job already terminal, dispatch failure not recorded", "job_id", jobID, "reason", reason)
	default:
		slog.Info("Job failed", "job_id", jobID, "reason", reason)
	}
}

// Status returns the client view of a job
func (l *Lifecycle) Status(ctx context.Context, jobID string) (model.JobView, error) {
	job, found, err := l.store.Get(ctx, jobID)
	if err != nil {
		return model.JobView{}, err
	}
	if !found {
		return model.JobView{}, fmt.Errorf("%w: %s", model.ErrNotFound, jobID)
	}
	return job.View(), nil
}

// Reconcile applies an inbound callback. Callbacks that match no processing
// job are still acknowledged so the workflow does not retry them.
func (l *Lifecycle) Reconcile(ctx context.Context, raw []byte) (model.CallbackAck, error) {
	record, err := l.normalizer.Normalize(raw)
	if err != nil {
		slog.Warn("Rejected callback", "error", err)
		return model.CallbackAck{}, err
	}

	summary, matched, err := l.store.CompleteTerminal(ctx, record.JobID, record.Completion())
	if err != nil {
		slog.Error("Failed to apply callback", "job_id", record.JobID, "error", err)
		return model.CallbackAck{}, err
	}

	if !matched {
		total := l.unmatchedCallbacks.Add(1)
		slog.Warn("Callback matched no processing job",
			"job_id", record.JobID,
			"success", record.Success,
			"unmatched_total", total,
		)
	} else {
		slog.Info("Job reconciled",
			"job_id", summary.ID,
			"status", summary.Status,
			"item_count", record.ItemCount,
		)
	}

	return model.CallbackAck{Status: "received", JobID: record.JobID}, nil
}

// ListByStatus returns the views of jobs in a status, newest first
func (l *Lifecycle) ListByStatus(ctx context.Context, rawStatus string) ([]model.JobView, error) {
	status, err := model.ParseJobStatus(rawStatus)
	if err != nil {
		return nil, err
	}

	jobs, err := l.store.ListByStatus(ctx, status)
	if err != nil {
		return nil, err
	}

	views := make([]model.JobView, 0, len(jobs))
	for i := range jobs {
		views = append(views, jobs[i].View())
	}
	return views, nil
}

// Purge removes jobs created more than days ago, whatever their status
func (l *Lifecycle) Purge(ctx context.Context, days int) (int64, error) {
	removed, err := l.store.PurgeOlderThan(ctx, days)
	if err != nil {
		return 0, err
	}

	slog.Info("Purged old jobs", "older_than_days", days, "count", removed)
	return removed, nil
}

// UnmatchedCallbacks counts callbacks that matched no processing job
func (l *Lifecycle) UnmatchedCallbacks() int64 {
	return l.unmatchedCallbacks.Load()
}

// Ping checks the store
func (l *Lifecycle) Ping(ctx context.Context) error {
	return l.store.Ping(ctx)
}

// Close drains pending dispatches, then closes the store
func (l *Lifecycle) Close(ctx context.Context) error {
	poolErr := l.pool.Stop(ctx)
	storeErr := l.store.Close(ctx)
	return errors.Join(poolErr, storeErr)
}

func (l *Lifecycle) validateTarget(target string) error {
	if strings.TrimSpace(target) == "" {
		return fmt.Errorf("%w: target is required", model.ErrInvalidInput)
	}

	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("%w: invalid target URL: %v", model.ErrInvalidInput, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: target must start with http:// or https://", model.ErrInvalidInput)
	}

	host := strings.ToLower(u.Hostname())
	for _, allowed := range l.cfg.AllowedHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return nil
		}
	}
	return fmt.Errorf("%w: target host %q is not allowed (expected %s)",
		model.ErrInvalidInput, host, strings.Join(l.cfg.AllowedHosts, ", "))
}

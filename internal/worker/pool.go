package worker

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
)

// WorkerPool runs tasks on a fixed set of goroutines, detached from the
// requests that submitted them
type WorkerPool struct {
	workers int
	tasks   chan Task
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc

	mu      sync.RWMutex
	stopped bool
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(workers int, queueSize int) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		workers: workers,
		tasks:   make(chan Task, queueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start starts the worker goroutines
func (wp *WorkerPool) Start() {
	slog.Info("Starting worker pool", "workers", wp.workers, "queue_size", cap(wp.tasks))

	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// TrySubmit enqueues a task without blocking
func (wp *WorkerPool) TrySubmit(task Task) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.stopped {
		return ErrPoolStopped
	}

	select {
	case wp.tasks <- task:
		slog.Debug("Task submitted to worker pool", "job_id", task.JobID)
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop stops accepting tasks and waits for queued and running tasks to
// finish. If ctx expires first, running tasks are cancelled.
func (wp *WorkerPool) Stop(ctx context.Context) error {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return nil
	}
	wp.stopped = true
	close(wp.tasks)
	wp.mu.Unlock()

	slog.Info("Stopping worker pool", "queued", len(wp.tasks))

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		wp.cancel()
		slog.Info("Worker pool stopped")
		return nil
	case <-ctx.Done():
		wp.cancel()
		<-done
		slog.Warn("Worker pool stop timed out, cancelled in-flight tasks")
		return ctx.Err()
	}
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for task := range wp.tasks {
		wp.run(id, task)
	}
}

func (wp *WorkerPool) run(id int, task Task) {
	defer func() {
		if err := recover(); err != nil {
			slog.Error("Panic recovered in worker",
				"worker_id", id,
				"job_id", task.JobID,
				"error", err,
				"stack_trace", string(debug.Stack()),
			)
		}
	}()

	task.Run(wp.ctx)
}

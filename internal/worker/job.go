package worker

import (
	"context"
	"errors"
)

var (
	// ErrQueueFull is returned when the task queue has no free slot
	ErrQueueFull = errors.New("worker queue is full")
	// ErrPoolStopped is returned once Stop has been called
	ErrPoolStopped = errors.New("worker pool is stopped")
)

// Task is one unit of background work. Run receives the pool's context,
// which is cancelled only if Stop gives up waiting.
type Task struct {
	JobID string
	Run   func(ctx context.Context)
}

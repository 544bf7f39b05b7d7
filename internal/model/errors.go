package model

import (
	"errors"
	"fmt"
)

// Error kinds. Callers match them with errors.Is.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotFound        = errors.New("job not found")
	ErrInvalidCallback = errors.New("invalid callback")
	ErrMissingJobID    = fmt.Errorf("%w: missing job id", ErrInvalidCallback)
	ErrDispatchFailure = errors.New("dispatch failed")
	ErrStorageFailure  = errors.New("storage failure")
	ErrDuplicateKey    = errors.New("duplicate job id")
)

// StorageError wraps an engine error raised by a job store operation
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError tags err as a storage failure of op
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorageFailure, e.Err}
}

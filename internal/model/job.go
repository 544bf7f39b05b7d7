package model

import (
	"fmt"
	"time"
)

// JobStatus is the lifecycle state of a job
type JobStatus string

const (
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ParseJobStatus validates a status name received from a client
func ParseJobStatus(raw string) (JobStatus, error) {
	switch s := JobStatus(raw); s {
	case StatusProcessing, StatusCompleted, StatusFailed:
		return s, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q (must be 'processing', 'completed', or 'failed')", ErrInvalidInput, raw)
	}
}

// JobResults is the payload recorded when a job completes
type JobResults struct {
	Items     []string `json:"items" bson:"items"`
	ItemCount int      `json:"itemCount" bson:"item_count"`
}

// Job is the persisted record of one asynchronous scrape request
type Job struct {
	ID           string      `json:"id" bson:"_id"`
	Target       string      `json:"target" bson:"target"`
	Credential   string      `json:"credential,omitempty" bson:"credential,omitempty"`
	Status       JobStatus   `json:"status" bson:"status"`
	Results      *JobResults `json:"results,omitempty" bson:"results,omitempty"`
	ErrorMessage string      `json:"errorMessage,omitempty" bson:"error_message,omitempty"`
	CreatedAt    time.Time   `json:"createdAt" bson:"created_at"`
	CompletedAt  *time.Time  `json:"completedAt,omitempty" bson:"completed_at,omitempty"`
}

// NewJob builds a job in its initial processing state
func NewJob(id, target, credential string, now time.Time) *Job {
	return &Job{
		ID:         id,
		Target:     target,
		Credential: credential,
		Status:     StatusProcessing,
		CreatedAt:  now.UTC(),
	}
}

// Summary returns the id/status pair handed back by writes
func (j *Job) Summary() JobSummary {
	return JobSummary{ID: j.ID, Status: j.Status}
}

// JobSummary identifies a job and its status after a write
type JobSummary struct {
	ID     string    `json:"jobId"`
	Status JobStatus `json:"status"`
}

// JobCompletion describes a terminal transition
type JobCompletion struct {
	Status       JobStatus
	Results      *JobResults
	ErrorMessage string
}

// Validate enforces that a completion is terminal and carries exactly the
// fields its status allows
func (c JobCompletion) Validate() error {
	switch c.Status {
	case StatusCompleted:
		if c.ErrorMessage != "" {
			return fmt.Errorf("%w: completed job cannot carry an error message", ErrInvalidInput)
		}
	case StatusFailed:
		if c.Results != nil {
			return fmt.Errorf("%w: failed job cannot carry results", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: %q is not a terminal status", ErrInvalidInput, c.Status)
	}
	return nil
}

// Apply returns a copy of job moved into the terminal state at the given time
func (c JobCompletion) Apply(job Job, at time.Time) Job {
	completedAt := at.UTC()
	job.Status = c.Status
	job.CompletedAt = &completedAt
	job.Results = nil
	job.ErrorMessage = ""

	if c.Status == StatusCompleted {
		results := JobResults{Items: []string{}}
		if c.Results != nil {
			results = *c.Results
			if results.Items == nil {
				results.Items = []string{}
			}
		}
		job.Results = &results
	} else {
		job.ErrorMessage = c.ErrorMessage
	}
	return job
}

// JobView is the poll response for a job; the credential is never exposed
type JobView struct {
	JobID       string      `json:"jobId"`
	Status      JobStatus   `json:"status"`
	Target      string      `json:"target"`
	CreatedAt   time.Time   `json:"createdAt"`
	CompletedAt *time.Time  `json:"completedAt,omitempty"`
	Results     *JobResults `json:"results,omitempty"`
	TotalItems  *int        `json:"totalItems,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// View projects a stored job into its client-facing shape
func (j *Job) View() JobView {
	view := JobView{
		JobID:       j.ID,
		Status:      j.Status,
		Target:      j.Target,
		CreatedAt:   j.CreatedAt,
		CompletedAt: j.CompletedAt,
	}

	switch j.Status {
	case StatusCompleted:
		view.Results = j.Results
		if j.Results != nil {
			total := j.Results.ItemCount
			view.TotalItems = &total
		}
	case StatusFailed:
		view.Error = j.ErrorMessage
	}
	return view
}

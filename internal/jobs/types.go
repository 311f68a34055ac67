package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/bank-notifier/internal/domain"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeDeliverTransaction hands a parsed transaction to the configured sink.
	JobTypeDeliverTransaction JobType = "deliver_transaction"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// ErrJobNotFound is returned by a JobStore for an unknown job ID.
var ErrJobNotFound = errors.New("job not found")

// ErrQueueClosed is returned when publishing to a stopped queue.
var ErrQueueClosed = errors.New("queue is closed")

// DeliverTransactionJob carries one parsed transaction to a sink.
type DeliverTransactionJob struct {
	JobID string `json:"job_id"`

	// RequestID links the job to its request log entry.
	RequestID string `json:"request_id,omitempty"`

	Package     string             `json:"package"`
	Transaction domain.Transaction `json:"transaction"`
	OccurredAt  time.Time          `json:"occurred_at"`

	// SinkID is the identifier the sink assigned, set on success.
	SinkID string `json:"sink_id,omitempty"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	RetryCount  int        `json:"retry_count"`
	MaxRetries  int        `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *DeliverTransactionJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *DeliverTransactionJob) GetType() JobType {
	return JobTypeDeliverTransaction
}

// GetStatus implements the Job interface.
func (j *DeliverTransactionJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher enqueues delivery jobs.
type Publisher interface {
	PublishDeliverTransaction(ctx context.Context, job *DeliverTransactionJob) error
	Close() error
}

// Consumer runs a handler over queued jobs.
type Consumer interface {
	// Start launches the workers and returns immediately.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. A returned error makes the job eligible for retry.
type JobHandler func(ctx context.Context, job Job) error

// JobStore keeps job state for the status endpoints.
type JobStore interface {
	SaveJob(ctx context.Context, job *DeliverTransactionJob) error
	GetJob(ctx context.Context, jobID string) (*DeliverTransactionJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*DeliverTransactionJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	Package string
	Status  JobStatus
	Limit   int
	Offset  int
}

package jobs

import (
	"context"
	"time"
)

// JobType identifies what a job does.
type JobType string

const (
	// JobTypeArchiveDataset copies an ingested dataset to long-term storage
	// (GCS objects plus BigQuery rows).
	JobTypeArchiveDataset JobType = "archive_dataset"
)

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// ArchiveDatasetJob asks the worker to archive one ingested dataset. The
// job is strictly best-effort: queries keep working whether or not it ever
// runs.
type ArchiveDatasetJob struct {
	JobID     string `json:"job_id"`
	DatasetID string `json:"dataset_id"`

	// Filename is the original name of the uploaded extract.
	Filename string `json:"filename"`

	// CSVPath and ParquetPath are the local artifacts to archive.
	CSVPath     string `json:"csv_path,omitempty"`
	ParquetPath string `json:"parquet_path,omitempty"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	RetryCount  int        `json:"retry_count"`
	MaxRetries  int        `json:"max_retries"`
}

// Job is the generic view of a queued unit of work.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

func (j *ArchiveDatasetJob) GetID() string        { return j.JobID }
func (j *ArchiveDatasetJob) GetType() JobType     { return JobTypeArchiveDataset }
func (j *ArchiveDatasetJob) GetStatus() JobStatus { return j.Status }

// Publisher enqueues jobs. The in-memory queue implements it; a Cloud Tasks
// or Pub/Sub implementation could replace it without touching callers.
type Publisher interface {
	PublishArchiveDataset(ctx context.Context, job *ArchiveDatasetJob) error
	Close() error
}

// Consumer drains the queue.
type Consumer interface {
	// Start begins consuming; handler is invoked for each job.
	Start(ctx context.Context, handler JobHandler) error

	// Stop waits for in-flight jobs to finish.
	Stop(ctx context.Context) error
}

// JobHandler processes one job; a non-nil error triggers a retry.
type JobHandler func(ctx context.Context, job Job) error

// JobStore tracks job state so callers can poll progress.
type JobStore interface {
	SaveJob(ctx context.Context, job *ArchiveDatasetJob) error
	GetJob(ctx context.Context, jobID string) (*ArchiveDatasetJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*ArchiveDatasetJob, error)
}

// JobFilter narrows ListJobs results.
type JobFilter struct {
	DatasetID string
	Status    JobStatus
	Limit     int
	Offset    int
}

package inmemory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/jobs"
)

func waitForStatus(t *testing.T, store *Store, jobID string, want jobs.JobStatus) *jobs.ArchiveDatasetJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), jobID)
		if err == nil && job.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", jobID, want)
	return nil
}

func TestQueue_ProcessesJob(t *testing.T) {
	store := NewStore()
	q := NewQueue(4, 1, store)
	defer q.Close()

	processed := make(chan string, 1)
	handler := func(ctx context.Context, job jobs.Job) error {
		processed <- job.GetID()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := q.Start(ctx, handler); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	job := &jobs.ArchiveDatasetJob{DatasetID: "ds-1", Filename: "upload.csv"}
	if err := q.PublishArchiveDataset(ctx, job); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if job.JobID == "" {
		t.Fatal("Publish did not assign a job ID")
	}

	select {
	case id := <-processed:
		if id != job.JobID {
			t.Errorf("processed job %s, want %s", id, job.JobID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("job never processed")
	}

	final := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	if final.Error != "" {
		t.Errorf("completed job has error %q", final.Error)
	}
}

func TestQueue_FailedJobIsMarked(t *testing.T) {
	store := NewStore()
	q := NewQueue(4, 1, store)
	defer q.Close()

	handler := func(ctx context.Context, job jobs.Job) error {
		return fmt.Errorf("archive backend unavailable")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := q.Start(ctx, handler); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// MaxRetries below zero disables retries entirely.
	job := &jobs.ArchiveDatasetJob{DatasetID: "ds-2", MaxRetries: -1}
	if err := q.PublishArchiveDataset(ctx, job); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	final := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	if final.Error == "" {
		t.Error("failed job should carry an error message")
	}
}

func TestQueue_PublishAfterCloseFails(t *testing.T) {
	q := NewQueue(1, 1, NewStore())
	if err := q.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	err := q.PublishArchiveDataset(context.Background(), &jobs.ArchiveDatasetJob{DatasetID: "ds-3"})
	if err == nil {
		t.Fatal("expected publish on closed queue to fail")
	}
}

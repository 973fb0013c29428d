package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"docflow-backend/internal/documents"
	"docflow-backend/internal/shared/metrics"
	"docflow-backend/internal/shared/telemetry"
)

// DocumentDirectory is what the job manager needs from the documents module:
// existence checks before creating a job and status sync after outcomes.
type DocumentDirectory interface {
	GetByID(ctx context.Context, documentID string) (documents.Document, error)
	SetStatus(ctx context.Context, documentID string, status documents.Status) error
}

// Enqueuer hands a persisted job to the worker pool.
type Enqueuer interface {
	Enqueue(jobID string)
}

// Service contains business logic for ingestion jobs.
type Service struct {
	Repo       Repo
	Docs       DocumentDirectory
	Dispatcher Enqueuer
	MaxRetries int

	// now is swappable in tests.
	now func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repo, docs DocumentDirectory, dispatcher Enqueuer, maxRetries int) *Service {
	if maxRetries <= 0 {
		maxRetries = 10
	}
	return &Service{
		Repo:       repo,
		Docs:       docs,
		Dispatcher: dispatcher,
		MaxRetries: maxRetries,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Create verifies the document exists, persists a pending job, and hands it
// to the dispatcher. The caller gets the pending job back immediately; the
// outcome arrives asynchronously.
func (s *Service) Create(ctx context.Context, documentID, actorID string) (Job, error) {
	if strings.TrimSpace(documentID) == "" {
		return Job{}, fmt.Errorf("%w: documentId is required", ErrInvalidInput)
	}

	if _, err := s.Docs.GetByID(ctx, documentID); err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			return Job{}, ErrDocumentNotFound
		}
		return Job{}, fmt.Errorf("document lookup: %w", err)
	}

	now := s.now()
	job := Job{
		ID:          uuid.NewString(),
		DocumentID:  documentID,
		CreatedByID: actorID,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Repo.Create(ctx, job); err != nil {
		return Job{}, err
	}

	telemetry.Info("ingestion.job_created", map[string]any{
		"job_id":      job.ID,
		"document_id": documentID,
		"user_id":     actorID,
	})
	if s.Dispatcher != nil {
		s.Dispatcher.Enqueue(job.ID)
	}
	return job, nil
}

// GetByID returns a job by ID.
func (s *Service) GetByID(ctx context.Context, jobID string) (Job, error) {
	if strings.TrimSpace(jobID) == "" {
		return Job{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, jobID)
}

// List returns one page of jobs plus the total count.
func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Job, int, error) {
	return s.Repo.List(ctx, filter, limit, offset)
}

// Retry re-queues a failed job. Only failed jobs are retryable, and the
// retry count is capped.
func (s *Service) Retry(ctx context.Context, jobID string) (Job, error) {
	job, err := s.Repo.GetByID(ctx, jobID)
	if err != nil {
		return Job{}, err
	}
	if job.Status != StatusFailed {
		return Job{}, fmt.Errorf("%w: job is %s", ErrNotRetryable, job.Status)
	}
	if job.RetryCount+1 > s.MaxRetries {
		return Job{}, fmt.Errorf("%w: %d attempts used", ErrRetryLimit, job.RetryCount)
	}

	moved, err := s.Repo.Retry(ctx, jobID)
	if err != nil {
		return Job{}, err
	}
	if !moved {
		// Lost a race with another retry or an admin action; report the
		// current state.
		job, err = s.Repo.GetByID(ctx, jobID)
		if err != nil {
			return Job{}, err
		}
		return Job{}, fmt.Errorf("%w: job is %s", ErrNotRetryable, job.Status)
	}

	job, err = s.Repo.GetByID(ctx, jobID)
	if err != nil {
		return Job{}, err
	}

	metrics.IncJobRetried()
	telemetry.Info("ingestion.job_retried", map[string]any{
		"job_id":      job.ID,
		"document_id": job.DocumentID,
		"retry_count": job.RetryCount,
	})
	if s.Dispatcher != nil {
		s.Dispatcher.Enqueue(job.ID)
	}
	return job, nil
}

// Cancel stops a queued or running job. The cancel is logical: an in-flight
// processing call is not interrupted, but its outcome can no longer
// overwrite the canceled state.
func (s *Service) Cancel(ctx context.Context, jobID string) (Job, error) {
	job, err := s.Repo.GetByID(ctx, jobID)
	if err != nil {
		return Job{}, err
	}
	if job.Status != StatusQueued && job.Status != StatusRunning {
		return Job{}, fmt.Errorf("%w: job is %s", ErrNotCancelable, job.Status)
	}

	moved, err := s.Repo.Cancel(ctx, jobID, s.now())
	if err != nil {
		return Job{}, err
	}
	if !moved {
		job, err = s.Repo.GetByID(ctx, jobID)
		if err != nil {
			return Job{}, err
		}
		return Job{}, fmt.Errorf("%w: job is %s", ErrNotCancelable, job.Status)
	}

	job, err = s.Repo.GetByID(ctx, jobID)
	if err != nil {
		return Job{}, err
	}

	metrics.IncJobCanceled()
	s.syncDocument(ctx, job.DocumentID, documents.StatusFailed)
	telemetry.Info("ingestion.job_canceled", map[string]any{
		"job_id":      job.ID,
		"document_id": job.DocumentID,
	})
	return job, nil
}

// JobStatus is the projection returned by GetStatus.
type JobStatus struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	DocumentID  string     `json:"documentId"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Error       string     `json:"error,omitempty"`
	// Progress is a time-based estimate reported only while the job runs.
	Progress *int `json:"progress,omitempty"`
}

// GetStatus returns a lightweight status projection. While the job runs the
// progress percentage is estimated from elapsed time against a nominal
// ten-second run.
func (s *Service) GetStatus(ctx context.Context, jobID string) (JobStatus, error) {
	job, err := s.Repo.GetByID(ctx, jobID)
	if err != nil {
		return JobStatus{}, err
	}

	status := JobStatus{
		ID:          job.ID,
		Status:      string(job.Status),
		DocumentID:  job.DocumentID,
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
		Error:       job.Error,
	}
	if job.Status == StatusRunning {
		progress := estimateProgress(job.CreatedAt, s.now())
		status.Progress = &progress
	}
	return status, nil
}

func (s *Service) syncDocument(ctx context.Context, documentID string, status documents.Status) {
	if s.Docs == nil {
		return
	}
	if err := s.Docs.SetStatus(ctx, documentID, status); err != nil {
		telemetry.Warn("ingestion.document_sync_failed", map[string]any{
			"document_id": documentID,
			"status":      status,
			"error":       err.Error(),
		})
	}
}

// estimateProgress maps elapsed time onto a 0-100 percentage, saturating at
// 100 against a nominal ten-second run.
func estimateProgress(createdAt, now time.Time) int {
	elapsed := now.Sub(createdAt).Milliseconds()
	if elapsed < 0 {
		return 0
	}
	progress := int(elapsed * 100 / 10_000)
	if progress > 100 {
		progress = 100
	}
	return progress
}

package ingestion

import (
	"context"
	"time"
)

// ListFilter narrows List results. A zero value lists everything.
type ListFilter struct {
	OwnerID string
	Status  Status
}

// Repo defines persistence operations for ingestion jobs. The conditional
// transition methods return false when the job was not in the required state,
// which is how concurrent cancels and dispatches stay consistent.
type Repo interface {
	Create(ctx context.Context, job Job) error
	GetByID(ctx context.Context, jobID string) (Job, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]Job, int, error)
	// DeleteByDocument removes every job belonging to a document. Postgres
	// cascades this through the schema; callers still go through the repo so
	// the in-memory implementation stays consistent.
	DeleteByDocument(ctx context.Context, documentID string) error

	// SetRunning moves a pending or queued job to running.
	SetRunning(ctx context.Context, jobID string, startedAt time.Time) (bool, error)
	// Complete moves a running job to completed with its result.
	Complete(ctx context.Context, jobID string, result map[string]any, completedAt time.Time) (bool, error)
	// Fail moves a running job to failed with an error message.
	Fail(ctx context.Context, jobID string, errMsg string, completedAt time.Time) (bool, error)
	// Cancel moves a queued or running job to failed with CancelMessage.
	Cancel(ctx context.Context, jobID string, completedAt time.Time) (bool, error)
	// Retry moves a failed job back to queued, bumping its retry count and
	// clearing the previous outcome.
	Retry(ctx context.Context, jobID string) (bool, error)
}

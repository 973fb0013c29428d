package ingestion

import "time"

// Status tracks the lifecycle of an ingestion job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// NormalizeStatus maps stored status values onto the canonical set. Older
// rows may carry "processing" where "running" is now written.
func NormalizeStatus(raw string) Status {
	if raw == "processing" {
		return StatusRunning
	}
	return Status(raw)
}

// IsTerminal reports whether a job can no longer move on its own. Failed jobs
// stay retryable through Retry, which is an explicit user action.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one ingestion run of a document through the processing service.
type Job struct {
	ID          string
	DocumentID  string
	CreatedByID string
	Status      Status
	RetryCount  int
	Result      map[string]any
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

package ingestion

import "time"

// JobResponse is the outward-facing representation of a job.
type JobResponse struct {
	ID          string         `json:"id"`
	DocumentID  string         `json:"documentId"`
	CreatedByID string         `json:"createdById"`
	Status      string         `json:"status"`
	RetryCount  int            `json:"retryCount"`
	Result      map[string]any `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	StartedAt   *time.Time     `json:"startedAt,omitempty"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// ToResponse converts a stored job to its API shape.
func ToResponse(job Job) JobResponse {
	return JobResponse{
		ID:          job.ID,
		DocumentID:  job.DocumentID,
		CreatedByID: job.CreatedByID,
		Status:      string(job.Status),
		RetryCount:  job.RetryCount,
		Result:      job.Result,
		Error:       job.Error,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
	}
}

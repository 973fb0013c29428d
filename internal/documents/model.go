package documents

import "time"

// Status tracks where a document sits in its processing lifecycle. It is
// driven by the outcome of the document's ingestion jobs.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusFailed     Status = "failed"
)

// Document represents an uploaded document and its stored blob.
type Document struct {
	ID           string
	Title        string
	Description  string
	StorageKey   string
	Status       Status
	CreatedByID  string
	AssignedToID string // empty when unassigned
	Metadata     map[string]any
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

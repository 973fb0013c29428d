// Package processing talks to the external document-processing service. Only
// its contract is modeled here; callers treat it as a black box that either
// returns a result payload or an error.
package processing

import "context"

// Request identifies one processing run.
type Request struct {
	JobID      string         `json:"jobId"`
	DocumentID string         `json:"documentId"`
	Options    map[string]any `json:"options,omitempty"`
}

// Result is the opaque outcome payload returned by the service.
type Result map[string]any

// Client dispatches a document to the processing service and waits for the
// outcome. Implementations must honor ctx cancellation and deadlines.
type Client interface {
	Process(ctx context.Context, req Request) (Result, error)
}

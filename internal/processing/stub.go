package processing

import (
	"context"
	"time"
)

// StubClient simulates the processing service when no base URL is configured.
// It lets the API run end-to-end in development without the real backend.
type StubClient struct {
	// Delay is how long a simulated run takes. Zero completes immediately.
	Delay time.Duration
}

// Process waits for the configured delay and returns a canned result.
func (s *StubClient) Process(ctx context.Context, in Request) (Result, error) {
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return Result{
		"documentId": in.DocumentID,
		"simulated":  true,
	}, nil
}

var _ Client = (*StubClient)(nil)

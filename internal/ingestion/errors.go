package ingestion

import "errors"

var (
	ErrNotFound         = errors.New("job not found")
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotRetryable     = errors.New("only failed jobs can be retried")
	ErrRetryLimit       = errors.New("retry limit reached")
	ErrNotCancelable    = errors.New("only queued or running jobs can be canceled")
)

// CancelMessage is the error text recorded on a job canceled by a user.
// Clients match on it, so the wording is part of the API contract.
const CancelMessage = "Job was canceled by user"

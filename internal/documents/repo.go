package documents

import "context"

// ListFilter narrows List results. A zero value lists everything.
type ListFilter struct {
	// ViewerID restricts results to documents the viewer owns or is
	// assigned to. Empty means no ownership restriction.
	ViewerID string
	Status   Status
}

// Repo defines persistence operations for documents.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, documentID string) (Document, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]Document, int, error)
	Update(ctx context.Context, doc Document) error
	UpdateStatus(ctx context.Context, documentID string, status Status) error
	Delete(ctx context.Context, documentID string) error
}

package ingestion

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo used when no database
// is configured and in tests.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Job // id -> job
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Job)}
}

// Create stores a new job.
func (r *MemoryRepo) Create(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[job.ID] = cloneJob(job)
	return nil
}

// GetByID returns a job by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, jobID string) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.data[jobID]
	if !ok {
		return Job{}, ErrNotFound
	}
	return cloneJob(job), nil
}

// List returns matching jobs newest-first plus the total match count.
func (r *MemoryRepo) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Job, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.mu.RLock()
	matched := make([]Job, 0, len(r.data))
	for _, job := range r.data {
		if filter.OwnerID != "" && job.CreatedByID != filter.OwnerID {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		matched = append(matched, cloneJob(job))
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []Job{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return matched[offset:end], total, nil
}

// DeleteByDocument removes every job belonging to a document.
func (r *MemoryRepo) DeleteByDocument(ctx context.Context, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, job := range r.data {
		if job.DocumentID == documentID {
			delete(r.data, id)
		}
	}
	return nil
}

// SetRunning moves a pending or queued job to running.
func (r *MemoryRepo) SetRunning(ctx context.Context, jobID string, startedAt time.Time) (bool, error) {
	return r.transition(ctx, jobID, func(job *Job) bool {
		if job.Status != StatusPending && job.Status != StatusQueued {
			return false
		}
		job.Status = StatusRunning
		job.StartedAt = &startedAt
		return true
	})
}

// Complete moves a running job to completed.
func (r *MemoryRepo) Complete(ctx context.Context, jobID string, result map[string]any, completedAt time.Time) (bool, error) {
	return r.transition(ctx, jobID, func(job *Job) bool {
		if job.Status != StatusRunning {
			return false
		}
		job.Status = StatusCompleted
		job.Result = result
		job.Error = ""
		job.CompletedAt = &completedAt
		return true
	})
}

// Fail moves a running job to failed.
func (r *MemoryRepo) Fail(ctx context.Context, jobID string, errMsg string, completedAt time.Time) (bool, error) {
	return r.transition(ctx, jobID, func(job *Job) bool {
		if job.Status != StatusRunning {
			return false
		}
		job.Status = StatusFailed
		job.Error = errMsg
		job.CompletedAt = &completedAt
		return true
	})
}

// Cancel moves a queued or running job to failed with the cancel message.
func (r *MemoryRepo) Cancel(ctx context.Context, jobID string, completedAt time.Time) (bool, error) {
	return r.transition(ctx, jobID, func(job *Job) bool {
		if job.Status != StatusQueued && job.Status != StatusRunning {
			return false
		}
		job.Status = StatusFailed
		job.Error = CancelMessage
		job.CompletedAt = &completedAt
		return true
	})
}

// Retry moves a failed job back to queued.
func (r *MemoryRepo) Retry(ctx context.Context, jobID string) (bool, error) {
	return r.transition(ctx, jobID, func(job *Job) bool {
		if job.Status != StatusFailed {
			return false
		}
		job.Status = StatusQueued
		job.RetryCount++
		job.Error = ""
		job.Result = nil
		job.StartedAt = nil
		job.CompletedAt = nil
		return true
	})
}

func (r *MemoryRepo) transition(ctx context.Context, jobID string, apply func(*Job) bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.data[jobID]
	if !ok {
		return false, nil
	}
	if !apply(&job) {
		return false, nil
	}
	job.UpdatedAt = time.Now().UTC()
	r.data[jobID] = job
	return true, nil
}

func cloneJob(job Job) Job {
	if job.Result != nil {
		result := make(map[string]any, len(job.Result))
		for k, v := range job.Result {
			result[k] = v
		}
		job.Result = result
	}
	return job
}

var _ Repo = (*MemoryRepo)(nil)

package ingestion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"docflow-backend/internal/documents"
)

type fakeDocs struct {
	mu       sync.Mutex
	existing map[string]bool
	statuses map[string]documents.Status
}

func newFakeDocs(ids ...string) *fakeDocs {
	existing := make(map[string]bool, len(ids))
	for _, id := range ids {
		existing[id] = true
	}
	return &fakeDocs{existing: existing, statuses: make(map[string]documents.Status)}
}

func (f *fakeDocs) GetByID(ctx context.Context, documentID string) (documents.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.existing[documentID] {
		return documents.Document{}, documents.ErrNotFound
	}
	return documents.Document{ID: documentID}, nil
}

func (f *fakeDocs) SetStatus(ctx context.Context, documentID string, status documents.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[documentID] = status
	return nil
}

func (f *fakeDocs) statusOf(documentID string) documents.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[documentID]
}

type recordingEnqueuer struct {
	mu   sync.Mutex
	jobs []string
}

func (r *recordingEnqueuer) Enqueue(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, jobID)
}

func (r *recordingEnqueuer) enqueued() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.jobs...)
}

func newTestService(t *testing.T, docIDs ...string) (*Service, *MemoryRepo, *recordingEnqueuer) {
	t.Helper()
	repo := NewMemoryRepo()
	enq := &recordingEnqueuer{}
	svc := NewService(repo, newFakeDocs(docIDs...), enq, 10)
	return svc, repo, enq
}

func TestCreateReturnsPendingAndEnqueues(t *testing.T) {
	svc, _, enq := newTestService(t, "doc-1")

	job, err := svc.Create(context.Background(), "doc-1", "user-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if job.Status != StatusPending {
		t.Fatalf("expected pending, got %s", job.Status)
	}
	if job.RetryCount != 0 {
		t.Fatalf("expected zero retries, got %d", job.RetryCount)
	}
	if got := enq.enqueued(); len(got) != 1 || got[0] != job.ID {
		t.Fatalf("expected job enqueued once, got %v", got)
	}
}

func TestCreateRejectsMissingDocument(t *testing.T) {
	svc, repo, enq := newTestService(t)

	if _, err := svc.Create(context.Background(), "ghost", "user-1"); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if _, total, _ := repo.List(context.Background(), ListFilter{}, 10, 0); total != 0 {
		t.Fatalf("nothing should be persisted, got %d jobs", total)
	}
	if len(enq.enqueued()) != 0 {
		t.Fatal("nothing should be enqueued")
	}
}

func TestRetryOnlyFromFailed(t *testing.T) {
	svc, repo, _ := newTestService(t, "doc-1")
	ctx := context.Background()

	job, err := svc.Create(ctx, "doc-1", "user-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Pending is not retryable.
	if _, err := svc.Retry(ctx, job.ID); !errors.Is(err, ErrNotRetryable) {
		t.Fatalf("expected ErrNotRetryable for pending, got %v", err)
	}

	// Drive the job to failed.
	if _, err := repo.SetRunning(ctx, job.ID, time.Now().UTC()); err != nil {
		t.Fatalf("SetRunning: %v", err)
	}
	if _, err := repo.Fail(ctx, job.ID, "backend exploded", time.Now().UTC()); err != nil {
		t.Fatalf("Fail: %v", err)
	}

	retried, err := svc.Retry(ctx, job.ID)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if retried.Status != StatusQueued {
		t.Fatalf("expected queued after retry, got %s", retried.Status)
	}
	if retried.RetryCount != 1 {
		t.Fatalf("expected retry count 1, got %d", retried.RetryCount)
	}
	if retried.Error != "" {
		t.Fatalf("expected error cleared, got %q", retried.Error)
	}
	if retried.CompletedAt != nil {
		t.Fatal("expected completedAt cleared")
	}
}

func TestRetryEnforcesCeiling(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo, newFakeDocs("doc-1"), &recordingEnqueuer{}, 2)
	ctx := context.Background()

	job, err := svc.Create(ctx, "doc-1", "user-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	failJob := func() {
		t.Helper()
		if _, err := repo.SetRunning(ctx, job.ID, time.Now().UTC()); err != nil {
			t.Fatalf("SetRunning: %v", err)
		}
		if _, err := repo.Fail(ctx, job.ID, "boom", time.Now().UTC()); err != nil {
			t.Fatalf("Fail: %v", err)
		}
	}

	failJob()
	if _, err := svc.Retry(ctx, job.ID); err != nil {
		t.Fatalf("first retry: %v", err)
	}
	failJob()
	if _, err := svc.Retry(ctx, job.ID); err != nil {
		t.Fatalf("second retry: %v", err)
	}
	failJob()
	if _, err := svc.Retry(ctx, job.ID); !errors.Is(err, ErrRetryLimit) {
		t.Fatalf("expected ErrRetryLimit on third retry, got %v", err)
	}
}

func TestCancelQueuedJob(t *testing.T) {
	svc, repo, _ := newTestService(t, "doc-1")
	ctx := context.Background()

	job, err := svc.Create(ctx, "doc-1", "user-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	// Pending jobs are not yet cancelable; only queued and running are.
	if _, err := svc.Cancel(ctx, job.ID); !errors.Is(err, ErrNotCancelable) {
		t.Fatalf("expected ErrNotCancelable for pending, got %v", err)
	}

	if _, err := repo.SetRunning(ctx, job.ID, time.Now().UTC()); err != nil {
		t.Fatalf("SetRunning: %v", err)
	}

	canceled, err := svc.Cancel(ctx, job.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if canceled.Status != StatusFailed {
		t.Fatalf("expected failed after cancel, got %s", canceled.Status)
	}
	if canceled.Error != CancelMessage {
		t.Fatalf("expected cancel message %q, got %q", CancelMessage, canceled.Error)
	}
	if canceled.CompletedAt == nil {
		t.Fatal("expected completedAt set")
	}
}

func TestCancelRejectsTerminalStates(t *testing.T) {
	svc, repo, _ := newTestService(t, "doc-1")
	ctx := context.Background()

	job, err := svc.Create(ctx, "doc-1", "user-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repo.SetRunning(ctx, job.ID, time.Now().UTC()); err != nil {
		t.Fatalf("SetRunning: %v", err)
	}
	if _, err := repo.Complete(ctx, job.ID, map[string]any{"ok": true}, time.Now().UTC()); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if _, err := svc.Cancel(ctx, job.ID); !errors.Is(err, ErrNotCancelable) {
		t.Fatalf("expected ErrNotCancelable for completed, got %v", err)
	}
	// Completed jobs are not retryable either.
	if _, err := svc.Retry(ctx, job.ID); !errors.Is(err, ErrNotRetryable) {
		t.Fatalf("expected ErrNotRetryable for completed, got %v", err)
	}

	got, err := svc.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("terminal state must be immovable, got %s", got.Status)
	}
}

func TestGetStatusReportsProgressWhileRunning(t *testing.T) {
	svc, repo, _ := newTestService(t, "doc-1")
	ctx := context.Background()

	job, err := svc.Create(ctx, "doc-1", "user-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	status, err := svc.GetStatus(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status.Progress != nil {
		t.Fatalf("pending jobs report no progress, got %v", *status.Progress)
	}

	if _, err := repo.SetRunning(ctx, job.ID, time.Now().UTC()); err != nil {
		t.Fatalf("SetRunning: %v", err)
	}
	svc.now = func() time.Time { return job.CreatedAt.Add(5 * time.Second) }

	status, err = svc.GetStatus(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status.Progress == nil || *status.Progress != 50 {
		t.Fatalf("expected progress 50 at 5s, got %v", status.Progress)
	}
	if status.DocumentID != "doc-1" || status.ID != job.ID {
		t.Fatalf("unexpected projection %+v", status)
	}
}

func TestEstimateProgress(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		elapsed time.Duration
		want    int
	}{
		{0, 0},
		{500 * time.Millisecond, 5},
		{5 * time.Second, 50},
		{10 * time.Second, 100},
		{25 * time.Second, 100},
		{-time.Second, 0},
	}
	for _, tc := range cases {
		if got := estimateProgress(base, base.Add(tc.elapsed)); got != tc.want {
			t.Errorf("estimateProgress(%v) = %d, want %d", tc.elapsed, got, tc.want)
		}
	}
}

func TestListFiltersByOwnerAndStatus(t *testing.T) {
	svc, repo, _ := newTestService(t, "doc-1", "doc-2")
	ctx := context.Background()

	mine, err := svc.Create(ctx, "doc-1", "user-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Create(ctx, "doc-2", "user-2"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	list, total, err := svc.List(ctx, ListFilter{OwnerID: "user-1"}, 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(list) != 1 || list[0].ID != mine.ID {
		t.Fatalf("expected only user-1 job, got total=%d", total)
	}

	if _, err := repo.SetRunning(ctx, mine.ID, time.Now().UTC()); err != nil {
		t.Fatalf("SetRunning: %v", err)
	}
	_, total, err = svc.List(ctx, ListFilter{Status: StatusRunning}, 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected one running job, got %d", total)
	}
}

package ingestion

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"docflow-backend/internal/documents"
	"docflow-backend/internal/processing"
	"docflow-backend/internal/shared/metrics"
	"docflow-backend/internal/shared/telemetry"
)

// DispatcherOptions tunes the worker pool.
type DispatcherOptions struct {
	Workers   int
	QueueSize int
	// Timeout bounds one processing call. A run that exceeds it fails the job.
	Timeout time.Duration
}

// Dispatcher runs ingestion jobs on a bounded worker pool. Per-job keyed
// locks give each job mutual exclusion, so a retry enqueued while an earlier
// run is still in flight is serialized instead of racing it.
type Dispatcher struct {
	jobs    Repo
	docs    DocumentDirectory
	client  processing.Client
	timeout time.Duration

	queue chan string
	wg    sync.WaitGroup
	// pending tracks detached overflow sends so Close can wait them out
	// before closing the queue.
	pending sync.WaitGroup

	mu     sync.Mutex
	closed bool
	locks  map[string]*sync.Mutex
}

// NewDispatcher constructs a Dispatcher and starts its workers.
func NewDispatcher(jobs Repo, docs DocumentDirectory, client processing.Client, opts DispatcherOptions) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 100
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	d := &Dispatcher{
		jobs:    jobs,
		docs:    docs,
		client:  client,
		timeout: opts.Timeout,
		queue:   make(chan string, opts.QueueSize),
		locks:   make(map[string]*sync.Mutex),
	}
	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Enqueue hands a job to the pool. It never blocks the caller; when the
// buffer is full the send is completed from a goroutine that Close waits
// out, so the queue is never closed under a pending send.
func (d *Dispatcher) Enqueue(jobID string) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		telemetry.Warn("ingestion.enqueue_after_close", map[string]any{"job_id": jobID})
		return
	}

	select {
	case d.queue <- jobID:
		d.mu.Unlock()
		return
	default:
	}

	d.pending.Add(1)
	d.mu.Unlock()

	telemetry.Warn("ingestion.queue_full", map[string]any{"job_id": jobID})
	go func() {
		defer d.pending.Done()
		d.queue <- jobID
	}()
}

// Close stops accepting jobs and waits for in-flight work to drain. Overflow
// sends registered before the close finish first; the workers keep consuming
// until the queue is closed, so those sends cannot deadlock.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.pending.Wait()
	close(d.queue)
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for jobID := range d.queue {
		d.process(jobID)
	}
}

// process runs one job to a terminal state. All terminal writes go through
// conditional repo transitions, so a cancel that lands mid-run wins and the
// worker's write becomes a no-op.
func (d *Dispatcher) process(jobID string) {
	unlock := d.lock(jobID)
	defer unlock()

	defer func() {
		if r := recover(); r != nil {
			d.fail(context.Background(), jobID, fmt.Errorf("panic: %v", r))
		}
	}()

	ctx := context.Background()

	startedAt := time.Now().UTC()
	moved, err := d.jobs.SetRunning(ctx, jobID, startedAt)
	if err != nil {
		telemetry.Error("ingestion.set_running_failed", map[string]any{"job_id": jobID, "error": err.Error()})
		return
	}
	if !moved {
		// Canceled or already handled before the worker got to it.
		telemetry.Info("ingestion.dispatch_skipped", map[string]any{"job_id": jobID})
		return
	}

	job, err := d.jobs.GetByID(ctx, jobID)
	if err != nil {
		d.fail(ctx, jobID, fmt.Errorf("job lookup: %w", err))
		return
	}

	metrics.IncJobStarted()
	d.syncDocument(ctx, job.DocumentID, documents.StatusProcessing)
	telemetry.Info("ingestion.job_status", map[string]any{
		"job_id":            job.ID,
		"document_id":       job.DocumentID,
		"status":            StatusRunning,
		"status_transition": "queued->running",
		"retry_count":       job.RetryCount,
	})

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	result, err := d.client.Process(callCtx, processing.Request{
		JobID:      job.ID,
		DocumentID: job.DocumentID,
	})
	cancel()
	if err != nil {
		d.failJob(ctx, job, err, startedAt)
		return
	}

	completedAt := time.Now().UTC()
	moved, err = d.jobs.Complete(ctx, jobID, result, completedAt)
	if err != nil {
		telemetry.Error("ingestion.complete_failed", map[string]any{"job_id": jobID, "error": err.Error()})
		return
	}
	if !moved {
		// A concurrent cancel reached the terminal state first.
		telemetry.Info("ingestion.complete_skipped", map[string]any{"job_id": jobID})
		return
	}

	metrics.IncJobCompleted()
	metrics.ObserveJobDurationMs(float64(completedAt.Sub(startedAt).Milliseconds()))
	d.syncDocument(ctx, job.DocumentID, documents.StatusProcessed)
	telemetry.Info("ingestion.job_status", map[string]any{
		"job_id":            job.ID,
		"document_id":       job.DocumentID,
		"status":            StatusCompleted,
		"status_transition": "running->completed",
		"duration_ms":       completedAt.Sub(startedAt).Milliseconds(),
	})
}

func (d *Dispatcher) failJob(ctx context.Context, job Job, cause error, startedAt time.Time) {
	completedAt := time.Now().UTC()
	moved, err := d.jobs.Fail(ctx, job.ID, sanitizeError(cause), completedAt)
	if err != nil {
		telemetry.Error("ingestion.fail_write_failed", map[string]any{"job_id": job.ID, "error": err.Error()})
		return
	}
	if !moved {
		telemetry.Info("ingestion.fail_skipped", map[string]any{"job_id": job.ID})
		return
	}

	metrics.IncJobFailed()
	metrics.ObserveJobDurationMs(float64(completedAt.Sub(startedAt).Milliseconds()))
	d.syncDocument(ctx, job.DocumentID, documents.StatusFailed)
	telemetry.Warn("ingestion.job_status", map[string]any{
		"job_id":            job.ID,
		"document_id":       job.DocumentID,
		"status":            StatusFailed,
		"status_transition": "running->failed",
		"error":             sanitizeError(cause),
	})
}

// fail handles failures where the job record may not have been loaded.
func (d *Dispatcher) fail(ctx context.Context, jobID string, cause error) {
	moved, err := d.jobs.Fail(ctx, jobID, sanitizeError(cause), time.Now().UTC())
	if err != nil {
		telemetry.Error("ingestion.fail_write_failed", map[string]any{"job_id": jobID, "error": err.Error()})
		return
	}
	if !moved {
		telemetry.Info("ingestion.fail_skipped", map[string]any{"job_id": jobID})
		return
	}
	metrics.IncJobFailed()
}

func (d *Dispatcher) syncDocument(ctx context.Context, documentID string, status documents.Status) {
	if d.docs == nil {
		return
	}
	if err := d.docs.SetStatus(ctx, documentID, status); err != nil {
		telemetry.Warn("ingestion.document_sync_failed", map[string]any{
			"document_id": documentID,
			"status":      status,
			"error":       err.Error(),
		})
	}
}

func (d *Dispatcher) lock(jobID string) func() {
	d.mu.Lock()
	m, ok := d.locks[jobID]
	if !ok {
		m = &sync.Mutex{}
		d.locks[jobID] = m
	}
	d.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}

package ingestion

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres. Transition methods rely on
// conditional UPDATEs so concurrent writers cannot clobber a terminal state.
type PGRepo struct {
	DB *sql.DB
}

const jobColumns = `id, document_id, created_by_id, status, retry_count, result, error, started_at, completed_at, created_at, updated_at`

// Create inserts a new job.
func (r *PGRepo) Create(ctx context.Context, job Job) error {
	const query = `
INSERT INTO ingestion_jobs (` + jobColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	result, err := marshalResult(job.Result)
	if err != nil {
		return err
	}

	_, err = r.DB.ExecContext(
		ctx,
		query,
		job.ID,
		job.DocumentID,
		job.CreatedByID,
		string(job.Status),
		job.RetryCount,
		result,
		job.Error,
		job.StartedAt,
		job.CompletedAt,
		job.CreatedAt,
		job.UpdatedAt,
	)
	return err
}

// GetByID fetches a job by ID.
func (r *PGRepo) GetByID(ctx context.Context, jobID string) (Job, error) {
	const query = `
SELECT ` + jobColumns + `
FROM ingestion_jobs
WHERE id = $1`
	job, err := scanJob(r.DB.QueryRowContext(ctx, query, jobID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, ErrNotFound
		}
		return Job{}, err
	}
	return job, nil
}

// DeleteByDocument removes every job belonging to a document. The schema
// already cascades on document delete; this keeps the repo contract uniform
// across implementations.
func (r *PGRepo) DeleteByDocument(ctx context.Context, documentID string) error {
	const query = `DELETE FROM ingestion_jobs WHERE document_id = $1`
	_, err := r.DB.ExecContext(ctx, query, documentID)
	return err
}

// List returns jobs newest-first plus the total count for the filter.
func (r *PGRepo) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Job, int, error) {
	where := "WHERE 1=1"
	args := []any{}
	if filter.OwnerID != "" {
		args = append(args, filter.OwnerID)
		where += fmt.Sprintf(" AND created_by_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM ingestion_jobs "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`
SELECT `+jobColumns+`
FROM ingestion_jobs
%s
ORDER BY created_at DESC
LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, job)
	}
	return out, total, rows.Err()
}

// SetRunning moves a pending or queued job to running.
func (r *PGRepo) SetRunning(ctx context.Context, jobID string, startedAt time.Time) (bool, error) {
	const query = `
UPDATE ingestion_jobs
SET status = 'running', started_at = $1, updated_at = now()
WHERE id = $2 AND status IN ('pending', 'queued')`
	return r.transition(ctx, query, startedAt, jobID)
}

// Complete moves a running job to completed.
func (r *PGRepo) Complete(ctx context.Context, jobID string, result map[string]any, completedAt time.Time) (bool, error) {
	encoded, err := marshalResult(result)
	if err != nil {
		return false, err
	}
	const query = `
UPDATE ingestion_jobs
SET status = 'completed', result = $1, error = '', completed_at = $2, updated_at = now()
WHERE id = $3 AND status = 'running'`
	return r.transition(ctx, query, encoded, completedAt, jobID)
}

// Fail moves a running job to failed.
func (r *PGRepo) Fail(ctx context.Context, jobID string, errMsg string, completedAt time.Time) (bool, error) {
	const query = `
UPDATE ingestion_jobs
SET status = 'failed', error = $1, completed_at = $2, updated_at = now()
WHERE id = $3 AND status = 'running'`
	return r.transition(ctx, query, errMsg, completedAt, jobID)
}

// Cancel moves a queued or running job to failed with the cancel message.
func (r *PGRepo) Cancel(ctx context.Context, jobID string, completedAt time.Time) (bool, error) {
	const query = `
UPDATE ingestion_jobs
SET status = 'failed', error = $1, completed_at = $2, updated_at = now()
WHERE id = $3 AND status IN ('queued', 'running')`
	return r.transition(ctx, query, CancelMessage, completedAt, jobID)
}

// Retry moves a failed job back to queued.
func (r *PGRepo) Retry(ctx context.Context, jobID string) (bool, error) {
	const query = `
UPDATE ingestion_jobs
SET status = 'queued', retry_count = retry_count + 1, error = '', result = NULL,
    started_at = NULL, completed_at = NULL, updated_at = now()
WHERE id = $1 AND status = 'failed'`
	return r.transition(ctx, query, jobID)
}

func (r *PGRepo) transition(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (Job, error) {
	var job Job
	var status string
	var result []byte
	var errMsg sql.NullString
	var startedAt, completedAt sql.NullTime
	if err := row.Scan(
		&job.ID,
		&job.DocumentID,
		&job.CreatedByID,
		&status,
		&job.RetryCount,
		&result,
		&errMsg,
		&startedAt,
		&completedAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return Job{}, err
	}
	job.Status = NormalizeStatus(status)
	if errMsg.Valid {
		job.Error = errMsg.String
	}
	if len(result) > 0 {
		if err := json.Unmarshal(result, &job.Result); err != nil {
			return Job{}, fmt.Errorf("decode result: %w", err)
		}
	}
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return job, nil
}

func marshalResult(m map[string]any) (any, error) {
	if m == nil {
		return nil, nil
	}
	out, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return out, nil
}

var _ Repo = (*PGRepo)(nil)

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
	"github.com/Harshitk-cp/mindkernel/internal/store"
)

const jobColumns = `job_id, object_type, object_id, action, run_at, priority, attempt, max_attempts,
	idempotency_key, status, worker_id, last_error, correlation_id, created_at, updated_at`

type JobStore struct {
	q querier
}

func (s *JobStore) Create(ctx context.Context, j *domain.SchedulerJob) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO scheduler_jobs (job_id, object_type, object_id, action, run_at, priority, priority_rank,
			attempt, max_attempts, idempotency_key, status, worker_id, last_error, correlation_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.JobID, j.ObjectType, j.ObjectID, j.Action, formatTime(j.RunAt), j.Priority, j.Priority.Rank(),
		j.Attempt, j.MaxAttempts, j.IdempotencyKey, j.Status, j.WorkerID, j.LastError, j.CorrelationID,
		formatTime(j.CreatedAt), formatTime(j.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("insert job %s: %w", j.JobID, err)
	}
	return nil
}

func (s *JobStore) GetByID(ctx context.Context, id string) (*domain.SchedulerJob, error) {
	return s.getOne(ctx, `SELECT `+jobColumns+` FROM scheduler_jobs WHERE job_id = ?`, id)
}

func (s *JobStore) GetByIdempotencyKey(ctx context.Context, key string) (*domain.SchedulerJob, error) {
	return s.getOne(ctx, `SELECT `+jobColumns+` FROM scheduler_jobs WHERE idempotency_key = ?`, key)
}

func (s *JobStore) getOne(ctx context.Context, query string, arg string) (*domain.SchedulerJob, error) {
	j, err := scanJob(s.q.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get job %s: %w", arg, err)
	}
	return j, nil
}

func (s *JobStore) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.SchedulerJob, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM scheduler_jobs
		 WHERE status = ? AND run_at <= ?
		 ORDER BY run_at ASC, priority_rank DESC, created_at ASC, job_id ASC
		 LIMIT ?`,
		domain.JobQueued, formatTime(now), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list due jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.SchedulerJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

func (s *JobStore) Claim(ctx context.Context, id, workerID string, at time.Time) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE scheduler_jobs SET status = ?, worker_id = ?, updated_at = ?
		 WHERE job_id = ? AND status = ?`,
		domain.JobRunning, workerID, formatTime(at), id, domain.JobQueued,
	)
	if err != nil {
		return fmt.Errorf("claim job %s: %w", id, err)
	}
	return requireOneRow(res)
}

func (s *JobStore) Update(ctx context.Context, j *domain.SchedulerJob, expected domain.JobStatus) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE scheduler_jobs
		 SET run_at = ?, priority = ?, priority_rank = ?, attempt = ?, max_attempts = ?, status = ?,
		     worker_id = ?, last_error = ?, correlation_id = ?, updated_at = ?
		 WHERE job_id = ? AND status = ?`,
		formatTime(j.RunAt), j.Priority, j.Priority.Rank(), j.Attempt, j.MaxAttempts, j.Status,
		j.WorkerID, j.LastError, j.CorrelationID, formatTime(j.UpdatedAt), j.JobID, expected,
	)
	if err != nil {
		return fmt.Errorf("update job %s: %w", j.JobID, err)
	}
	return requireOneRow(res)
}

func (s *JobStore) CountByStatus(ctx context.Context) (map[domain.JobStatus]int, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT status, COUNT(*) FROM scheduler_jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.JobStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[domain.JobStatus(status)] = n
	}
	return counts, rows.Err()
}

func (s *JobStore) OldestQueuedRunAt(ctx context.Context) (*time.Time, error) {
	var runAt sql.NullString
	err := s.q.QueryRowContext(ctx,
		`SELECT MIN(run_at) FROM scheduler_jobs WHERE status = ?`, domain.JobQueued,
	).Scan(&runAt)
	if err != nil {
		return nil, fmt.Errorf("oldest queued job: %w", err)
	}
	if !runAt.Valid {
		return nil, nil
	}
	t, err := parseTime(runAt.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrConflict
	}
	return nil
}

func scanJob(s scanner) (*domain.SchedulerJob, error) {
	var j domain.SchedulerJob
	var runAt, createdAt, updatedAt string
	err := s.Scan(&j.JobID, &j.ObjectType, &j.ObjectID, &j.Action, &runAt, &j.Priority, &j.Attempt, &j.MaxAttempts,
		&j.IdempotencyKey, &j.Status, &j.WorkerID, &j.LastError, &j.CorrelationID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if j.RunAt, err = parseTime(runAt); err != nil {
		return nil, err
	}
	if j.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if j.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &j, nil
}

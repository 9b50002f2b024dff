package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
	"github.com/Harshitk-cp/mindkernel/internal/store"
)

const jobColumns = `job_id, object_type, object_id, action, run_at, priority, attempt, max_attempts,
	idempotency_key, status, worker_id, last_error, correlation_id, created_at, updated_at`

type JobStore struct {
	q querier
}

func (s *JobStore) Create(ctx context.Context, j *domain.SchedulerJob) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO scheduler_jobs (job_id, object_type, object_id, action, run_at, priority, priority_rank,
			attempt, max_attempts, idempotency_key, status, worker_id, last_error, correlation_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		j.JobID, j.ObjectType, j.ObjectID, j.Action, j.RunAt, j.Priority, j.Priority.Rank(),
		j.Attempt, j.MaxAttempts, j.IdempotencyKey, j.Status, j.WorkerID, j.LastError, j.CorrelationID,
		j.CreatedAt, j.UpdatedAt,
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
	return s.getOne(ctx, `SELECT `+jobColumns+` FROM scheduler_jobs WHERE job_id = $1`, id)
}

func (s *JobStore) GetByIdempotencyKey(ctx context.Context, key string) (*domain.SchedulerJob, error) {
	return s.getOne(ctx, `SELECT `+jobColumns+` FROM scheduler_jobs WHERE idempotency_key = $1`, key)
}

func (s *JobStore) getOne(ctx context.Context, query, arg string) (*domain.SchedulerJob, error) {
	j, err := scanJob(s.q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get job %s: %w", arg, err)
	}
	return j, nil
}

// ListDue locks the selected rows for the enclosing transaction and skips
// rows another worker already holds.
func (s *JobStore) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.SchedulerJob, error) {
	rows, err := s.q.Query(ctx,
		`SELECT `+jobColumns+` FROM scheduler_jobs
		 WHERE status = $1 AND run_at <= $2
		 ORDER BY run_at ASC, priority_rank DESC, created_at ASC, job_id ASC
		 LIMIT $3
		 FOR UPDATE SKIP LOCKED`,
		domain.JobQueued, now, limit,
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
	tag, err := s.q.Exec(ctx,
		`UPDATE scheduler_jobs SET status = $1, worker_id = $2, updated_at = $3
		 WHERE job_id = $4 AND status = $5`,
		domain.JobRunning, workerID, at, id, domain.JobQueued,
	)
	if err != nil {
		return fmt.Errorf("claim job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrConflict
	}
	return nil
}

func (s *JobStore) Update(ctx context.Context, j *domain.SchedulerJob, expected domain.JobStatus) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE scheduler_jobs
		 SET run_at = $1, priority = $2, priority_rank = $3, attempt = $4, max_attempts = $5, status = $6,
		     worker_id = $7, last_error = $8, correlation_id = $9, updated_at = $10
		 WHERE job_id = $11 AND status = $12`,
		j.RunAt, j.Priority, j.Priority.Rank(), j.Attempt, j.MaxAttempts, j.Status,
		j.WorkerID, j.LastError, j.CorrelationID, j.UpdatedAt, j.JobID, expected,
	)
	if err != nil {
		return fmt.Errorf("update job %s: %w", j.JobID, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrConflict
	}
	return nil
}

func (s *JobStore) CountByStatus(ctx context.Context) (map[domain.JobStatus]int, error) {
	rows, err := s.q.Query(ctx, `SELECT status, COUNT(*) FROM scheduler_jobs GROUP BY status`)
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
	var runAt *time.Time
	err := s.q.QueryRow(ctx,
		`SELECT MIN(run_at) FROM scheduler_jobs WHERE status = $1`, domain.JobQueued,
	).Scan(&runAt)
	if err != nil {
		return nil, fmt.Errorf("oldest queued job: %w", err)
	}
	if runAt == nil {
		return nil, nil
	}
	utc := runAt.UTC()
	return &utc, nil
}

func scanJob(row pgx.Row) (*domain.SchedulerJob, error) {
	var j domain.SchedulerJob
	err := row.Scan(&j.JobID, &j.ObjectType, &j.ObjectID, &j.Action, &j.RunAt, &j.Priority, &j.Attempt, &j.MaxAttempts,
		&j.IdempotencyKey, &j.Status, &j.WorkerID, &j.LastError, &j.CorrelationID, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	j.RunAt = j.RunAt.UTC()
	j.CreatedAt = j.CreatedAt.UTC()
	j.UpdatedAt = j.UpdatedAt.UTC()
	return &j, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
	"github.com/Harshitk-cp/mindkernel/internal/store"
	"github.com/Harshitk-cp/mindkernel/internal/validate"
)

const (
	DefaultSchedulerActor = "scheduler"
	DefaultMaxAttempts    = 3
	DefaultPullLimit      = 100
	DefaultRetryDelay     = 300 * time.Second
	MaxRetryDelay         = 30 * 24 * time.Hour
)

// RetryDelaySeconds converts a caller-supplied delay in seconds, rejecting
// values outside [0, MaxRetryDelay] before the multiplication can overflow.
func RetryDelaySeconds(sec int) (time.Duration, error) {
	if sec < 0 || int64(sec) > int64(MaxRetryDelay/time.Second) {
		return 0, fmt.Errorf("%w: retry delay must be between 0 and %d seconds",
			domain.ErrValidationFailed, int64(MaxRetryDelay/time.Second))
	}
	return time.Duration(sec) * time.Second, nil
}

var (
	ErrInvalidWorkerID = errors.New("worker id is required")
)

// SchedulerService is the persistent priority queue of lifecycle jobs.
type SchedulerService struct {
	store     domain.Store
	validator domain.Validator
	audit     *AuditLog
	logger    *zap.Logger
	clock     domain.Clock
}

func NewSchedulerService(st domain.Store, v domain.Validator, audit *AuditLog, logger *zap.Logger) *SchedulerService {
	return &SchedulerService{
		store:     st,
		validator: v,
		audit:     audit,
		logger:    logger,
		clock:     domain.Now,
	}
}

func (s *SchedulerService) SetClock(c domain.Clock) {
	s.clock = c
}

// EnqueueRequest describes a job. Zero RunAt means now, empty Priority
// means medium and zero MaxAttempts means DefaultMaxAttempts.
type EnqueueRequest struct {
	ObjectType     domain.ObjectType  `json:"object_type"`
	ObjectID       string             `json:"object_id"`
	Action         domain.JobAction   `json:"action"`
	RunAt          time.Time          `json:"run_at"`
	Priority       domain.JobPriority `json:"priority,omitempty"`
	MaxAttempts    int                `json:"max_attempts,omitempty"`
	IdempotencyKey string             `json:"idempotency_key,omitempty"`
	CorrelationID  string             `json:"correlation_id,omitempty"`
}

type EnqueueResult struct {
	Job          *domain.SchedulerJob `json:"job"`
	Deduplicated bool                 `json:"deduplicated"`
}

// Enqueue stores a queued job, or returns the existing job when the
// idempotency key is already taken.
func (s *SchedulerService) Enqueue(ctx context.Context, req EnqueueRequest) (res *EnqueueResult, err error) {
	ctx, span := tracer.Start(ctx, "scheduler.Enqueue")
	span.SetAttributes(
		attribute.String("object_id", req.ObjectID),
		attribute.String("action", string(req.Action)))
	defer func() { finishSpan(span, err) }()

	now := s.clock()
	if !domain.ValidJobObjectType(string(req.ObjectType)) {
		return nil, fmt.Errorf("%w: job object type %q", domain.ErrValidationFailed, req.ObjectType)
	}
	if strings.TrimSpace(req.ObjectID) == "" {
		return nil, fmt.Errorf("%w: object_id is required", domain.ErrValidationFailed)
	}
	if !domain.ValidJobAction(string(req.Action)) {
		return nil, fmt.Errorf("%w: job action %q", domain.ErrValidationFailed, req.Action)
	}
	if req.Priority == "" {
		req.Priority = domain.PriorityMedium
	}
	if !domain.ValidJobPriority(string(req.Priority)) {
		return nil, fmt.Errorf("%w: job priority %q", domain.ErrValidationFailed, req.Priority)
	}
	if req.MaxAttempts == 0 {
		req.MaxAttempts = DefaultMaxAttempts
	}
	if req.MaxAttempts < 1 {
		return nil, fmt.Errorf("%w: max_attempts must be at least 1", domain.ErrValidationFailed)
	}
	runAt := req.RunAt.UTC().Truncate(time.Second)
	if req.RunAt.IsZero() {
		runAt = now
	}
	if runAt.Before(now) {
		return nil, fmt.Errorf("%w: run_at %s is in the past", domain.ErrValidationFailed, domain.FormatTime(runAt))
	}
	key := req.IdempotencyKey
	if key == "" {
		key = domain.DefaultIdempotencyKey(req.ObjectID, req.Action, runAt)
	}

	job := domain.SchedulerJob{
		JobID:          domain.NewID(domain.PrefixJob),
		ObjectType:     req.ObjectType,
		ObjectID:       req.ObjectID,
		Action:         req.Action,
		RunAt:          runAt,
		Priority:       req.Priority,
		Attempt:        0,
		MaxAttempts:    req.MaxAttempts,
		IdempotencyKey: key,
		Status:         domain.JobQueued,
		CorrelationID:  req.CorrelationID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.validator.Validate(validate.SchemaSchedulerJob, job); err != nil {
		return nil, err
	}

	err = s.store.WithTx(ctx, func(tx domain.Repositories) error {
		existing, err := tx.Jobs().GetByIdempotencyKey(ctx, key)
		if err == nil {
			res = &EnqueueResult{Job: existing, Deduplicated: true}
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if err := tx.Jobs().Create(ctx, &job); err != nil {
			return err
		}
		res = &EnqueueResult{Job: &job}
		return s.audit.Record(ctx, tx, &domain.AuditEvent{
			EventType:  domain.EventSchedulerJob,
			Actor:      domain.SystemActor(DefaultSchedulerActor),
			ObjectType: domain.ObjectSchedulerJob,
			ObjectID:   job.JobID,
			Before:     map[string]any{"status": nil},
			After: map[string]any{
				"status":       job.Status,
				"object_type":  job.ObjectType,
				"object_id":    job.ObjectID,
				"action":       job.Action,
				"run_at":       domain.FormatTime(job.RunAt),
				"priority":     job.Priority,
				"attempt":      job.Attempt,
				"max_attempts": job.MaxAttempts,
			},
			Reason:        "Scheduler job enqueued.",
			EvidenceRefs:  []string{"scheduler_job:" + job.JobID},
			JobID:         job.JobID,
			CorrelationID: job.CorrelationID,
		})
	})
	if errors.Is(err, store.ErrConflict) {
		// Lost a race for the key; the winner's job is the result.
		existing, getErr := s.store.Jobs().GetByIdempotencyKey(ctx, key)
		if getErr != nil {
			return nil, getErr
		}
		return &EnqueueResult{Job: existing, Deduplicated: true}, nil
	}
	if err != nil {
		return nil, err
	}

	if res.Deduplicated {
		s.logger.Debug("enqueue deduplicated",
			zap.String("job_id", res.Job.JobID),
			zap.String("idempotency_key", key))
	} else {
		s.logger.Info("job enqueued",
			zap.String("job_id", job.JobID),
			zap.String("object_id", job.ObjectID),
			zap.String("action", string(job.Action)),
			zap.Time("run_at", job.RunAt))
	}
	return res, nil
}

// Pull leases up to limit due jobs to workerID. Each job moves from queued
// to running by a conditional update, so two workers never hold the same
// job.
func (s *SchedulerService) Pull(ctx context.Context, workerID string, now time.Time, limit int) (jobs []domain.SchedulerJob, err error) {
	ctx, span := tracer.Start(ctx, "scheduler.Pull")
	span.SetAttributes(attribute.String("worker_id", workerID))
	defer func() { finishSpan(span, err) }()

	if strings.TrimSpace(workerID) == "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidationFailed, ErrInvalidWorkerID)
	}
	if now.IsZero() {
		now = s.clock()
	}
	now = now.UTC().Truncate(time.Second)
	if limit <= 0 {
		limit = DefaultPullLimit
	}

	err = s.store.WithTx(ctx, func(tx domain.Repositories) error {
		jobs = jobs[:0]
		due, err := tx.Jobs().ListDue(ctx, now, limit)
		if err != nil {
			return err
		}
		for _, j := range due {
			if err := tx.Jobs().Claim(ctx, j.JobID, workerID, now); err != nil {
				if errors.Is(err, store.ErrConflict) {
					continue
				}
				return err
			}
			j.Status = domain.JobRunning
			j.WorkerID = workerID
			j.UpdatedAt = now

			if err := s.audit.Record(ctx, tx, &domain.AuditEvent{
				EventType:     domain.EventSchedulerJob,
				Actor:         domain.Actor{Type: domain.ActorWorker, ID: workerID},
				ObjectType:    domain.ObjectSchedulerJob,
				ObjectID:      j.JobID,
				Before:        map[string]any{"status": domain.JobQueued, "attempt": j.Attempt},
				After:         map[string]any{"status": domain.JobRunning, "attempt": j.Attempt},
				Reason:        "Worker pulled due job.",
				EvidenceRefs:  []string{"scheduler_job:" + j.JobID},
				JobID:         j.JobID,
				CorrelationID: j.CorrelationID,
			}); err != nil {
				return err
			}
			jobs = append(jobs, j)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(jobs) > 0 {
		s.logger.Info("jobs pulled", zap.String("worker_id", workerID), zap.Int("count", len(jobs)))
	}
	return jobs, nil
}

func (s *SchedulerService) runningJob(ctx context.Context, tx domain.Repositories, jobID string) (*domain.SchedulerJob, error) {
	j, err := tx.Jobs().GetByID(ctx, jobID)
	if err != nil {
		return nil, lookupErr(err, domain.ObjectSchedulerJob, jobID)
	}
	if j.Status != domain.JobRunning {
		return nil, fmt.Errorf("%w: job %s is %s, expected %s", domain.ErrInvalidState, jobID, j.Status, domain.JobRunning)
	}
	return j, nil
}

// Ack marks a running job succeeded.
func (s *SchedulerService) Ack(ctx context.Context, jobID string) (res *domain.SchedulerJob, err error) {
	ctx, span := tracer.Start(ctx, "scheduler.Ack")
	span.SetAttributes(attribute.String("job_id", jobID))
	defer func() { finishSpan(span, err) }()

	now := s.clock()
	err = s.store.WithTx(ctx, func(tx domain.Repositories) error {
		j, err := s.runningJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		next := *j
		next.Status = domain.JobSucceeded
		next.LastError = ""
		next.UpdatedAt = now
		if err := s.validator.Validate(validate.SchemaSchedulerJob, next); err != nil {
			return err
		}
		if err := tx.Jobs().Update(ctx, &next, domain.JobRunning); err != nil {
			return replaceErr(err, domain.ObjectSchedulerJob, jobID)
		}
		res = &next
		return s.audit.Record(ctx, tx, &domain.AuditEvent{
			EventType:     domain.EventSchedulerJob,
			Actor:         domain.Actor{Type: domain.ActorWorker, ID: j.WorkerID},
			ObjectType:    domain.ObjectSchedulerJob,
			ObjectID:      jobID,
			Before:        map[string]any{"status": j.Status, "attempt": j.Attempt},
			After:         map[string]any{"status": next.Status, "attempt": next.Attempt},
			Reason:        "Job acknowledged as succeeded.",
			EvidenceRefs:  []string{"scheduler_job:" + jobID},
			JobID:         jobID,
			CorrelationID: j.CorrelationID,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("job acknowledged", zap.String("job_id", jobID))
	return res, nil
}

// Fail records a failed attempt. The job is re-queued after retryDelay
// until attempts reach max_attempts, then dead-lettered.
func (s *SchedulerService) Fail(ctx context.Context, jobID, errMsg string, retryDelay time.Duration) (res *domain.SchedulerJob, err error) {
	ctx, span := tracer.Start(ctx, "scheduler.Fail")
	span.SetAttributes(attribute.String("job_id", jobID))
	defer func() { finishSpan(span, err) }()

	if retryDelay < 0 || retryDelay > MaxRetryDelay {
		return nil, fmt.Errorf("%w: retry delay must be between 0 and %s", domain.ErrValidationFailed, MaxRetryDelay)
	}
	retryDelay = retryDelay.Truncate(time.Second)

	now := s.clock()
	err = s.store.WithTx(ctx, func(tx domain.Repositories) error {
		j, err := s.runningJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		next := *j
		next.Attempt = j.Attempt + 1
		next.LastError = errMsg
		next.WorkerID = ""
		next.UpdatedAt = now

		after := map[string]any{"attempt": next.Attempt}
		if next.Attempt >= next.MaxAttempts {
			next.Status = domain.JobDeadLetter
		} else {
			next.Status = domain.JobQueued
			next.RunAt = now.Add(retryDelay)
			after["run_at"] = domain.FormatTime(next.RunAt)
		}
		after["status"] = next.Status

		if err := s.validator.Validate(validate.SchemaSchedulerJob, next); err != nil {
			return err
		}
		if err := tx.Jobs().Update(ctx, &next, domain.JobRunning); err != nil {
			return replaceErr(err, domain.ObjectSchedulerJob, jobID)
		}
		res = &next
		return s.audit.Record(ctx, tx, &domain.AuditEvent{
			EventType:     domain.EventSchedulerJob,
			Actor:         domain.Actor{Type: domain.ActorWorker, ID: j.WorkerID},
			ObjectType:    domain.ObjectSchedulerJob,
			ObjectID:      jobID,
			Before:        map[string]any{"status": j.Status, "attempt": j.Attempt},
			After:         after,
			Reason:        "Job failed: " + errMsg,
			EvidenceRefs:  []string{"scheduler_job:" + jobID},
			JobID:         jobID,
			CorrelationID: j.CorrelationID,
			Metadata:      map[string]any{"retry_delay_sec": int(retryDelay / time.Second)},
		})
	})
	if err != nil {
		return nil, err
	}

	if res.Status == domain.JobDeadLetter {
		s.logger.Warn("job dead-lettered",
			zap.String("job_id", jobID),
			zap.Int("attempt", res.Attempt),
			zap.String("error", errMsg))
	} else {
		s.logger.Info("job re-queued",
			zap.String("job_id", jobID),
			zap.Int("attempt", res.Attempt),
			zap.Time("run_at", res.RunAt))
	}
	return res, nil
}

// Stats reports the queue backlog.
func (s *SchedulerService) Stats(ctx context.Context) (*domain.SchedulerStats, error) {
	counts, err := s.store.Jobs().CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats := &domain.SchedulerStats{Counts: make(map[domain.JobStatus]int)}
	for _, st := range domain.AllJobStatuses() {
		stats.Counts[st] = counts[st]
	}
	if stats.OldestQueuedRunAt, err = s.store.Jobs().OldestQueuedRunAt(ctx); err != nil {
		return nil, err
	}
	if stats.AuditEventCount, err = s.store.Audit().Count(ctx); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *SchedulerService) GetJob(ctx context.Context, jobID string) (*domain.SchedulerJob, error) {
	j, err := s.store.Jobs().GetByID(ctx, jobID)
	if err != nil {
		return nil, lookupErr(err, domain.ObjectSchedulerJob, jobID)
	}
	return j, nil
}

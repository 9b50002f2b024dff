package service

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
)

const (
	defaultWorkerInterval = 30 * time.Second
	defaultWorkerBatch    = 10
	defaultRetryBase      = 30 * time.Second
	defaultRetryMax       = time.Hour
)

// RetryPolicy maps the attempt number that just failed (1-based) to the
// delay before the job is retried.
type RetryPolicy func(attempt int) time.Duration

// ExponentialRetry doubles the delay per attempt from base, capped at max.
func ExponentialRetry(base, max time.Duration) RetryPolicy {
	return func(attempt int) time.Duration {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = base
		b.MaxInterval = max
		b.Multiplier = 2
		b.RandomizationFactor = 0
		b.Reset()
		d := base
		for i := 0; i < attempt; i++ {
			d = b.NextBackOff()
		}
		return d
	}
}

// WorkResult summarizes one worker pass.
type WorkResult struct {
	Pulled    int `json:"pulled"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// JobWorker drains due scheduler jobs by applying their actions through the
// pipeline, acking successes and failing errors with backoff.
type JobWorker struct {
	scheduler *SchedulerService
	pipeline  *PipelineService
	logger    *zap.Logger
	clock     domain.Clock

	workerID string
	batch    int
	retry    RetryPolicy

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewJobWorker(sched *SchedulerService, pipeline *PipelineService, workerID string, logger *zap.Logger) *JobWorker {
	return &JobWorker{
		scheduler: sched,
		pipeline:  pipeline,
		logger:    logger,
		clock:     domain.Now,
		workerID:  workerID,
		batch:     defaultWorkerBatch,
		retry:     ExponentialRetry(defaultRetryBase, defaultRetryMax),
		interval:  defaultWorkerInterval,
		stopCh:    make(chan struct{}),
	}
}

func (w *JobWorker) SetInterval(d time.Duration) {
	w.interval = d
}

func (w *JobWorker) SetBatch(n int) {
	if n > 0 {
		w.batch = n
	}
}

func (w *JobWorker) SetRetryPolicy(p RetryPolicy) {
	w.retry = p
}

func (w *JobWorker) SetClock(c domain.Clock) {
	w.clock = c
}

// Start polls for due jobs in a background goroutine.
func (w *JobWorker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.logger.Info("job worker started",
			zap.String("worker_id", w.workerID),
			zap.Duration("interval", w.interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				if _, err := w.RunOnce(ctx); err != nil {
					w.logger.Error("job worker pass failed", zap.Error(err))
				}
				cancel()
			case <-w.stopCh:
				w.logger.Info("job worker stopped", zap.String("worker_id", w.workerID))
				return
			}
		}
	}()
}

func (w *JobWorker) Stop() {
	close(w.stopCh)
	w.wg.Wait()
}

// RunOnce pulls one batch and settles every job in it.
func (w *JobWorker) RunOnce(ctx context.Context) (*WorkResult, error) {
	jobs, err := w.scheduler.Pull(ctx, w.workerID, w.clock(), w.batch)
	if err != nil {
		return nil, err
	}

	res := &WorkResult{Pulled: len(jobs)}
	for _, job := range jobs {
		if _, err := w.pipeline.ApplyJobAction(ctx, job); err != nil {
			delay := w.retry(job.Attempt + 1)
			w.logger.Warn("job action failed",
				zap.String("job_id", job.JobID),
				zap.String("object_id", job.ObjectID),
				zap.String("action", string(job.Action)),
				zap.Duration("retry_delay", delay),
				zap.Error(err))
			if _, ferr := w.scheduler.Fail(ctx, job.JobID, err.Error(), delay); ferr != nil {
				w.logger.Error("failed to record job failure", zap.String("job_id", job.JobID), zap.Error(ferr))
			}
			res.Failed++
			continue
		}
		if _, err := w.scheduler.Ack(ctx, job.JobID); err != nil {
			w.logger.Error("failed to ack job", zap.String("job_id", job.JobID), zap.Error(err))
			res.Failed++
			continue
		}
		res.Succeeded++
	}

	if res.Pulled > 0 {
		w.logger.Info("job worker pass complete",
			zap.String("worker_id", w.workerID),
			zap.Int("pulled", res.Pulled),
			zap.Int("succeeded", res.Succeeded),
			zap.Int("failed", res.Failed))
	}
	return res, nil
}

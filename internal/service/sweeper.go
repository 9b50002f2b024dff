package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
)

const (
	defaultSweepInterval = time.Hour
	sweepPageLimit       = 500
	sweepCorrelation     = "review-sweep"
)

type SweepResult struct {
	Scanned      int `json:"scanned"`
	Enqueued     int `json:"enqueued"`
	Deduplicated int `json:"deduplicated"`
}

// ReviewSweeper enqueues revalidation for cognitions whose review is due.
// The idempotency key embeds review_due_at, so a cognition is queued once
// per review window no matter how often the sweep runs.
type ReviewSweeper struct {
	pipeline  *PipelineService
	scheduler *SchedulerService
	logger    *zap.Logger
	clock     domain.Clock

	interval time.Duration
	pageSize int
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewReviewSweeper(pipeline *PipelineService, sched *SchedulerService, logger *zap.Logger) *ReviewSweeper {
	return &ReviewSweeper{
		pipeline:  pipeline,
		scheduler: sched,
		logger:    logger,
		clock:     domain.Now,
		interval:  defaultSweepInterval,
		pageSize:  sweepPageLimit,
		stopCh:    make(chan struct{}),
	}
}

func (s *ReviewSweeper) SetInterval(d time.Duration) {
	s.interval = d
}

func (s *ReviewSweeper) SetClock(c domain.Clock) {
	s.clock = c
}

func (s *ReviewSweeper) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("review sweeper started", zap.Duration("interval", s.interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				if _, err := s.RunSweep(ctx); err != nil {
					s.logger.Error("review sweep failed", zap.Error(err))
				}
				cancel()
			case <-s.stopCh:
				s.logger.Info("review sweeper stopped")
				return
			}
		}
	}()
}

func (s *ReviewSweeper) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *ReviewSweeper) RunSweep(ctx context.Context) (*SweepResult, error) {
	now := s.clock()
	res := &SweepResult{}

	for _, status := range []domain.CognitionStatus{domain.CognitionStatusActive, domain.CognitionStatusCandidate} {
		err := s.pipeline.EachCognition(ctx, status, s.pageSize, func(c domain.Cognition) error {
			res.Scanned++
			if c.ReviewDueAt.After(now) {
				return nil
			}
			out, err := s.scheduler.Enqueue(ctx, EnqueueRequest{
				ObjectType:     domain.ObjectCognition,
				ObjectID:       c.ID,
				Action:         domain.JobActionRevalidate,
				Priority:       sweepPriority(c.RiskTier),
				IdempotencyKey: domain.DefaultIdempotencyKey(c.ID, domain.JobActionRevalidate, c.ReviewDueAt),
				CorrelationID:  sweepCorrelation,
			})
			if err != nil {
				s.logger.Warn("failed to enqueue revalidation",
					zap.String("cognition_id", c.ID),
					zap.Error(err))
				return nil
			}
			if out.Deduplicated {
				res.Deduplicated++
			} else {
				res.Enqueued++
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if res.Enqueued > 0 {
		s.logger.Info("review sweep complete",
			zap.Int("scanned", res.Scanned),
			zap.Int("enqueued", res.Enqueued),
			zap.Int("deduplicated", res.Deduplicated))
	}
	return res, nil
}

func sweepPriority(risk domain.Tier) domain.JobPriority {
	switch risk {
	case domain.TierHigh:
		return domain.PriorityHigh
	case domain.TierLow:
		return domain.PriorityLow
	}
	return domain.PriorityMedium
}

package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
	"github.com/Harshitk-cp/mindkernel/internal/validate"
)

// ActionResult reports what a scheduler job did to its object.
type ActionResult struct {
	JobID      string            `json:"job_id"`
	ObjectType domain.ObjectType `json:"object_type"`
	ObjectID   string            `json:"object_id"`
	Action     domain.JobAction  `json:"action"`
	Changed    bool              `json:"changed"`
	FromStatus string            `json:"from_status"`
	ToStatus   string            `json:"to_status"`
	Verified   *bool             `json:"verified,omitempty"`
	Reason     string            `json:"reason"`
}

// lifecycle names the statuses an object type uses for job actions.
type lifecycle struct {
	candidate string
	active    string
	stale     string
	failed    string
	archived  string
	terminal  func(string) bool
}

var (
	memoryLifecycle = lifecycle{
		candidate: string(domain.MemoryStatusCandidate),
		active:    string(domain.MemoryStatusActive),
		stale:     string(domain.MemoryStatusStale),
		failed:    string(domain.MemoryStatusRejectedPoisoned),
		archived:  string(domain.MemoryStatusArchived),
		terminal:  func(s string) bool { return domain.MemoryStatus(s).Terminal() },
	}
	experienceLifecycle = lifecycle{
		candidate: string(domain.ExperienceStatusCandidate),
		active:    string(domain.ExperienceStatusActive),
		stale:     string(domain.ExperienceStatusStale),
		failed:    string(domain.ExperienceStatusInvalidated),
		archived:  string(domain.ExperienceStatusArchived),
		terminal:  func(s string) bool { return domain.ExperienceStatus(s).Terminal() },
	}
	cognitionLifecycle = lifecycle{
		candidate: string(domain.CognitionStatusCandidate),
		active:    string(domain.CognitionStatusActive),
		stale:     string(domain.CognitionStatusStale),
		failed:    string(domain.CognitionStatusStale),
		archived:  string(domain.CognitionStatusArchived),
		terminal:  func(s string) bool { return domain.CognitionStatus(s) == domain.CognitionStatusArchived },
	}
)

// actionPlan is the transition a job action resolves to.
type actionPlan struct {
	target string
	// write is false when the object already holds the target status.
	write bool
	// refresh moves the review window forward.
	refresh bool
	// failedVerify marks a verification that did not hold.
	failedVerify bool
	verified     *bool
	reason       string
}

func planAction(action domain.JobAction, lc lifecycle, current string, verify func() (Verification, error)) (actionPlan, error) {
	switch action {
	case domain.JobActionArchive:
		if current == lc.archived {
			return actionPlan{target: current, reason: "already archived"}, nil
		}
		if lc.terminal(current) {
			return actionPlan{}, fmt.Errorf("%w: cannot archive object in terminal status %s", domain.ErrInvalidState, current)
		}
		return actionPlan{target: lc.archived, write: true, reason: "archived by scheduler"}, nil

	case domain.JobActionDecay:
		if current == lc.stale {
			return actionPlan{target: current, reason: "already stale"}, nil
		}
		if current != lc.candidate && current != lc.active {
			return actionPlan{}, fmt.Errorf("%w: cannot decay object in status %s", domain.ErrInvalidState, current)
		}
		return actionPlan{target: lc.stale, write: true, reason: "decayed to stale"}, nil

	case domain.JobActionVerify, domain.JobActionRevalidate:
		if lc.terminal(current) {
			return actionPlan{}, fmt.Errorf("%w: cannot %s object in terminal status %s", domain.ErrInvalidState, action, current)
		}
		v, err := verify()
		if err != nil {
			return actionPlan{}, err
		}
		ok := v.OK
		if ok {
			return actionPlan{target: lc.active, write: true, refresh: true, verified: &ok, reason: "verification passed: " + v.Reason}, nil
		}
		return actionPlan{target: lc.failed, write: true, failedVerify: true, verified: &ok, reason: "verification failed: " + v.Reason}, nil

	case domain.JobActionReinstateCheck:
		if current != lc.stale {
			return actionPlan{target: current, reason: "not stale; nothing to reinstate"}, nil
		}
		v, err := verify()
		if err != nil {
			return actionPlan{}, err
		}
		ok := v.OK
		if !ok {
			return actionPlan{target: current, verified: &ok, reason: "reinstate check failed: " + v.Reason}, nil
		}
		return actionPlan{target: lc.active, write: true, refresh: true, verified: &ok, reason: "reinstated: " + v.Reason}, nil
	}
	return actionPlan{}, fmt.Errorf("%w: unknown job action %q", domain.ErrValidationFailed, action)
}

// ApplyJobAction performs a scheduler job's action against its object in
// one transaction with the audit event that records it.
func (s *PipelineService) ApplyJobAction(ctx context.Context, job domain.SchedulerJob) (res *ActionResult, err error) {
	ctx, span := tracer.Start(ctx, "pipeline.ApplyJobAction")
	span.SetAttributes(
		attribute.String("job_id", job.JobID),
		attribute.String("object_id", job.ObjectID),
		attribute.String("action", string(job.Action)))
	defer func() { finishSpan(span, err) }()

	if !domain.ValidJobObjectType(string(job.ObjectType)) {
		return nil, fmt.Errorf("%w: job object type %q", domain.ErrValidationFailed, job.ObjectType)
	}
	if !domain.ValidJobAction(string(job.Action)) {
		return nil, fmt.Errorf("%w: job action %q", domain.ErrValidationFailed, job.Action)
	}

	now := s.clock()
	err = s.store.WithTx(ctx, func(tx domain.Repositories) error {
		verify := func() (Verification, error) {
			return s.verifier.Verify(ctx, tx, job.ObjectType, job.ObjectID)
		}
		var err error
		switch job.ObjectType {
		case domain.ObjectMemory:
			res, err = s.applyToMemory(ctx, tx, job, now, verify)
		case domain.ObjectExperience:
			res, err = s.applyToExperience(ctx, tx, job, now, verify)
		case domain.ObjectCognition:
			res, err = s.applyToCognition(ctx, tx, job, now, verify)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("job action applied",
		zap.String("job_id", job.JobID),
		zap.String("object_id", job.ObjectID),
		zap.String("action", string(job.Action)),
		zap.String("from", res.FromStatus),
		zap.String("to", res.ToStatus),
		zap.Bool("changed", res.Changed))
	return res, nil
}

func newActionResult(job domain.SchedulerJob, from string, p actionPlan) *ActionResult {
	return &ActionResult{
		JobID:      job.JobID,
		ObjectType: job.ObjectType,
		ObjectID:   job.ObjectID,
		Action:     job.Action,
		Changed:    p.write,
		FromStatus: from,
		ToStatus:   p.target,
		Verified:   p.verified,
		Reason:     p.reason,
	}
}

// recordAction audits a job action. Plans that neither write nor verify
// leave no event.
func (s *PipelineService) recordAction(ctx context.Context, tx domain.Repositories, job domain.SchedulerJob, p actionPlan,
	before, after map[string]any, evidence []string, risk domain.Tier) error {
	if !p.write && p.verified == nil {
		return nil
	}
	correlation := job.CorrelationID
	if correlation == "" {
		correlation = job.JobID
	}
	meta := map[string]any{"action": job.Action}
	if p.verified != nil {
		meta["verified"] = *p.verified
	}
	workerID := job.WorkerID
	if workerID == "" {
		workerID = s.actorID
	}
	return s.audit.Record(ctx, tx, &domain.AuditEvent{
		EventType:     domain.EventStateTransition,
		Actor:         domain.Actor{Type: domain.ActorWorker, ID: workerID},
		ObjectType:    job.ObjectType,
		ObjectID:      job.ObjectID,
		Before:        before,
		After:         after,
		Reason:        fmt.Sprintf("%s job %s: %s", job.Action, job.JobID, p.reason),
		EvidenceRefs:  evidence,
		RiskTier:      risk,
		JobID:         job.JobID,
		CorrelationID: correlation,
		Metadata:      meta,
	})
}

func (s *PipelineService) applyToMemory(ctx context.Context, tx domain.Repositories, job domain.SchedulerJob,
	now time.Time, verify func() (Verification, error)) (*ActionResult, error) {
	m, err := tx.Memories().GetByID(ctx, job.ObjectID)
	if err != nil {
		return nil, lookupErr(err, domain.ObjectMemory, job.ObjectID)
	}
	from := string(m.Status)
	p, err := planAction(job.Action, memoryLifecycle, from, verify)
	if err != nil {
		return nil, fmt.Errorf("memory %s: %w", m.ID, err)
	}

	if p.write {
		next := m.WithStatus(domain.MemoryStatus(p.target), now)
		if p.refresh {
			next.ReviewDueAt = domain.InDays(now, domain.DefaultReviewDays)
			next.NextActionAt = next.ReviewDueAt
		}
		if err := s.validator.Validate(validate.SchemaMemory, next); err != nil {
			return nil, err
		}
		if err := tx.Memories().Replace(ctx, &next); err != nil {
			return nil, replaceErr(err, domain.ObjectMemory, m.ID)
		}
	}

	if err := s.recordAction(ctx, tx, job, p,
		map[string]any{"status": from},
		map[string]any{"status": p.target},
		m.EvidenceRefs, m.RiskTier); err != nil {
		return nil, err
	}
	return newActionResult(job, from, p), nil
}

func (s *PipelineService) applyToExperience(ctx context.Context, tx domain.Repositories, job domain.SchedulerJob,
	now time.Time, verify func() (Verification, error)) (*ActionResult, error) {
	e, err := tx.Experiences().GetByID(ctx, job.ObjectID)
	if err != nil {
		return nil, lookupErr(err, domain.ObjectExperience, job.ObjectID)
	}
	from := string(e.Status)
	p, err := planAction(job.Action, experienceLifecycle, from, verify)
	if err != nil {
		return nil, fmt.Errorf("experience %s: %w", e.ID, err)
	}

	if p.write {
		next := e.WithStatus(domain.ExperienceStatus(p.target), now)
		if p.refresh {
			next.ReviewDueAt = domain.InDays(now, domain.DefaultReviewDays)
			next.NextActionAt = next.ReviewDueAt
		}
		if err := s.validator.Validate(validate.SchemaExperience, next); err != nil {
			return nil, err
		}
		if err := tx.Experiences().Replace(ctx, &next); err != nil {
			return nil, replaceErr(err, domain.ObjectExperience, e.ID)
		}
	}

	if err := s.recordAction(ctx, tx, job, p,
		map[string]any{"status": from},
		map[string]any{"status": p.target},
		e.MemoryRefs, ""); err != nil {
		return nil, err
	}
	return newActionResult(job, from, p), nil
}

func (s *PipelineService) applyToCognition(ctx context.Context, tx domain.Repositories, job domain.SchedulerJob,
	now time.Time, verify func() (Verification, error)) (*ActionResult, error) {
	c, err := tx.Cognitions().GetByID(ctx, job.ObjectID)
	if err != nil {
		return nil, lookupErr(err, domain.ObjectCognition, job.ObjectID)
	}
	from := string(c.Status)
	if (job.Action == domain.JobActionVerify || job.Action == domain.JobActionRevalidate) && c.AutoVerifyBudget <= 0 {
		return nil, fmt.Errorf("%w: cognition %s has no auto-verify budget left", domain.ErrInvalidState, c.ID)
	}
	p, err := planAction(job.Action, cognitionLifecycle, from, verify)
	if err != nil {
		return nil, fmt.Errorf("cognition %s: %w", c.ID, err)
	}

	before := map[string]any{"status": from}
	after := map[string]any{"status": p.target}
	if p.write {
		next := c.WithStatus(domain.CognitionStatus(p.target), now)
		if p.refresh {
			next.ReviewDueAt = domain.InDays(now, domain.DefaultReviewDays)
			next.NextActionAt = next.ReviewDueAt
		}
		if p.failedVerify {
			next.AutoVerifyBudget = c.AutoVerifyBudget - 1
			before["auto_verify_budget"] = c.AutoVerifyBudget
			after["auto_verify_budget"] = next.AutoVerifyBudget
		}
		if err := s.validator.Validate(validate.SchemaCognition, next); err != nil {
			return nil, err
		}
		if err := tx.Cognitions().Replace(ctx, &next); err != nil {
			return nil, replaceErr(err, domain.ObjectCognition, c.ID)
		}
	}

	if err := s.recordAction(ctx, tx, job, p, before, after, c.EvidenceRefs, c.RiskTier); err != nil {
		return nil, err
	}
	return newActionResult(job, from, p), nil
}

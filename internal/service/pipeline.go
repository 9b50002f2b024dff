package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
	"github.com/Harshitk-cp/mindkernel/internal/store"
	"github.com/Harshitk-cp/mindkernel/internal/validate"
)

// DefaultPipelineActor is recorded on pipeline audit events.
const DefaultPipelineActor = "promotion-pipeline"

const (
	reasonMemoryIngested   = "Memory ingested into promotion pipeline."
	reasonMemoryConsumed   = "Memory consumed by experience pipeline and promoted to active evidence."
	reasonExperienceFromMe = "Experience created from memory."
	reasonPersonaUpserted  = "Persona profile upserted for Experience->Cognition gate."
	reasonCognitionIngest  = "Cognition ingested into decision pipeline."

	ruleMemoryToExperience = "memory-to-experience"
)

// PipelineService owns the Memory -> Experience -> Cognition -> Decision
// lifecycle. Every transition and its audit events commit in one
// transaction.
type PipelineService struct {
	store     domain.Store
	validator domain.Validator
	audit     *AuditLog
	verifier  Verifier
	logger    *zap.Logger
	clock     domain.Clock
	actorID   string
}

func NewPipelineService(st domain.Store, v domain.Validator, audit *AuditLog, logger *zap.Logger) *PipelineService {
	return &PipelineService{
		store:     st,
		validator: v,
		audit:     audit,
		verifier:  &EvidenceVerifier{},
		logger:    logger,
		clock:     domain.Now,
		actorID:   DefaultPipelineActor,
	}
}

func (s *PipelineService) SetClock(c domain.Clock) {
	s.clock = c
}

func (s *PipelineService) SetVerifier(v Verifier) {
	s.verifier = v
}

func (s *PipelineService) SetActorID(id string) {
	s.actorID = id
}

func (s *PipelineService) actor() domain.Actor {
	return domain.SystemActor(s.actorID)
}

func checkEvidence(refs []string, kind domain.ObjectType, id string) error {
	if len(refs) < 1 {
		return fmt.Errorf("%w: %s %s requires at least one evidence ref", domain.ErrValidationFailed, kind, id)
	}
	for _, r := range refs {
		if strings.TrimSpace(r) == "" {
			return fmt.Errorf("%w: %s %s has a blank evidence ref", domain.ErrValidationFailed, kind, id)
		}
	}
	return nil
}

// IngestMemory stores a new candidate memory.
func (s *PipelineService) IngestMemory(ctx context.Context, m domain.Memory) (res *domain.Memory, err error) {
	ctx, span := tracer.Start(ctx, "pipeline.IngestMemory")
	defer func() { finishSpan(span, err) }()

	now := s.clock()
	if m.ID == "" {
		m.ID = domain.NewID(domain.PrefixMemory)
	}
	span.SetAttributes(attribute.String("memory_id", m.ID))

	if err := checkEvidence(m.EvidenceRefs, domain.ObjectMemory, m.ID); err != nil {
		return nil, err
	}
	if m.Kind == "" {
		m.Kind = domain.MemoryKindEvent
	}
	m.RiskTier = m.RiskTier.OrDefault(domain.TierLow)
	m.ImpactTier = m.ImpactTier.OrDefault(domain.TierLow)
	m.Status = domain.MemoryStatusCandidate
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.ReviewDueAt.IsZero() {
		m.ReviewDueAt = domain.InDays(now, domain.DefaultReviewDays)
	}
	if m.NextActionAt.IsZero() {
		m.NextActionAt = domain.InDays(now, domain.DefaultReviewDays)
	}
	m.UpdatedAt = now
	m.Version = 0

	if err := s.validator.Validate(validate.SchemaMemory, m); err != nil {
		return nil, err
	}

	err = s.store.WithTx(ctx, func(tx domain.Repositories) error {
		if _, err := tx.Memories().GetByID(ctx, m.ID); err == nil {
			return fmt.Errorf("%w: memory %s already exists", domain.ErrDuplicateObject, m.ID)
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if err := tx.Memories().Create(ctx, &m); err != nil {
			return createErr(err, domain.ObjectMemory, m.ID)
		}
		return s.audit.Record(ctx, tx, &domain.AuditEvent{
			EventType:    domain.EventStateTransition,
			Actor:        s.actor(),
			ObjectType:   domain.ObjectMemory,
			ObjectID:     m.ID,
			Before:       map[string]any{"status": nil},
			After:        map[string]any{"status": m.Status},
			Reason:       reasonMemoryIngested,
			EvidenceRefs: m.EvidenceRefs,
			RiskTier:     m.RiskTier,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("memory ingested", zap.String("memory_id", m.ID))
	return &m, nil
}

// ExperienceResult reports a memory promotion.
type ExperienceResult struct {
	MemoryID         string                  `json:"memory_id"`
	MemoryStatus     domain.MemoryStatus     `json:"memory_status"`
	ExperienceID     string                  `json:"experience_id"`
	ExperienceStatus domain.ExperienceStatus `json:"experience_status"`
	Experience       *domain.Experience      `json:"experience"`
}

// MemoryToExperience derives a candidate experience from a memory and marks
// the memory active if it was not already.
func (s *PipelineService) MemoryToExperience(ctx context.Context, memoryID, summary, outcome string) (res *ExperienceResult, err error) {
	ctx, span := tracer.Start(ctx, "pipeline.MemoryToExperience")
	span.SetAttributes(attribute.String("memory_id", memoryID))
	defer func() { finishSpan(span, err) }()

	now := s.clock()
	err = s.store.WithTx(ctx, func(tx domain.Repositories) error {
		mem, err := tx.Memories().GetByID(ctx, memoryID)
		if err != nil {
			return lookupErr(err, domain.ObjectMemory, memoryID)
		}
		if err := checkEvidence(mem.EvidenceRefs, domain.ObjectMemory, memoryID); err != nil {
			return err
		}
		if mem.Status.Terminal() {
			return fmt.Errorf("%w: memory %s is %s, expected candidate, active or stale",
				domain.ErrInvalidState, memoryID, mem.Status)
		}

		exp := domain.Experience{
			ID:             domain.NewID(domain.PrefixExperience),
			MemoryRefs:     []string{memoryID},
			EpisodeSummary: summary,
			ActionTaken:    domain.ActionDeriveFromMemory,
			Outcome:        outcome,
			Confidence:     domain.DeriveConfidence(mem.Confidence),
			Status:         domain.ExperienceStatusCandidate,
			CreatedAt:      now,
			ReviewDueAt:    domain.InDays(now, domain.DefaultReviewDays),
			NextActionAt:   domain.InDays(now, domain.DefaultReviewDays),
			UpdatedAt:      now,
		}
		if err := s.validator.Validate(validate.SchemaExperience, exp); err != nil {
			return err
		}

		var activated *domain.Memory
		if mem.Status != domain.MemoryStatusActive {
			next := mem.WithStatus(domain.MemoryStatusActive, now)
			if err := s.validator.Validate(validate.SchemaMemory, next); err != nil {
				return err
			}
			activated = &next
		}

		if err := tx.Experiences().Create(ctx, &exp); err != nil {
			return createErr(err, domain.ObjectExperience, exp.ID)
		}

		memStatus := mem.Status
		if activated != nil {
			if err := tx.Memories().Replace(ctx, activated); err != nil {
				return replaceErr(err, domain.ObjectMemory, memoryID)
			}
			if err := s.audit.Record(ctx, tx, &domain.AuditEvent{
				EventType:    domain.EventStateTransition,
				Actor:        s.actor(),
				ObjectType:   domain.ObjectMemory,
				ObjectID:     memoryID,
				Before:       map[string]any{"status": mem.Status},
				After:        map[string]any{"status": domain.MemoryStatusActive},
				Reason:       reasonMemoryConsumed,
				EvidenceRefs: mem.EvidenceRefs,
			}); err != nil {
				return err
			}
			memStatus = domain.MemoryStatusActive
		}

		if err := s.audit.Record(ctx, tx, &domain.AuditEvent{
			EventType:    domain.EventStateTransition,
			Actor:        s.actor(),
			ObjectType:   domain.ObjectExperience,
			ObjectID:     exp.ID,
			Before:       map[string]any{"status": nil},
			After:        map[string]any{"status": exp.Status, "memory_refs": exp.MemoryRefs},
			Reason:       reasonExperienceFromMe,
			EvidenceRefs: mem.EvidenceRefs,
			Metadata:     map[string]any{"rule_id": ruleMemoryToExperience},
		}); err != nil {
			return err
		}

		res = &ExperienceResult{
			MemoryID:         memoryID,
			MemoryStatus:     memStatus,
			ExperienceID:     exp.ID,
			ExperienceStatus: exp.Status,
			Experience:       &exp,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("experience derived",
		zap.String("memory_id", memoryID),
		zap.String("experience_id", res.ExperienceID))
	return res, nil
}

// PersonaResult reports an upsert.
type PersonaResult struct {
	PersonaID string               `json:"persona_id"`
	Status    domain.PersonaStatus `json:"status"`
	Created   bool                 `json:"created"`
	Persona   *domain.Persona      `json:"persona"`
}

// UpsertPersona inserts or replaces a persona.
func (s *PipelineService) UpsertPersona(ctx context.Context, p domain.Persona) (res *PersonaResult, err error) {
	ctx, span := tracer.Start(ctx, "pipeline.UpsertPersona")
	defer func() { finishSpan(span, err) }()

	now := s.clock()
	if strings.TrimSpace(p.ID) == "" {
		return nil, fmt.Errorf("%w: persona id is required", domain.ErrValidationFailed)
	}
	if p.Status == "" {
		p.Status = domain.PersonaStatusActive
	}
	if p.Boundaries == nil {
		p.Boundaries = []string{}
	}
	p.UpdatedAt = now
	span.SetAttributes(attribute.String("persona_id", p.ID))

	err = s.store.WithTx(ctx, func(tx domain.Repositories) error {
		var before any
		existing, err := tx.Personas().GetByID(ctx, p.ID)
		switch {
		case err == nil:
			before = existing.Status
			p.CreatedAt = existing.CreatedAt
			p.Version = existing.Version
		case errors.Is(err, store.ErrNotFound):
			p.CreatedAt = now
			p.Version = 0
		default:
			return err
		}

		if err := s.validator.Validate(validate.SchemaPersona, p); err != nil {
			return err
		}
		if existing != nil {
			if err := tx.Personas().Replace(ctx, &p); err != nil {
				return replaceErr(err, domain.ObjectPersona, p.ID)
			}
		} else if err := tx.Personas().Create(ctx, &p); err != nil {
			return createErr(err, domain.ObjectPersona, p.ID)
		}

		res = &PersonaResult{PersonaID: p.ID, Status: p.Status, Created: existing == nil, Persona: &p}
		return s.audit.Record(ctx, tx, &domain.AuditEvent{
			EventType:    domain.EventStateTransition,
			Actor:        s.actor(),
			ObjectType:   domain.ObjectPersona,
			ObjectID:     p.ID,
			Before:       map[string]any{"status": before},
			After:        map[string]any{"status": p.Status},
			Reason:       reasonPersonaUpserted,
			EvidenceRefs: []string{"persona:" + p.ID},
		})
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// IngestCognition stores a claim supplied directly rather than derived.
func (s *PipelineService) IngestCognition(ctx context.Context, c domain.Cognition) (res *domain.Cognition, err error) {
	ctx, span := tracer.Start(ctx, "pipeline.IngestCognition")
	defer func() { finishSpan(span, err) }()

	now := s.clock()
	if c.ID == "" {
		c.ID = domain.NewID(domain.PrefixCognition)
	}
	span.SetAttributes(attribute.String("cognition_id", c.ID))

	if !domain.ValidEpistemicState(string(c.EpistemicState)) {
		return nil, fmt.Errorf("%w: cognition %s has %q", domain.ErrInvalidEpistemicState, c.ID, c.EpistemicState)
	}
	if c.EpistemicState != domain.EpistemicUncertain && c.UnknownType != "" {
		return nil, fmt.Errorf("%w: cognition %s sets unknown_type while %s",
			domain.ErrValidationFailed, c.ID, c.EpistemicState)
	}
	if c.AutoVerifyBudget < 0 {
		return nil, fmt.Errorf("%w: cognition %s has negative auto_verify_budget", domain.ErrValidationFailed, c.ID)
	}
	if err := checkEvidence(c.EvidenceRefs, domain.ObjectCognition, c.ID); err != nil {
		return nil, err
	}
	if c.Status == "" {
		c.Status = domain.CognitionStatusCandidate
	}
	c.RiskTier = c.RiskTier.OrDefault(domain.TierMedium)
	c.ImpactTier = c.ImpactTier.OrDefault(domain.TierMedium)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.ReviewDueAt.IsZero() {
		c.ReviewDueAt = domain.InDays(now, domain.DefaultReviewDays)
	}
	if c.NextActionAt.IsZero() {
		c.NextActionAt = c.ReviewDueAt
	}
	c.UpdatedAt = now
	c.Version = 0

	if err := s.validator.Validate(validate.SchemaCognition, c); err != nil {
		return nil, err
	}

	err = s.store.WithTx(ctx, func(tx domain.Repositories) error {
		if _, err := tx.Cognitions().GetByID(ctx, c.ID); err == nil {
			return fmt.Errorf("%w: cognition %s already exists", domain.ErrDuplicateObject, c.ID)
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if err := tx.Cognitions().Create(ctx, &c); err != nil {
			return createErr(err, domain.ObjectCognition, c.ID)
		}
		return s.audit.Record(ctx, tx, &domain.AuditEvent{
			EventType:    domain.EventStateTransition,
			Actor:        s.actor(),
			ObjectType:   domain.ObjectCognition,
			ObjectID:     c.ID,
			Before:       map[string]any{"status": nil},
			After:        map[string]any{"status": c.Status, "epistemic_state": c.EpistemicState},
			Reason:       reasonCognitionIngest,
			EvidenceRefs: c.EvidenceRefs,
			RiskTier:     c.RiskTier,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("cognition ingested",
		zap.String("cognition_id", c.ID),
		zap.String("epistemic_state", string(c.EpistemicState)))
	return &c, nil
}

// FullPathRequest drives one observation through every stage.
type FullPathRequest struct {
	Memory         domain.Memory  `json:"memory"`
	Persona        domain.Persona `json:"persona"`
	EpisodeSummary string         `json:"episode_summary"`
	Outcome        string         `json:"outcome"`
	RequestRef     string         `json:"request_ref"`
	RiskTier       domain.Tier    `json:"risk_tier,omitempty"`
}

type FullPathResult struct {
	Memory     *domain.Memory    `json:"memory"`
	Experience *ExperienceResult `json:"experience"`
	Persona    *PersonaResult    `json:"persona"`
	Cognition  *PromotionResult  `json:"cognition"`
	Decision   *DecisionResult   `json:"decision"`
}

// RunFullPath ingests a memory and promotes it to a decision, routing to a
// blocked decision when the persona gate blocks. Each stage commits on its
// own.
func (s *PipelineService) RunFullPath(ctx context.Context, req FullPathRequest) (res *FullPathResult, err error) {
	ctx, span := tracer.Start(ctx, "pipeline.RunFullPath")
	defer func() { finishSpan(span, err) }()

	if strings.TrimSpace(req.RequestRef) == "" {
		return nil, fmt.Errorf("%w: request_ref is required", domain.ErrValidationFailed)
	}
	if req.RiskTier != "" && !domain.ValidTier(string(req.RiskTier)) {
		return nil, fmt.Errorf("%w: risk tier %q", domain.ErrValidationFailed, req.RiskTier)
	}

	res = &FullPathResult{}
	if res.Memory, err = s.IngestMemory(ctx, req.Memory); err != nil {
		return nil, err
	}
	if res.Experience, err = s.MemoryToExperience(ctx, res.Memory.ID, req.EpisodeSummary, req.Outcome); err != nil {
		return nil, err
	}
	if res.Persona, err = s.UpsertPersona(ctx, req.Persona); err != nil {
		return nil, err
	}
	if res.Cognition, err = s.ExperienceToCognition(ctx, res.Experience.ExperienceID, res.Persona.PersonaID); err != nil {
		return nil, err
	}

	if res.Cognition.CognitionCreated {
		res.Decision, err = s.CognitionToDecision(ctx, res.Cognition.CognitionID, req.RequestRef, req.RiskTier)
	} else {
		res.Decision, err = s.BlockedPromotionToDecision(ctx, BlockedDecisionRequest{
			ExperienceID: res.Experience.ExperienceID,
			PersonaID:    res.Persona.PersonaID,
			RequestRef:   req.RequestRef,
			BoundaryHits: res.Cognition.BoundaryHits,
			RiskTier:     req.RiskTier.OrDefault(domain.TierHigh),
		})
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *PipelineService) GetMemory(ctx context.Context, id string) (*domain.Memory, error) {
	m, err := s.store.Memories().GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, domain.ObjectMemory, id)
	}
	return m, nil
}

func (s *PipelineService) ListMemories(ctx context.Context, status domain.MemoryStatus, limit int) ([]domain.Memory, error) {
	if status != "" && !domain.ValidMemoryStatus(string(status)) {
		return nil, fmt.Errorf("%w: memory status %q", domain.ErrValidationFailed, status)
	}
	return s.store.Memories().ListByStatus(ctx, status, limit)
}

func (s *PipelineService) GetExperience(ctx context.Context, id string) (*domain.Experience, error) {
	e, err := s.store.Experiences().GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, domain.ObjectExperience, id)
	}
	return e, nil
}

func (s *PipelineService) ListExperiences(ctx context.Context, status domain.ExperienceStatus, limit int) ([]domain.Experience, error) {
	if status != "" && !domain.ValidExperienceStatus(string(status)) {
		return nil, fmt.Errorf("%w: experience status %q", domain.ErrValidationFailed, status)
	}
	return s.store.Experiences().ListByStatus(ctx, status, limit)
}

func (s *PipelineService) GetPersona(ctx context.Context, id string) (*domain.Persona, error) {
	p, err := s.store.Personas().GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, domain.ObjectPersona, id)
	}
	return p, nil
}

func (s *PipelineService) ListPersonas(ctx context.Context, status domain.PersonaStatus, limit int) ([]domain.Persona, error) {
	if status != "" && !domain.ValidPersonaStatus(string(status)) {
		return nil, fmt.Errorf("%w: persona status %q", domain.ErrValidationFailed, status)
	}
	return s.store.Personas().ListByStatus(ctx, status, limit)
}

func (s *PipelineService) GetCognition(ctx context.Context, id string) (*domain.Cognition, error) {
	c, err := s.store.Cognitions().GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, domain.ObjectCognition, id)
	}
	return c, nil
}

func (s *PipelineService) ListCognitions(ctx context.Context, status domain.CognitionStatus, limit int) ([]domain.Cognition, error) {
	if status != "" && !domain.ValidCognitionStatus(string(status)) {
		return nil, fmt.Errorf("%w: cognition status %q", domain.ErrValidationFailed, status)
	}
	return s.store.Cognitions().ListByStatus(ctx, status, limit)
}

// EachCognition walks every cognition with the status, newest first, one
// page at a time. fn returning an error stops the walk.
func (s *PipelineService) EachCognition(ctx context.Context, status domain.CognitionStatus, pageSize int, fn func(domain.Cognition) error) error {
	if !domain.ValidCognitionStatus(string(status)) {
		return fmt.Errorf("%w: cognition status %q", domain.ErrValidationFailed, status)
	}
	if pageSize <= 0 {
		pageSize = store.DefaultListLimit
	}
	var after domain.Cursor
	for {
		page, err := s.store.Cognitions().ListByStatusAfter(ctx, status, after, pageSize)
		if err != nil {
			return err
		}
		for _, c := range page {
			if err := fn(c); err != nil {
				return err
			}
		}
		if len(page) < pageSize {
			return nil
		}
		last := page[len(page)-1]
		after = domain.Cursor{UpdatedAt: last.UpdatedAt, ID: last.ID}
	}
}

// GetDecision looks a trace up by its decision id.
func (s *PipelineService) GetDecision(ctx context.Context, decisionID string) (*domain.DecisionTrace, error) {
	d, err := s.store.Decisions().GetByID(ctx, decisionID)
	if err != nil {
		return nil, lookupErr(err, domain.ObjectDecision, decisionID)
	}
	return d, nil
}

func (s *PipelineService) ListDecisions(ctx context.Context, outcome domain.FinalOutcome, limit int) ([]domain.DecisionTrace, error) {
	if outcome != "" && !domain.ValidFinalOutcome(string(outcome)) {
		return nil, fmt.Errorf("%w: final outcome %q", domain.ErrValidationFailed, outcome)
	}
	return s.store.Decisions().ListByOutcome(ctx, outcome, limit)
}

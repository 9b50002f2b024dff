package service

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
	"github.com/Harshitk-cp/mindkernel/internal/policy"
	"github.com/Harshitk-cp/mindkernel/internal/validate"
)

const (
	reasonPersonaBlocked  = "Persona boundary conflict detected; cognition promotion blocked."
	reasonPersonaPassed   = "Persona gate passed for Experience->Cognition promotion."
	reasonCognitionFromEx = "Cognition created from experience."
	reasonBlockedDecision = "Persona gate blocked cognition promotion; decision blocked by policy boundary."

	ruleExperienceToCognition = "experience-to-cognition"

	derivedFalsifyIf      = "New contradictory experience with stronger evidence appears."
	derivedReviewInterval = "P7D"
	derivedUncertaintyTTL = "P7D"
	derivedDomain         = "experience-derived"
	derivedChannel        = "webchat"
)

// blockedObjectID names the cognition that a persona block prevented.
func blockedObjectID(experienceID string) string {
	return "blocked_from_" + experienceID
}

// PromotionResult reports the persona gate and, on pass, the new cognition.
// A blocked promotion is a successful result with CognitionCreated false.
type PromotionResult struct {
	ExperienceID        string             `json:"experience_id"`
	PersonaID           string             `json:"persona_id"`
	PersonaConflictGate domain.GateOutcome `json:"persona_conflict_gate"`
	BoundaryHits        []string           `json:"boundary_hits"`
	CognitionCreated    bool               `json:"cognition_created"`
	CognitionID         string             `json:"cognition_id,omitempty"`
	Cognition           *domain.Cognition  `json:"cognition,omitempty"`
}

// ExperienceToCognition runs the persona gate and either derives an
// uncertain cognition or records the block. Each experience is promoted at
// most once.
func (s *PipelineService) ExperienceToCognition(ctx context.Context, experienceID, personaID string) (res *PromotionResult, err error) {
	ctx, span := tracer.Start(ctx, "pipeline.ExperienceToCognition")
	span.SetAttributes(
		attribute.String("experience_id", experienceID),
		attribute.String("persona_id", personaID))
	defer func() { finishSpan(span, err) }()

	now := s.clock()
	err = s.store.WithTx(ctx, func(tx domain.Repositories) error {
		exp, err := tx.Experiences().GetByID(ctx, experienceID)
		if err != nil {
			return lookupErr(err, domain.ObjectExperience, experienceID)
		}
		persona, err := tx.Personas().GetByID(ctx, personaID)
		if err != nil {
			return lookupErr(err, domain.ObjectPersona, personaID)
		}
		if len(exp.MemoryRefs) < 1 {
			return fmt.Errorf("%w: experience %s has no memory refs", domain.ErrValidationFailed, experienceID)
		}
		if exp.Status.Terminal() {
			return fmt.Errorf("%w: experience %s is %s", domain.ErrInvalidState, experienceID, exp.Status)
		}
		if err := s.ensureNotPromoted(ctx, tx, experienceID); err != nil {
			return err
		}

		gate, hits := policy.EvaluatePersona(*persona, *exp)
		res = &PromotionResult{
			ExperienceID:        experienceID,
			PersonaID:           personaID,
			PersonaConflictGate: gate,
			BoundaryHits:        hits,
		}

		if gate == domain.GateBlock {
			return s.audit.Record(ctx, tx, &domain.AuditEvent{
				EventType:    domain.EventDecisionGate,
				Actor:        s.actor(),
				ObjectType:   domain.ObjectCognition,
				ObjectID:     blockedObjectID(experienceID),
				Before:       map[string]any{"persona_conflict_gate": "pending"},
				After:        map[string]any{"persona_conflict_gate": domain.GateBlock, "status": "blocked"},
				Reason:       reasonPersonaBlocked,
				EvidenceRefs: []string{experienceID},
				Metadata: map[string]any{
					"rule_id":       ruleExperienceToCognition,
					"boundary_hits": hits,
					"persona_id":    personaID,
				},
			})
		}

		c := domain.Cognition{
			ID:   domain.NewID(domain.PrefixCognition),
			Rule: "Derived from experience: " + exp.EpisodeSummary,
			Scope: &domain.CognitionScope{
				Domains:     []string{derivedDomain},
				Channels:    []string{derivedChannel},
				RiskTierMax: domain.TierMedium,
			},
			EpistemicState:          domain.EpistemicUncertain,
			UnknownType:             domain.UnknownMultipath,
			Confidence:              domain.DeriveConfidence(exp.Confidence),
			FalsifyIf:               derivedFalsifyIf,
			ReviewInterval:          derivedReviewInterval,
			UncertaintyTTL:          derivedUncertaintyTTL,
			DecisionModeIfUncertain: domain.ModeConservative,
			RiskTier:                domain.TierMedium,
			ImpactTier:              domain.TierMedium,
			AutoVerifyBudget:        domain.DefaultAutoVerifyBudget,
			Status:                  domain.CognitionStatusCandidate,
			EvidenceRefs:            []string{experienceID},
			SourceExperienceID:      experienceID,
			CreatedAt:               now,
			ReviewDueAt:             domain.InDays(now, domain.DefaultReviewDays),
			NextActionAt:            domain.InDays(now, domain.DefaultReviewDays),
			UpdatedAt:               now,
		}
		if err := s.validator.Validate(validate.SchemaCognition, c); err != nil {
			return err
		}
		if err := tx.Cognitions().Create(ctx, &c); err != nil {
			return createErr(err, domain.ObjectCognition, c.ID)
		}

		if err := s.audit.Record(ctx, tx, &domain.AuditEvent{
			EventType:    domain.EventDecisionGate,
			Actor:        s.actor(),
			ObjectType:   domain.ObjectCognition,
			ObjectID:     c.ID,
			Before:       map[string]any{"persona_conflict_gate": "pending"},
			After:        map[string]any{"persona_conflict_gate": domain.GatePass},
			Reason:       reasonPersonaPassed,
			EvidenceRefs: []string{experienceID},
			Metadata:     map[string]any{"rule_id": ruleExperienceToCognition, "persona_id": personaID},
		}); err != nil {
			return err
		}
		if err := s.audit.Record(ctx, tx, &domain.AuditEvent{
			EventType:    domain.EventStateTransition,
			Actor:        s.actor(),
			ObjectType:   domain.ObjectCognition,
			ObjectID:     c.ID,
			Before:       map[string]any{"status": nil},
			After:        map[string]any{"status": c.Status, "epistemic_state": c.EpistemicState},
			Reason:       reasonCognitionFromEx,
			EvidenceRefs: []string{experienceID},
			RiskTier:     c.RiskTier,
			Metadata:     map[string]any{"rule_id": ruleExperienceToCognition},
		}); err != nil {
			return err
		}

		res.CognitionCreated = true
		res.CognitionID = c.ID
		res.Cognition = &c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("persona gate evaluated",
		zap.String("experience_id", experienceID),
		zap.String("persona_id", personaID),
		zap.String("gate", string(res.PersonaConflictGate)),
		zap.Bool("cognition_created", res.CognitionCreated))
	return res, nil
}

// ensureNotPromoted fails when the experience already produced a cognition
// or a persona block.
func (s *PipelineService) ensureNotPromoted(ctx context.Context, tx domain.Repositories, experienceID string) error {
	existing, err := tx.Cognitions().ListBySourceExperience(ctx, experienceID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return fmt.Errorf("%w: experience %s already promoted to cognition %s",
			domain.ErrInvalidState, experienceID, existing[0].ID)
	}
	block, err := s.findBlock(ctx, tx, experienceID)
	if err != nil {
		return err
	}
	if block != nil {
		return fmt.Errorf("%w: experience %s was blocked by persona gate", domain.ErrInvalidState, experienceID)
	}
	return nil
}

func (s *PipelineService) findBlock(ctx context.Context, tx domain.Repositories, experienceID string) (*domain.AuditEvent, error) {
	events, err := tx.Audit().List(ctx, domain.AuditFilter{
		ObjectType: domain.ObjectCognition,
		ObjectID:   blockedObjectID(experienceID),
		EventType:  domain.EventDecisionGate,
		Limit:      1,
	})
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	return &events[0], nil
}

// DecisionResult wraps a stored decision trace.
type DecisionResult struct {
	DecisionID   string                `json:"decision_id"`
	TraceID      string                `json:"decision_trace_id"`
	FinalOutcome domain.FinalOutcome   `json:"final_outcome"`
	Trace        *domain.DecisionTrace `json:"trace"`
}

// CognitionToDecision evaluates a cognition for one request and stores the
// resulting trace.
func (s *PipelineService) CognitionToDecision(ctx context.Context, cognitionID, requestRef string, riskOverride domain.Tier) (res *DecisionResult, err error) {
	ctx, span := tracer.Start(ctx, "pipeline.CognitionToDecision")
	span.SetAttributes(attribute.String("cognition_id", cognitionID))
	defer func() { finishSpan(span, err) }()

	if strings.TrimSpace(requestRef) == "" {
		return nil, fmt.Errorf("%w: request_ref is required", domain.ErrValidationFailed)
	}

	now := s.clock()
	err = s.store.WithTx(ctx, func(tx domain.Repositories) error {
		c, err := tx.Cognitions().GetByID(ctx, cognitionID)
		if err != nil {
			return lookupErr(err, domain.ObjectCognition, cognitionID)
		}
		d, err := policy.Decide(*c, riskOverride)
		if err != nil {
			return err
		}

		unknown := d.UnknownType
		if d.EpistemicState == domain.EpistemicUncertain && unknown == "" {
			unknown = domain.UnknownMultipath
		}
		reviewDue := c.ReviewDueAt
		if reviewDue.IsZero() {
			reviewDue = domain.InDays(now, domain.DefaultReviewDays)
		}

		trace := domain.DecisionTrace{
			ID:             domain.NewID(domain.PrefixTrace),
			DecisionID:     domain.NewID(domain.PrefixDecision),
			RequestRef:     requestRef,
			RiskTier:       d.RiskTier,
			ImpactTier:     d.ImpactTier,
			DecisionMode:   d.DecisionMode,
			EpistemicState: d.EpistemicState,
			UnknownType:    unknown,
			Inputs:         domain.DecisionInputs{CognitionRefs: []string{cognitionID}},
			Gates:          d.Gates,
			Reason:         d.Reason,
			EvidenceRefs:   []string{cognitionID},
			FinalOutcome:   d.FinalOutcome,
			ReviewDueAt:    reviewDue,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.storeDecision(ctx, tx, &trace); err != nil {
			return err
		}

		if err := s.audit.Record(ctx, tx, &domain.AuditEvent{
			EventType:  domain.EventDecisionGate,
			Actor:      s.actor(),
			ObjectType: domain.ObjectDecision,
			ObjectID:   trace.DecisionID,
			Before:     map[string]any{"gate": "pending"},
			After: map[string]any{
				"risk_gate":      trace.Gates.Risk,
				"cognition_gate": trace.Gates.Cognition,
				"final_outcome":  trace.FinalOutcome,
			},
			Reason:          trace.Reason,
			EvidenceRefs:    trace.EvidenceRefs,
			RiskTier:        trace.RiskTier,
			DecisionTraceID: trace.ID,
			Metadata:        map[string]any{"decision_trace_id": trace.ID},
		}); err != nil {
			return err
		}

		res = &DecisionResult{DecisionID: trace.DecisionID, TraceID: trace.ID, FinalOutcome: trace.FinalOutcome, Trace: &trace}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("decision recorded",
		zap.String("cognition_id", cognitionID),
		zap.String("decision_id", res.DecisionID),
		zap.String("final_outcome", string(res.FinalOutcome)))
	return res, nil
}

// BlockedDecisionRequest closes out a promotion the persona gate blocked.
// Empty BoundaryHits and PersonaID are taken from the recorded block.
type BlockedDecisionRequest struct {
	ExperienceID string      `json:"experience_id"`
	PersonaID    string      `json:"persona_id"`
	RequestRef   string      `json:"request_ref"`
	BoundaryHits []string    `json:"boundary_hits"`
	RiskTier     domain.Tier `json:"risk_tier,omitempty"`
}

// BlockedPromotionToDecision records the terminal blocked decision for an
// experience whose promotion was vetoed.
func (s *PipelineService) BlockedPromotionToDecision(ctx context.Context, req BlockedDecisionRequest) (res *DecisionResult, err error) {
	ctx, span := tracer.Start(ctx, "pipeline.BlockedPromotionToDecision")
	span.SetAttributes(attribute.String("experience_id", req.ExperienceID))
	defer func() { finishSpan(span, err) }()

	if req.RiskTier != "" && !domain.ValidTier(string(req.RiskTier)) {
		return nil, fmt.Errorf("%w: risk tier %q", domain.ErrValidationFailed, req.RiskTier)
	}
	requestRef := req.RequestRef
	if strings.TrimSpace(requestRef) == "" {
		requestRef = "blocked:" + req.ExperienceID
	}

	now := s.clock()
	err = s.store.WithTx(ctx, func(tx domain.Repositories) error {
		if _, err := tx.Experiences().GetByID(ctx, req.ExperienceID); err != nil {
			return lookupErr(err, domain.ObjectExperience, req.ExperienceID)
		}
		block, err := s.findBlock(ctx, tx, req.ExperienceID)
		if err != nil {
			return err
		}
		if block == nil {
			return fmt.Errorf("%w: experience %s has no persona block", domain.ErrInvalidState, req.ExperienceID)
		}
		prior, err := tx.Decisions().ListByRef(ctx, req.ExperienceID)
		if err != nil {
			return err
		}
		for _, d := range prior {
			if d.FinalOutcome == domain.OutcomeBlocked {
				return fmt.Errorf("%w: experience %s already has blocked decision %s",
					domain.ErrInvalidState, req.ExperienceID, d.DecisionID)
			}
		}

		personaID := req.PersonaID
		if personaID == "" {
			personaID, _ = block.Metadata["persona_id"].(string)
		}
		hits := req.BoundaryHits
		if len(hits) == 0 {
			hits = stringSlice(block.Metadata["boundary_hits"])
		}
		var personaRefs []string
		if personaID != "" {
			personaRefs = []string{personaID}
		}

		trace := domain.DecisionTrace{
			ID:             domain.NewID(domain.PrefixTrace),
			DecisionID:     domain.NewID(domain.PrefixDecision),
			RequestRef:     requestRef,
			RiskTier:       req.RiskTier.OrDefault(domain.TierHigh),
			ImpactTier:     domain.TierHigh,
			DecisionMode:   domain.ModeAbstain,
			EpistemicState: domain.EpistemicUncertain,
			UnknownType:    domain.UnknownOutOfScope,
			Inputs: domain.DecisionInputs{
				ExperienceRefs: []string{req.ExperienceID},
				PersonaRefs:    personaRefs,
			},
			Gates: domain.Gates{
				PersonaConflict: domain.GateBlock,
				Social:          domain.GateDefer,
				Risk:            domain.GateBlock,
				Cognition:       domain.GateBlock,
			},
			Reason:       reasonBlockedDecision,
			EvidenceRefs: []string{req.ExperienceID},
			FinalOutcome: domain.OutcomeBlocked,
			ReviewDueAt:  domain.InDays(now, domain.DefaultReviewDays),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.storeDecision(ctx, tx, &trace); err != nil {
			return err
		}

		if hits == nil {
			hits = []string{}
		}
		if err := s.audit.Record(ctx, tx, &domain.AuditEvent{
			EventType:  domain.EventDecisionGate,
			Actor:      s.actor(),
			ObjectType: domain.ObjectDecision,
			ObjectID:   trace.DecisionID,
			Before:     map[string]any{"gate": "pending"},
			After: map[string]any{
				"persona_conflict_gate": domain.GateBlock,
				"risk_gate":             domain.GateBlock,
				"cognition_gate":        domain.GateBlock,
				"final_outcome":         domain.OutcomeBlocked,
			},
			Reason:          reasonBlockedDecision,
			EvidenceRefs:    trace.EvidenceRefs,
			RiskTier:        trace.RiskTier,
			DecisionTraceID: trace.ID,
			Metadata: map[string]any{
				"decision_trace_id": trace.ID,
				"persona_id":        personaID,
				"boundary_hits":     hits,
			},
		}); err != nil {
			return err
		}

		res = &DecisionResult{DecisionID: trace.DecisionID, TraceID: trace.ID, FinalOutcome: trace.FinalOutcome, Trace: &trace}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("blocked decision recorded",
		zap.String("experience_id", req.ExperienceID),
		zap.String("decision_id", res.DecisionID))
	return res, nil
}

func (s *PipelineService) storeDecision(ctx context.Context, tx domain.Repositories, trace *domain.DecisionTrace) error {
	if err := s.validator.Validate(validate.SchemaDecisionTrace, trace); err != nil {
		return err
	}
	if err := tx.Decisions().Create(ctx, trace); err != nil {
		return createErr(err, domain.ObjectDecision, trace.DecisionID)
	}
	return nil
}

// stringSlice reads a []string back out of decoded audit metadata.
func stringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, x := range vv {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

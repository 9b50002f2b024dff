package store

import (
	"context"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
)

// Rows are keyed by decision id, the identifier callers and audit events see.
var decisionEntity = entity[domain.DecisionTrace]{
	table: TableDecisions,
	record: func(d *domain.DecisionTrace) Record {
		return Record{ID: d.DecisionID, Status: string(d.FinalOutcome), Ref: decisionRef(d), CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt}
	},
	version: func(d *domain.DecisionTrace) *int { return &d.Version },
}

// decisionRef is the cognition a decision evaluated or, for a blocked
// promotion, the experience that was blocked.
func decisionRef(d *domain.DecisionTrace) string {
	if len(d.Inputs.CognitionRefs) > 0 {
		return d.Inputs.CognitionRefs[0]
	}
	if len(d.Inputs.ExperienceRefs) > 0 {
		return d.Inputs.ExperienceRefs[0]
	}
	return ""
}

// DecisionStore has no Replace: traces are immutable once written.
type DecisionStore struct {
	b Backend
}

func NewDecisionStore(b Backend) *DecisionStore {
	return &DecisionStore{b: b}
}

func (s *DecisionStore) Create(ctx context.Context, d *domain.DecisionTrace) error {
	return decisionEntity.create(ctx, s.b, d)
}

func (s *DecisionStore) GetByID(ctx context.Context, decisionID string) (*domain.DecisionTrace, error) {
	return decisionEntity.get(ctx, s.b, decisionID)
}

func (s *DecisionStore) ListByOutcome(ctx context.Context, outcome domain.FinalOutcome, limit int) ([]domain.DecisionTrace, error) {
	return decisionEntity.list(ctx, s.b, RecordQuery{Status: string(outcome), Limit: limit})
}

func (s *DecisionStore) ListByRef(ctx context.Context, ref string) ([]domain.DecisionTrace, error) {
	if ref == "" {
		return nil, nil
	}
	return decisionEntity.list(ctx, s.b, RecordQuery{Ref: ref, Limit: refLookupLimit})
}

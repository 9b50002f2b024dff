package store

import (
	"context"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
)

// refLookupLimit bounds lookups by parent reference. A parent normally has
// at most one child.
const refLookupLimit = 100

var cognitionEntity = entity[domain.Cognition]{
	table: TableCognitions,
	record: func(c *domain.Cognition) Record {
		return Record{ID: c.ID, Status: string(c.Status), Ref: c.SourceExperienceID, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
	},
	version: func(c *domain.Cognition) *int { return &c.Version },
}

type CognitionStore struct {
	b Backend
}

func NewCognitionStore(b Backend) *CognitionStore {
	return &CognitionStore{b: b}
}

func (s *CognitionStore) Create(ctx context.Context, c *domain.Cognition) error {
	return cognitionEntity.create(ctx, s.b, c)
}

func (s *CognitionStore) GetByID(ctx context.Context, id string) (*domain.Cognition, error) {
	return cognitionEntity.get(ctx, s.b, id)
}

func (s *CognitionStore) Replace(ctx context.Context, c *domain.Cognition) error {
	return cognitionEntity.replace(ctx, s.b, c)
}

func (s *CognitionStore) ListByStatus(ctx context.Context, status domain.CognitionStatus, limit int) ([]domain.Cognition, error) {
	return cognitionEntity.list(ctx, s.b, RecordQuery{Status: string(status), Limit: limit})
}

func (s *CognitionStore) ListByStatusAfter(ctx context.Context, status domain.CognitionStatus, after domain.Cursor, limit int) ([]domain.Cognition, error) {
	return cognitionEntity.list(ctx, s.b, RecordQuery{Status: string(status), After: after, Limit: limit})
}

func (s *CognitionStore) ListBySourceExperience(ctx context.Context, experienceID string) ([]domain.Cognition, error) {
	if experienceID == "" {
		return nil, nil
	}
	return cognitionEntity.list(ctx, s.b, RecordQuery{Ref: experienceID, Limit: refLookupLimit})
}

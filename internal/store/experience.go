package store

import (
	"context"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
)

var experienceEntity = entity[domain.Experience]{
	table: TableExperiences,
	record: func(e *domain.Experience) Record {
		var ref string
		if len(e.MemoryRefs) > 0 {
			ref = e.MemoryRefs[0]
		}
		return Record{ID: e.ID, Status: string(e.Status), Ref: ref, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt}
	},
	version: func(e *domain.Experience) *int { return &e.Version },
}

type ExperienceStore struct {
	b Backend
}

func NewExperienceStore(b Backend) *ExperienceStore {
	return &ExperienceStore{b: b}
}

func (s *ExperienceStore) Create(ctx context.Context, e *domain.Experience) error {
	return experienceEntity.create(ctx, s.b, e)
}

func (s *ExperienceStore) GetByID(ctx context.Context, id string) (*domain.Experience, error) {
	return experienceEntity.get(ctx, s.b, id)
}

func (s *ExperienceStore) Replace(ctx context.Context, e *domain.Experience) error {
	return experienceEntity.replace(ctx, s.b, e)
}

func (s *ExperienceStore) ListByStatus(ctx context.Context, status domain.ExperienceStatus, limit int) ([]domain.Experience, error) {
	return experienceEntity.list(ctx, s.b, RecordQuery{Status: string(status), Limit: limit})
}

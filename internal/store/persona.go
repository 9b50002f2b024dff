package store

import (
	"context"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
)

var personaEntity = entity[domain.Persona]{
	table: TablePersonas,
	record: func(p *domain.Persona) Record {
		return Record{ID: p.ID, Status: string(p.Status), CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt}
	},
	version: func(p *domain.Persona) *int { return &p.Version },
}

type PersonaStore struct {
	b Backend
}

func NewPersonaStore(b Backend) *PersonaStore {
	return &PersonaStore{b: b}
}

func (s *PersonaStore) Create(ctx context.Context, p *domain.Persona) error {
	return personaEntity.create(ctx, s.b, p)
}

func (s *PersonaStore) GetByID(ctx context.Context, id string) (*domain.Persona, error) {
	return personaEntity.get(ctx, s.b, id)
}

func (s *PersonaStore) Replace(ctx context.Context, p *domain.Persona) error {
	return personaEntity.replace(ctx, s.b, p)
}

func (s *PersonaStore) ListByStatus(ctx context.Context, status domain.PersonaStatus, limit int) ([]domain.Persona, error) {
	return personaEntity.list(ctx, s.b, RecordQuery{Status: string(status), Limit: limit})
}

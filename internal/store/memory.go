package store

import (
	"context"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
)

var memoryEntity = entity[domain.Memory]{
	table: TableMemories,
	record: func(m *domain.Memory) Record {
		return Record{ID: m.ID, Status: string(m.Status), CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
	},
	version: func(m *domain.Memory) *int { return &m.Version },
}

type MemoryStore struct {
	b Backend
}

func NewMemoryStore(b Backend) *MemoryStore {
	return &MemoryStore{b: b}
}

func (s *MemoryStore) Create(ctx context.Context, m *domain.Memory) error {
	return memoryEntity.create(ctx, s.b, m)
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (*domain.Memory, error) {
	return memoryEntity.get(ctx, s.b, id)
}

func (s *MemoryStore) Replace(ctx context.Context, m *domain.Memory) error {
	return memoryEntity.replace(ctx, s.b, m)
}

func (s *MemoryStore) ListByStatus(ctx context.Context, status domain.MemoryStatus, limit int) ([]domain.Memory, error) {
	return memoryEntity.list(ctx, s.b, RecordQuery{Status: string(status), Limit: limit})
}

// Package store exposes typed repositories over a database Backend.
package store

import (
	"context"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
)

// Repos binds the typed stores to one backend handle, either the pool or an
// open transaction.
type Repos struct {
	b Backend
}

func (r Repos) Memories() domain.MemoryStore        { return NewMemoryStore(r.b) }
func (r Repos) Experiences() domain.ExperienceStore { return NewExperienceStore(r.b) }
func (r Repos) Personas() domain.PersonaStore       { return NewPersonaStore(r.b) }
func (r Repos) Cognitions() domain.CognitionStore   { return NewCognitionStore(r.b) }
func (r Repos) Decisions() domain.DecisionStore     { return NewDecisionStore(r.b) }
func (r Repos) Jobs() domain.JobStore               { return r.b.Jobs() }
func (r Repos) Audit() domain.AuditStore            { return r.b.Audit() }

// Store is the domain.Store over a transactional backend.
type Store struct {
	Repos
	backend TxBackend
}

var _ domain.Store = (*Store)(nil)

func New(b TxBackend) *Store {
	return &Store{Repos: Repos{b: b}, backend: b}
}

func (s *Store) WithTx(ctx context.Context, fn func(tx domain.Repositories) error) error {
	return s.backend.WithTx(ctx, func(tx Backend) error {
		return fn(Repos{b: tx})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

func (s *Store) Close() error {
	return s.backend.Close()
}

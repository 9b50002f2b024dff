package domain

import (
	"context"
	"time"
)

// Cursor marks a position in a newest-first listing. The zero Cursor starts
// from the newest row.
type Cursor struct {
	UpdatedAt time.Time
	ID        string
}

func (c Cursor) IsZero() bool {
	return c.ID == "" && c.UpdatedAt.IsZero()
}

// MemoryStore and its siblings persist immutable-by-replacement records.
// Replace writes a new version only if the stored version still matches the
// one carried by the argument, and bumps it on success.
type MemoryStore interface {
	Create(ctx context.Context, m *Memory) error
	GetByID(ctx context.Context, id string) (*Memory, error)
	Replace(ctx context.Context, m *Memory) error
	ListByStatus(ctx context.Context, status MemoryStatus, limit int) ([]Memory, error)
}

type ExperienceStore interface {
	Create(ctx context.Context, e *Experience) error
	GetByID(ctx context.Context, id string) (*Experience, error)
	Replace(ctx context.Context, e *Experience) error
	ListByStatus(ctx context.Context, status ExperienceStatus, limit int) ([]Experience, error)
}

type PersonaStore interface {
	Create(ctx context.Context, p *Persona) error
	GetByID(ctx context.Context, id string) (*Persona, error)
	Replace(ctx context.Context, p *Persona) error
	ListByStatus(ctx context.Context, status PersonaStatus, limit int) ([]Persona, error)
}

type CognitionStore interface {
	Create(ctx context.Context, c *Cognition) error
	GetByID(ctx context.Context, id string) (*Cognition, error)
	Replace(ctx context.Context, c *Cognition) error
	ListByStatus(ctx context.Context, status CognitionStatus, limit int) ([]Cognition, error)
	// ListByStatusAfter continues a ListByStatus listing past the cursor.
	ListByStatusAfter(ctx context.Context, status CognitionStatus, after Cursor, limit int) ([]Cognition, error)
	// ListBySourceExperience returns cognitions derived from the experience.
	ListBySourceExperience(ctx context.Context, experienceID string) ([]Cognition, error)
}

type DecisionStore interface {
	Create(ctx context.Context, d *DecisionTrace) error
	GetByID(ctx context.Context, id string) (*DecisionTrace, error)
	ListByOutcome(ctx context.Context, outcome FinalOutcome, limit int) ([]DecisionTrace, error)
	// ListByRef returns decisions made from the given cognition or, for
	// blocked promotions, experience.
	ListByRef(ctx context.Context, ref string) ([]DecisionTrace, error)
}

type JobStore interface {
	// Create fails with a conflict when the idempotency key is taken.
	Create(ctx context.Context, j *SchedulerJob) error
	GetByID(ctx context.Context, id string) (*SchedulerJob, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*SchedulerJob, error)
	// ListDue returns queued jobs with run_at <= now, earliest first and
	// then by descending priority.
	ListDue(ctx context.Context, now time.Time, limit int) ([]SchedulerJob, error)
	// Claim moves a queued job to running for workerID. It fails with a
	// conflict when the job is no longer queued.
	Claim(ctx context.Context, id, workerID string, at time.Time) error
	// Update writes j only if its stored status equals expected.
	Update(ctx context.Context, j *SchedulerJob, expected JobStatus) error
	CountByStatus(ctx context.Context) (map[JobStatus]int, error)
	OldestQueuedRunAt(ctx context.Context) (*time.Time, error)
}

type AuditStore interface {
	Append(ctx context.Context, e *AuditEvent) error
	List(ctx context.Context, f AuditFilter) ([]AuditEvent, error)
	Count(ctx context.Context) (int, error)
}

// Repositories groups the per-entity stores visible inside one unit of work.
type Repositories interface {
	Memories() MemoryStore
	Experiences() ExperienceStore
	Personas() PersonaStore
	Cognitions() CognitionStore
	Decisions() DecisionStore
	Jobs() JobStore
	Audit() AuditStore
}

// Store is the durable backing for the kernel. WithTx runs fn in a single
// transaction: every write made through its Repositories commits together
// or not at all.
type Store interface {
	Repositories
	WithTx(ctx context.Context, fn func(tx Repositories) error) error
	Ping(ctx context.Context) error
	Close() error
}

// Validator is the schema boundary checked before every persisted write.
type Validator interface {
	Validate(schema string, payload any) error
}

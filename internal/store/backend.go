package store

import (
	"context"
	"time"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
)

// Table names a payload table. Each holds one JSON payload per id plus the
// columns needed to query it.
type Table string

const (
	TableMemories    Table = "memories"
	TableExperiences Table = "experiences"
	TablePersonas    Table = "personas"
	TableCognitions  Table = "cognitions"
	TableDecisions   Table = "decision_traces"
)

// Record is one stored payload version. Ref carries the parent object id
// used for lookups (a cognition's source experience, a decision's cognition).
type Record struct {
	ID        string
	Status    string
	Ref       string
	Version   int
	Payload   []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecordQuery filters ListRecords. Empty fields do not filter. Results are
// ordered by update time, newest first. A non-zero After skips every row up
// to and including the cursor position.
type RecordQuery struct {
	Status string
	Ref    string
	After  domain.Cursor
	Limit  int
}

// Backend is implemented once per database driver.
type Backend interface {
	InsertRecord(ctx context.Context, table Table, r Record) error
	GetRecord(ctx context.Context, table Table, id string) (Record, error)
	// ReplaceRecord overwrites the row only while its stored version equals
	// expectedVersion, returning ErrConflict otherwise.
	ReplaceRecord(ctx context.Context, table Table, r Record, expectedVersion int) error
	ListRecords(ctx context.Context, table Table, q RecordQuery) ([]Record, error)
	Jobs() domain.JobStore
	Audit() domain.AuditStore
}

// TxBackend is a Backend that can open transactions.
type TxBackend interface {
	Backend
	WithTx(ctx context.Context, fn func(tx Backend) error) error
	Ping(ctx context.Context) error
	Close() error
}

// DefaultListLimit applies when a list call passes no positive limit.
const DefaultListLimit = 20

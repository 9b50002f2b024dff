package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
	"github.com/Harshitk-cp/mindkernel/internal/validate"
)

const defaultAuditListLimit = 20

// AuditLog is the append-only event sink shared by the pipeline and the
// scheduler. Record is always called with the repositories of the
// transaction that performs the transition being audited.
type AuditLog struct {
	store     domain.Store
	validator domain.Validator
	logger    *zap.Logger
	clock     domain.Clock
}

func NewAuditLog(st domain.Store, v domain.Validator, logger *zap.Logger) *AuditLog {
	return &AuditLog{
		store:     st,
		validator: v,
		logger:    logger,
		clock:     domain.Now,
	}
}

func (a *AuditLog) SetClock(c domain.Clock) {
	a.clock = c
}

// Record fills in id, timestamp and hash, validates the event and appends it.
func (a *AuditLog) Record(ctx context.Context, repos domain.Repositories, e *domain.AuditEvent) error {
	if e.ID == "" {
		e.ID = domain.NewID(domain.PrefixAudit)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = a.clock()
	}
	if e.Before == nil {
		e.Before = map[string]any{}
	}
	if e.After == nil {
		e.After = map[string]any{}
	}
	if e.EvidenceRefs == nil {
		e.EvidenceRefs = []string{}
	}
	e.Hash = ""

	if err := a.validator.Validate(validate.SchemaAuditEvent, e); err != nil {
		return err
	}

	hash, err := HashEvent(*e)
	if err != nil {
		return err
	}
	e.Hash = hash

	if err := repos.Audit().Append(ctx, e); err != nil {
		return fmt.Errorf("append audit %s for %s %s: %w", e.EventType, e.ObjectType, e.ObjectID, err)
	}
	return nil
}

// HashEvent returns the hex sha256 of the event's JSON with the hash field
// cleared.
func HashEvent(e domain.AuditEvent) (string, error) {
	e.Hash = ""
	raw, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("encode audit %s: %w", e.ID, err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// List returns events newest first.
func (a *AuditLog) List(ctx context.Context, f domain.AuditFilter) ([]domain.AuditEvent, error) {
	if f.Limit <= 0 {
		f.Limit = defaultAuditListLimit
	}
	if f.ObjectType != "" && !domain.ValidObjectType(string(f.ObjectType)) {
		return nil, fmt.Errorf("%w: object type %q", domain.ErrValidationFailed, f.ObjectType)
	}
	if f.EventType != "" && !domain.ValidAuditEventType(string(f.EventType)) {
		return nil, fmt.Errorf("%w: event type %q", domain.ErrValidationFailed, f.EventType)
	}
	f.Ascending = false
	return a.store.Audit().List(ctx, f)
}

// VerifyResult reports events whose stored hash no longer matches content.
type VerifyResult struct {
	Checked  int      `json:"checked"`
	Tampered []string `json:"tampered"`
}

// Verify recomputes the hash of the newest limit events (all when limit is
// not positive).
func (a *AuditLog) Verify(ctx context.Context, limit int) (*VerifyResult, error) {
	events, err := a.store.Audit().List(ctx, domain.AuditFilter{Limit: limit})
	if err != nil {
		return nil, err
	}

	res := &VerifyResult{Tampered: []string{}}
	for _, e := range events {
		res.Checked++
		want, err := HashEvent(e)
		if err != nil {
			return nil, err
		}
		if e.Hash != want {
			res.Tampered = append(res.Tampered, e.ID)
		}
	}
	if len(res.Tampered) > 0 {
		a.logger.Warn("audit hash mismatch",
			zap.Int("checked", res.Checked),
			zap.Strings("event_ids", res.Tampered))
	}
	return res, nil
}

// ReplayStep is one event in an object's reconstructed history.
type ReplayStep struct {
	EventID   string                `json:"event_id"`
	EventType domain.AuditEventType `json:"event_type"`
	Actor     domain.Actor          `json:"actor"`
	Timestamp string                `json:"timestamp"`
	Before    map[string]any        `json:"before"`
	After     map[string]any        `json:"after"`
	Reason    string                `json:"reason"`
}

// Replay is an object's audit history folded into its latest known state.
type Replay struct {
	ObjectType domain.ObjectType `json:"object_type"`
	ObjectID   string            `json:"object_id"`
	State      map[string]any    `json:"state"`
	Steps      []ReplayStep      `json:"steps"`
}

// Replay folds the object's events oldest first, overlaying each event's
// after snapshot onto the accumulated state.
func (a *AuditLog) Replay(ctx context.Context, objectType domain.ObjectType, objectID string) (*Replay, error) {
	if !domain.ValidObjectType(string(objectType)) {
		return nil, fmt.Errorf("%w: object type %q", domain.ErrValidationFailed, objectType)
	}
	events, err := a.store.Audit().List(ctx, domain.AuditFilter{
		ObjectType: objectType,
		ObjectID:   objectID,
		Ascending:  true,
	})
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: no audit events for %s %s", domain.ErrNotFound, objectType, objectID)
	}

	r := &Replay{
		ObjectType: objectType,
		ObjectID:   objectID,
		State:      map[string]any{},
		Steps:      make([]ReplayStep, 0, len(events)),
	}
	for _, e := range events {
		for k, v := range e.After {
			r.State[k] = v
		}
		r.Steps = append(r.Steps, ReplayStep{
			EventID:   e.ID,
			EventType: e.EventType,
			Actor:     e.Actor,
			Timestamp: domain.FormatTime(e.Timestamp),
			Before:    e.Before,
			After:     e.After,
			Reason:    e.Reason,
		})
	}
	return r, nil
}

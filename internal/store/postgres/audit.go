package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
	"github.com/Harshitk-cp/mindkernel/internal/store"
)

type AuditStore struct {
	q querier
}

func (s *AuditStore) Append(ctx context.Context, e *domain.AuditEvent) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode audit %s: %w", e.ID, err)
	}
	_, err = s.q.Exec(ctx,
		`INSERT INTO audit_events (id, event_type, object_type, object_id, correlation_id, timestamp, payload, hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.EventType, e.ObjectType, e.ObjectID, e.CorrelationID, e.Timestamp, payload, e.Hash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("insert audit %s: %w", e.ID, err)
	}
	return nil
}

func (s *AuditStore) List(ctx context.Context, f domain.AuditFilter) ([]domain.AuditEvent, error) {
	var conditions []string
	var args []any
	if f.ObjectType != "" {
		args = append(args, f.ObjectType)
		conditions = append(conditions, fmt.Sprintf("object_type = $%d", len(args)))
	}
	if f.ObjectID != "" {
		args = append(args, f.ObjectID)
		conditions = append(conditions, fmt.Sprintf("object_id = $%d", len(args)))
	}
	if f.EventType != "" {
		args = append(args, f.EventType)
		conditions = append(conditions, fmt.Sprintf("event_type = $%d", len(args)))
	}

	query := `SELECT payload, hash FROM audit_events`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	if f.Ascending {
		query += " ORDER BY seq ASC"
	} else {
		query += " ORDER BY seq DESC"
	}
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		var payload []byte
		var hash string
		if err := rows.Scan(&payload, &hash); err != nil {
			return nil, err
		}
		var e domain.AuditEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("decode audit event: %w", err)
		}
		e.Hash = hash
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *AuditStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.q.QueryRow(ctx, `SELECT COUNT(*) FROM audit_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count audit events: %w", err)
	}
	return n, nil
}

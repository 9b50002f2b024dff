package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// entity maps a domain type onto a payload table.
type entity[T any] struct {
	table   Table
	record  func(*T) Record
	version func(*T) *int
}

func (e entity[T]) create(ctx context.Context, b Backend, v *T) error {
	rec := e.record(v)
	rec.Version = 1
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", e.table, rec.ID, err)
	}
	rec.Payload = payload
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	if err := b.InsertRecord(ctx, e.table, rec); err != nil {
		return err
	}
	*e.version(v) = 1
	return nil
}

func (e entity[T]) get(ctx context.Context, b Backend, id string) (*T, error) {
	rec, err := b.GetRecord(ctx, e.table, id)
	if err != nil {
		return nil, err
	}
	return e.decode(rec)
}

func (e entity[T]) replace(ctx context.Context, b Backend, v *T) error {
	rec := e.record(v)
	expected := *e.version(v)
	rec.Version = expected + 1
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", e.table, rec.ID, err)
	}
	rec.Payload = payload
	if err := b.ReplaceRecord(ctx, e.table, rec, expected); err != nil {
		return err
	}
	*e.version(v) = rec.Version
	return nil
}

func (e entity[T]) list(ctx context.Context, b Backend, q RecordQuery) ([]T, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultListLimit
	}
	recs, err := b.ListRecords(ctx, e.table, q)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		v, err := e.decode(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

func (e entity[T]) decode(rec Record) (*T, error) {
	v := new(T)
	if err := json.Unmarshal(rec.Payload, v); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", e.table, rec.ID, err)
	}
	*e.version(v) = rec.Version
	return v, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Harshitk-cp/mindkernel/internal/store"
)

func checkTable(t store.Table) error {
	switch t {
	case store.TableMemories, store.TableExperiences, store.TablePersonas,
		store.TableCognitions, store.TableDecisions:
		return nil
	}
	return fmt.Errorf("unknown table %q", t)
}

func (b *Backend) InsertRecord(ctx context.Context, table store.Table, r store.Record) error {
	if err := checkTable(table); err != nil {
		return err
	}
	_, err := b.q.Exec(ctx,
		`INSERT INTO `+string(table)+` (id, status, ref, version, payload, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.Status, r.Ref, r.Version, r.Payload, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("insert %s %s: %w", table, r.ID, err)
	}
	return nil
}

func (b *Backend) GetRecord(ctx context.Context, table store.Table, id string) (store.Record, error) {
	if err := checkTable(table); err != nil {
		return store.Record{}, err
	}
	var rec store.Record
	err := b.q.QueryRow(ctx,
		`SELECT id, status, ref, version, payload, created_at, updated_at FROM `+string(table)+` WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.Status, &rec.Ref, &rec.Version, &rec.Payload, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Record{}, store.ErrNotFound
		}
		return store.Record{}, fmt.Errorf("get %s %s: %w", table, id, err)
	}
	return rec, nil
}

func (b *Backend) ReplaceRecord(ctx context.Context, table store.Table, r store.Record, expectedVersion int) error {
	if err := checkTable(table); err != nil {
		return err
	}
	tag, err := b.q.Exec(ctx,
		`UPDATE `+string(table)+` SET status = $1, ref = $2, version = $3, payload = $4, updated_at = $5
		 WHERE id = $6 AND version = $7`,
		r.Status, r.Ref, r.Version, r.Payload, r.UpdatedAt, r.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("replace %s %s: %w", table, r.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrConflict
	}
	return nil
}

func (b *Backend) ListRecords(ctx context.Context, table store.Table, q store.RecordQuery) ([]store.Record, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	var conditions []string
	var args []any
	if q.Status != "" {
		args = append(args, q.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if q.Ref != "" {
		args = append(args, q.Ref)
		conditions = append(conditions, fmt.Sprintf("ref = $%d", len(args)))
	}
	if !q.After.IsZero() {
		args = append(args, q.After.UpdatedAt, q.After.ID)
		conditions = append(conditions, fmt.Sprintf("(updated_at, id) < ($%d, $%d)", len(args)-1, len(args)))
	}
	query := `SELECT id, status, ref, version, payload, created_at, updated_at FROM ` + string(table)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, q.Limit)
	query += fmt.Sprintf(" ORDER BY updated_at DESC, id DESC LIMIT $%d", len(args))

	rows, err := b.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	var recs []store.Record
	for rows.Next() {
		var rec store.Record
		if err := rows.Scan(&rec.ID, &rec.Status, &rec.Ref, &rec.Version, &rec.Payload, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

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
	_, err := b.q.ExecContext(ctx,
		`INSERT INTO `+string(table)+` (id, status, ref, version, payload, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Status, r.Ref, r.Version, string(r.Payload), formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
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
	row := b.q.QueryRowContext(ctx,
		`SELECT id, status, ref, version, payload, created_at, updated_at FROM `+string(table)+` WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
	res, err := b.q.ExecContext(ctx,
		`UPDATE `+string(table)+` SET status = ?, ref = ?, version = ?, payload = ?, updated_at = ?
		 WHERE id = ? AND version = ?`,
		r.Status, r.Ref, r.Version, string(r.Payload), formatTime(r.UpdatedAt), r.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("replace %s %s: %w", table, r.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
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
		conditions = append(conditions, "status = ?")
		args = append(args, q.Status)
	}
	if q.Ref != "" {
		conditions = append(conditions, "ref = ?")
		args = append(args, q.Ref)
	}
	if !q.After.IsZero() {
		at := formatTime(q.After.UpdatedAt)
		conditions = append(conditions, "(updated_at < ? OR (updated_at = ? AND id < ?))")
		args = append(args, at, at, q.After.ID)
	}
	query := `SELECT id, status, ref, version, payload, created_at, updated_at FROM ` + string(table)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY updated_at DESC, id DESC LIMIT ?"
	args = append(args, q.Limit)

	rows, err := b.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	var recs []store.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (store.Record, error) {
	var rec store.Record
	var payload, createdAt, updatedAt string
	if err := s.Scan(&rec.ID, &rec.Status, &rec.Ref, &rec.Version, &payload, &createdAt, &updatedAt); err != nil {
		return store.Record{}, err
	}
	rec.Payload = []byte(payload)
	var err error
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return store.Record{}, err
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return store.Record{}, err
	}
	return rec, nil
}

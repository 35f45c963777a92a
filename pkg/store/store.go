// Package store is the SQLite record store holding raw voter rows and booth
// assignments. Rows are kept as JSON objects so spreadsheet columns survive
// import untouched; canonicalization happens on read in package voter.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("record not found")

// Record is one raw row as stored.
type Record struct {
	ID     string
	Fields map[string]any
}

// Store manages the voters and booth_assignments tables.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

const ddl = `
CREATE TABLE IF NOT EXISTS voters (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	fields     TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS booth_assignments (
	booth       TEXT PRIMARY KEY,
	member      TEXT NOT NULL,
	assigned_at INTEGER NOT NULL
);
`

// Open opens (or creates) the SQLite database at path and ensures the schema
// exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// All returns every voter record in insertion order. Any failure aborts the
// whole read; there are no partial results.
func (s *Store) All(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, fields FROM voters ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list voters: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan voter: %w", err)
		}
		fields, err := decodeFields(raw)
		if err != nil {
			return nil, fmt.Errorf("voter %s: %w", id, err)
		}
		out = append(out, Record{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list voters: %w", err)
	}
	return out, nil
}

// Get returns one record by id.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT fields FROM voters WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get %s: %w", id, err)
	}
	fields, err := decodeFields(raw)
	if err != nil {
		return Record{}, fmt.Errorf("voter %s: %w", id, err)
	}
	return Record{ID: id, Fields: fields}, nil
}

// Append stores one record under a fresh id and returns the id.
func (s *Store) Append(ctx context.Context, fields map[string]any) (string, error) {
	ids, err := s.AppendBatch(ctx, []map[string]any{fields})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// AppendBatch stores rows in one transaction, preserving their order.
func (s *Store) AppendBatch(ctx context.Context, rows []map[string]any) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO voters (id, fields, created_at, updated_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare append: %w", err)
	}
	defer stmt.Close()

	now := s.now().Unix()
	ids := make([]string, 0, len(rows))
	for i, fields := range rows {
		data, err := json.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("encode row %d: %w", i, err)
		}
		id := uuid.NewString()
		if _, err := stmt.ExecContext(ctx, id, string(data), now, now); err != nil {
			return nil, fmt.Errorf("insert row %d: %w", i, err)
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit append: %w", err)
	}
	return ids, nil
}

// Patch merges fields into the record with the given id. A nil value removes
// the key.
func (s *Store) Patch(ctx context.Context, id string, fields map[string]any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin patch: %w", err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT fields FROM voters WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("patch %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("patch %s: %w", id, err)
	}
	current, err := decodeFields(raw)
	if err != nil {
		return fmt.Errorf("voter %s: %w", id, err)
	}
	for k, v := range fields {
		if v == nil {
			delete(current, k)
			continue
		}
		current[k] = v
	}
	data, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE voters SET fields = ?, updated_at = ? WHERE id = ?`,
		string(data), s.now().Unix(), id); err != nil {
		return fmt.Errorf("patch %s: %w", id, err)
	}
	return tx.Commit()
}

// Count returns the number of voter records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM voters`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count voters: %w", err)
	}
	return n, nil
}

func decodeFields(raw string) (map[string]any, error) {
	fields := make(map[string]any)
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	return fields, nil
}

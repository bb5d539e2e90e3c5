package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/agentic-research/tabula/api"
)

// SQLiteStore persists records as JSON documents in a single table. The
// pos column records insertion order for listing; it never leaves the store.
//
// The connection pool is pinned to one connection and writes additionally
// take s.mu, so read-modify-write in Update is serialized. Concurrent updates
// to the same identifier are last-write-wins by design.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS records (
	pos INTEGER PRIMARY KEY AUTOINCREMENT,
	id  TEXT NOT NULL UNIQUE,
	doc TEXT NOT NULL
);
`

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// InsertMany persists the batch in a single transaction: either every record
// lands or none do. The returned count is len(records) on success, 0 on error.
func (s *SQLiteStore) InsertMany(ctx context.Context, records []api.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO records (id, doc) VALUES (?, ?)")
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		doc, err := rec.MarshalFields()
		if err != nil {
			return 0, &ValidationError{Reason: fmt.Sprintf("record %d not serializable", i), Err: err}
		}
		if _, err := stmt.ExecContext(ctx, newRecordID(), string(doc)); err != nil {
			return 0, &ValidationError{Reason: fmt.Sprintf("record %d rejected by store", i), Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert batch: %w", err)
	}
	return len(records), nil
}

// List returns all records in insertion order.
func (s *SQLiteStore) List(ctx context.Context) ([]api.Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, doc FROM records ORDER BY pos")
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []api.Record
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec := api.Record{ID: id}
		if err := rec.UnmarshalFields([]byte(doc)); err != nil {
			return nil, fmt.Errorf("decode record %s: %w", id, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

// Update merges patch into the stored document under a write transaction and
// returns the full result.
func (s *SQLiteStore) Update(ctx context.Context, id string, patch map[string]string) (api.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return api.Record{}, fmt.Errorf("begin update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var doc string
	err = tx.QueryRowContext(ctx, "SELECT doc FROM records WHERE id = ?", id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return api.Record{}, ErrNotFound
	}
	if err != nil {
		return api.Record{}, fmt.Errorf("load record %s: %w", id, err)
	}

	rec := api.Record{ID: id}
	if err := rec.UnmarshalFields([]byte(doc)); err != nil {
		return api.Record{}, fmt.Errorf("decode record %s: %w", id, err)
	}
	applyPatch(rec, patch)

	merged, err := rec.MarshalFields()
	if err != nil {
		return api.Record{}, &ValidationError{Reason: "merged record not serializable", Err: err}
	}
	if _, err := tx.ExecContext(ctx, "UPDATE records SET doc = ? WHERE id = ?", string(merged), id); err != nil {
		return api.Record{}, fmt.Errorf("store record %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return api.Record{}, fmt.Errorf("commit update: %w", err)
	}
	return rec, nil
}

// Delete removes the record addressed by id.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM records WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

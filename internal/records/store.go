// Package records keeps sheet rows as JSON documents keyed by their first column.
package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS records (
	collection TEXT NOT NULL,
	key TEXT NOT NULL,
	data TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (collection, key)
);
`

// Document maps header names to cell values; nil marks an empty cell
type Document map[string]interface{}

// Record is a stored document
type Record struct {
	Collection string    `json:"collection"`
	Key        string    `json:"key"`
	Data       Document  `json:"data"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type dbRecord struct {
	Collection string `db:"collection"`
	Key        string `db:"key"`
	Data       string `db:"data"`
	UpdatedAt  string `db:"updated_at"`
}

func (r dbRecord) decode() (Record, error) {
	var doc Document
	if err := json.Unmarshal([]byte(r.Data), &doc); err != nil {
		return Record{}, fmt.Errorf("decode record %s/%s: %w", r.Collection, r.Key, err)
	}
	updated, err := time.Parse(time.RFC3339Nano, r.UpdatedAt)
	if err != nil {
		return Record{}, fmt.Errorf("parse updated_at of %s/%s: %w", r.Collection, r.Key, err)
	}
	return Record{Collection: r.Collection, Key: r.Key, Data: doc, UpdatedAt: updated}, nil
}

// UpsertResult says whether an upsert created or changed a row
type UpsertResult int

const (
	Unchanged UpsertResult = iota
	Inserted
	Updated
)

// Store is a SQLite-backed record store
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open opens or creates the store at path. MemoryPath gives a throwaway store.
func Open(path string) (*Store, error) {
	dsn := path
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("create records directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}

	db, err := sqlx.Connect(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to records database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize records schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Upsert writes doc under (collection, key). Identical content leaves the row untouched.
func (s *Store) Upsert(ctx context.Context, collection, key string, doc Document) (UpsertResult, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return Unchanged, fmt.Errorf("encode record %s/%s: %w", collection, key, err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Unchanged, fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing string
	err = tx.GetContext(ctx, &existing, "SELECT data FROM records WHERE collection = ? AND key = ?", collection, key)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx,
			"INSERT INTO records (collection, key, data, updated_at) VALUES (?, ?, ?, ?)",
			collection, key, string(data), s.now().UTC().Format(time.RFC3339Nano))
		if err != nil {
			return Unchanged, fmt.Errorf("insert record %s/%s: %w", collection, key, err)
		}
		return Inserted, tx.Commit()
	case err != nil:
		return Unchanged, fmt.Errorf("query record %s/%s: %w", collection, key, err)
	case existing == string(data):
		return Unchanged, nil
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE records SET data = ?, updated_at = ? WHERE collection = ? AND key = ?",
		string(data), s.now().UTC().Format(time.RFC3339Nano), collection, key)
	if err != nil {
		return Unchanged, fmt.Errorf("update record %s/%s: %w", collection, key, err)
	}
	return Updated, tx.Commit()
}

// Get returns one record; ok is false when it does not exist
func (s *Store) Get(ctx context.Context, collection, key string) (rec Record, ok bool, err error) {
	var row dbRecord
	err = s.db.GetContext(ctx, &row,
		"SELECT collection, key, data, updated_at FROM records WHERE collection = ? AND key = ?", collection, key)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("query record %s/%s: %w", collection, key, err)
	}
	rec, err = row.decode()
	return rec, err == nil, err
}

// List returns every record of a collection ordered by key
func (s *Store) List(ctx context.Context, collection string) ([]Record, error) {
	var rows []dbRecord
	err := s.db.SelectContext(ctx, &rows,
		"SELECT collection, key, data, updated_at FROM records WHERE collection = ? ORDER BY key", collection)
	if err != nil {
		return nil, fmt.Errorf("list records of %s: %w", collection, err)
	}
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		rec, err := r.decode()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Package kv provides the namespaced key-value store backing the
// dictionary dataset and the review log. It is a thin adapter over
// SQLite: one table per namespace, with batch writes committed in a
// single transaction.
package kv

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Namespace identifies one logical collection in the store.
type Namespace string

const (
	// Words holds word records keyed by their dictionary identifier.
	Words Namespace = "words"
	// Kanji holds character records keyed by literal.
	Kanji Namespace = "kanji"
	// Meta holds per-namespace import markers.
	Meta Namespace = "meta"
	// Srs holds the review log state.
	Srs Namespace = "srs"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS words (
  id      TEXT PRIMARY KEY,
  payload BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS kanji (
  id      TEXT PRIMARY KEY,
  payload BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS meta (
  id      TEXT PRIMARY KEY,
  payload BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS srs (
  id      TEXT PRIMARY KEY,
  payload BLOB NOT NULL
)
`

// Store is a namespaced key-value store persisted in a single SQLite
// database file.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the store at path. The parent
// directory is created when missing. Pass ":memory:" for an in-memory
// store.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
		dsn = path + "?_busy_timeout=5000&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if path == ":memory:" {
		// A pool of connections would each get their own empty
		// in-memory database.
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate store: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value stored under key in ns. The second return is
// false when no such key exists; a missing key is not an error.
func (s *Store) Get(ns Namespace, key string) ([]byte, bool, error) {
	var payload []byte
	err := s.db.QueryRow(`SELECT payload FROM `+string(ns)+` WHERE id = ?`, key).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s/%s: %w", ns, key, err)
	}
	return payload, true, nil
}

// Put stores value under key in ns, replacing any previous value.
func (s *Store) Put(ns Namespace, key string, value []byte) error {
	_, err := s.db.Exec(`INSERT INTO `+string(ns)+` (id, payload) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload`, key, value)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", ns, key, err)
	}
	return nil
}

// Count returns the number of keys in ns.
func (s *Store) Count(ns Namespace) (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM ` + string(ns)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", ns, err)
	}
	return n, nil
}

// Batch accumulates puts for one namespace and commits them in a
// single transaction via Store.Commit. Either every put in the batch
// becomes visible or none do.
type Batch struct {
	ns   Namespace
	keys []string
	vals [][]byte
}

// NewBatch returns an empty batch targeting ns.
func (s *Store) NewBatch(ns Namespace) *Batch {
	return &Batch{ns: ns}
}

// Put appends a pending write to the batch.
func (b *Batch) Put(key string, value []byte) {
	b.keys = append(b.keys, key)
	b.vals = append(b.vals, value)
}

// Len reports the number of pending writes.
func (b *Batch) Len() int { return len(b.keys) }

// Commit writes the whole batch atomically. An empty batch is a no-op.
func (s *Store) Commit(b *Batch) error {
	if b.Len() == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin batch tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()

	stmt, err := tx.Prepare(`INSERT INTO ` + string(b.ns) + ` (id, payload) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload`)
	if err != nil {
		return fmt.Errorf("prepare batch insert: %w", err)
	}
	defer stmt.Close()

	for i, key := range b.keys {
		if _, err := stmt.Exec(key, b.vals[i]); err != nil {
			return fmt.Errorf("batch put %s/%s: %w", b.ns, key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch (%d items): %w", b.Len(), err)
	}
	return nil
}

// Marker returns the import marker recorded for ns, or "" when the
// namespace has never completed an import.
func (s *Store) Marker(ns Namespace) (string, error) {
	v, ok, err := s.Get(Meta, string(ns))
	if err != nil || !ok {
		return "", err
	}
	return string(v), nil
}

// SetMarker records token as the fully-imported source for ns.
func (s *Store) SetMarker(ns Namespace, token string) error {
	return s.Put(Meta, string(ns), []byte(token))
}

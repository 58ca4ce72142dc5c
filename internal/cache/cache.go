// Package cache persists deep-scan probe results in SQLite so repeat
// loads skip unchanged packs. Entries are keyed by pack path and gated
// on the folder's modification time.
package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/raido/internal/scan"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS probes (
	path       TEXT PRIMARY KEY,
	mtime_ns   INTEGER NOT NULL,
	result     TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// ProbeCache is the interface the load orchestrator depends on.
// Consumers should depend on this rather than the concrete *DB so tests
// can substitute an in-memory fake.
type ProbeCache interface {
	// Get returns the cached probe result when one exists for path with
	// exactly this modification time.
	Get(path string, mtime time.Time) (*scan.Result, bool, error)
	// Put stores the probe result for path at the given modification time.
	Put(path string, mtime time.Time, res *scan.Result) error
	// Delete removes the record for path, if any.
	Delete(path string) error
	Close() error
}

// DB is the SQLite-backed ProbeCache.
type DB struct {
	conn *sql.DB
}

var _ ProbeCache = (*DB)(nil)

// Open opens (or creates) the cache database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cache: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("cache: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("cache: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Get returns the cached probe result for path if it is still fresh.
func (db *DB) Get(path string, mtime time.Time) (*scan.Result, bool, error) {
	var storedMtime int64
	var raw string
	err := db.conn.QueryRow(
		`SELECT mtime_ns, result FROM probes WHERE path = ?`, path,
	).Scan(&storedMtime, &raw)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: get %s: %w", path, err)
	}
	if storedMtime != mtime.UnixNano() {
		return nil, false, nil
	}
	var res scan.Result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		// A corrupt record is treated as a miss; the probe will rewrite it.
		return nil, false, nil
	}
	return &res, true, nil
}

// Put stores (or replaces) the probe result for path.
func (db *DB) Put(path string, mtime time.Time, res *scan.Result) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("cache: marshal %s: %w", path, err)
	}
	_, err = db.conn.Exec(`
		INSERT INTO probes (path, mtime_ns, result, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			mtime_ns   = excluded.mtime_ns,
			result     = excluded.result,
			updated_at = excluded.updated_at
	`, path, mtime.UnixNano(), string(raw), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("cache: put %s: %w", path, err)
	}
	return nil
}

// Delete removes the record for path.
func (db *DB) Delete(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM probes WHERE path = ?`, path); err != nil {
		return fmt.Errorf("cache: delete %s: %w", path, err)
	}
	return nil
}

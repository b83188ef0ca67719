package journal

import (
	"database/sql"
	_ "embed"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Journal records resolved calls and state updates for one or more runs.
// Uses SQLite with WAL mode; a single connection avoids SQLITE_BUSY under
// concurrent sequencer writes.
type Journal struct {
	db    *sql.DB
	runID string
	seq   atomic.Int64
}

// Open creates or opens a journal database at the given path. Pass
// ":memory:" for a run-scoped in-memory journal. A fresh UUIDv7 run token
// is generated; rows written through this handle carry it.
func Open(path string) (*Journal, error) {
	return OpenWithRunID(path, uuid.Must(uuid.NewV7()).String())
}

// OpenWithRunID opens a journal with a caller-chosen run token. Tests use a
// fixed token for deterministic rows.
func OpenWithRunID(path, runID string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to journal database: %w", err)
	}

	// SQLite allows one writer at a time; a single connection sidesteps
	// SQLITE_BUSY when several sequencers record concurrently.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Journal{db: db, runID: runID}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

// RunID returns the run token stamped on rows written through this handle.
func (j *Journal) RunID() string {
	return j.runID
}

// next claims the next logical sequence number for this journal handle.
func (j *Journal) next() int64 {
	return j.seq.Add(1)
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

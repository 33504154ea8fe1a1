// Package sqlite provides optional durable repositories for proposals and
// undo records. The default deployment keeps everything in memory; this store
// exists for multi-process setups where a restart must not lose an applied
// proposal's undo window.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS proposals (
	id         TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	status     TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS undo_records (
	proposal_id TEXT PRIMARY KEY,
	payload     TEXT NOT NULL,
	consumed    INTEGER NOT NULL DEFAULT 0,
	consumed_at TIMESTAMP,
	created_at  TIMESTAMP NOT NULL
);
`

// Store owns the database handle shared by the repositories.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open connects to the SQLite database at dsn and applies the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// modernc.org/sqlite serialises writes; a single connection avoids
	// SQLITE_BUSY churn under concurrent handlers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the connection is usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

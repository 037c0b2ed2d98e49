// Package sqlite is the single-node persistence driver. It keeps the same
// compare-and-set contract as the postgres driver on top of database/sql.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"reliefbridge/internal/service"
	"reliefbridge/pkg/e"

	"github.com/mattn/go-sqlite3"
)

var (
	_ service.Persistence      = (*DB)(nil)
	_ service.IdentityProvider = (*DB)(nil)
)

type DB struct {
	conn   *sql.DB
	logger *slog.Logger
}

// Open opens (and migrates) the database at path. ":memory:" is supported.
func Open(ctx context.Context, path string, logger *slog.Logger) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", path)
	if path != ":memory:" {
		dsn += "&_journal_mode=WAL"
	}

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, e.Wrap("storage.sqlite.Open", err)
	}
	// one writer at a time; also keeps ":memory:" on a single connection
	conn.SetMaxOpenConns(1)

	db := New(conn, logger)
	if err := db.migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, e.Wrap("storage.sqlite.migrate", err)
	}
	logger.Info("SQLite database ready", slog.String("path", path))
	return db, nil
}

// New wraps an already opened handle without migrating it.
func New(conn *sql.DB, logger *slog.Logger) *DB {
	return &DB{conn: conn, logger: logger}
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS help_requests (
		id TEXT PRIMARY KEY,
		requester_id TEXT NOT NULL,
		requester_name TEXT NOT NULL DEFAULT '',
		lat REAL NOT NULL,
		lng REAL NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		description TEXT NOT NULL,
		priority TEXT NOT NULL DEFAULT 'normal',
		contact TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		volunteer_id TEXT,
		volunteer_name TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		claimed_at TIMESTAMP,
		completed_at TIMESTAMP,
		cancelled_at TIMESTAMP,
		version INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_help_requests_status ON help_requests(status, created_at, id);
	CREATE INDEX IF NOT EXISTS idx_help_requests_requester ON help_requests(requester_id);
	CREATE INDEX IF NOT EXISTS idx_help_requests_volunteer ON help_requests(volunteer_id);
	`
	_, err := db.conn.ExecContext(ctx, schema)
	return err
}

// wrapError maps sqlite result codes before falling back to the generic mapping.
func wrapError(ctx context.Context, op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, e.ErrNotFound)
	}
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		switch {
		case sqErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || sqErr.ExtendedCode == sqlite3.ErrConstraintUnique:
			return fmt.Errorf("%s: %w", op, e.ErrConflict)
		case sqErr.Code == sqlite3.ErrConstraint:
			return fmt.Errorf("%s: %v: %w", op, sqErr, e.ErrInvalidInput)
		case sqErr.Code == sqlite3.ErrBusy || sqErr.Code == sqlite3.ErrLocked:
			return fmt.Errorf("%s: %v: %w", op, sqErr, e.ErrUnavailable)
		}
	}
	return e.WrapError(ctx, op, err)
}

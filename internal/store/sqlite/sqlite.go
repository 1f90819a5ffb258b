// Package sqlite implements the store on an embedded SQLite database. It is
// the zero-setup default for single-host deployments; the postgres driver
// covers everything else.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/uabbasi/good-measure-giving/internal/metrics"
	"github.com/uabbasi/good-measure-giving/internal/store"
	"github.com/uabbasi/good-measure-giving/internal/types"
)

// dbErr counts a driver error against the store-error metric and wraps it
// with the failing operation.
func dbErr(op string, err error) error {
	metrics.StoreErrors.WithLabelValues(op).Inc()
	return fmt.Errorf("failed to %s: %w", op, err)
}

// Store is a SQLite-backed store.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and prepares the
// connection for single-writer use.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	return &Store{db: db}, nil
}

// Ping verifies the database handle is usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() {
	_ = s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS user_profiles (
    user_id TEXT PRIMARY KEY,
    display_name TEXT NOT NULL DEFAULT '',
    currency TEXT NOT NULL DEFAULT 'USD',
    zakat_due_date TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS bookmarks (
    user_id TEXT NOT NULL,
    ein TEXT NOT NULL,
    created_at TEXT NOT NULL,
    PRIMARY KEY (user_id, ein)
);

CREATE TABLE IF NOT EXISTS giving_plans (
    user_id TEXT NOT NULL,
    year INTEGER NOT NULL,
    target_cents INTEGER NOT NULL DEFAULT 0,
    currency TEXT NOT NULL DEFAULT 'USD',
    updated_at TEXT NOT NULL,
    PRIMARY KEY (user_id, year)
);

CREATE TABLE IF NOT EXISTS giving_buckets (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    year INTEGER NOT NULL,
    name TEXT NOT NULL,
    causes TEXT NOT NULL DEFAULT '[]',
    percent_bp INTEGER NOT NULL DEFAULT 0,
    amount_cents INTEGER NOT NULL DEFAULT 0,
    position INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_buckets_user_year ON giving_buckets(user_id, year);

CREATE TABLE IF NOT EXISTS charity_targets (
    user_id TEXT NOT NULL,
    ein TEXT NOT NULL,
    bucket_id TEXT,
    amount_cents INTEGER NOT NULL DEFAULT 0,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (user_id, ein)
);
CREATE INDEX IF NOT EXISTS idx_targets_bucket ON charity_targets(bucket_id);

CREATE TABLE IF NOT EXISTS giving_history (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    ein TEXT NOT NULL DEFAULT '',
    bucket_id TEXT,
    amount_cents INTEGER NOT NULL,
    currency TEXT NOT NULL DEFAULT 'USD',
    kind TEXT NOT NULL DEFAULT 'other',
    note TEXT NOT NULL DEFAULT '',
    donated_on TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_user_date ON giving_history(user_id, donated_on);
`

// EnsureSchema creates missing tables and indexes. SQLite does not enforce
// cross-table references here; the plan writer nulls out dangling bucket ids
// itself so both drivers behave alike.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// timeLayout is RFC3339 with fixed-width nanoseconds so stored timestamps
// compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func encodeTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func decodeTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// encodeDate renders a Date as YYYY-MM-DD, or NULL for the zero Date.
func encodeDate(d types.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.Format("2006-01-02")
}

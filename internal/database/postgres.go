package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// NewPostgresConnection opens and verifies a connection pool
func NewPostgresConnection(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// schema holds the ordered DDL statements. Each statement is idempotent so
// Migrate can run on every startup.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS wallet_accounts (
		identity   TEXT PRIMARY KEY,
		balance    BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS funding_events (
		address           TEXT PRIMARY KEY,
		creator           TEXT NOT NULL,
		title             TEXT NOT NULL,
		total_amount      BIGINT NOT NULL CHECK (total_amount > 0),
		remaining_amount  BIGINT NOT NULL CHECK (remaining_amount >= 0),
		deadline          TIMESTAMPTZ NOT NULL,
		metadata_ref      TEXT NOT NULL,
		status            TEXT NOT NULL,
		application_count INT NOT NULL DEFAULT 0,
		approved_count    INT NOT NULL DEFAULT 0,
		created_at        TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_funding_events_creator ON funding_events (creator)`,
	`CREATE TABLE IF NOT EXISTS applications (
		address          TEXT PRIMARY KEY,
		event_address    TEXT NOT NULL REFERENCES funding_events(address),
		applicant        TEXT NOT NULL,
		requested_amount BIGINT NOT NULL CHECK (requested_amount > 0),
		approved_amount  BIGINT NOT NULL DEFAULT 0,
		metadata_ref     TEXT NOT NULL,
		status           TEXT NOT NULL,
		applied_at       TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_applications_event ON applications (event_address)`,
	`CREATE INDEX IF NOT EXISTS idx_applications_applicant ON applications (applicant)`,
	`CREATE TABLE IF NOT EXISTS group_splits (
		address           TEXT PRIMARY KEY,
		creator           TEXT NOT NULL,
		title             TEXT NOT NULL,
		total_amount      BIGINT NOT NULL CHECK (total_amount > 0),
		member_count      INT NOT NULL CHECK (member_count BETWEEN 1 AND 20),
		amount_per_person BIGINT NOT NULL,
		settled_count     INT NOT NULL DEFAULT 0,
		status            TEXT NOT NULL,
		metadata_ref      TEXT NOT NULL,
		created_at        TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_group_splits_creator ON group_splits (creator)`,
	`CREATE TABLE IF NOT EXISTS split_members (
		address       TEXT PRIMARY KEY,
		split_address TEXT NOT NULL REFERENCES group_splits(address),
		member        TEXT NOT NULL,
		amount_owed   BIGINT NOT NULL,
		paid          BOOLEAN NOT NULL DEFAULT FALSE,
		paid_at       TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_split_members_split ON split_members (split_address)`,
	`CREATE TABLE IF NOT EXISTS audit_events (
		id             UUID PRIMARY KEY,
		event_type     TEXT NOT NULL,
		event_data     JSONB,
		event_metadata JSONB,
		created_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_events_type ON audit_events (event_type)`,
}

// Migrate applies the schema statements in order.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

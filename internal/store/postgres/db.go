// Package postgres implements store.Storage and cache.Store on PostgreSQL
// through the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// schemaLockID serializes bootstrap DDL across concurrent CLI runs.
const schemaLockID int64 = 2025011501

// OpenDB opens a pool for dsn and checks connectivity.
func OpenDB(ctx context.Context, dsn string, maxOpenConns int) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	if maxOpenConns < 1 {
		maxOpenConns = 10
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS categories (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	color TEXT NOT NULL DEFAULT '',
	icon TEXT NOT NULL DEFAULT '',
	is_default BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS credit_cards (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	institution TEXT NOT NULL,
	brand TEXT NOT NULL DEFAULT '',
	last_digits VARCHAR(4) NOT NULL DEFAULT '',
	color VARCHAR(7) NOT NULL DEFAULT '',
	is_active BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS csv_mappings (
	id TEXT PRIMARY KEY,
	credit_card_id TEXT REFERENCES credit_cards(id) ON DELETE SET NULL,
	name TEXT NOT NULL,
	institution TEXT NOT NULL,
	column_mapping JSONB NOT NULL,
	date_format JSONB NOT NULL,
	amount_format JSONB NOT NULL DEFAULT '{}'::jsonb,
	delimiter VARCHAR(1) NOT NULL DEFAULT ',',
	has_header BOOLEAN NOT NULL DEFAULT TRUE,
	encoding TEXT NOT NULL DEFAULT '',
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_csv_mappings_institution ON csv_mappings(lower(institution), is_active);
CREATE INDEX IF NOT EXISTS idx_csv_mappings_card ON csv_mappings(credit_card_id, is_active);

CREATE TABLE IF NOT EXISTS transactions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	credit_card_id TEXT,
	category_id TEXT REFERENCES categories(id) ON DELETE SET NULL,
	transaction_date DATE NOT NULL,
	description TEXT NOT NULL,
	establishment TEXT NOT NULL DEFAULT '',
	amount NUMERIC(12,2) NOT NULL,
	raw_description TEXT NOT NULL DEFAULT '',
	occurrence INTEGER NOT NULL DEFAULT 1,
	is_categorized_by_ai BOOLEAN NOT NULL DEFAULT FALSE,
	ai_confidence REAL,
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	CONSTRAINT uq_transactions_occurrence UNIQUE (user_id, transaction_date, description, amount, occurrence)
);

CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions(user_id, transaction_date);
CREATE INDEX IF NOT EXISTS idx_transactions_category ON transactions(category_id);
CREATE INDEX IF NOT EXISTS idx_transactions_establishment ON transactions(establishment);

CREATE TABLE IF NOT EXISTS cache_entries (
	key TEXT PRIMARY KEY,
	value BYTEA NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cache_entries_expires_at ON cache_entries(expires_at);
`

// EnsureSchema creates the tables when they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Package migrations holds the schema and applies it idempotently.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

// Execer is satisfied by *sql.DB, *sql.Tx and *sqlx.DB.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

var statements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id               BIGSERIAL PRIMARY KEY,
		email            TEXT NOT NULL,
		password_hash    TEXT NOT NULL,
		name             TEXT NOT NULL DEFAULT '',
		phone            TEXT NOT NULL DEFAULT '',
		country          TEXT NOT NULL DEFAULT '',
		province         TEXT NOT NULL DEFAULT '',
		address          TEXT NOT NULL DEFAULT '',
		profile_complete BOOLEAN NOT NULL DEFAULT FALSE,
		is_active        BOOLEAN NOT NULL DEFAULT TRUE,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT users_email_key UNIQUE (email)
	)`,
	`CREATE TABLE IF NOT EXISTS admins (
		id            BIGSERIAL PRIMARY KEY,
		username      TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		email         TEXT NOT NULL,
		name          TEXT NOT NULL DEFAULT '',
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT admins_email_key UNIQUE (email)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS admins_username_key ON admins (lower(username))`,
	`CREATE TABLE IF NOT EXISTS menu_items (
		id           BIGSERIAL PRIMARY KEY,
		name         TEXT NOT NULL,
		category     TEXT NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		price        NUMERIC(12, 2) NOT NULL CHECK (price >= 0),
		image_url    TEXT NOT NULL DEFAULT '',
		is_available BOOLEAN NOT NULL DEFAULT TRUE,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id               BIGSERIAL PRIMARY KEY,
		order_id         TEXT NOT NULL,
		user_id          BIGINT REFERENCES users (id) ON DELETE SET NULL,
		customer_name    TEXT NOT NULL,
		customer_phone   TEXT NOT NULL,
		customer_email   TEXT NOT NULL,
		customer_address TEXT NOT NULL,
		customer_city    TEXT NOT NULL,
		notes            TEXT NOT NULL DEFAULT '',
		items            JSONB NOT NULL,
		total_price      NUMERIC(12, 2) NOT NULL,
		order_status     TEXT NOT NULL DEFAULT 'pending'
		                 CHECK (order_status IN ('pending', 'approved', 'rejected')),
		tracking_status  TEXT NOT NULL DEFAULT 'Order Confirmed',
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT orders_order_id_key UNIQUE (order_id)
	)`,
	`CREATE INDEX IF NOT EXISTS orders_user_created_idx ON orders (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS announcements (
		id         BIGSERIAL PRIMARY KEY,
		title      TEXT NOT NULL,
		message    TEXT NOT NULL,
		is_active  BOOLEAN NOT NULL DEFAULT TRUE,
		created_by BIGINT NOT NULL REFERENCES admins (id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id           TEXT PRIMARY KEY,
		role         TEXT NOT NULL CHECK (role IN ('customer', 'admin')),
		subject_id   BIGINT NOT NULL,
		username     TEXT NOT NULL DEFAULT '',
		name         TEXT NOT NULL DEFAULT '',
		token_hash   TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL,
		expires_at   TIMESTAMPTZ NOT NULL,
		last_seen_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT sessions_token_hash_key UNIQUE (token_hash)
	)`,
	`CREATE INDEX IF NOT EXISTS sessions_expires_idx ON sessions (expires_at)`,
}

// Apply executes every schema statement in order. Statements are idempotent so
// Apply is safe to run on each start.
func Apply(ctx context.Context, db Execer) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
	}
	return nil
}

// Count reports how many statements Apply executes.
func Count() int { return len(statements) }

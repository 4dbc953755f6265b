package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// Migration is one versioned schema change. Versions are applied in slice order.
type Migration struct {
	Version string
	Name    string
	SQL     string
}

// Migrations is the ordered schema history of the loyalty database.
var Migrations = []Migration{
	{
		Version: "20250101000001",
		Name:    "create_identity_tables",
		SQL: `
CREATE TABLE IF NOT EXISTS portal_users (
    id         TEXT PRIMARY KEY,
    email      TEXT UNIQUE,
    name       TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS locations (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL,
    slug          TEXT NOT NULL UNIQUE,
    address_line1 TEXT,
    city          TEXT,
    state         TEXT,
    postal_code   TEXT,
    is_active     BOOLEAN NOT NULL DEFAULT TRUE,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS user_locations (
    user_id     TEXT NOT NULL REFERENCES portal_users(id) ON DELETE CASCADE,
    location_id TEXT NOT NULL REFERENCES locations(id) ON DELETE CASCADE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (user_id, location_id)
);

CREATE TABLE IF NOT EXISTS customers (
    id         TEXT PRIMARY KEY,
    phone_e164 TEXT NOT NULL UNIQUE,
    email      TEXT,
    first_name TEXT NOT NULL,
    last_name  TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`,
	},
	{
		Version: "20250101000002",
		Name:    "create_ledger_tables",
		SQL: `
CREATE TABLE IF NOT EXISTS enrollments (
    id             TEXT PRIMARY KEY,
    customer_id    TEXT NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
    location_id    TEXT NOT NULL REFERENCES locations(id) ON DELETE CASCADE,
    cached_points  INT NOT NULL DEFAULT 0 CONSTRAINT enrollments_cached_points_non_negative CHECK (cached_points >= 0),
    crm_contact_id TEXT,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (customer_id, location_id)
);

CREATE INDEX IF NOT EXISTS idx_enrollments_location ON enrollments (location_id, created_at DESC);

CREATE TABLE IF NOT EXISTS purchase_logs (
    id            TEXT PRIMARY KEY,
    enrollment_id TEXT NOT NULL REFERENCES enrollments(id) ON DELETE CASCADE,
    amount_cents  BIGINT NOT NULL CHECK (amount_cents > 0),
    points_added  INT NOT NULL CHECK (points_added >= 0),
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_purchase_logs_enrollment ON purchase_logs (enrollment_id);
`,
	},
	{
		Version: "20250101000003",
		Name:    "create_catalog_and_redemption_tables",
		SQL: `
CREATE TABLE IF NOT EXISTS reward_items (
    id              TEXT PRIMARY KEY,
    location_id     TEXT NOT NULL REFERENCES locations(id) ON DELETE CASCADE,
    name            TEXT NOT NULL,
    image_url       TEXT,
    points_required INT CHECK (points_required >= 0),
    type            TEXT NOT NULL DEFAULT 'STANDARD' CHECK (type IN ('STANDARD', 'SIGNUP_GIFT')),
    is_enabled      BOOLEAN NOT NULL DEFAULT TRUE,
    is_undeletable  BOOLEAN NOT NULL DEFAULT FALSE,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_reward_items_location ON reward_items (location_id, created_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_reward_items_signup_gift ON reward_items (location_id) WHERE type = 'SIGNUP_GIFT';

CREATE TABLE IF NOT EXISTS redemption_intents (
    id            TEXT PRIMARY KEY,
    token         TEXT NOT NULL UNIQUE,
    enrollment_id TEXT NOT NULL REFERENCES enrollments(id) ON DELETE CASCADE,
    items         JSONB NOT NULL DEFAULT '[]',
    points_spent  INT NOT NULL CHECK (points_spent >= 0),
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    expires_at    TIMESTAMPTZ,
    used_at       TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_redemption_intents_enrollment ON redemption_intents (enrollment_id);
CREATE INDEX IF NOT EXISTS idx_redemption_intents_pending_expiry ON redemption_intents (expires_at) WHERE used_at IS NULL;
`,
	},
	{
		Version: "20250101000004",
		Name:    "create_invites_table",
		SQL: `
CREATE TABLE IF NOT EXISTS invites (
    id          TEXT PRIMARY KEY,
    code        TEXT NOT NULL UNIQUE,
    location_id TEXT NOT NULL REFERENCES locations(id) ON DELETE CASCADE,
    created_by  TEXT NOT NULL REFERENCES portal_users(id) ON DELETE CASCADE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    expires_at  TIMESTAMPTZ NOT NULL,
    used_at     TIMESTAMPTZ,
    used_by     TEXT REFERENCES portal_users(id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_invites_open ON invites (location_id, created_at DESC) WHERE used_at IS NULL;
`,
	},
}

// TxBeginner is the subset of pgxpool.Pool needed to run migrations.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Migrate applies every migration not yet recorded in schema_migrations.
// Each migration runs in its own transaction together with its bookkeeping row.
func Migrate(ctx context.Context, pool TxBeginner, migrations []Migration) (int, error) {
	applied := 0
	for _, m := range migrations {
		ok, err := applyMigration(ctx, pool, m)
		if err != nil {
			return applied, fmt.Errorf("migration %s (%s): %w", m.Version, m.Name, err)
		}
		if ok {
			applied++
			log.Info().Str("version", m.Version).Str("name", m.Name).Msg("migration applied")
		}
	}
	return applied, nil
}

func applyMigration(ctx context.Context, pool TxBeginner, m Migration) (bool, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
    version    TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`); err != nil {
		return false, fmt.Errorf("ensure schema_migrations: %w", err)
	}

	// Serialises concurrent replicas starting at the same time.
	if _, err := tx.Exec(ctx, `LOCK TABLE schema_migrations IN EXCLUSIVE MODE`); err != nil {
		return false, fmt.Errorf("lock schema_migrations: %w", err)
	}

	var version string
	err = tx.QueryRow(ctx, `SELECT version FROM schema_migrations WHERE version = $1`, m.Version).Scan(&version)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("check version: %w", err)
	}

	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		return false, fmt.Errorf("exec: %w", err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name); err != nil {
		return false, fmt.Errorf("record version: %w", err)
	}

	return true, tx.Commit(ctx)
}

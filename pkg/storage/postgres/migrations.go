package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Migration is one forward schema change
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns every schema migration in version order
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "users, roles and assignments",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id BIGSERIAL PRIMARY KEY,
					username VARCHAR(64) NOT NULL UNIQUE,
					password_hash VARCHAR(255) NOT NULL,
					nickname VARCHAR(64),
					email VARCHAR(255),
					status SMALLINT NOT NULL DEFAULT 1,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE TABLE IF NOT EXISTS roles (
					id BIGSERIAL PRIMARY KEY,
					code VARCHAR(64) NOT NULL UNIQUE,
					name VARCHAR(64) NOT NULL,
					description TEXT,
					status SMALLINT NOT NULL DEFAULT 1,
					sort_order INTEGER NOT NULL DEFAULT 0,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE TABLE IF NOT EXISTS user_roles (
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					role_id BIGINT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
					PRIMARY KEY (user_id, role_id)
				);

				CREATE INDEX IF NOT EXISTS idx_user_roles_role ON user_roles(role_id);
			`,
		},
		{
			Version:     2,
			Description: "menus, departments and role menus",
			SQL: `
				CREATE TABLE IF NOT EXISTS menus (
					id BIGSERIAL PRIMARY KEY,
					parent_id BIGINT NOT NULL DEFAULT 0,
					menu_type SMALLINT NOT NULL DEFAULT 0,
					name VARCHAR(64) NOT NULL,
					path VARCHAR(255),
					component VARCHAR(255),
					perm_key VARCHAR(128),
					icon VARCHAR(64),
					sort_order INTEGER NOT NULL DEFAULT 0,
					visible BOOLEAN NOT NULL DEFAULT TRUE,
					status SMALLINT NOT NULL DEFAULT 1,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_menus_parent ON menus(parent_id);

				CREATE TABLE IF NOT EXISTS departments (
					id BIGSERIAL PRIMARY KEY,
					parent_id BIGINT NOT NULL DEFAULT 0,
					name VARCHAR(64) NOT NULL,
					code VARCHAR(64),
					leader VARCHAR(64),
					phone VARCHAR(32),
					email VARCHAR(255),
					sort_order INTEGER NOT NULL DEFAULT 0,
					status SMALLINT NOT NULL DEFAULT 1,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_departments_parent ON departments(parent_id);

				CREATE TABLE IF NOT EXISTS role_menus (
					role_id BIGINT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
					menu_id BIGINT NOT NULL REFERENCES menus(id) ON DELETE CASCADE,
					PRIMARY KEY (role_id, menu_id)
				);

				CREATE INDEX IF NOT EXISTS idx_role_menus_menu ON role_menus(menu_id);
			`,
		},
		{
			Version:     3,
			Description: "refresh tokens",
			SQL: `
				CREATE TABLE IF NOT EXISTS refresh_tokens (
					id VARCHAR(26) PRIMARY KEY,
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					token VARCHAR(64) NOT NULL UNIQUE,
					expires_at TIMESTAMPTZ NOT NULL,
					revoked BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user ON refresh_tokens(user_id);
				CREATE INDEX IF NOT EXISTS idx_refresh_tokens_expires ON refresh_tokens(expires_at);
			`,
		},
	}
}

const createMigrationsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL
	)
`

// Migrate applies every migration newer than the recorded schema version.
// Each migration runs in its own transaction. It returns the number applied.
func Migrate(ctx context.Context, db *sql.DB) (int, error) {
	return migrate(ctx, db, GetMigrations())
}

func migrate(ctx context.Context, db *sql.DB, migrations []Migration) (int, error) {
	if _, err := db.ExecContext(ctx, createMigrationsTable); err != nil {
		return 0, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM schema_migrations",
	).Scan(&current); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}

	applied := 0
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := apply(ctx, db, m); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

func apply(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %d: failed to begin transaction: %w", m.Version, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, description, applied_at) VALUES ($1, $2, $3)",
		m.Version, m.Description, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("migration %d: failed to record version: %w", m.Version, err)
	}

	return tx.Commit()
}

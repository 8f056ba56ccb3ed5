package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/intakesync/internal/logger"
)

// Migration is one schema step. Steps only ever add tables, columns and
// indexes, so a database written by an older build upgrades in place.
type Migration struct {
	Version     int
	Description string
	SQLite      []string
	Postgres    []string
}

var Migrations = []Migration{
	{
		Version:     1,
		Description: "clients, sync queue and cache collections",
		SQLite: []string{
			`CREATE TABLE IF NOT EXISTS clients (
				id TEXT PRIMARY KEY,
				server_id INTEGER,
				status TEXT NOT NULL,
				payload TEXT NOT NULL,
				server TEXT,
				created_at INTEGER NOT NULL,
				last_modified INTEGER NOT NULL,
				last_synced INTEGER,
				sync_attempts INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE INDEX IF NOT EXISTS idx_clients_created_at ON clients(created_at)`,
			`CREATE INDEX IF NOT EXISTS idx_clients_status ON clients(status)`,
			`CREATE TABLE IF NOT EXISTS sync_queue (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				type TEXT NOT NULL,
				record_id TEXT NOT NULL,
				payload TEXT NOT NULL,
				status TEXT NOT NULL,
				retry_count INTEGER NOT NULL DEFAULT 0,
				last_error TEXT NOT NULL DEFAULT '',
				timestamp INTEGER NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_sync_queue_timestamp ON sync_queue(timestamp)`,
			`CREATE INDEX IF NOT EXISTS idx_sync_queue_type ON sync_queue(type)`,
			`CREATE TABLE IF NOT EXISTS cache (
				key TEXT PRIMARY KEY,
				data TEXT NOT NULL,
				timestamp INTEGER NOT NULL
			)`,
		},
		Postgres: []string{
			`CREATE TABLE IF NOT EXISTS clients (
				id TEXT PRIMARY KEY,
				server_id BIGINT,
				status TEXT NOT NULL,
				payload JSONB NOT NULL,
				server JSONB,
				created_at TIMESTAMPTZ NOT NULL,
				last_modified TIMESTAMPTZ NOT NULL,
				last_synced TIMESTAMPTZ,
				sync_attempts INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE INDEX IF NOT EXISTS idx_clients_created_at ON clients(created_at)`,
			`CREATE INDEX IF NOT EXISTS idx_clients_status ON clients(status)`,
			`CREATE TABLE IF NOT EXISTS sync_queue (
				id BIGSERIAL PRIMARY KEY,
				type TEXT NOT NULL,
				record_id TEXT NOT NULL,
				payload JSONB NOT NULL,
				status TEXT NOT NULL,
				retry_count INTEGER NOT NULL DEFAULT 0,
				last_error TEXT NOT NULL DEFAULT '',
				timestamp TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_sync_queue_timestamp ON sync_queue(timestamp)`,
			`CREATE INDEX IF NOT EXISTS idx_sync_queue_type ON sync_queue(type)`,
			`CREATE TABLE IF NOT EXISTS cache (
				key TEXT PRIMARY KEY,
				data JSONB NOT NULL,
				timestamp TIMESTAMPTZ NOT NULL
			)`,
		},
	},
	{
		Version:     2,
		Description: "idempotency key on queue items",
		SQLite: []string{
			`ALTER TABLE sync_queue ADD COLUMN idempotency_key TEXT NOT NULL DEFAULT ''`,
		},
		Postgres: []string{
			`ALTER TABLE sync_queue ADD COLUMN IF NOT EXISTS idempotency_key TEXT NOT NULL DEFAULT ''`,
		},
	},
	{
		Version:     3,
		Description: "queue status and record indexes",
		SQLite: []string{
			`CREATE INDEX IF NOT EXISTS idx_sync_queue_status ON sync_queue(status)`,
			`CREATE INDEX IF NOT EXISTS idx_sync_queue_record_id ON sync_queue(record_id)`,
		},
		Postgres: []string{
			`CREATE INDEX IF NOT EXISTS idx_sync_queue_status ON sync_queue(status)`,
			`CREATE INDEX IF NOT EXISTS idx_sync_queue_record_id ON sync_queue(record_id)`,
		},
	},
}

// LatestSchemaVersion is the version a fresh database is created at.
var LatestSchemaVersion = Migrations[len(Migrations)-1].Version

const createSchemaVersionSQLite = `CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY,
	description TEXT NOT NULL,
	applied_at INTEGER NOT NULL
)`

const createSchemaVersionPostgres = `CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY,
	description TEXT NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

func SQLiteSchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	if _, err := db.ExecContext(ctx, createSchemaVersionSQLite); err != nil {
		return 0, fmt.Errorf("failed to create schema_version: %w", err)
	}
	var version int
	err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// MigrateSQLite applies every step above the current version up to target.
// Each step commits on its own together with its schema_version row.
func MigrateSQLite(ctx context.Context, db *sql.DB, target int) error {
	current, err := SQLiteSchemaVersion(ctx, db)
	if err != nil {
		return err
	}
	log := logger.For("migrations")

	for _, m := range Migrations {
		if m.Version <= current || m.Version > target {
			continue
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
		}
		for _, stmt := range m.SQLite {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("failed to apply migration %d: %w", m.Version, err)
			}
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO schema_version (version, description, applied_at) VALUES (?, ?, ?)`,
			m.Version, m.Description, time.Now().UnixNano())
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}
		log.Infow("Applied migration", "version", m.Version, "description", m.Description)
	}
	return nil
}

func PostgresSchemaVersion(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	if _, err := pool.Exec(ctx, createSchemaVersionPostgres); err != nil {
		return 0, fmt.Errorf("failed to create schema_version: %w", err)
	}
	var version int
	err := pool.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

func MigratePostgres(ctx context.Context, pool *pgxpool.Pool, target int) error {
	current, err := PostgresSchemaVersion(ctx, pool)
	if err != nil {
		return err
	}
	log := logger.For("migrations")

	for _, m := range Migrations {
		if m.Version <= current || m.Version > target {
			continue
		}
		err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			for _, stmt := range m.Postgres {
				if _, err := tx.Exec(ctx, stmt); err != nil {
					return err
				}
			}
			_, err := tx.Exec(ctx,
				`INSERT INTO schema_version (version, description) VALUES ($1, $2)`,
				m.Version, m.Description)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", m.Version, err)
		}
		log.Infow("Applied migration", "version", m.Version, "description", m.Description)
	}
	return nil
}

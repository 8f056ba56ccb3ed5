package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/prudhvinik1/intakesync/internal/models"
)

const postgresClientColumns = `id, server_id, status, payload, server, created_at, last_modified, last_synced, sync_attempts`

type PostgresClientRepository struct {
	db pgExecutor
}

func (r *PostgresClientRepository) Put(ctx context.Context, record *models.ClientRecord) error {
	payload, server, err := encodeClientDocs(record)
	if err != nil {
		return err
	}

	query := `INSERT INTO clients (` + postgresClientColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          ON CONFLICT (id) DO UPDATE SET
	              server_id = EXCLUDED.server_id,
	              status = EXCLUDED.status,
	              payload = EXCLUDED.payload,
	              server = EXCLUDED.server,
	              last_modified = EXCLUDED.last_modified,
	              last_synced = EXCLUDED.last_synced,
	              sync_attempts = EXCLUDED.sync_attempts`

	_, err = r.db.Exec(ctx, query,
		record.ID,
		record.ServerID,
		string(record.Status),
		payload,
		server,
		record.CreatedAt,
		record.LastModified,
		record.LastSynced,
		record.SyncAttempts,
	)
	if err != nil {
		return fmt.Errorf("failed to put client: %w", err)
	}
	return nil
}

func (r *PostgresClientRepository) GetByID(ctx context.Context, id string) (*models.ClientRecord, error) {
	query := `SELECT ` + postgresClientColumns + ` FROM clients WHERE id = $1`

	record, err := scanPostgresClient(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client by ID: %w", err)
	}
	return record, nil
}

func (r *PostgresClientRepository) GetAll(ctx context.Context) ([]*models.ClientRecord, error) {
	return r.list(ctx, `SELECT `+postgresClientColumns+` FROM clients ORDER BY created_at ASC, id ASC`)
}

func (r *PostgresClientRepository) GetByStatus(ctx context.Context, status models.RecordStatus) ([]*models.ClientRecord, error) {
	return r.list(ctx, `SELECT `+postgresClientColumns+` FROM clients WHERE status = $1 ORDER BY created_at ASC, id ASC`, string(status))
}

func (r *PostgresClientRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresClientRepository) list(ctx context.Context, query string, args ...any) ([]*models.ClientRecord, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}
	defer rows.Close()

	var records []*models.ClientRecord
	for rows.Next() {
		record, err := scanPostgresClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clients: %w", err)
	}

	return records, nil
}

func scanPostgresClient(row pgx.Row) (*models.ClientRecord, error) {
	var (
		record  models.ClientRecord
		status  string
		payload []byte
		server  []byte
	)
	err := row.Scan(
		&record.ID,
		&record.ServerID,
		&status,
		&payload,
		&server,
		&record.CreatedAt,
		&record.LastModified,
		&record.LastSynced,
		&record.SyncAttempts,
	)
	if err != nil {
		return nil, err
	}
	record.Status = models.RecordStatus(status)
	if err := decodeClientDocs(&record, payload, server); err != nil {
		return nil, err
	}
	return &record, nil
}

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/prudhvinik1/intakesync/internal/models"
)

const sqliteClientColumns = `id, server_id, status, payload, server, created_at, last_modified, last_synced, sync_attempts`

type SQLiteClientRepository struct {
	db sqlExecutor
}

// Put inserts or replaces the record. created_at is never overwritten.
func (r *SQLiteClientRepository) Put(ctx context.Context, record *models.ClientRecord) error {
	payload, server, err := encodeClientDocs(record)
	if err != nil {
		return err
	}

	var serverID sql.NullInt64
	if record.ServerID != nil {
		serverID = sql.NullInt64{Int64: *record.ServerID, Valid: true}
	}
	var serverDoc sql.NullString
	if server != nil {
		serverDoc = sql.NullString{String: string(server), Valid: true}
	}

	query := `INSERT INTO clients (` + sqliteClientColumns + `)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	          ON CONFLICT(id) DO UPDATE SET
	              server_id = excluded.server_id,
	              status = excluded.status,
	              payload = excluded.payload,
	              server = excluded.server,
	              last_modified = excluded.last_modified,
	              last_synced = excluded.last_synced,
	              sync_attempts = excluded.sync_attempts`

	_, err = r.db.ExecContext(ctx, query,
		record.ID,
		serverID,
		string(record.Status),
		string(payload),
		serverDoc,
		toNanos(record.CreatedAt),
		toNanos(record.LastModified),
		nullNanos(record.LastSynced),
		record.SyncAttempts,
	)
	if err != nil {
		return fmt.Errorf("failed to put client: %w", err)
	}
	return nil
}

func (r *SQLiteClientRepository) GetByID(ctx context.Context, id string) (*models.ClientRecord, error) {
	query := `SELECT ` + sqliteClientColumns + ` FROM clients WHERE id = ?`

	record, err := scanSQLiteClient(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client by ID: %w", err)
	}
	return record, nil
}

func (r *SQLiteClientRepository) GetAll(ctx context.Context) ([]*models.ClientRecord, error) {
	query := `SELECT ` + sqliteClientColumns + ` FROM clients ORDER BY created_at ASC, id ASC`
	return r.list(ctx, query)
}

func (r *SQLiteClientRepository) GetByStatus(ctx context.Context, status models.RecordStatus) ([]*models.ClientRecord, error) {
	query := `SELECT ` + sqliteClientColumns + ` FROM clients WHERE status = ? ORDER BY created_at ASC, id ASC`
	return r.list(ctx, query, string(status))
}

func (r *SQLiteClientRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteClientRepository) list(ctx context.Context, query string, args ...any) ([]*models.ClientRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}
	defer rows.Close()

	var records []*models.ClientRecord
	for rows.Next() {
		record, err := scanSQLiteClient(rows)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteClient(row rowScanner) (*models.ClientRecord, error) {
	var (
		record       models.ClientRecord
		serverID     sql.NullInt64
		status       string
		payload      string
		server       sql.NullString
		createdAt    int64
		lastModified int64
		lastSynced   sql.NullInt64
	)
	err := row.Scan(
		&record.ID,
		&serverID,
		&status,
		&payload,
		&server,
		&createdAt,
		&lastModified,
		&lastSynced,
		&record.SyncAttempts,
	)
	if err != nil {
		return nil, err
	}

	if serverID.Valid {
		id := serverID.Int64
		record.ServerID = &id
	}
	record.Status = models.RecordStatus(status)
	record.CreatedAt = fromNanos(createdAt)
	record.LastModified = fromNanos(lastModified)
	record.LastSynced = fromNullNanos(lastSynced)

	var serverDoc []byte
	if server.Valid {
		serverDoc = []byte(server.String)
	}
	if err := decodeClientDocs(&record, []byte(payload), serverDoc); err != nil {
		return nil, err
	}
	return &record, nil
}

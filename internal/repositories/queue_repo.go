package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/prudhvinik1/intakesync/internal/models"
)

const postgresQueueColumns = `id, type, record_id, payload, status, retry_count, last_error, timestamp, idempotency_key`

type PostgresSyncQueueRepository struct {
	db pgExecutor
}

func (r *PostgresSyncQueueRepository) Add(ctx context.Context, item *models.SyncQueueItem) error {
	query := `INSERT INTO sync_queue (type, record_id, payload, status, retry_count, last_error, timestamp, idempotency_key)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING id`

	err := r.db.QueryRow(ctx, query,
		string(item.Type),
		item.RecordID,
		[]byte(item.Payload),
		string(item.Status),
		item.RetryCount,
		item.LastError,
		item.Timestamp,
		item.IdempotencyKey,
	).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("failed to add queue item: %w", err)
	}
	return nil
}

func (r *PostgresSyncQueueRepository) Put(ctx context.Context, item *models.SyncQueueItem) error {
	query := `UPDATE sync_queue
	          SET type = $1, record_id = $2, payload = $3, status = $4, retry_count = $5,
	              last_error = $6, timestamp = $7, idempotency_key = $8
	          WHERE id = $9`

	result, err := r.db.Exec(ctx, query,
		string(item.Type),
		item.RecordID,
		[]byte(item.Payload),
		string(item.Status),
		item.RetryCount,
		item.LastError,
		item.Timestamp,
		item.IdempotencyKey,
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update queue item: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresSyncQueueRepository) GetByID(ctx context.Context, id int64) (*models.SyncQueueItem, error) {
	query := `SELECT ` + postgresQueueColumns + ` FROM sync_queue WHERE id = $1`

	item, err := scanPostgresQueueItem(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get queue item by ID: %w", err)
	}
	return item, nil
}

func (r *PostgresSyncQueueRepository) GetAll(ctx context.Context) ([]*models.SyncQueueItem, error) {
	return r.list(ctx, `SELECT `+postgresQueueColumns+` FROM sync_queue ORDER BY id ASC`)
}

func (r *PostgresSyncQueueRepository) GetByStatus(ctx context.Context, status models.QueueStatus) ([]*models.SyncQueueItem, error) {
	return r.list(ctx, `SELECT `+postgresQueueColumns+` FROM sync_queue WHERE status = $1 ORDER BY id ASC`, string(status))
}

func (r *PostgresSyncQueueRepository) GetByType(ctx context.Context, itemType models.QueueItemType) ([]*models.SyncQueueItem, error) {
	return r.list(ctx, `SELECT `+postgresQueueColumns+` FROM sync_queue WHERE type = $1 ORDER BY id ASC`, string(itemType))
}

func (r *PostgresSyncQueueRepository) GetByRecordID(ctx context.Context, recordID string) ([]*models.SyncQueueItem, error) {
	return r.list(ctx, `SELECT `+postgresQueueColumns+` FROM sync_queue WHERE record_id = $1 ORDER BY id ASC`, recordID)
}

func (r *PostgresSyncQueueRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM sync_queue WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete queue item: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresSyncQueueRepository) DeleteByStatus(ctx context.Context, status models.QueueStatus, before time.Time) (int64, error) {
	query := `DELETE FROM sync_queue WHERE status = $1`
	args := []any{string(status)}
	if !before.IsZero() {
		query += ` AND timestamp < $2`
		args = append(args, before)
	}

	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete queue items: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *PostgresSyncQueueRepository) list(ctx context.Context, query string, args ...any) ([]*models.SyncQueueItem, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query queue items: %w", err)
	}
	defer rows.Close()

	var items []*models.SyncQueueItem
	for rows.Next() {
		item, err := scanPostgresQueueItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating queue items: %w", err)
	}

	return items, nil
}

func scanPostgresQueueItem(row pgx.Row) (*models.SyncQueueItem, error) {
	var (
		item     models.SyncQueueItem
		itemType string
		payload  []byte
		status   string
	)
	err := row.Scan(
		&item.ID,
		&itemType,
		&item.RecordID,
		&payload,
		&status,
		&item.RetryCount,
		&item.LastError,
		&item.Timestamp,
		&item.IdempotencyKey,
	)
	if err != nil {
		return nil, err
	}
	item.Type = models.QueueItemType(itemType)
	item.Payload = payload
	item.Status = models.QueueStatus(status)
	return &item, nil
}

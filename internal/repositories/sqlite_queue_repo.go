package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/prudhvinik1/intakesync/internal/models"
)

const sqliteQueueColumns = `id, type, record_id, payload, status, retry_count, last_error, timestamp, idempotency_key`

type SQLiteSyncQueueRepository struct {
	db sqlExecutor
}

func (r *SQLiteSyncQueueRepository) Add(ctx context.Context, item *models.SyncQueueItem) error {
	query := `INSERT INTO sync_queue (type, record_id, payload, status, retry_count, last_error, timestamp, idempotency_key)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		string(item.Type),
		item.RecordID,
		string(item.Payload),
		string(item.Status),
		item.RetryCount,
		item.LastError,
		toNanos(item.Timestamp),
		item.IdempotencyKey,
	)
	if err != nil {
		return fmt.Errorf("failed to add queue item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read queue item ID: %w", err)
	}
	item.ID = id
	return nil
}

// Put overwrites an existing item. It never creates one.
func (r *SQLiteSyncQueueRepository) Put(ctx context.Context, item *models.SyncQueueItem) error {
	query := `UPDATE sync_queue
	          SET type = ?, record_id = ?, payload = ?, status = ?, retry_count = ?,
	              last_error = ?, timestamp = ?, idempotency_key = ?
	          WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		string(item.Type),
		item.RecordID,
		string(item.Payload),
		string(item.Status),
		item.RetryCount,
		item.LastError,
		toNanos(item.Timestamp),
		item.IdempotencyKey,
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update queue item: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteSyncQueueRepository) GetByID(ctx context.Context, id int64) (*models.SyncQueueItem, error) {
	query := `SELECT ` + sqliteQueueColumns + ` FROM sync_queue WHERE id = ?`

	item, err := scanSQLiteQueueItem(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get queue item by ID: %w", err)
	}
	return item, nil
}

func (r *SQLiteSyncQueueRepository) GetAll(ctx context.Context) ([]*models.SyncQueueItem, error) {
	return r.list(ctx, `SELECT `+sqliteQueueColumns+` FROM sync_queue ORDER BY id ASC`)
}

func (r *SQLiteSyncQueueRepository) GetByStatus(ctx context.Context, status models.QueueStatus) ([]*models.SyncQueueItem, error) {
	return r.list(ctx, `SELECT `+sqliteQueueColumns+` FROM sync_queue WHERE status = ? ORDER BY id ASC`, string(status))
}

func (r *SQLiteSyncQueueRepository) GetByType(ctx context.Context, itemType models.QueueItemType) ([]*models.SyncQueueItem, error) {
	return r.list(ctx, `SELECT `+sqliteQueueColumns+` FROM sync_queue WHERE type = ? ORDER BY id ASC`, string(itemType))
}

func (r *SQLiteSyncQueueRepository) GetByRecordID(ctx context.Context, recordID string) ([]*models.SyncQueueItem, error) {
	return r.list(ctx, `SELECT `+sqliteQueueColumns+` FROM sync_queue WHERE record_id = ? ORDER BY id ASC`, recordID)
}

func (r *SQLiteSyncQueueRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete queue item: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteSyncQueueRepository) DeleteByStatus(ctx context.Context, status models.QueueStatus, before time.Time) (int64, error) {
	query := `DELETE FROM sync_queue WHERE status = ?`
	args := []any{string(status)}
	if !before.IsZero() {
		query += ` AND timestamp < ?`
		args = append(args, toNanos(before))
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete queue items: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted queue items: %w", err)
	}
	return n, nil
}

func (r *SQLiteSyncQueueRepository) list(ctx context.Context, query string, args ...any) ([]*models.SyncQueueItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query queue items: %w", err)
	}
	defer rows.Close()

	var items []*models.SyncQueueItem
	for rows.Next() {
		item, err := scanSQLiteQueueItem(rows)
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

func scanSQLiteQueueItem(row rowScanner) (*models.SyncQueueItem, error) {
	var (
		item      models.SyncQueueItem
		itemType  string
		payload   string
		status    string
		timestamp int64
	)
	err := row.Scan(
		&item.ID,
		&itemType,
		&item.RecordID,
		&payload,
		&status,
		&item.RetryCount,
		&item.LastError,
		&timestamp,
		&item.IdempotencyKey,
	)
	if err != nil {
		return nil, err
	}
	item.Type = models.QueueItemType(itemType)
	item.Payload = []byte(payload)
	item.Status = models.QueueStatus(status)
	item.Timestamp = fromNanos(timestamp)
	return &item, nil
}

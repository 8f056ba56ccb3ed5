package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/prudhvinik1/intakesync/internal/models"
)

type SQLiteCacheRepository struct {
	db sqlExecutor
}

func (r *SQLiteCacheRepository) Put(ctx context.Context, entry *models.CachedResponse) error {
	query := `INSERT INTO cache (key, data, timestamp) VALUES (?, ?, ?)
	          ON CONFLICT(key) DO UPDATE SET data = excluded.data, timestamp = excluded.timestamp`

	_, err := r.db.ExecContext(ctx, query, entry.Key, string(entry.Data), toNanos(entry.Timestamp))
	if err != nil {
		return fmt.Errorf("failed to put cache entry: %w", err)
	}
	return nil
}

func (r *SQLiteCacheRepository) Get(ctx context.Context, key string) (*models.CachedResponse, error) {
	var (
		entry     models.CachedResponse
		data      string
		timestamp int64
	)
	err := r.db.QueryRowContext(ctx, `SELECT key, data, timestamp FROM cache WHERE key = ?`, key).
		Scan(&entry.Key, &data, &timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}
	entry.Data = []byte(data)
	entry.Timestamp = fromNanos(timestamp)
	return &entry, nil
}

func (r *SQLiteCacheRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cache WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

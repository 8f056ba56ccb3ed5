package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/prudhvinik1/intakesync/internal/models"
)

type PostgresCacheRepository struct {
	db pgExecutor
}

func (r *PostgresCacheRepository) Put(ctx context.Context, entry *models.CachedResponse) error {
	query := `INSERT INTO cache (key, data, timestamp) VALUES ($1, $2, $3)
	          ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, timestamp = EXCLUDED.timestamp`

	if _, err := r.db.Exec(ctx, query, entry.Key, []byte(entry.Data), entry.Timestamp); err != nil {
		return fmt.Errorf("failed to put cache entry: %w", err)
	}
	return nil
}

func (r *PostgresCacheRepository) Get(ctx context.Context, key string) (*models.CachedResponse, error) {
	var (
		entry models.CachedResponse
		data  []byte
	)
	err := r.db.QueryRow(ctx, `SELECT key, data, timestamp FROM cache WHERE key = $1`, key).
		Scan(&entry.Key, &data, &entry.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}
	entry.Data = data
	return &entry, nil
}

func (r *PostgresCacheRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM cache WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

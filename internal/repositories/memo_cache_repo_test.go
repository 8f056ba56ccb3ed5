package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prudhvinik1/intakesync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCache struct {
	entries map[string]*models.CachedResponse
	gets    int
	failPut bool
}

func newCountingCache() *countingCache {
	return &countingCache{entries: map[string]*models.CachedResponse{}}
}

func (c *countingCache) Put(_ context.Context, entry *models.CachedResponse) error {
	if c.failPut {
		return errors.New("backend down")
	}
	c.entries[entry.Key] = entry
	return nil
}

func (c *countingCache) Get(_ context.Context, key string) (*models.CachedResponse, error) {
	c.gets++
	entry, ok := c.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return entry, nil
}

func (c *countingCache) Delete(_ context.Context, key string) error {
	delete(c.entries, key)
	return nil
}

func TestMemoCacheRepository_ServesRepeatReadsFromMemory(t *testing.T) {
	backend := newCountingCache()
	backend.entries["cities"] = &models.CachedResponse{Key: "cities", Data: json.RawMessage(`["Almaty"]`)}
	memo := NewMemoCacheRepository(backend, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		entry, err := memo.Get(ctx, "cities")
		require.NoError(t, err)
		assert.JSONEq(t, `["Almaty"]`, string(entry.Data))
	}

	assert.Equal(t, 1, backend.gets)
}

func TestMemoCacheRepository_MissIsNotMemoized(t *testing.T) {
	backend := newCountingCache()
	memo := NewMemoCacheRepository(backend, time.Minute)
	ctx := context.Background()

	_, err := memo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = memo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, 2, backend.gets)
}

func TestMemoCacheRepository_DeleteAndFailedPut(t *testing.T) {
	backend := newCountingCache()
	memo := NewMemoCacheRepository(backend, time.Minute)
	ctx := context.Background()

	require.NoError(t, memo.Put(ctx, &models.CachedResponse{Key: "k", Data: json.RawMessage(`1`)}))
	require.NoError(t, memo.Delete(ctx, "k"))
	_, err := memo.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, memo.Put(ctx, &models.CachedResponse{Key: "k", Data: json.RawMessage(`1`)}))
	backend.failPut = true
	assert.Error(t, memo.Put(ctx, &models.CachedResponse{Key: "k", Data: json.RawMessage(`2`)}))

	// The memo never claims a value the backend rejected
	entry, err := memo.Get(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `1`, string(entry.Data))
}

package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/prudhvinik1/intakesync/internal/models"
)

var ErrNotFound = errors.New("not found")

type ClientRepository interface {
	Put(ctx context.Context, record *models.ClientRecord) error
	GetByID(ctx context.Context, id string) (*models.ClientRecord, error)
	// GetAll returns records oldest first.
	GetAll(ctx context.Context) ([]*models.ClientRecord, error)
	GetByStatus(ctx context.Context, status models.RecordStatus) ([]*models.ClientRecord, error)
	Delete(ctx context.Context, id string) error
}

// SyncQueueRepository lists items in insertion order. Add assigns item.ID.
type SyncQueueRepository interface {
	Add(ctx context.Context, item *models.SyncQueueItem) error
	Put(ctx context.Context, item *models.SyncQueueItem) error
	GetByID(ctx context.Context, id int64) (*models.SyncQueueItem, error)
	GetAll(ctx context.Context) ([]*models.SyncQueueItem, error)
	GetByStatus(ctx context.Context, status models.QueueStatus) ([]*models.SyncQueueItem, error)
	GetByType(ctx context.Context, itemType models.QueueItemType) ([]*models.SyncQueueItem, error)
	GetByRecordID(ctx context.Context, recordID string) ([]*models.SyncQueueItem, error)
	Delete(ctx context.Context, id int64) error
	// DeleteByStatus removes every item in status. A non-zero before limits it
	// to items enqueued earlier than that instant.
	DeleteByStatus(ctx context.Context, status models.QueueStatus, before time.Time) (int64, error)
}

type CacheRepository interface {
	Put(ctx context.Context, entry *models.CachedResponse) error
	Get(ctx context.Context, key string) (*models.CachedResponse, error)
	Delete(ctx context.Context, key string) error
}

type Collections interface {
	Clients() ClientRepository
	SyncQueue() SyncQueueRepository
	Cache() CacheRepository
}

// Store is the durable local store. Writes made through the Collections
// handed to WithTx commit together or not at all. A cache backend that is
// not the store's own table (Redis) is outside that guarantee.
type Store interface {
	Collections
	WithTx(ctx context.Context, fn func(tx Collections) error) error
	SchemaVersion(ctx context.Context) (int, error)
	Close() error
}

// Provider hands out the store, opening it on first use.
type Provider interface {
	Get(ctx context.Context) (Store, error)
}

type StoreOption func(*storeOptions)

type storeOptions struct {
	cache   CacheRepository
	memoTTL time.Duration
}

func (o storeOptions) wrapCache(cache CacheRepository) CacheRepository {
	if o.memoTTL > 0 {
		return NewMemoCacheRepository(cache, o.memoTTL)
	}
	return cache
}

// WithCacheRepository replaces the store's own cache table.
func WithCacheRepository(cache CacheRepository) StoreOption {
	return func(o *storeOptions) {
		o.cache = cache
	}
}

// WithMemo keeps cache reads in process memory for ttl in front of the
// store's cache backend.
func WithMemo(ttl time.Duration) StoreOption {
	return func(o *storeOptions) {
		o.memoTTL = ttl
	}
}

package repositories

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/prudhvinik1/intakesync/internal/models"
)

// MemoCacheRepository keeps recently read entries in process memory in front
// of another cache backend. Writes go through to the backend first.
type MemoCacheRepository struct {
	next CacheRepository
	memo *cache.Cache
}

func NewMemoCacheRepository(next CacheRepository, ttl time.Duration) *MemoCacheRepository {
	return &MemoCacheRepository{
		next: next,
		memo: cache.New(ttl, 2*ttl),
	}
}

// rebind returns a view sharing this memo but writing to another backend,
// used to route the store's own cache table through a transaction.
func (r *MemoCacheRepository) rebind(next CacheRepository) *MemoCacheRepository {
	return &MemoCacheRepository{next: next, memo: r.memo}
}

func (r *MemoCacheRepository) Put(ctx context.Context, entry *models.CachedResponse) error {
	if err := r.next.Put(ctx, entry); err != nil {
		r.memo.Delete(entry.Key)
		return err
	}
	r.memo.Set(entry.Key, clone(entry), cache.DefaultExpiration)
	return nil
}

func (r *MemoCacheRepository) Get(ctx context.Context, key string) (*models.CachedResponse, error) {
	if v, ok := r.memo.Get(key); ok {
		return clone(v.(*models.CachedResponse)), nil
	}
	entry, err := r.next.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	r.memo.Set(key, clone(entry), cache.DefaultExpiration)
	return entry, nil
}

func (r *MemoCacheRepository) Delete(ctx context.Context, key string) error {
	r.memo.Delete(key)
	return r.next.Delete(ctx, key)
}

func clone(entry *models.CachedResponse) *models.CachedResponse {
	c := *entry
	c.Data = append([]byte(nil), entry.Data...)
	return &c
}

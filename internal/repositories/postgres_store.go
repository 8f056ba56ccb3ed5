package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/intakesync/internal/database"
)

// pgExecutor is satisfied by both *pgxpool.Pool and pgx.Tx.
type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore backs the durable store with a shared Postgres database,
// for depot terminals where several operators feed one queue.
type PostgresStore struct {
	pool  *pgxpool.Pool
	cache CacheRepository
}

type postgresCollections struct {
	clients *PostgresClientRepository
	queue   *PostgresSyncQueueRepository
	cache   CacheRepository
}

func (c *postgresCollections) Clients() ClientRepository       { return c.clients }
func (c *postgresCollections) SyncQueue() SyncQueueRepository { return c.queue }
func (c *postgresCollections) Cache() CacheRepository         { return c.cache }

func OpenPostgresStore(ctx context.Context, databaseURL string, opts ...StoreOption) (*PostgresStore, error) {
	pool, err := database.NewPostgresPool(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.MigratePostgres(ctx, pool, database.LatestSchemaVersion); err != nil {
		pool.Close()
		return nil, err
	}
	return NewPostgresStore(pool, opts...), nil
}

func NewPostgresStore(pool *pgxpool.Pool, opts ...StoreOption) *PostgresStore {
	o := storeOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	cache := o.cache
	if cache == nil {
		cache = &PostgresCacheRepository{db: pool}
	}
	return &PostgresStore{pool: pool, cache: o.wrapCache(cache)}
}

func (s *PostgresStore) Clients() ClientRepository       { return &PostgresClientRepository{db: s.pool} }
func (s *PostgresStore) SyncQueue() SyncQueueRepository { return &PostgresSyncQueueRepository{db: s.pool} }
func (s *PostgresStore) Cache() CacheRepository         { return s.cache }

func (s *PostgresStore) collections(exec pgExecutor) *postgresCollections {
	// Keep the store's own cache table inside the transaction so a cache
	// write rolls back with the records it describes.
	cache := s.cache
	switch c := cache.(type) {
	case *PostgresCacheRepository:
		if c.db == s.pool {
			cache = &PostgresCacheRepository{db: exec}
		}
	case *MemoCacheRepository:
		if own, ok := c.next.(*PostgresCacheRepository); ok && own.db == s.pool {
			cache = c.rebind(&PostgresCacheRepository{db: exec})
		}
	}
	return &postgresCollections{
		clients: &PostgresClientRepository{db: exec},
		queue:   &PostgresSyncQueueRepository{db: exec},
		cache:   cache,
	}
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx Collections) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(s.collections(tx))
	})
}

func (s *PostgresStore) SchemaVersion(ctx context.Context) (int, error) {
	return database.PostgresSchemaVersion(ctx, s.pool)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

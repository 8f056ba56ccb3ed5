package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/prudhvinik1/intakesync/internal/database"
)

// sqlExecutor is satisfied by both *sql.DB and *sql.Tx.
type sqlExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SQLiteStore struct {
	db    *sql.DB
	cache CacheRepository
}

type sqliteCollections struct {
	clients *SQLiteClientRepository
	queue   *SQLiteSyncQueueRepository
	cache   CacheRepository
}

func (c *sqliteCollections) Clients() ClientRepository       { return c.clients }
func (c *sqliteCollections) SyncQueue() SyncQueueRepository { return c.queue }
func (c *sqliteCollections) Cache() CacheRepository         { return c.cache }

// OpenSQLiteStore opens the database file and brings its schema up to date.
func OpenSQLiteStore(ctx context.Context, path string, opts ...StoreOption) (*SQLiteStore, error) {
	db, err := database.NewSQLiteDB(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := database.MigrateSQLite(ctx, db, database.LatestSchemaVersion); err != nil {
		db.Close()
		return nil, err
	}
	return NewSQLiteStore(db, opts...), nil
}

func NewSQLiteStore(db *sql.DB, opts ...StoreOption) *SQLiteStore {
	o := storeOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	cache := o.cache
	if cache == nil {
		cache = &SQLiteCacheRepository{db: db}
	}
	return &SQLiteStore{db: db, cache: o.wrapCache(cache)}
}

func (s *SQLiteStore) collections(exec sqlExecutor) *sqliteCollections {
	// The store's own cache table must go through exec: the pool has a
	// single connection, held by the transaction.
	cache := s.cache
	switch c := cache.(type) {
	case *SQLiteCacheRepository:
		if c.db == s.db {
			cache = &SQLiteCacheRepository{db: exec}
		}
	case *MemoCacheRepository:
		if own, ok := c.next.(*SQLiteCacheRepository); ok && own.db == s.db {
			cache = c.rebind(&SQLiteCacheRepository{db: exec})
		}
	}
	return &sqliteCollections{
		clients: &SQLiteClientRepository{db: exec},
		queue:   &SQLiteSyncQueueRepository{db: exec},
		cache:   cache,
	}
}

func (s *SQLiteStore) Clients() ClientRepository       { return &SQLiteClientRepository{db: s.db} }
func (s *SQLiteStore) SyncQueue() SyncQueueRepository { return &SQLiteSyncQueueRepository{db: s.db} }
func (s *SQLiteStore) Cache() CacheRepository         { return s.cache }

func (s *SQLiteStore) WithTx(ctx context.Context, fn func(tx Collections) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// Rolls back on error, panic and goroutine exit alike.
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if err := fn(s.collections(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	return database.SQLiteSchemaVersion(ctx, s.db)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func toNanos(t time.Time) int64 {
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func nullNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func fromNullNanos(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromNanos(n.Int64)
	return &t
}

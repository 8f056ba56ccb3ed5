package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prudhvinik1/intakesync/internal/database"
	"github.com/prudhvinik1/intakesync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteClientRepository_PutAndGet(t *testing.T) {
	// ARRANGE
	store := newTestSQLiteStore(t)
	ctx := context.Background()
	rating := 4
	record := newTestRecord("local_a", time.Now())
	record.Payload.Rating = &rating
	record.Payload.Draft = &models.DraftMeta{DraftKey: "draft-1"}

	// ACT
	err := store.Clients().Put(ctx, record)

	// ASSERT
	require.NoError(t, err)
	got, err := store.Clients().GetByID(ctx, "local_a")
	require.NoError(t, err)
	assert.Equal(t, models.RecordLocal, got.Status)
	assert.Equal(t, "A", got.Payload.Name)
	assert.Equal(t, 4, *got.Payload.Rating)
	assert.Equal(t, "draft-1", got.Payload.Draft.DraftKey)
	assert.Nil(t, got.ServerID)
	assert.Nil(t, got.Server)
	assert.True(t, record.CreatedAt.Equal(got.CreatedAt))
}

func TestSQLiteClientRepository_PutUpdatesExisting(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()
	record := newTestRecord("local_a", time.Now())
	require.NoError(t, store.Clients().Put(ctx, record))

	serverID := int64(42)
	synced := time.Now()
	record.ServerID = &serverID
	record.Status = models.RecordSynced
	record.LastSynced = &synced
	record.Server = &models.ServerDetails{City: "Almaty"}
	require.NoError(t, store.Clients().Put(ctx, record))

	got, err := store.Clients().GetByID(ctx, "local_a")
	require.NoError(t, err)
	assert.Equal(t, int64(42), *got.ServerID)
	assert.Equal(t, models.RecordSynced, got.Status)
	assert.Equal(t, "Almaty", got.Server.City)
	require.NotNil(t, got.LastSynced)

	all, err := store.Clients().GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLiteClientRepository_NotFound(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := store.Clients().GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.Clients().Delete(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteClientRepository_GetByStatusOrdered(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Now()

	for i, id := range []string{"local_c", "local_a", "local_b"} {
		record := newTestRecord(id, base.Add(time.Duration(i)*time.Second))
		if id == "local_a" {
			record.Status = models.RecordSynced
		}
		require.NoError(t, store.Clients().Put(ctx, record))
	}

	local, err := store.Clients().GetByStatus(ctx, models.RecordLocal)
	require.NoError(t, err)
	require.Len(t, local, 2)
	assert.Equal(t, "local_c", local[0].ID)
	assert.Equal(t, "local_b", local[1].ID)
}

func TestSQLiteSyncQueueRepository_AddAssignsIncreasingIDs(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	first := newTestQueueItem("local_a")
	second := newTestQueueItem("local_b")
	require.NoError(t, store.SyncQueue().Add(ctx, first))
	require.NoError(t, store.SyncQueue().Add(ctx, second))

	assert.Greater(t, second.ID, first.ID)

	items, err := store.SyncQueue().GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "local_a", items[0].RecordID)
	assert.Equal(t, "local_b", items[1].RecordID)
	assert.JSONEq(t, `{"name":"A"}`, string(items[0].Payload))
}

func TestSQLiteSyncQueueRepository_PutRequiresExisting(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	err := store.SyncQueue().Put(ctx, &models.SyncQueueItem{ID: 99, Payload: json.RawMessage(`{}`)})

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteSyncQueueRepository_Indexes(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	a := newTestQueueItem("local_a")
	b := newTestQueueItem("local_b")
	b.Status = models.QueueFailed
	require.NoError(t, store.SyncQueue().Add(ctx, a))
	require.NoError(t, store.SyncQueue().Add(ctx, b))

	failed, err := store.SyncQueue().GetByStatus(ctx, models.QueueFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, b.ID, failed[0].ID)

	byType, err := store.SyncQueue().GetByType(ctx, models.QueueCreateClient)
	require.NoError(t, err)
	assert.Len(t, byType, 2)

	byRecord, err := store.SyncQueue().GetByRecordID(ctx, "local_a")
	require.NoError(t, err)
	require.Len(t, byRecord, 1)
	assert.Equal(t, a.ID, byRecord[0].ID)
}

func TestSQLiteSyncQueueRepository_DeleteByStatus(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()
	now := time.Now()

	old := newTestQueueItem("local_old")
	old.Status = models.QueueSynced
	old.Timestamp = now.Add(-40 * 24 * time.Hour)
	recent := newTestQueueItem("local_recent")
	recent.Status = models.QueueSynced
	pending := newTestQueueItem("local_pending")
	for _, item := range []*models.SyncQueueItem{old, recent, pending} {
		require.NoError(t, store.SyncQueue().Add(ctx, item))
	}

	// ACT: time-bounded first, then unbounded
	n, err := store.SyncQueue().DeleteByStatus(ctx, models.QueueSynced, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = store.SyncQueue().DeleteByStatus(ctx, models.QueueSynced, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// ASSERT
	items, err := store.SyncQueue().GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "local_pending", items[0].RecordID)
}

func TestSQLiteStore_WithTxCommitsBoth(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx Collections) error {
		if err := tx.Clients().Put(ctx, newTestRecord("local_a", time.Now())); err != nil {
			return err
		}
		return tx.SyncQueue().Add(ctx, newTestQueueItem("local_a"))
	})

	require.NoError(t, err)
	_, err = store.Clients().GetByID(ctx, "local_a")
	assert.NoError(t, err)
	items, err := store.SyncQueue().GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestSQLiteStore_WithTxRollsBackBoth(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()
	boom := errors.New("queue write failed")

	err := store.WithTx(ctx, func(tx Collections) error {
		if err := tx.Clients().Put(ctx, newTestRecord("local_a", time.Now())); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	_, err = store.Clients().GetByID(ctx, "local_a")
	assert.ErrorIs(t, err, ErrNotFound)
	items, err := store.SyncQueue().GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSQLiteStore_WithTxRollsBackOnPanic(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = store.WithTx(ctx, func(tx Collections) error {
			_ = tx.Clients().Put(ctx, newTestRecord("local_a", time.Now()))
			panic("crash mid-transaction")
		})
	})

	// The connection is released and nothing was written
	_, err := store.Clients().GetByID(ctx, "local_a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_CacheInsideTx(t *testing.T) {
	store := NewSQLiteStore(newTestSQLiteDB(t), WithMemo(time.Minute))
	require.IsType(t, &MemoCacheRepository{}, store.Cache())
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx Collections) error {
		return tx.Cache().Put(ctx, &models.CachedResponse{Key: "cities", Data: json.RawMessage(`["Almaty"]`), Timestamp: time.Now()})
	})
	require.NoError(t, err)

	entry, err := store.Cache().Get(ctx, "cities")
	require.NoError(t, err)
	assert.JSONEq(t, `["Almaty"]`, string(entry.Data))
}

func TestSQLiteCacheRepository_RoundTrip(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := store.Cache().Get(ctx, "client_drafts")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Cache().Put(ctx, &models.CachedResponse{Key: "client_drafts", Data: json.RawMessage(`[1]`), Timestamp: time.Now()}))
	require.NoError(t, store.Cache().Put(ctx, &models.CachedResponse{Key: "client_drafts", Data: json.RawMessage(`[1,2]`), Timestamp: time.Now()}))

	entry, err := store.Cache().Get(ctx, "client_drafts")
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2]`, string(entry.Data))

	require.NoError(t, store.Cache().Delete(ctx, "client_drafts"))
	_, err = store.Cache().Get(ctx, "client_drafts")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenSQLiteStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "intake.db")

	store, err := OpenSQLiteStore(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.Clients().Put(ctx, newTestRecord("local_a", time.Now())))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	version, err := reopened.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, database.LatestSchemaVersion, version)
	_, err = reopened.Clients().GetByID(ctx, "local_a")
	assert.NoError(t, err)
}

// Helper functions for test setup

func newTestSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	db, err := database.NewSQLiteDB(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "Failed to open test database")
	require.NoError(t, database.MigrateSQLite(ctx, db, database.LatestSchemaVersion))
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	return NewSQLiteStore(newTestSQLiteDB(t))
}

func newTestRecord(id string, createdAt time.Time) *models.ClientRecord {
	return &models.ClientRecord{
		ID:           id,
		Status:       models.RecordLocal,
		Payload:      models.ClientPayload{Name: "A", Phone: "123"},
		CreatedAt:    createdAt,
		LastModified: createdAt,
	}
}

func newTestQueueItem(recordID string) *models.SyncQueueItem {
	return &models.SyncQueueItem{
		Type:           models.QueueCreateClient,
		RecordID:       recordID,
		Payload:        json.RawMessage(`{"name":"A"}`),
		Status:         models.QueuePending,
		Timestamp:      time.Now(),
		IdempotencyKey: "key-" + recordID,
	}
}

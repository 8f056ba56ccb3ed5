package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prudhvinik1/intakesync/internal/apperr"
	"github.com/prudhvinik1/intakesync/internal/events"
	"github.com/prudhvinik1/intakesync/internal/models"
	"github.com/prudhvinik1/intakesync/internal/repositories"
	"github.com/prudhvinik1/intakesync/internal/utils"
)

var ErrNotFailed = errors.New("queue item is not failed")

// QueueManager owns the lifecycle of sync queue items.
type QueueManager struct {
	stores repositories.Provider
	bus    *events.Bus
	now    func() time.Time
}

func NewQueueManager(stores repositories.Provider, bus *events.Bus) *QueueManager {
	return &QueueManager{stores: stores, bus: bus, now: time.Now}
}

// Enqueue adds item inside the caller's transaction as pending with no
// retries. The caller publishes the change once the transaction commits.
func (m *QueueManager) Enqueue(ctx context.Context, tx repositories.Collections, item *models.SyncQueueItem) (int64, error) {
	item.Status = models.QueuePending
	item.RetryCount = 0
	item.LastError = ""
	if item.Timestamp.IsZero() {
		item.Timestamp = m.now()
	}
	if item.IdempotencyKey == "" {
		item.IdempotencyKey = utils.NewIdempotencyKey()
	}
	if err := tx.SyncQueue().Add(ctx, item); err != nil {
		return 0, err
	}
	return item.ID, nil
}

// Dequeue removes an item after its mutation was acknowledged.
func (m *QueueManager) Dequeue(ctx context.Context, id int64) error {
	store, err := m.stores.Get(ctx)
	if err != nil {
		return apperr.Storage("dequeue", err)
	}
	if err := store.SyncQueue().Delete(ctx, id); err != nil {
		return storageOrNotFound("dequeue", err)
	}
	m.bus.PublishDataChanged()
	return nil
}

// Update merges patch into the stored item and returns the result.
func (m *QueueManager) Update(ctx context.Context, id int64, patch models.QueuePatch) (*models.SyncQueueItem, error) {
	store, err := m.stores.Get(ctx)
	if err != nil {
		return nil, apperr.Storage("update queue item", err)
	}

	var updated *models.SyncQueueItem
	err = store.WithTx(ctx, func(tx repositories.Collections) error {
		item, err := tx.SyncQueue().GetByID(ctx, id)
		if err != nil {
			return err
		}
		patch.Apply(item)
		if err := tx.SyncQueue().Put(ctx, item); err != nil {
			return err
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, storageOrNotFound("update queue item", err)
	}
	m.bus.PublishDataChanged()
	return updated, nil
}

// List returns the items accepted by filter, oldest first. A nil filter
// returns everything.
func (m *QueueManager) List(ctx context.Context, filter func(*models.SyncQueueItem) bool) ([]*models.SyncQueueItem, error) {
	store, err := m.stores.Get(ctx)
	if err != nil {
		return nil, apperr.Storage("list queue", err)
	}
	items, err := store.SyncQueue().GetAll(ctx)
	if err != nil {
		return nil, apperr.Storage("list queue", err)
	}
	if filter == nil {
		return items, nil
	}
	matched := make([]*models.SyncQueueItem, 0, len(items))
	for _, item := range items {
		if filter(item) {
			matched = append(matched, item)
		}
	}
	return matched, nil
}

func (m *QueueManager) Get(ctx context.Context, id int64) (*models.SyncQueueItem, error) {
	store, err := m.stores.Get(ctx)
	if err != nil {
		return nil, apperr.Storage("get queue item", err)
	}
	item, err := store.SyncQueue().GetByID(ctx, id)
	if err != nil {
		return nil, storageOrNotFound("get queue item", err)
	}
	return item, nil
}

// Sweep deletes every synced item in one statement. Pending and failed
// items are never touched.
func (m *QueueManager) Sweep(ctx context.Context) (int64, error) {
	return m.deleteSynced(ctx, time.Time{})
}

// PurgeSyncedBefore deletes synced items enqueued before cutoff.
func (m *QueueManager) PurgeSyncedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return m.deleteSynced(ctx, cutoff)
}

func (m *QueueManager) deleteSynced(ctx context.Context, before time.Time) (int64, error) {
	store, err := m.stores.Get(ctx)
	if err != nil {
		return 0, apperr.Storage("sweep queue", err)
	}
	n, err := store.SyncQueue().DeleteByStatus(ctx, models.QueueSynced, before)
	if err != nil {
		return 0, apperr.Storage("sweep queue", err)
	}
	if n > 0 {
		m.bus.PublishDataChanged()
	}
	return n, nil
}

func (m *QueueManager) Stats(ctx context.Context) (models.QueueStats, error) {
	items, err := m.List(ctx, nil)
	if err != nil {
		return models.QueueStats{}, err
	}
	stats := models.QueueStats{Total: len(items)}
	for _, item := range items {
		switch item.Status {
		case models.QueuePending:
			stats.Pending++
		case models.QueueSynced:
			stats.Synced++
		case models.QueueFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

// RetryFailed puts a failed item back in the queue with a fresh retry
// budget and moves its record from failed back to pending.
func (m *QueueManager) RetryFailed(ctx context.Context, id int64) (*models.SyncQueueItem, error) {
	store, err := m.stores.Get(ctx)
	if err != nil {
		return nil, apperr.Storage("retry queue item", err)
	}

	var retried *models.SyncQueueItem
	err = store.WithTx(ctx, func(tx repositories.Collections) error {
		item, err := tx.SyncQueue().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if item.Status != models.QueueFailed {
			return ErrNotFailed
		}
		item.Status = models.QueuePending
		item.RetryCount = 0
		item.LastError = ""
		if err := tx.SyncQueue().Put(ctx, item); err != nil {
			return err
		}

		record, err := tx.Clients().GetByID(ctx, item.RecordID)
		if errors.Is(err, repositories.ErrNotFound) {
			retried = item
			return nil
		}
		if err != nil {
			return err
		}
		if record.Status == models.RecordFailed {
			if err := advanceRecord(ctx, record, eventRetry); err != nil {
				return err
			}
			record.LastModified = m.now()
			if err := tx.Clients().Put(ctx, record); err != nil {
				return err
			}
		}
		retried = item
		return nil
	})
	if errors.Is(err, ErrNotFailed) {
		return nil, err
	}
	if err != nil {
		return nil, storageOrNotFound("retry queue item", err)
	}
	m.bus.PublishDataChanged()
	return retried, nil
}

// Abandon drops a failed item for good. Its record stays failed.
func (m *QueueManager) Abandon(ctx context.Context, id int64) error {
	store, err := m.stores.Get(ctx)
	if err != nil {
		return apperr.Storage("abandon queue item", err)
	}
	err = store.WithTx(ctx, func(tx repositories.Collections) error {
		item, err := tx.SyncQueue().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if item.Status != models.QueueFailed {
			return ErrNotFailed
		}
		return tx.SyncQueue().Delete(ctx, id)
	})
	if errors.Is(err, ErrNotFailed) {
		return err
	}
	if err != nil {
		return storageOrNotFound("abandon queue item", err)
	}
	m.bus.PublishDataChanged()
	return nil
}

func storageOrNotFound(op string, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, repositories.ErrNotFound)
	}
	return apperr.Storage(op, err)
}

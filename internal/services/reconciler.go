package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prudhvinik1/intakesync/internal/apperr"
	"github.com/prudhvinik1/intakesync/internal/events"
	"github.com/prudhvinik1/intakesync/internal/logger"
	"github.com/prudhvinik1/intakesync/internal/metrics"
	"github.com/prudhvinik1/intakesync/internal/models"
	"github.com/prudhvinik1/intakesync/internal/remote"
	"github.com/prudhvinik1/intakesync/internal/repositories"
	"go.uber.org/zap"
)

const DefaultMaxRetries = 3

// Reconciler drains the sync queue against the intake API. Only one cycle
// runs at a time; a trigger that arrives while one is running is dropped.
type Reconciler struct {
	stores     repositories.Provider
	queue      *QueueManager
	api        ClientAPI
	tokens     TokenSource
	bus        *events.Bus
	maxRetries int

	inProgress atomic.Bool
	now        func() time.Time
	log        *zap.SugaredLogger
}

func NewReconciler(
	stores repositories.Provider,
	queue *QueueManager,
	api ClientAPI,
	tokens TokenSource,
	bus *events.Bus,
	maxRetries int,
) *Reconciler {
	return &Reconciler{
		stores:     stores,
		queue:      queue,
		api:        api,
		tokens:     tokens,
		bus:        bus,
		maxRetries: maxRetries,
		now:        time.Now,
		log:        logger.For("reconciler"),
	}
}

func (r *Reconciler) InProgress() bool {
	return r.inProgress.Load()
}

// eligible reports whether an item may be attempted. retryCount counts
// failures so far, so an item gets maxRetries+1 attempts in total.
func (r *Reconciler) eligible(item *models.SyncQueueItem) bool {
	return item.Status == models.QueuePending && item.RetryCount <= r.maxRetries
}

// HasEligible reports whether a cycle would have anything to do.
func (r *Reconciler) HasEligible(ctx context.Context) (bool, error) {
	items, err := r.queue.List(ctx, r.eligible)
	if err != nil {
		return false, err
	}
	return len(items) > 0, nil
}

// Run performs one reconciliation cycle. Items go out one at a time in
// enqueue order. Per-item failures are recorded on the item and never stop
// the cycle; only a storage failure while selecting work is returned.
// Once started, a cycle runs to completion even if ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context, trigger string) (models.SyncSummary, error) {
	if !r.inProgress.CompareAndSwap(false, true) {
		return models.SyncSummary{}, apperr.ErrSyncInProgress
	}
	defer r.inProgress.Store(false)

	ctx = context.WithoutCancel(ctx)
	start := r.now()

	items, err := r.queue.List(ctx, r.eligible)
	if err != nil {
		return models.SyncSummary{}, err
	}

	summary := models.SyncSummary{Total: len(items)}
	if len(items) == 0 {
		return summary, nil
	}

	r.log.Infow("Reconciliation started", "trigger", trigger, "items", len(items))

	for _, item := range items {
		if r.process(ctx, item) {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}

	if _, err := r.queue.Sweep(ctx); err != nil {
		r.log.Errorw("Failed to sweep synced items", "error", err)
	}
	if stats, err := r.queue.Stats(ctx); err == nil {
		metrics.SetQueueDepth(stats)
	}
	r.bus.PublishDataChanged()

	elapsed := r.now().Sub(start)
	metrics.RecordCycle(trigger, elapsed)
	r.log.Infow("Reconciliation finished",
		"trigger", trigger,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"total", summary.Total,
		"duration", elapsed)

	return summary, nil
}

// process attempts one item and persists the outcome. It reports success.
func (r *Reconciler) process(ctx context.Context, item *models.SyncQueueItem) bool {
	log := r.log.With("queue_id", item.ID, "record_id", item.RecordID)

	if item.Type != models.QueueCreateClient {
		r.fail(ctx, item, fmt.Errorf("unsupported queue item type %q", item.Type))
		return false
	}
	var payload models.ClientPayload
	if err := json.Unmarshal(item.Payload, &payload); err != nil {
		r.fail(ctx, item, fmt.Errorf("invalid payload: %w", err))
		return false
	}

	if err := r.markAttempting(ctx, item.RecordID); err != nil {
		log.Errorw("Failed to mark record pending", "error", err)
		return false
	}

	resp, err := r.submit(ctx, item, payload)
	if err != nil {
		if apperr.IsAuth(err) {
			if refreshErr := r.tokens.HandleAuthFailure(ctx); refreshErr != nil {
				log.Warnw("Session refresh failed", "error", refreshErr)
			}
		}
		log.Warnw("Submission failed", "retry_count", item.RetryCount, "error", err)
		r.fail(ctx, item, err)
		return false
	}

	if err := r.acknowledge(ctx, item, resp); err != nil {
		// The API has the client but we could not record that. The item stays
		// pending and is resent with the same idempotency key.
		log.Errorw("Failed to record acknowledgement", "server_id", resp.ID, "error", err)
		return false
	}
	metrics.RecordItem("synced")
	log.Infow("Client synced", "server_id", resp.ID)
	return true
}

func (r *Reconciler) submit(ctx context.Context, item *models.SyncQueueItem, payload models.ClientPayload) (*remote.CreateClientResponse, error) {
	token, err := r.tokens.AccessToken(ctx)
	if err != nil {
		return nil, &apperr.AuthError{Message: err.Error(), Err: err}
	}
	resp, err := r.api.CreateClient(ctx, token, remote.NewCreateClientRequest(payload), item.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	// Without an id the record could never be matched to the server's copy.
	if resp.ID == 0 {
		return nil, &apperr.NetworkError{Message: "response missing id"}
	}
	return resp, nil
}

// markAttempting moves a local record to pending before its first attempt.
func (r *Reconciler) markAttempting(ctx context.Context, recordID string) error {
	changed := false
	err := r.withStore(ctx, func(tx repositories.Collections) error {
		record, err := tx.Clients().GetByID(ctx, recordID)
		if errors.Is(err, repositories.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if record.Status != models.RecordLocal {
			return nil
		}
		if err := advanceRecord(ctx, record, eventSubmit); err != nil {
			return err
		}
		record.LastModified = r.now()
		if err := tx.Clients().Put(ctx, record); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err == nil && changed {
		r.bus.PublishDataChanged()
	}
	return err
}

// acknowledge marks the item synced and reconciles its record in one
// transaction. The sweep at the end of the cycle deletes the item.
func (r *Reconciler) acknowledge(ctx context.Context, item *models.SyncQueueItem, resp *remote.CreateClientResponse) error {
	now := r.now()
	err := r.withStore(ctx, func(tx repositories.Collections) error {
		item.Status = models.QueueSynced
		item.LastError = ""
		if err := tx.SyncQueue().Put(ctx, item); err != nil {
			return err
		}

		record, err := tx.Clients().GetByID(ctx, item.RecordID)
		if errors.Is(err, repositories.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		record.SyncAttempts++
		ReconcileRecord(record, resp, now)
		if record.Status == models.RecordPending {
			if err := advanceRecord(ctx, record, eventAcknowledge); err != nil {
				return err
			}
		}
		return tx.Clients().Put(ctx, record)
	})
	if err == nil {
		r.bus.PublishDataChanged()
	}
	return err
}

// fail counts a failed attempt. The item becomes failed once it has used
// its whole retry budget.
func (r *Reconciler) fail(ctx context.Context, item *models.SyncQueueItem, cause error) {
	exhausted := false
	err := r.withStore(ctx, func(tx repositories.Collections) error {
		item.RetryCount++
		item.LastError = cause.Error()
		if item.RetryCount > r.maxRetries {
			item.Status = models.QueueFailed
			exhausted = true
		}
		if err := tx.SyncQueue().Put(ctx, item); err != nil {
			return err
		}

		record, err := tx.Clients().GetByID(ctx, item.RecordID)
		if errors.Is(err, repositories.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		record.SyncAttempts++
		record.LastModified = r.now()
		if exhausted && record.Status == models.RecordPending {
			if err := advanceRecord(ctx, record, eventExhaust); err != nil {
				return err
			}
		}
		return tx.Clients().Put(ctx, record)
	})
	if err != nil {
		r.log.Errorw("Failed to record failed attempt", "queue_id", item.ID, "error", err)
		return
	}
	r.bus.PublishDataChanged()

	switch {
	case exhausted:
		metrics.RecordItem("exhausted")
		r.log.Warnw("Queue item exhausted its retries", "queue_id", item.ID, "record_id", item.RecordID, "last_error", item.LastError)
	case apperr.IsAuth(cause):
		metrics.RecordItem("auth")
	default:
		metrics.RecordItem("retry")
	}
}

func (r *Reconciler) withStore(ctx context.Context, fn func(tx repositories.Collections) error) error {
	store, err := r.stores.Get(ctx)
	if err != nil {
		return err
	}
	return store.WithTx(ctx, fn)
}

// ReconcileRecord folds the API's view of a client into the local record.
// Where both sides carry a value the server's wins; fields the server does
// not return (name, address, draft metadata and the like) are kept.
func ReconcileRecord(record *models.ClientRecord, resp *remote.CreateClientResponse, now time.Time) {
	serverID := resp.ID
	record.ServerID = &serverID
	record.Server = resp.Details()

	p := &record.Payload
	if resp.ContactPhone != "" {
		p.Phone = resp.ContactPhone
	}
	if resp.ApartmentNumber != "" {
		p.ApartmentNumber = resp.ApartmentNumber
	}
	if resp.ProviderRating != nil {
		rating := *resp.ProviderRating
		p.Rating = &rating
	}
	if resp.DesiredPrice != nil {
		price := *resp.DesiredPrice
		p.DesiredPrice = &price
	}
	if resp.Notes != "" {
		p.Notes = resp.Notes
	}
	if resp.EngineerName != "" {
		p.Engineer = resp.EngineerName
	}

	record.LastSynced = &now
	record.LastModified = now
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/prudhvinik1/intakesync/internal/apperr"
	"github.com/prudhvinik1/intakesync/internal/events"
	"github.com/prudhvinik1/intakesync/internal/metrics"
	"github.com/prudhvinik1/intakesync/internal/models"
	"github.com/prudhvinik1/intakesync/internal/repositories"
	"github.com/prudhvinik1/intakesync/internal/utils"
)

// Field limits mirror the intake API's model.
const (
	MaxPhoneLength     = 20
	MaxApartmentLength = 10
	MinRating          = 1
	MaxRating          = 5
)

type ClientService struct {
	stores repositories.Provider
	queue  *QueueManager
	bus    *events.Bus
	now    func() time.Time
}

type SubmitResult struct {
	Record      *models.ClientRecord `json:"record"`
	QueueItemID int64                `json:"queue_item_id"`
}

func NewClientService(stores repositories.Provider, queue *QueueManager, bus *events.Bus) *ClientService {
	return &ClientService{stores: stores, queue: queue, bus: bus, now: time.Now}
}

// ValidatePayload checks what must hold before a record may be queued.
func ValidatePayload(p models.ClientPayload) error {
	if strings.TrimSpace(p.Name) == "" {
		return &apperr.ValidationError{Field: "name", Message: "is required"}
	}
	if strings.TrimSpace(p.Phone) == "" {
		return &apperr.ValidationError{Field: "phone", Message: "is required"}
	}
	if utf8.RuneCountInString(p.Phone) > MaxPhoneLength {
		return &apperr.ValidationError{Field: "phone", Message: fmt.Sprintf("must be at most %d characters", MaxPhoneLength)}
	}
	if utf8.RuneCountInString(p.ApartmentNumber) > MaxApartmentLength {
		return &apperr.ValidationError{Field: "apartment_number", Message: fmt.Sprintf("must be at most %d characters", MaxApartmentLength)}
	}
	if p.Rating != nil && (*p.Rating < MinRating || *p.Rating > MaxRating) {
		return &apperr.ValidationError{Field: "rating", Message: fmt.Sprintf("must be between %d and %d", MinRating, MaxRating)}
	}
	if p.DesiredPrice != nil && *p.DesiredPrice < 0 {
		return &apperr.ValidationError{Field: "desired_price", Message: "must not be negative"}
	}
	if loc := p.Location; loc != nil {
		if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
			return &apperr.ValidationError{Field: "location", Message: "is out of range"}
		}
	}
	return nil
}

// Submit validates payload, then writes the record and its queue item in
// one transaction. Nothing is written when validation fails.
func (s *ClientService) Submit(ctx context.Context, payload models.ClientPayload) (*SubmitResult, error) {
	result, err := s.save(ctx, payload, time.Time{})
	switch {
	case err == nil:
		metrics.RecordSubmission("queued")
	case apperr.IsValidation(err):
		metrics.RecordSubmission("invalid")
	default:
		metrics.RecordSubmission("error")
	}
	return result, err
}

// save is Submit with an explicit capture time, used when importing data
// recorded earlier. A zero createdAt means now.
func (s *ClientService) save(ctx context.Context, payload models.ClientPayload, createdAt time.Time) (*SubmitResult, error) {
	if err := ValidatePayload(payload); err != nil {
		return nil, err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal client payload: %w", err)
	}

	store, err := s.stores.Get(ctx)
	if err != nil {
		return nil, apperr.Storage("submit client", err)
	}

	now := s.now()
	if createdAt.IsZero() {
		createdAt = now
	}
	record := &models.ClientRecord{
		ID:           utils.NewLocalID(),
		Status:       models.RecordLocal,
		Payload:      payload,
		CreatedAt:    createdAt,
		LastModified: now,
	}
	item := &models.SyncQueueItem{
		Type:      models.QueueCreateClient,
		RecordID:  record.ID,
		Payload:   data,
		Timestamp: now,
	}

	err = store.WithTx(ctx, func(tx repositories.Collections) error {
		if err := tx.Clients().Put(ctx, record); err != nil {
			return err
		}
		_, err := s.queue.Enqueue(ctx, tx, item)
		return err
	})
	if err != nil {
		return nil, apperr.Storage("submit client", err)
	}

	s.bus.PublishDataChanged()
	return &SubmitResult{Record: record, QueueItemID: item.ID}, nil
}

func (s *ClientService) Get(ctx context.Context, id string) (*models.ClientRecord, error) {
	store, err := s.stores.Get(ctx)
	if err != nil {
		return nil, apperr.Storage("get client", err)
	}
	record, err := store.Clients().GetByID(ctx, id)
	if err != nil {
		return nil, storageOrNotFound("get client", err)
	}
	return record, nil
}

// List returns records oldest first, optionally only those in status.
func (s *ClientService) List(ctx context.Context, status models.RecordStatus) ([]*models.ClientRecord, error) {
	store, err := s.stores.Get(ctx)
	if err != nil {
		return nil, apperr.Storage("list clients", err)
	}
	var records []*models.ClientRecord
	if status == "" {
		records, err = store.Clients().GetAll(ctx)
	} else {
		records, err = store.Clients().GetByStatus(ctx, status)
	}
	if err != nil {
		return nil, apperr.Storage("list clients", err)
	}
	return records, nil
}

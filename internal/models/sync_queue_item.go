package models

import (
	"encoding/json"
	"time"
)

type QueueItemType string

const (
	QueueCreateClient QueueItemType = "create_client"
)

type QueueStatus string

const (
	QueuePending QueueStatus = "pending"
	QueueSynced  QueueStatus = "synced"
	QueueFailed  QueueStatus = "failed"
)

type SyncQueueItem struct {
	ID             int64           `json:"id"`
	Type           QueueItemType   `json:"type"`
	RecordID       string          `json:"record_id"`
	Payload        json.RawMessage `json:"payload"`
	Status         QueueStatus     `json:"status"`
	RetryCount     int             `json:"retry_count"`
	LastError      string          `json:"last_error,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
	IdempotencyKey string          `json:"idempotency_key"`
}

// QueuePatch is a partial update. Nil fields are left untouched.
type QueuePatch struct {
	Status     *QueueStatus
	RetryCount *int
	LastError  *string
}

func (p QueuePatch) Apply(item *SyncQueueItem) {
	if p.Status != nil {
		item.Status = *p.Status
	}
	if p.RetryCount != nil {
		item.RetryCount = *p.RetryCount
	}
	if p.LastError != nil {
		item.LastError = *p.LastError
	}
}

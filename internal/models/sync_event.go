package models

import (
	"time"
)

type EventKind string

const (
	EventDataChanged    EventKind = "offlineDataChanged"
	EventNetworkStatus  EventKind = "networkStatusChanged"
	EventSessionExpired EventKind = "sessionExpired"
)

type SyncEvent struct {
	Kind   EventKind `json:"kind"`
	Online *bool     `json:"online,omitempty"`
	At     time.Time `json:"at"`
}

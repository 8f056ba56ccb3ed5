package models

import (
	"time"
)

type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
)

// Presence describes this device's view of the network link.
type Presence struct {
	Status PresenceStatus `json:"status"`
	Since  time.Time      `json:"since"`
	Source string         `json:"source"`
}

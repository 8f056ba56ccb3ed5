package models

import (
	"time"
)

type RecordStatus string

const (
	RecordLocal   RecordStatus = "local"
	RecordPending RecordStatus = "pending"
	RecordSynced  RecordStatus = "synced"
	RecordFailed  RecordStatus = "failed"
)

type GeoLocation struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
}

// DraftMeta is local-only bookkeeping from the intake form. It never leaves the device.
type DraftMeta struct {
	DraftKey string     `json:"draft_key,omitempty"`
	SavedAt  *time.Time `json:"saved_at,omitempty"`
	Source   string     `json:"source,omitempty"`
}

type ClientPayload struct {
	Name             string       `json:"name"`
	Phone            string       `json:"phone"`
	Address          string       `json:"address,omitempty"`
	ClientType       string       `json:"client_type,omitempty"`
	BuildingObjectID *int64       `json:"building_object_id,omitempty"`
	ApartmentNumber  string       `json:"apartment_number,omitempty"`
	Services         []string     `json:"services,omitempty"`
	UsedServices     []string     `json:"used_services,omitempty"`
	Priority         string       `json:"priority,omitempty"`
	Rating           *int         `json:"rating,omitempty"`
	DesiredPrice     *float64     `json:"desired_price,omitempty"`
	Notes            string       `json:"notes,omitempty"`
	Location         *GeoLocation `json:"location,omitempty"`
	Engineer         string       `json:"engineer,omitempty"`
	Draft            *DraftMeta   `json:"draft,omitempty"`
}

// ServerDetails holds the fields the intake API owns. They are filled in on reconciliation.
type ServerDetails struct {
	EngineerName          string     `json:"engineer_name,omitempty"`
	BuildingObjectName    string     `json:"building_object_name,omitempty"`
	BuildingObjectAddress string     `json:"building_object_address,omitempty"`
	City                  string     `json:"city,omitempty"`
	ContactPhone          string     `json:"contact_phone,omitempty"`
	ApartmentNumber       string     `json:"apartment_number,omitempty"`
	ProviderRating        *int       `json:"provider_rating,omitempty"`
	DesiredPrice          *float64   `json:"desired_price,omitempty"`
	Notes                 string     `json:"notes,omitempty"`
	CreatedAt             *time.Time `json:"created_at,omitempty"`
	UpdatedAt             *time.Time `json:"updated_at,omitempty"`
}

type ClientRecord struct {
	ID           string         `json:"id"`
	ServerID     *int64         `json:"server_id,omitempty"`
	Status       RecordStatus   `json:"status"`
	Payload      ClientPayload  `json:"payload"`
	Server       *ServerDetails `json:"server,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	LastModified time.Time      `json:"last_modified"`
	LastSynced   *time.Time     `json:"last_synced,omitempty"`
	SyncAttempts int            `json:"sync_attempts"`
}

package models

import (
	"encoding/json"
	"time"
)

type CachedResponse struct {
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

package utils

import (
	"strings"

	"github.com/google/uuid"
)

const LocalIDPrefix = "local_"

// NewLocalID returns an identifier for a record created on this device.
func NewLocalID() string {
	return LocalIDPrefix + uuid.NewString()
}

func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}

func NewIdempotencyKey() string {
	return uuid.NewString()
}

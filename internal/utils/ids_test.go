package utils

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewLocalID(t *testing.T) {
	a := NewLocalID()
	b := NewLocalID()

	assert.True(t, IsLocalID(a))
	assert.NotEqual(t, a, b)
	_, err := uuid.Parse(a[len(LocalIDPrefix):])
	assert.NoError(t, err)
}

func TestNewIdempotencyKey(t *testing.T) {
	_, err := uuid.Parse(NewIdempotencyKey())
	assert.NoError(t, err)
	assert.False(t, IsLocalID(NewIdempotencyKey()))
}

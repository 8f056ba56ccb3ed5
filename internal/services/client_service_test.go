package services

import (
	"context"
	"testing"

	"github.com/prudhvinik1/intakesync/internal/apperr"
	"github.com/prudhvinik1/intakesync/internal/models"
	"github.com/prudhvinik1/intakesync/internal/repositories"
	"github.com/prudhvinik1/intakesync/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePayload(t *testing.T) {
	rating := 6
	price := -1.0
	tests := []struct {
		name    string
		payload models.ClientPayload
		field   string
	}{
		{"missing name", models.ClientPayload{Phone: "1"}, "name"},
		{"blank phone", models.ClientPayload{Name: "A", Phone: "  "}, "phone"},
		{"long phone", models.ClientPayload{Name: "A", Phone: "123456789012345678901"}, "phone"},
		{"long apartment", models.ClientPayload{Name: "A", Phone: "1", ApartmentNumber: "12345678901"}, "apartment_number"},
		{"rating out of range", models.ClientPayload{Name: "A", Phone: "1", Rating: &rating}, "rating"},
		{"negative price", models.ClientPayload{Name: "A", Phone: "1", DesiredPrice: &price}, "desired_price"},
		{"bad latitude", models.ClientPayload{Name: "A", Phone: "1", Location: &models.GeoLocation{Latitude: 91}}, "location"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePayload(tt.payload)

			var verr *apperr.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	assert.NoError(t, ValidatePayload(models.ClientPayload{Name: "A", Phone: "+77001234567"}))
}

func TestClientService_SubmitWritesRecordAndQueueItem(t *testing.T) {
	// ARRANGE
	env := newTestEnv(t)
	ctx := context.Background()
	changed := 0
	env.bus.OnDataChanged(func() { changed++ })

	// ACT
	result, err := env.clients.Submit(ctx, models.ClientPayload{Name: "A", Phone: "111", Services: []string{"cctv"}})

	// ASSERT
	require.NoError(t, err)
	assert.True(t, utils.IsLocalID(result.Record.ID))
	assert.Equal(t, models.RecordLocal, result.Record.Status)
	assert.Equal(t, 1, changed)

	record := env.record(t, result.Record.ID)
	assert.Equal(t, []string{"cctv"}, record.Payload.Services)
	assert.Nil(t, record.ServerID)

	items := env.queueItems(t)
	require.Len(t, items, 1)
	assert.Equal(t, result.QueueItemID, items[0].ID)
	assert.Equal(t, result.Record.ID, items[0].RecordID)
	assert.Equal(t, models.QueueCreateClient, items[0].Type)
	assert.Equal(t, models.QueuePending, items[0].Status)
	assert.Zero(t, items[0].RetryCount)
	assert.NotEmpty(t, items[0].IdempotencyKey)
}

func TestClientService_InvalidSubmissionWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.clients.Submit(ctx, models.ClientPayload{Phone: "111"})

	assert.True(t, apperr.IsValidation(err))
	assert.Empty(t, env.queueItems(t))
	records, err := env.clients.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestClientService_SubmitRaisesPendingCount(t *testing.T) {
	env := newTestEnv(t)
	status := NewStatusService(env.queue, NewConnectivityMonitor(env.bus, true), env.reconciler)
	ctx := context.Background()
	env.submit(t, "A", "111")

	before, err := status.Status(ctx)
	require.NoError(t, err)
	env.submit(t, "B", "222")
	after, err := status.Status(ctx)
	require.NoError(t, err)

	assert.Equal(t, before.Pending+1, after.Pending)
	assert.Equal(t, before.Total+1, after.Total)
	assert.True(t, after.IsOnline)
	assert.False(t, after.SyncInProgress)
}

func TestClientService_ListByStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.submit(t, "A", "111")
	env.submit(t, "B", "222")
	_, err := env.reconciler.Run(ctx, TriggerManual)
	require.NoError(t, err)
	env.submit(t, "C", "333")

	synced, err := env.clients.List(ctx, models.RecordSynced)
	require.NoError(t, err)
	local, err := env.clients.List(ctx, models.RecordLocal)
	require.NoError(t, err)
	all, err := env.clients.List(ctx, "")
	require.NoError(t, err)

	assert.Len(t, synced, 2)
	require.Len(t, local, 1)
	assert.Equal(t, "C", local[0].Payload.Name)
	assert.Len(t, all, 3)
}

func TestClientService_GetUnknown(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.clients.Get(context.Background(), "local_nope")

	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

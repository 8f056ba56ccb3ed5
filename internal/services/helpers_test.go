package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prudhvinik1/intakesync/internal/events"
	"github.com/prudhvinik1/intakesync/internal/models"
	"github.com/prudhvinik1/intakesync/internal/remote"
	"github.com/prudhvinik1/intakesync/internal/repositories"
	"github.com/stretchr/testify/require"
)

type apiCall struct {
	Body           remote.CreateClientRequest
	IdempotencyKey string
	Token          string
}

// fakeClientAPI records every call and answers with respond.
type fakeClientAPI struct {
	mu      sync.Mutex
	calls   []apiCall
	respond func(n int, call apiCall) (*remote.CreateClientResponse, error)
}

func (f *fakeClientAPI) CreateClient(_ context.Context, token string, body remote.CreateClientRequest, key string) (*remote.CreateClientResponse, error) {
	call := apiCall{Body: body, IdempotencyKey: key, Token: token}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	n := len(f.calls)
	f.mu.Unlock()

	if f.respond == nil {
		return &remote.CreateClientResponse{ID: int64(n)}, nil
	}
	return f.respond(n, call)
}

func (f *fakeClientAPI) Calls() []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]apiCall(nil), f.calls...)
}

type fakeTokens struct {
	mu           sync.Mutex
	token        string
	authFailures int
	refreshErr   error
}

func (f *fakeTokens) AccessToken(context.Context) (string, error) {
	return f.token, nil
}

func (f *fakeTokens) HandleAuthFailure(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authFailures++
	return f.refreshErr
}

func (f *fakeTokens) AuthFailures() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authFailures
}

type testEnv struct {
	path       string
	stores     *repositories.LazyStore
	bus        *events.Bus
	queue      *QueueManager
	clients    *ClientService
	reconciler *Reconciler
	api        *fakeClientAPI
	tokens     *fakeTokens
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvAt(t, filepath.Join(t.TempDir(), "intake.db"), &fakeClientAPI{})
}

func newTestEnvAt(t *testing.T, path string, api *fakeClientAPI) *testEnv {
	t.Helper()
	stores := repositories.NewLazyStore(func(ctx context.Context) (repositories.Store, error) {
		store, err := repositories.OpenSQLiteStore(ctx, path)
		if err != nil {
			return nil, err
		}
		return store, nil
	})
	t.Cleanup(func() { stores.Close() })

	bus := events.NewBus()
	queue := NewQueueManager(stores, bus)
	tokens := &fakeTokens{token: "access-1"}
	return &testEnv{
		path:       path,
		stores:     stores,
		bus:        bus,
		queue:      queue,
		clients:    NewClientService(stores, queue, bus),
		reconciler: NewReconciler(stores, queue, api, tokens, bus, DefaultMaxRetries),
		api:        api,
		tokens:     tokens,
	}
}

func (e *testEnv) submit(t *testing.T, name, phone string) *SubmitResult {
	t.Helper()
	result, err := e.clients.Submit(context.Background(), models.ClientPayload{Name: name, Phone: phone})
	require.NoError(t, err)
	return result
}

func (e *testEnv) record(t *testing.T, id string) *models.ClientRecord {
	t.Helper()
	record, err := e.clients.Get(context.Background(), id)
	require.NoError(t, err)
	return record
}

func (e *testEnv) queueItems(t *testing.T) []*models.SyncQueueItem {
	t.Helper()
	items, err := e.queue.List(context.Background(), nil)
	require.NoError(t, err)
	return items
}

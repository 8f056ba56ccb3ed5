package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prudhvinik1/intakesync/internal/apperr"
	"github.com/prudhvinik1/intakesync/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRefreshAPI struct {
	mu      sync.Mutex
	calls   []string
	access  string
	refresh string
	err     error
}

func (f *fakeRefreshAPI) RefreshToken(_ context.Context, refreshToken string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, refreshToken)
	return f.access, f.refresh, f.err
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()})
	s, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestSessionService_SetTokensReadsExpiry(t *testing.T) {
	env := newTestEnv(t)
	svc := NewSessionService(env.stores, &fakeRefreshAPI{}, env.bus)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	_, err := svc.SetTokens(ctx, signedToken(t, exp), "refresh-1")
	require.NoError(t, err)

	session, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.True(t, exp.Equal(session.ExpiresAt))
	assert.Equal(t, "refresh-1", session.RefreshToken)
}

func TestSessionService_OpaqueTokenHasNoExpiry(t *testing.T) {
	env := newTestEnv(t)
	svc := NewSessionService(env.stores, &fakeRefreshAPI{}, env.bus)

	session, err := svc.SetTokens(context.Background(), "opaque", "")

	require.NoError(t, err)
	assert.True(t, session.ExpiresAt.IsZero())
}

func TestSessionService_NoSession(t *testing.T) {
	env := newTestEnv(t)
	svc := NewSessionService(env.stores, &fakeRefreshAPI{}, env.bus)
	ctx := context.Background()

	_, err := svc.AccessToken(ctx)
	assert.ErrorIs(t, err, apperr.ErrNoSession)

	_, err = svc.SetTokens(ctx, "access-1", "refresh-1")
	require.NoError(t, err)
	require.NoError(t, svc.Clear(ctx))

	_, err = svc.AccessToken(ctx)
	assert.ErrorIs(t, err, apperr.ErrNoSession)
}

func TestSessionService_RefreshKeepsRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	api := &fakeRefreshAPI{access: "access-2"}
	svc := NewSessionService(env.stores, api, env.bus)
	ctx := context.Background()
	_, err := svc.SetTokens(ctx, "access-1", "refresh-1")
	require.NoError(t, err)

	require.NoError(t, svc.HandleAuthFailure(ctx))

	session, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-2", session.AccessToken)
	assert.Equal(t, "refresh-1", session.RefreshToken)
	assert.Equal(t, []string{"refresh-1"}, api.calls)
}

func TestSessionService_RefreshFailureExpiresSession(t *testing.T) {
	env := newTestEnv(t)
	api := &fakeRefreshAPI{err: &apperr.AuthError{Message: "Token is blacklisted"}}
	svc := NewSessionService(env.stores, api, env.bus)
	ctx := context.Background()
	expired := 0
	env.bus.OnSessionExpired(func() { expired++ })
	_, err := svc.SetTokens(ctx, "access-1", "refresh-1")
	require.NoError(t, err)

	err = svc.HandleAuthFailure(ctx)

	assert.True(t, apperr.IsAuth(err))
	assert.Equal(t, 1, expired)
	_, err = svc.Current(ctx)
	assert.ErrorIs(t, err, apperr.ErrNoSession)
}

func TestSessionService_DrivesReconcilerRefresh(t *testing.T) {
	// ARRANGE
	env := newTestEnv(t)
	api := &fakeRefreshAPI{access: "access-2"}
	svc := NewSessionService(env.stores, api, env.bus)
	ctx := context.Background()
	_, err := svc.SetTokens(ctx, "access-1", "refresh-1")
	require.NoError(t, err)
	env.api.respond = func(_ int, call apiCall) (*remote.CreateClientResponse, error) {
		if call.Token != "access-2" {
			return nil, &apperr.AuthError{Message: "token expired"}
		}
		return &remote.CreateClientResponse{ID: 5}, nil
	}
	reconciler := NewReconciler(env.stores, env.queue, env.api, svc, env.bus, DefaultMaxRetries)
	result := env.submit(t, "A", "111")

	// ACT
	_, err = reconciler.Run(ctx, TriggerManual)
	require.NoError(t, err)
	_, err = reconciler.Run(ctx, TriggerManual)
	require.NoError(t, err)

	// ASSERT
	assert.Len(t, env.api.Calls(), 2)
	assert.Equal(t, int64(5), *env.record(t, result.Record.ID).ServerID)
}

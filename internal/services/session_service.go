package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prudhvinik1/intakesync/internal/apperr"
	"github.com/prudhvinik1/intakesync/internal/events"
	"github.com/prudhvinik1/intakesync/internal/logger"
	"github.com/prudhvinik1/intakesync/internal/models"
	"github.com/prudhvinik1/intakesync/internal/repositories"
	"go.uber.org/zap"
)

const sessionCacheKey = "session"

// SessionService keeps the API tokens in the local cache so queued work can
// be replayed after a restart. It is the reconciler's TokenSource.
type SessionService struct {
	stores repositories.Provider
	api    RefreshAPI
	bus    *events.Bus
	now    func() time.Time
	log    *zap.SugaredLogger

	// refreshMu serializes refreshes so concurrent 401s share one round trip.
	refreshMu sync.Mutex
}

func NewSessionService(stores repositories.Provider, api RefreshAPI, bus *events.Bus) *SessionService {
	return &SessionService{
		stores: stores,
		api:    api,
		bus:    bus,
		now:    time.Now,
		log:    logger.For("session"),
	}
}

// SetTokens stores a new token pair. An empty refresh token keeps the one
// already stored.
func (s *SessionService) SetTokens(ctx context.Context, access, refresh string) (*models.Session, error) {
	if access == "" {
		return nil, &apperr.ValidationError{Field: "access_token", Message: "is required"}
	}
	if refresh == "" {
		if current, err := s.Current(ctx); err == nil {
			refresh = current.RefreshToken
		}
	}
	session := &models.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    tokenExpiry(access),
		UpdatedAt:    s.now(),
	}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Current returns the stored session or ErrNoSession.
func (s *SessionService) Current(ctx context.Context) (*models.Session, error) {
	store, err := s.stores.Get(ctx)
	if err != nil {
		return nil, apperr.Storage("load session", err)
	}
	entry, err := store.Cache().Get(ctx, sessionCacheKey)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.ErrNoSession
	}
	if err != nil {
		return nil, apperr.Storage("load session", err)
	}
	var session models.Session
	if err := json.Unmarshal(entry.Data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if session.AccessToken == "" {
		return nil, apperr.ErrNoSession
	}
	return &session, nil
}

func (s *SessionService) AccessToken(ctx context.Context) (string, error) {
	session, err := s.Current(ctx)
	if err != nil {
		return "", err
	}
	return session.AccessToken, nil
}

// Clear drops the session. Queued work stays and goes out after the next login.
func (s *SessionService) Clear(ctx context.Context) error {
	store, err := s.stores.Get(ctx)
	if err != nil {
		return apperr.Storage("clear session", err)
	}
	err = store.Cache().Delete(ctx, sessionCacheKey)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return apperr.Storage("clear session", err)
	}
	return nil
}

// HandleAuthFailure is called after the API rejected the access token. It
// tries one refresh; when that fails the session is dropped and
// sessionExpired is published.
func (s *SessionService) HandleAuthFailure(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	session, err := s.Current(ctx)
	if err != nil {
		return err
	}
	if session.RefreshToken == "" {
		s.expire(ctx, "no refresh token")
		return apperr.ErrNoSession
	}

	access, refresh, err := s.api.RefreshToken(ctx, session.RefreshToken)
	if err != nil {
		s.expire(ctx, err.Error())
		return &apperr.AuthError{Message: "session expired", Err: err}
	}
	if refresh == "" {
		refresh = session.RefreshToken
	}
	if _, err := s.SetTokens(ctx, access, refresh); err != nil {
		return err
	}
	s.log.Info("Access token refreshed")
	return nil
}

func (s *SessionService) expire(ctx context.Context, reason string) {
	if err := s.Clear(ctx); err != nil {
		s.log.Errorw("Failed to clear session", "error", err)
	}
	s.log.Warnw("Session expired", "reason", reason)
	s.bus.PublishSessionExpired()
}

func (s *SessionService) save(ctx context.Context, session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	store, err := s.stores.Get(ctx)
	if err != nil {
		return apperr.Storage("save session", err)
	}
	entry := &models.CachedResponse{Key: sessionCacheKey, Data: data, Timestamp: s.now()}
	if err := store.Cache().Put(ctx, entry); err != nil {
		return apperr.Storage("save session", err)
	}
	return nil
}

// tokenExpiry reads exp from a JWT without verifying it; the API is the
// only party that can. Opaque tokens yield the zero time.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

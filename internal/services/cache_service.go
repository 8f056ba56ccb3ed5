package services

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"time"

	"github.com/prudhvinik1/intakesync/internal/apperr"
	"github.com/prudhvinik1/intakesync/internal/models"
	"github.com/prudhvinik1/intakesync/internal/repositories"
)

const lookupKeyPrefix = "lookup:"

var lookupName = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// CacheService keeps API responses for offline reads.
type CacheService struct {
	stores repositories.Provider
	api    LookupAPI
	tokens TokenSource
	maxAge time.Duration
	now    func() time.Time
}

type LookupResult struct {
	Data      json.RawMessage `json:"data"`
	FetchedAt time.Time       `json:"fetched_at"`
	Stale     bool            `json:"stale"`
}

func NewCacheService(stores repositories.Provider, api LookupAPI, tokens TokenSource, maxAge time.Duration) *CacheService {
	return &CacheService{stores: stores, api: api, tokens: tokens, maxAge: maxAge, now: time.Now}
}

func (s *CacheService) Put(ctx context.Context, key string, data json.RawMessage) error {
	store, err := s.stores.Get(ctx)
	if err != nil {
		return apperr.Storage("cache put", err)
	}
	entry := &models.CachedResponse{Key: key, Data: data, Timestamp: s.now()}
	if err := store.Cache().Put(ctx, entry); err != nil {
		return apperr.Storage("cache put", err)
	}
	return nil
}

func (s *CacheService) Get(ctx context.Context, key string) (*models.CachedResponse, error) {
	store, err := s.stores.Get(ctx)
	if err != nil {
		return nil, apperr.Storage("cache get", err)
	}
	entry, err := store.Cache().Get(ctx, key)
	if err != nil {
		return nil, storageOrNotFound("cache get", err)
	}
	return entry, nil
}

// Lookup serves reference data such as cities or services. Online, it
// fetches and refreshes the cache, falling back to the cached copy when the
// fetch fails. Offline, it serves the cached copy. Stale marks a copy older
// than maxAge or one served because the fetch failed.
func (s *CacheService) Lookup(ctx context.Context, name string, online bool) (*LookupResult, error) {
	if !lookupName.MatchString(name) {
		return nil, &apperr.ValidationError{Field: "name", Message: "is not a valid lookup name"}
	}
	key := lookupKeyPrefix + name

	var fetchErr error
	if online {
		data, err := s.fetch(ctx, name)
		if err == nil {
			if err := s.Put(ctx, key, data); err != nil {
				return nil, err
			}
			return &LookupResult{Data: data, FetchedAt: s.now()}, nil
		}
		fetchErr = err
	}

	entry, err := s.Get(ctx, key)
	if errors.Is(err, repositories.ErrNotFound) {
		if fetchErr != nil {
			return nil, fetchErr
		}
		return nil, apperr.ErrOffline
	}
	if err != nil {
		return nil, err
	}
	stale := fetchErr != nil || s.now().Sub(entry.Timestamp) > s.maxAge
	return &LookupResult{Data: entry.Data, FetchedAt: entry.Timestamp, Stale: stale}, nil
}

func (s *CacheService) fetch(ctx context.Context, name string) (json.RawMessage, error) {
	token, err := s.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	return s.api.FetchLookup(ctx, token, name)
}

package repositories

import (
	"context"
	"fmt"
	"sync"
)

type OpenFunc func(ctx context.Context) (Store, error)

// LazyStore opens the store on first use. Concurrent first calls share a
// single open; a failed open is retried by the next call.
type LazyStore struct {
	mu    sync.Mutex
	open  OpenFunc
	store Store
}

func NewLazyStore(open OpenFunc) *LazyStore {
	return &LazyStore{open: open}
}

func (l *LazyStore) Get(ctx context.Context) (Store, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.store != nil {
		return l.store, nil
	}
	store, err := l.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	l.store = store
	return store, nil
}

func (l *LazyStore) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.store == nil {
		return nil
	}
	err := l.store.Close()
	l.store = nil
	return err
}

type fixedProvider struct {
	store Store
}

// Fixed wraps an already open store.
func Fixed(store Store) Provider {
	return fixedProvider{store: store}
}

func (p fixedProvider) Get(context.Context) (Store, error) {
	return p.store, nil
}

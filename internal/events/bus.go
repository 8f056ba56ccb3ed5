package events

import (
	"sync"
	"time"

	"github.com/prudhvinik1/intakesync/internal/logger"
	"github.com/prudhvinik1/intakesync/internal/models"
)

type Listener func(models.SyncEvent)

type subscription struct {
	id   uint64
	kind models.EventKind // empty matches every kind
	fn   Listener
}

// Bus is a process-wide fire-and-forget publisher. Publish calls each
// listener registered at dispatch time, in subscription order, on the
// publishing goroutine. A panicking listener is logged and skipped.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription
	now    func() time.Time
}

func NewBus() *Bus {
	return &Bus{now: time.Now}
}

func (b *Bus) Subscribe(kind models.EventKind, fn Listener) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, kind: kind, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) SubscribeAll(fn Listener) (unsubscribe func()) {
	return b.Subscribe("", fn)
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

func (b *Bus) Publish(event models.SyncEvent) {
	if event.At.IsZero() {
		event.At = b.now()
	}

	b.mu.RLock()
	snapshot := make([]subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.kind == "" || s.kind == event.Kind {
			snapshot = append(snapshot, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range snapshot {
		deliver(s.fn, event)
	}
}

func deliver(fn Listener, event models.SyncEvent) {
	defer func() {
		if r := recover(); r != nil {
			logger.For("events").Errorw("Listener panicked", "kind", event.Kind, "panic", r)
		}
	}()
	fn(event)
}

func (b *Bus) PublishDataChanged() {
	b.Publish(models.SyncEvent{Kind: models.EventDataChanged})
}

func (b *Bus) PublishNetworkStatus(online bool) {
	b.Publish(models.SyncEvent{Kind: models.EventNetworkStatus, Online: &online})
}

func (b *Bus) PublishSessionExpired() {
	b.Publish(models.SyncEvent{Kind: models.EventSessionExpired})
}

func (b *Bus) OnDataChanged(cb func()) (unsubscribe func()) {
	return b.Subscribe(models.EventDataChanged, func(models.SyncEvent) { cb() })
}

func (b *Bus) OnNetworkStatusChanged(cb func(online bool)) (unsubscribe func()) {
	return b.Subscribe(models.EventNetworkStatus, func(e models.SyncEvent) {
		cb(e.Online != nil && *e.Online)
	})
}

func (b *Bus) OnSessionExpired(cb func()) (unsubscribe func()) {
	return b.Subscribe(models.EventSessionExpired, func(models.SyncEvent) { cb() })
}

package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prudhvinik1/intakesync/internal/apperr"
	"github.com/prudhvinik1/intakesync/internal/events"
	"github.com/prudhvinik1/intakesync/internal/logger"
	"github.com/prudhvinik1/intakesync/internal/metrics"
	"github.com/prudhvinik1/intakesync/internal/models"
	"go.uber.org/zap"
)

const (
	SourcePlatform = "platform"
	SourceProbe    = "probe"
	SourceStartup  = "startup"
)

// ConnectivityMonitor tracks whether the intake API is reachable and
// publishes networkStatusChanged on every transition.
type ConnectivityMonitor struct {
	mu       sync.RWMutex
	presence models.Presence

	bus *events.Bus
	now func() time.Time
	log *zap.SugaredLogger

	pinger        Pinger
	probePath     string
	probeInterval time.Duration
	probeTimeout  time.Duration

	stopCh    chan struct{}
	wg        sync.WaitGroup
	isRunning bool
}

func NewConnectivityMonitor(bus *events.Bus, initiallyOnline bool) *ConnectivityMonitor {
	m := &ConnectivityMonitor{
		bus:          bus,
		now:          time.Now,
		log:          logger.For("connectivity"),
		probeTimeout: 5 * time.Second,
	}
	m.presence = models.Presence{Status: statusOf(initiallyOnline), Since: m.now(), Source: SourceStartup}
	metrics.SetOnline(initiallyOnline)
	return m
}

// WithProbe enables active probing of path every interval once Start runs.
func (m *ConnectivityMonitor) WithProbe(p Pinger, path string, interval time.Duration) *ConnectivityMonitor {
	m.pinger = p
	m.probePath = path
	m.probeInterval = interval
	return m
}

func (m *ConnectivityMonitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.presence.Status == models.StatusOnline
}

func (m *ConnectivityMonitor) Presence() models.Presence {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.presence
}

// SetOnline records a connectivity signal. Repeating the current state is
// a no-op; a change is published after the lock is released.
func (m *ConnectivityMonitor) SetOnline(online bool, source string) bool {
	m.mu.Lock()
	if m.presence.Status == statusOf(online) {
		m.mu.Unlock()
		return false
	}
	m.presence = models.Presence{Status: statusOf(online), Since: m.now(), Source: source}
	m.mu.Unlock()

	metrics.SetOnline(online)
	m.log.Infow("Connectivity changed", "online", online, "source", source)
	m.bus.PublishNetworkStatus(online)
	return true
}

func (m *ConnectivityMonitor) Start(ctx context.Context) {
	if m.pinger == nil || m.probeInterval <= 0 {
		return
	}
	m.mu.Lock()
	if m.isRunning {
		m.mu.Unlock()
		return
	}
	m.isRunning = true
	m.stopCh = make(chan struct{})
	m.mu.Unlock()

	m.wg.Add(1)
	go m.probeLoop(ctx)
}

func (m *ConnectivityMonitor) Stop() {
	m.mu.Lock()
	if !m.isRunning {
		m.mu.Unlock()
		return
	}
	m.isRunning = false
	close(m.stopCh)
	m.mu.Unlock()

	m.wg.Wait()
}

func (m *ConnectivityMonitor) probeLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.probeInterval)
	defer ticker.Stop()

	m.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.Probe(ctx)
		}
	}
}

// Probe checks the API once. Any HTTP response counts as reachable; only a
// transport failure marks the device offline.
func (m *ConnectivityMonitor) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()

	err := m.pinger.Ping(ctx, m.probePath)
	online := err == nil
	var netErr *apperr.NetworkError
	if errors.As(err, &netErr) && netErr.StatusCode != 0 {
		online = true
	}
	if apperr.IsAuth(err) {
		online = true
	}
	m.SetOnline(online, SourceProbe)
	return online
}

func statusOf(online bool) models.PresenceStatus {
	if online {
		return models.StatusOnline
	}
	return models.StatusOffline
}

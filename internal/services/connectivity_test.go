package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prudhvinik1/intakesync/internal/apperr"
	"github.com/prudhvinik1/intakesync/internal/events"
	"github.com/prudhvinik1/intakesync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	mu  sync.Mutex
	err error
}

func (p *fakePinger) Ping(context.Context, string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *fakePinger) set(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func TestConnectivityMonitor_PublishesTransitionsOnly(t *testing.T) {
	bus := events.NewBus()
	m := NewConnectivityMonitor(bus, false)
	var seen []bool
	bus.OnNetworkStatusChanged(func(online bool) { seen = append(seen, online) })

	assert.True(t, m.SetOnline(true, SourcePlatform))
	assert.False(t, m.SetOnline(true, SourcePlatform))
	assert.True(t, m.SetOnline(false, SourcePlatform))

	assert.Equal(t, []bool{true, false}, seen)
	assert.False(t, m.IsOnline())
	assert.Equal(t, models.StatusOffline, m.Presence().Status)
	assert.Equal(t, SourcePlatform, m.Presence().Source)
}

func TestConnectivityMonitor_Probe(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		online bool
	}{
		{"reachable", nil, true},
		{"server error still reachable", &apperr.NetworkError{StatusCode: 503, Message: "HTTP 503"}, true},
		{"unauthorized still reachable", &apperr.AuthError{Message: "no"}, true},
		{"transport failure", &apperr.NetworkError{Err: errors.New("dial tcp: refused")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewConnectivityMonitor(events.NewBus(), !tt.online)
			m.WithProbe(&fakePinger{err: tt.err}, "/health/", time.Minute)

			assert.Equal(t, tt.online, m.Probe(context.Background()))
			assert.Equal(t, tt.online, m.IsOnline())
		})
	}
}

func TestConnectivityMonitor_ProbeLoop(t *testing.T) {
	pinger := &fakePinger{err: &apperr.NetworkError{Err: errors.New("offline")}}
	m := NewConnectivityMonitor(events.NewBus(), true).WithProbe(pinger, "/health/", 10*time.Millisecond)

	m.Start(context.Background())
	defer m.Stop()

	require.Eventually(t, func() bool { return !m.IsOnline() }, time.Second, 5*time.Millisecond)
	pinger.set(nil)
	require.Eventually(t, m.IsOnline, time.Second, 5*time.Millisecond)
}

package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prudhvinik1/intakesync/internal/apperr"
	"github.com/prudhvinik1/intakesync/internal/events"
	"github.com/prudhvinik1/intakesync/internal/logger"
	"github.com/prudhvinik1/intakesync/internal/models"
	"go.uber.org/zap"
)

const (
	TriggerOnline     = "online"
	TriggerPeriodic   = "periodic"
	TriggerVisibility = "visibility"
	TriggerManual     = "manual"
)

type SchedulerConfig struct {
	SettleWindow    time.Duration // delay after going online before syncing
	Interval        time.Duration // periodic sync while pending items exist
	VisibilityDelay time.Duration // delay after the view becomes visible again
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		SettleWindow:    2 * time.Second,
		Interval:        2 * time.Minute,
		VisibilityDelay: time.Second,
	}
}

// Scheduler decides when the reconciler runs: after the link settles, on a
// timer, when the view regains visibility, and on demand.
type Scheduler struct {
	reconciler   *Reconciler
	connectivity *ConnectivityMonitor
	bus          *events.Bus
	cfg          SchedulerConfig
	log          *zap.SugaredLogger

	mu              sync.Mutex
	ctx             context.Context
	settleTimer     *time.Timer
	visibilityTimer *time.Timer
	unsubscribe     func()
	stopCh          chan struct{}
	wg              sync.WaitGroup
	isRunning       bool
}

func NewScheduler(reconciler *Reconciler, connectivity *ConnectivityMonitor, bus *events.Bus, cfg SchedulerConfig) *Scheduler {
	return &Scheduler{
		reconciler:   reconciler,
		connectivity: connectivity,
		bus:          bus,
		cfg:          cfg,
		log:          logger.For("scheduler"),
		ctx:          context.Background(),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ctx = ctx
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	s.unsubscribe = s.bus.OnNetworkStatusChanged(s.onNetworkStatus)

	s.wg.Add(1)
	go s.periodicLoop(ctx)

	s.log.Infow("Sync scheduler started",
		"settle_window", s.cfg.SettleWindow,
		"interval", s.cfg.Interval,
		"visibility_delay", s.cfg.VisibilityDelay)
}

// Stop cancels pending timers and waits for any cycle they started.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopCh)
	stopTimer(s.settleTimer)
	stopTimer(s.visibilityTimer)
	s.mu.Unlock()

	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.wg.Wait()
	s.log.Info("Sync scheduler stopped")
}

func (s *Scheduler) onNetworkStatus(online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stopTimer(s.settleTimer)
	s.settleTimer = nil
	if !online || !s.isRunning {
		return
	}
	s.settleTimer = time.AfterFunc(s.cfg.SettleWindow, func() {
		s.fire(TriggerOnline, false)
	})
}

// OnVisibilityRegained schedules a cycle shortly after the view is shown
// again, provided the device is online and work is waiting.
func (s *Scheduler) OnVisibilityRegained() {
	if !s.connectivity.IsOnline() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return
	}
	stopTimer(s.visibilityTimer)
	s.visibilityTimer = time.AfterFunc(s.cfg.VisibilityDelay, func() {
		s.fire(TriggerVisibility, true)
	})
}

// TriggerSync runs a cycle now. It fails with ErrOffline when offline and
// ErrSyncInProgress when a cycle is already running.
func (s *Scheduler) TriggerSync(ctx context.Context) (models.SyncSummary, error) {
	if !s.connectivity.IsOnline() {
		return models.SyncSummary{}, apperr.ErrOffline
	}
	return s.reconciler.Run(ctx, TriggerManual)
}

func (s *Scheduler) periodicLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.runCycle(ctx, TriggerPeriodic, true)
		}
	}
}

// fire runs a timer-started cycle, registered with the WaitGroup so Stop
// waits for it.
func (s *Scheduler) fire(trigger string, requirePending bool) {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	ctx := s.ctx
	s.mu.Unlock()
	defer s.wg.Done()

	s.runCycle(ctx, trigger, requirePending)
}

func (s *Scheduler) runCycle(ctx context.Context, trigger string, requirePending bool) {
	if !s.connectivity.IsOnline() {
		return
	}
	if requirePending {
		has, err := s.reconciler.HasEligible(ctx)
		if err != nil {
			s.log.Errorw("Failed to check queue", "trigger", trigger, "error", err)
			return
		}
		if !has {
			return
		}
	}

	_, err := s.reconciler.Run(ctx, trigger)
	if errors.Is(err, apperr.ErrSyncInProgress) {
		s.log.Debugw("Sync already in progress, skipping", "trigger", trigger)
		return
	}
	if err != nil {
		s.log.Errorw("Reconciliation failed", "trigger", trigger, "error", err)
	}
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

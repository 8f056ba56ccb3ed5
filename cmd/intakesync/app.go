package main

import (
	"context"
	"fmt"

	"github.com/prudhvinik1/intakesync/internal/config"
	"github.com/prudhvinik1/intakesync/internal/database"
	"github.com/prudhvinik1/intakesync/internal/events"
	"github.com/prudhvinik1/intakesync/internal/handlers"
	"github.com/prudhvinik1/intakesync/internal/logger"
	"github.com/prudhvinik1/intakesync/internal/remote"
	"github.com/prudhvinik1/intakesync/internal/repositories"
	"github.com/prudhvinik1/intakesync/internal/services"
	"github.com/redis/go-redis/v9"
)

// app wires the sync core. Every command builds one and closes it on exit.
type app struct {
	stores *repositories.LazyStore
	redis  *redis.Client
	bus    *events.Bus
	api    *remote.Client

	clients      *services.ClientService
	queue        *services.QueueManager
	sessions     *services.SessionService
	connectivity *services.ConnectivityMonitor
	reconciler   *services.Reconciler
	scheduler    *services.Scheduler
	status       *services.StatusService
	cache        *services.CacheService
	maintenance  *services.MaintenanceService
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{
		bus: events.NewBus(),
		api: remote.NewClient(cfg.APIBaseURL, cfg.RemoteTimeout),
	}

	opts := []repositories.StoreOption{repositories.WithMemo(cfg.MemoTTL)}
	if cfg.RedisURL != "" {
		client, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis client: %w", err)
		}
		a.redis = client
		opts = append(opts, repositories.WithCacheRepository(repositories.NewRedisCacheRepository(client, cfg.CacheTTL)))
	}
	a.stores = repositories.NewLazyStore(storeOpener(cfg, opts))

	a.queue = services.NewQueueManager(a.stores, a.bus)
	a.clients = services.NewClientService(a.stores, a.queue, a.bus)
	a.sessions = services.NewSessionService(a.stores, a.api, a.bus)
	a.connectivity = services.NewConnectivityMonitor(a.bus, cfg.InitialOnline).
		WithProbe(a.api, cfg.ProbePath, cfg.ProbeInterval)
	a.reconciler = services.NewReconciler(a.stores, a.queue, a.api, a.sessions, a.bus, cfg.MaxRetries)
	a.scheduler = services.NewScheduler(a.reconciler, a.connectivity, a.bus, services.SchedulerConfig{
		SettleWindow:    cfg.SettleWindow,
		Interval:        cfg.SyncInterval,
		VisibilityDelay: cfg.VisibilityDelay,
	})
	a.status = services.NewStatusService(a.queue, a.connectivity, a.reconciler)
	a.cache = services.NewCacheService(a.stores, a.api, a.sessions, cfg.CacheTTL)
	a.maintenance = services.NewMaintenanceService(a.clients, a.queue, a.cache, cfg.RetentionPeriod)
	return a, nil
}

func storeOpener(cfg *config.Config, opts []repositories.StoreOption) repositories.OpenFunc {
	log := logger.For("store")
	return func(ctx context.Context) (repositories.Store, error) {
		if cfg.StoreDriver == config.DriverPostgres {
			store, err := repositories.OpenPostgresStore(ctx, cfg.DatabaseURL, opts...)
			if err != nil {
				return nil, err
			}
			log.Infow("Store opened", "driver", cfg.StoreDriver)
			return store, nil
		}
		store, err := repositories.OpenSQLiteStore(ctx, cfg.SQLitePath, opts...)
		if err != nil {
			return nil, err
		}
		log.Infow("Store opened", "driver", cfg.StoreDriver, "path", cfg.SQLitePath)
		return store, nil
	}
}

func (a *app) handlerServices() handlers.Services {
	return handlers.Services{
		Clients:      a.clients,
		Queue:        a.queue,
		Scheduler:    a.scheduler,
		Status:       a.status,
		Connectivity: a.connectivity,
		Sessions:     a.sessions,
		Cache:        a.cache,
		Maintenance:  a.maintenance,
	}
}

func (a *app) Close() error {
	err := a.stores.Close()
	if a.redis != nil {
		if rerr := a.redis.Close(); err == nil {
			err = rerr
		}
	}
	return err
}

// withApp builds the app for a one-shot command.
func withApp(ctx context.Context, fn func(a *app) error) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

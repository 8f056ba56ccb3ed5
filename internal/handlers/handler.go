package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prudhvinik1/intakesync/internal/logger"
	"github.com/prudhvinik1/intakesync/internal/services"
	"go.uber.org/zap"
)

// Services is everything the local HTTP surface calls into.
type Services struct {
	Clients      *services.ClientService
	Queue        *services.QueueManager
	Scheduler    *services.Scheduler
	Status       *services.StatusService
	Connectivity *services.ConnectivityMonitor
	Sessions     *services.SessionService
	Cache        *services.CacheService
	Maintenance  *services.MaintenanceService
}

type Handler struct {
	Services
	hub *Hub
	log *zap.SugaredLogger
}

func New(svc Services, hub *Hub) *Handler {
	return &Handler{Services: svc, hub: hub, log: logger.For("http")}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.log))

	r.Get("/health", h.health)
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/events", h.hub)

	r.Route("/clients", func(r chi.Router) {
		r.Post("/", h.submitClient)
		r.Get("/", h.listClients)
		r.Get("/{id}", h.getClient)
	})

	r.Route("/sync", func(r chi.Router) {
		r.Post("/", h.triggerSync)
		r.Get("/status", h.syncStatus)
		r.Get("/queue", h.listQueue)
		r.Post("/queue/{id}/retry", h.retryQueueItem)
		r.Delete("/queue/{id}", h.abandonQueueItem)
	})

	r.Put("/connectivity", h.setConnectivity)
	r.Post("/visibility", h.visibilityRegained)

	r.Put("/session", h.setSession)
	r.Delete("/session", h.clearSession)

	r.Get("/lookups/{name}", h.lookup)

	r.Post("/maintenance/import", h.importLegacy)
	r.Post("/maintenance/cleanup", h.cleanup)

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"online":   h.Connectivity.IsOnline(),
		"watchers": h.hub.ClientCount(),
	})
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/prudhvinik1/intakesync/internal/events"
	"github.com/prudhvinik1/intakesync/internal/logger"
	"github.com/prudhvinik1/intakesync/internal/models"
	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

// Hub relays bus events to connected WebSocket clients so views can refresh
// when local data or connectivity changes.
type Hub struct {
	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	broadcast   chan models.SyncEvent
	unsubscribe func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	log *zap.SugaredLogger
}

func NewHub(bus *events.Bus) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan models.SyncEvent, 100),
		ctx:       ctx,
		cancel:    cancel,
		log:       logger.For("hub"),
	}
	h.unsubscribe = bus.SubscribeAll(h.Broadcast)
	return h
}

func (h *Hub) Start() {
	h.wg.Add(1)
	go h.broadcastLoop()
}

func (h *Hub) Stop() {
	h.unsubscribe()
	h.cancel()

	h.clientsMu.Lock()
	for conn := range h.clients {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(h.clients, conn)
	}
	h.clientsMu.Unlock()

	h.wg.Wait()
}

// Broadcast queues event for delivery. It never blocks the publisher; when
// the buffer is full the event is dropped.
func (h *Hub) Broadcast(event models.SyncEvent) {
	select {
	case h.broadcast <- event:
	case <-h.ctx.Done():
	default:
		h.log.Warnw("Broadcast buffer full, dropping event", "kind", event.Kind)
	}
}

func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcastLoop() {
	defer h.wg.Done()

	for {
		select {
		case <-h.ctx.Done():
			return
		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				h.log.Errorw("Failed to marshal event", "error", err)
				continue
			}

			h.clientsMu.RLock()
			conns := make([]*websocket.Conn, 0, len(h.clients))
			for conn := range h.clients {
				conns = append(conns, conn)
			}
			h.clientsMu.RUnlock()

			for _, conn := range conns {
				ctx, cancel := context.WithTimeout(h.ctx, writeTimeout)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()
				if err != nil {
					h.log.Debugw("Failed to send event", "error", err)
					h.removeClient(conn)
				}
			}
		}
	}
}

// ServeHTTP upgrades the request and holds it until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warnw("WebSocket upgrade failed", "error", err)
		return
	}

	h.clientsMu.Lock()
	h.clients[conn] = true
	count := len(h.clients)
	h.clientsMu.Unlock()
	h.log.Debugw("Client connected", "clients", count)

	defer h.removeClient(conn)
	for {
		// Clients only listen; reading keeps control frames flowing.
		if _, _, err := conn.Read(h.ctx); err != nil {
			return
		}
	}
}

func (h *Hub) removeClient(conn *websocket.Conn) {
	h.clientsMu.Lock()
	if _, ok := h.clients[conn]; !ok {
		h.clientsMu.Unlock()
		return
	}
	delete(h.clients, conn)
	count := len(h.clients)
	h.clientsMu.Unlock()

	_ = conn.Close(websocket.StatusNormalClosure, "")
	h.log.Debugw("Client disconnected", "clients", count)
}

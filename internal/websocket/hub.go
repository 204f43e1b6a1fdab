// Package websocket implements the broadcast hub behind the toolbar's
// live request feed. Clients only listen; the hub fans every broadcast
// out to all of them and drops clients that cannot keep up.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"sitekit/internal/infrastructure"
	"sitekit/pkg/contracts/events"
)

// Hub maintains the set of active clients and broadcasts messages to
// them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	running bool
	quit    chan struct{}

	logger *slog.Logger
}

// NewHub creates a hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		logger:     logger.With(slog.String("component", "websocket.hub")),
	}
}

// Run drives the hub loop until Stop is called or the context ends.
func (h *Hub) Run(ctx context.Context) {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case <-h.quit:
			h.shutdown()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("feed client connected",
				slog.String("client_id", client.id),
				slog.Int("clients", count),
			)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("feed client disconnected",
				slog.String("client_id", client.id),
				slog.Int("clients", count),
			)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer; drop it rather than stall the hub.
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Stop terminates the hub loop.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return
	}
	h.running = false
	close(h.quit)
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
	h.logger.Info("hub shut down")
}

// Broadcast sends a typed envelope to every connected client.
// Marshal failures are logged and dropped; the feed is best-effort.
func (h *Hub) Broadcast(messageType string, data any) {
	envelope := events.Envelope{
		Type:      messageType,
		Timestamp: time.Now(),
		Data:      data,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		h.logger.Warn("failed to encode feed message",
			slog.String("type", messageType),
			slog.String("error", err.Error()),
		)
		return
	}

	select {
	case h.broadcast <- payload:
	default:
		h.logger.Warn("feed broadcast buffer full, dropping message",
			slog.String("type", messageType))
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

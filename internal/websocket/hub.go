package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/TridentTech8969/ASA/internal/metrics"
	"github.com/TridentTech8969/ASA/internal/models"
)

// EventType represents the type of a pushed event
type EventType string

const (
	EventNewEmails EventType = "NewEmails"
	EventPong      EventType = "pong"
	EventError     EventType = "error"
)

// Event is the single wire shape of every frame sent to clients.
type Event struct {
	Type  EventType   `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// Hub maintains the set of connected clients, which all belong to one
// broadcast group.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Frames for every client
	broadcast chan []byte

	// Closed when Run returns
	done chan struct{}

	// Mutex for thread-safe operations
	mu sync.RWMutex

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewHub creates a new Hub instance
func NewHub(logger *slog.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		logger:     logger,
		metrics:    m,
	}
}

// Run starts the hub's main loop and returns when ctx is done. Remaining
// clients are disconnected on return.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.removeLocked(client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.observeLocked()
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("client registered", slog.Int("clients", h.ClientCount()))
			}

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("client unregistered")
			}

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow client, drop it
					h.removeLocked(client)
					if h.logger != nil {
						h.logger.Warn("dropping slow websocket client")
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) removeLocked(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		h.observeLocked()
	}
}

func (h *Hub) observeLocked() {
	if h.metrics != nil {
		h.metrics.WebsocketClients.Set(float64(len(h.clients)))
	}
}

// Register adds a client to the hub. It reports false once the hub has
// stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastNew pushes a NewEmails event to every connected client. Delivery
// is best-effort: the call never blocks, and an empty list sends nothing.
func (h *Hub) BroadcastNew(items []models.EmailSummary) {
	if len(items) == 0 {
		return
	}

	data, err := json.Marshal(Event{Type: EventNewEmails, Data: items})
	if err != nil {
		if h.logger != nil {
			h.logger.Error("failed to marshal broadcast message", slog.Any("error", err))
		}
		return
	}

	select {
	case h.broadcast <- data:
		if h.logger != nil {
			h.logger.Info("broadcast new emails", slog.Int("count", len(items)))
		}
	default:
		if h.logger != nil {
			h.logger.Warn("broadcast queue full, event dropped", slog.Int("count", len(items)))
		}
	}
}

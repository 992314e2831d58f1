// Package live pushes board events to websocket subscribers.
package live

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alphabot-ai/confessional/internal/logging"
	"github.com/alphabot-ai/confessional/internal/metrics"
)

const (
	EventMessageCreated  = "message.created"
	EventMessageDeleted  = "message.deleted"
	EventMessageLiked    = "message.liked"
	EventMessageReported = "message.reported"
)

// Event is the JSON frame sent to subscribers.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type Hub struct {
	mu        sync.RWMutex
	clients   map[*Client]bool
	broadcast chan Event
	register  chan *Client
	remove    chan *Client
	done      chan struct{}
	stopOnce  sync.Once

	origins  []string
	upgrader websocket.Upgrader
}

// NewHub returns a hub accepting websocket origins from allowed. An entry of
// "*" accepts any origin. Requests without an Origin header are accepted;
// they come from non-browser clients.
func NewHub(allowed []string) *Hub {
	h := &Hub{
		clients:   make(map[*Client]bool),
		broadcast: make(chan Event, 256),
		register:  make(chan *Client),
		remove:    make(chan *Client),
		done:      make(chan struct{}),
		origins:   allowed,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      h.checkOrigin,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.origins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", origin).Msg("live feed connection rejected: origin not allowed")
	return false
}

// RunWithContext serves registrations and broadcasts until ctx is done, then
// closes every client.
func (h *Hub) RunWithContext(ctx context.Context) error {
	defer h.stopOnce.Do(func() { close(h.done) })
	for {
		select {
		case <-ctx.Done():
			n := h.closeAll()
			logging.Info().Str("component", "live-hub").Int("clients_closed", n).Msg("live hub stopped")
			return ctx.Err()
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			metrics.LiveClients.Set(float64(n))
			logging.Debug().Int("total_clients", n).Msg("live client connected")
		case c := <-h.remove:
			h.mu.Lock()
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			metrics.LiveClients.Set(float64(n))
			logging.Debug().Int("total_clients", n).Msg("live client disconnected")
		case ev := <-h.broadcast:
			h.fanOut(ev)
		}
	}
}

// Publish queues ev for every subscriber. It never blocks; events are
// dropped when the queue is full.
func (h *Hub) Publish(eventType string, data any) {
	select {
	case h.broadcast <- Event{Type: eventType, Data: data}:
	default:
		logging.Warn().Str("type", eventType).Msg("live broadcast queue full, dropping event")
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and subscribes the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.done:
		http.Error(w, "live feed unavailable", http.StatusServiceUnavailable)
		return
	default:
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("live feed upgrade failed")
		return
	}
	c := newClient(h, conn)
	select {
	case h.register <- c:
		c.start()
	case <-h.done:
		_ = conn.Close()
	}
}

func (h *Hub) unregister(c *Client) {
	select {
	case h.remove <- c:
	case <-h.done:
	}
}

// fanOut delivers ev in client id order. Clients whose buffers are full are
// dropped.
func (h *Hub) fanOut(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.sortedLocked() {
		select {
		case c.send <- ev:
		default:
			close(c.send)
			delete(h.clients, c)
		}
	}
	metrics.LiveClients.Set(float64(len(h.clients)))
}

func (h *Hub) closeAll() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := h.sortedLocked()
	for _, c := range clients {
		close(c.send)
		delete(h.clients, c)
	}
	metrics.LiveClients.Set(0)
	return len(clients)
}

func (h *Hub) sortedLocked() []*Client {
	out := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

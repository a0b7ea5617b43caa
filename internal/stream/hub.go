// Package stream broadcasts simulation events to WebSocket clients.
package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// writeTimeout bounds one broadcast write so a stalled client cannot block
// the publisher.
const writeTimeout = 5 * time.Second

// envelope is the wire format for one event.
type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// client is one registered WebSocket connection. The mutex serializes writes
// from concurrent publishers.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Hub fans every published event out to all connected clients. It implements
// newsroom.Sink; events from concurrent sessions interleave arbitrarily,
// which is within the event contract.
type Hub struct {
	logger  *slog.Logger
	mu      sync.RWMutex
	clients map[int64]*client
	nextID  int64
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:  logger,
		clients: map[int64]*client{},
	}
}

// Publish implements the event sink: one named event, broadcast to every
// connected client. Fire-and-forget; a failed write unregisters that client
// only.
func (h *Hub) Publish(event string, payload any) {
	data, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		h.logger.Error("failed to marshal event", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	targets := make(map[int64]*client, len(h.clients))
	for id, c := range h.clients {
		targets[id] = c
	}
	h.mu.RUnlock()

	for id, c := range targets {
		if err := h.send(c, data); err != nil {
			h.logger.Debug("dropping client after failed write", "conn_id", id, "event", event, "error", err)
			h.unregister(id)
			_ = c.conn.Close(websocket.StatusNormalClosure, "write failed")
		}
	}
}

func (h *Hub) send(c *client, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (h *Hub) register(conn *websocket.Conn) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	h.clients[id] = &client{conn: conn}
	return id
}

func (h *Hub) unregister(id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, id)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request to a WebSocket and keeps the connection
// registered until the client disconnects. Inbound messages are drained and
// discarded; the stream is server-to-client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error("failed to accept WebSocket", "error", err, "ip", r.RemoteAddr)
		return
	}

	id := h.register(conn)
	h.logger.Info("event stream client connected", "conn_id", id, "ip", r.RemoteAddr)

	defer func() {
		h.unregister(id)
		_ = conn.Close(websocket.StatusNormalClosure, "stream closed")
		h.logger.Info("event stream client disconnected", "conn_id", id)
	}()

	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}

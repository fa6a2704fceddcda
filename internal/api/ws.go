package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/observability"
)

const (
	wsSendBuffer   = 256
	wsWriteTimeout = 10 * time.Second
)

var upgrader = &websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type connection struct {
	// The websocket connection
	ws *websocket.Conn

	// Buffered channel of outbound messages
	send chan []byte
}

// Hub fans committed events out to websocket subscribers. It implements
// events.Sink and never blocks the publisher: a client whose buffer is full is
// disconnected.
type Hub struct {
	mu          sync.Mutex
	connections map[*connection]struct{}
	metrics     *observability.Metrics // optional
	logger      *log.Logger
}

// NewHub creates an empty hub.
func NewHub(metrics *observability.Metrics, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		connections: make(map[*connection]struct{}),
		metrics:     metrics,
		logger:      logger,
	}
}

// Publish broadcasts e as JSON to every connected client.
func (h *Hub) Publish(_ context.Context, e domain.Event) {
	msg, err := json.Marshal(e)
	if err != nil {
		h.logger.Printf("encode %s for websocket: %v", e.Kind, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.connections {
		select {
		case c.send <- msg:
		default:
			h.removeLocked(c)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.connections)
}

// ServeHTTP upgrades the request and streams events until the client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade to websocket: %v", err)
		return
	}

	c := &connection{ws: ws, send: make(chan []byte, wsSendBuffer)}
	h.register(c)
	defer h.unregister(c)

	go c.writer()
	c.reader()
}

func (h *Hub) register(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c] = struct{}{}
	h.updateGaugeLocked()
}

func (h *Hub) unregister(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *connection) {
	if _, ok := h.connections[c]; !ok {
		return
	}
	delete(h.connections, c)
	close(c.send)
	h.updateGaugeLocked()
}

func (h *Hub) updateGaugeLocked() {
	if h.metrics != nil {
		h.metrics.WSClients.Set(float64(len(h.connections)))
	}
}

// reader drains inbound frames so control messages are processed; the feed is
// one-way and client payloads are ignored.
func (c *connection) reader() {
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			break
		}
	}
	c.ws.Close()
}

func (c *connection) writer() {
	for message := range c.send {
		c.ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
			break
		}
	}
	c.ws.Close()
}

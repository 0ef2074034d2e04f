package dashboard

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"rsibot/internal/metrics"
	"rsibot/internal/ringbuf"
)

// historySize is how many past run announcements a new client receives.
const historySize = 16

// Hub tracks connected WebSocket clients and fans out run announcements.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	history *ringbuf.Ring[[]byte]
	srv     *Server
	metrics *metrics.Metrics
}

func newHub(srv *Server, m *metrics.Metrics) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		history: ringbuf.New[[]byte](historySize),
		srv:     srv,
		metrics: m,
	}
}

// attach registers conn and starts its pumps.
func (h *Hub) attach(conn *websocket.Conn) {
	c := &Client{
		conn: conn,
		send: make(chan []byte, 64),
		hub:  h,
	}

	h.mu.Lock()
	// Replay recent runs before any live announcement can be queued.
	for _, msg := range h.history.Snapshot() {
		c.send <- msg
	}
	h.clients[c] = true
	count := len(h.clients)
	h.mu.Unlock()
	h.metrics.ActiveWSClient.Set(float64(count))

	slog.Info("[dashboard] ws client connected", "clients", count)

	go c.writePump()
	go c.readPump()
}

// remove unregisters c and closes its send channel. Safe to call twice.
func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	close(c.send)
	h.mu.Unlock()
	h.metrics.ActiveWSClient.Set(float64(count))
}

// Announce records a finished run and queues it on every client. Slow clients drop it.
func (h *Hub) Announce(rb RunBroadcast) {
	data, err := json.Marshal(rb)
	if err != nil {
		slog.Error("[dashboard] broadcast marshal", "error", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.history.Push(data)
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

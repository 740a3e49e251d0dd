package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/obsidianstack/serialbridge/internal/metrics"
	"github.com/obsidianstack/serialbridge/pkg/types"
)

// queueDepth is how many encoded messages may wait for one client's writer.
const queueDepth = 64

var upgrader = websocket.Upgrader{
	ReadBufferSize:  512,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// JoinFunc admits a new client: it calls admit exactly once with the current
// connection status, while holding whatever lock orders status broadcasts.
// A status change can then never reach the client ahead of its join status.
type JoinFunc func(admit func(types.StatusMessage))

// Hub tracks the open client sockets. The set and every client queue are
// guarded by mu: queues are written under the read lock and closed under the
// write lock, so a send never races a close.
type Hub struct {
	join    JoinFunc
	metrics *metrics.Registry
	logger  *slog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

// New creates a Hub. join is called once per joining client; join, reg and
// logger may be nil.
func New(join JoinFunc, reg *metrics.Registry, logger *slog.Logger) *Hub {
	if reg == nil {
		reg = metrics.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		join:    join,
		metrics: reg,
		logger:  logger.With("component", "ws"),
		clients: make(map[*client]struct{}),
	}
}

// Run waits for ctx to be cancelled, then disconnects every client and
// refuses new ones.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.shutdown()
}

// Broadcast encodes msg once and queues it for every connected client.
// Clients whose queue is full are dropped.
func (h *Hub) Broadcast(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("encode broadcast", "err", err)
		return
	}

	var full []*client
	h.mu.RLock()
	for c := range h.clients {
		if !c.enqueue(data) {
			full = append(full, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range full {
		h.logger.Warn("dropping slow client", "client", c.id)
		h.remove(c)
	}
	h.metrics.Broadcast()
}

// ServeHTTP upgrades the request, admits the new client with the current
// status queued first and serves it until the socket closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return // Upgrade has replied with an HTTP error.
	}

	c := newClient(conn)
	if !h.admit(c) {
		c.conn.WriteControl(websocket.CloseMessage, //nolint:errcheck
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			deadline())
		c.conn.Close()
		return
	}
	defer h.remove(c)

	go c.writeLoop()
	c.readLoop()
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// admit registers c and queues its join status in one step under the join
// lock, so any later status broadcast is queued behind it.
func (h *Hub) admit(c *client) bool {
	if h.join == nil {
		return h.add(c)
	}
	var ok bool
	h.join(func(st types.StatusMessage) {
		if ok = h.add(c); !ok {
			return
		}
		data, err := json.Marshal(st)
		if err != nil {
			h.logger.Error("encode join status", "err", err)
			return
		}
		h.sendTo(c, data)
	})
	return ok
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.metrics.SetClients(n)
	h.logger.Debug("client joined", "client", c.id, "remote", c.conn.RemoteAddr().String(), "clients", n)
	return true
}

// remove unregisters c and closes its queue. Safe to call more than once.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.queue)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.metrics.SetClients(n)
		h.logger.Debug("client left", "client", c.id, "clients", n, "connected_for", c.age().String())
	}
}

// sendTo queues data for c alone, if c is still registered.
func (h *Hub) sendTo(c *client, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; ok {
		c.enqueue(data)
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	h.closed = true
	n := len(h.clients)
	for c := range h.clients {
		delete(h.clients, c)
		close(c.queue)
	}
	h.mu.Unlock()

	h.metrics.SetClients(0)
	if n > 0 {
		h.logger.Info("closed client connections", "clients", n)
	}
}

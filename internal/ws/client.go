package ws

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds every frame write.
	writeWait = 10 * time.Second

	// idleTimeout is how long a socket may stay silent, pongs included,
	// before it is considered dead.
	idleTimeout = 60 * time.Second

	// pingEvery must be shorter than idleTimeout.
	pingEvery = idleTimeout * 9 / 10

	// readLimit bounds inbound frames; their content is discarded.
	readLimit = 512
)

// client is one browser socket. queue is owned by the Hub: only the Hub
// sends on it or closes it.
type client struct {
	id     string
	conn   *websocket.Conn
	queue  chan []byte
	joined time.Time
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		id:     uuid.NewString(),
		conn:   conn,
		queue:  make(chan []byte, queueDepth),
		joined: time.Now(),
	}
}

// enqueue reports false when the queue is full.
func (c *client) enqueue(data []byte) bool {
	select {
	case c.queue <- data:
		return true
	default:
		return false
	}
}

func (c *client) age() time.Duration {
	return time.Since(c.joined).Round(time.Second)
}

func deadline() time.Time { return time.Now().Add(writeWait) }

// writeLoop sends queued messages, one text frame each, and pings the peer
// while idle. It exits when the queue is closed or a write fails.
func (c *client) writeLoop() {
	ping := time.NewTicker(pingEvery)
	defer ping.Stop()
	defer c.conn.Close()

	for {
		select {
		case data, ok := <-c.queue:
			if !ok {
				c.conn.WriteControl(websocket.CloseMessage, //nolint:errcheck
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline())
				return
			}
			c.conn.SetWriteDeadline(deadline())
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline()); err != nil {
				return
			}
		}
	}
}

// readLoop consumes inbound frames so pongs and close frames are processed.
// It returns once the socket fails or closes.
func (c *client) readLoop() {
	defer c.conn.Close()

	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(idleTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(idleTimeout))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

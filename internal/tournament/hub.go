package tournament

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/SlpAus/photo-tournament-backend/internal/bracket"
	"github.com/SlpAus/photo-tournament-backend/internal/platform/metrics"
	"github.com/SlpAus/photo-tournament-backend/pkg/lifecycle"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// Message types pushed to live clients.
const (
	MsgState = "tournament.state"
	MsgEnded = "tournament.ended"
)

// Message is one live update.
type Message struct {
	Type      string         `json:"type"`
	State     *bracket.State `json:"state"`
	Timestamp time.Time      `json:"timestamp"`
}

// Publisher receives every tournament change.
type Publisher interface {
	Publish(msg Message)
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans tournament updates out to connected websocket clients.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
	metrics    *metrics.Metrics
	log        *slog.Logger
}

// NewHub creates an idle hub. Run must be started for clients to be served.
func NewHub(m *metrics.Metrics, log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		metrics:    m,
		log:        log,
	}
}

// Publish queues msg for every client. It never blocks; when the queue is
// full the update is dropped, the next one carries the full state anyway.
func (h *Hub) Publish(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to encode live update", "error", err)
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.log.Warn("live update queue full, dropping update", "type", msg.Type)
	}
}

// Run serves registrations and broadcasts until the handle is cancelled.
func (h *Hub) Run(handle *lifecycle.Handle) {
	defer handle.Close()
	defer close(h.done)
	for {
		select {
		case <-handle.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = true
			h.metrics.LiveClients.Set(float64(len(h.clients)))

		case c := <-h.unregister:
			h.drop(c)

		case payload := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- payload:
				default:
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.metrics.LiveClients.Set(float64(len(h.clients)))
}

// Attach registers an upgraded connection and pumps updates to it. initial,
// when not nil, is sent first so the client starts from the current state.
func (h *Hub) Attach(conn *websocket.Conn, initial *Message) {
	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	if initial != nil {
		if payload, err := json.Marshal(initial); err == nil {
			c.send <- payload
		}
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

// readPump only watches for the peer going away; clients do not send commands.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.hub.log.Debug("live client read failed", "error", err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

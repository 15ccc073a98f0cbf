// Package ws bridges the event feed to WebSocket clients. Every client sees
// the same single feed; there is no per-client channel selection.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quantfold/zerodte/internal/domain"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming message. Clients are
	// not expected to send anything beyond control frames.
	maxMessageSize = 1024

	// sendBufferSize is the channel buffer for outgoing messages per client.
	sendBufferSize = 256
)

// upgrader configures the WebSocket upgrade parameters.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS policy is enforced at the HTTP layer; the dashboard may be
		// served from anywhere.
		return true
	},
}

// client represents a single WebSocket connection.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans the event feed out to connected WebSocket clients. A slow client
// drops messages rather than stalling the feed; it can recover through the
// history endpoint.
type Hub struct {
	stream     domain.EventStream
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	// done is closed when Run returns; sends on the channels above select
	// against it so client goroutines cannot block on a stopped hub.
	done   chan struct{}
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewHub creates a hub over the given event stream.
func NewHub(stream domain.EventStream, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		stream:     stream,
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		logger:     logger.With(slog.String("component", "ws")),
	}
}

// Run starts the hub's main event loop; call it in a goroutine. It subscribes
// to the feed, fans records out to clients, and exits when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	go h.consumeFeed(ctx)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.logger.Info("client connected",
				slog.Int("total_clients", h.clientCount()),
			)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Info("client disconnected",
				slog.Int("total_clients", h.clientCount()),
			)

		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Client's send buffer is full; drop the message.
					h.logger.Warn("dropping message for slow client")
				}
			}
			h.mu.RUnlock()
		}
	}
}

// consumeFeed subscribes to the event stream and forwards records to the
// broadcast channel as JSON.
func (h *Hub) consumeFeed(ctx context.Context) {
	records, err := h.stream.Subscribe(ctx)
	if err != nil {
		h.logger.Error("feed subscription failed", slog.String("error", err.Error()))
		return
	}
	h.logger.Info("subscribed to event feed")

	for {
		select {
		case <-ctx.Done():
			return
		case rec, ok := <-records:
			if !ok {
				h.logger.Warn("feed subscription closed")
				return
			}
			data, err := json.Marshal(rec)
			if err != nil {
				h.logger.Error("encode record failed", slog.String("error", err.Error()))
				continue
			}
			select {
			case h.broadcast <- data:
			case <-ctx.Done():
				return
			case <-h.done:
				return
			}
		}
	}
}

// HandleWS upgrades an HTTP request to a WebSocket connection, registers the
// client, and sends the connection acknowledgement.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	c.sendConnected(r.Context())

	go c.writePump()
	go c.readPump()
}

// dropClient hands the client back to the hub for removal. It returns
// immediately once the hub has stopped, so a disconnect during shutdown
// cannot strand the caller.
func (h *Hub) dropClient(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// clientCount returns the number of currently connected clients.
func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// sendConnected queues the acknowledgement record carrying the session id so
// the client can detect a session reset since its last connect.
func (c *client) sendConnected(ctx context.Context) {
	session, err := c.hub.stream.SessionID(ctx)
	if err != nil {
		c.hub.logger.Warn("session lookup failed", slog.String("error", err.Error()))
	}

	now := time.Now()
	msg, err := json.Marshal(domain.EventRecord{
		Type:      domain.EventConnected,
		Timestamp: now.Format("15:04:05"),
		UnixMilli: now.UnixMilli(),
		SessionID: session,
		Content:   "connected to live feed",
	})
	if err != nil {
		return
	}

	select {
	case c.send <- msg:
	default:
	}
}

// readPump drains the connection so control frames are processed. Incoming
// text frames are ignored; the feed is one-way.
func (c *client) readPump() {
	defer func() {
		c.hub.dropClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("unexpected close error",
					slog.String("error", err.Error()),
				)
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection as JSON
// text frames, with periodic pings for keepalive.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

package stream

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/stock-track/pkg/config"
)

// Hub fans chart frames out to the browsers attached to each chart
// session. It is the render.Broadcaster behind every StreamEngine.
type Hub struct {
	cfg    *config.WebSocketConfig
	logger *logrus.Entry

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client

	mu   sync.RWMutex
	done chan struct{}
}

// Client is one attached browser connection, bound to a chart session
type Client struct {
	id        string
	sessionID string
	conn      *websocket.Conn
	send      chan []byte
	hub       *Hub
}

// NewHub creates the chart stream hub
func NewHub(cfg *config.WebSocketConfig, logger *logrus.Logger) *Hub {
	return &Hub{
		cfg:        cfg,
		logger:     logger.WithField("component", "stream"),
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run processes client registration until the context is cancelled
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-h.done:
			h.closeAll()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.WithFields(logrus.Fields{
				"client":  client.id,
				"session": client.sessionID,
				"total":   count,
			}).Debug("Client attached")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		}
	}
}

// Stop shuts the hub down
func (h *Hub) Stop() {
	close(h.done)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// Broadcast sends a frame to every client attached to the session.
// Clients with a full buffer are skipped; frames carry full state per
// mutation so a dropped frame is corrected by the next one.
func (h *Hub) Broadcast(sessionID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.sessionID != sessionID {
			continue
		}
		select {
		case client.send <- payload:
		default:
			h.logger.WithField("client", client.id).Warn("Client buffer full, dropping frame")
		}
	}
}

// ClientCount returns the number of attached clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SessionClientCount returns the number of clients attached to a session
func (h *Hub) SessionClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for client := range h.clients {
		if client.sessionID == sessionID {
			n++
		}
	}
	return n
}

// HandleWebSocket upgrades the request and attaches the connection to a
// chart session
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request, sessionID string) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  h.cfg.ReadBufferSize,
		WriteBufferSize: h.cfg.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	if h.ClientCount() >= h.cfg.MaxClients {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade connection")
		return
	}

	client := &Client{
		id:        fmt.Sprintf("client-%d", time.Now().UnixNano()),
		sessionID: sessionID,
		conn:      conn,
		send:      make(chan []byte, 64),
		hub:       h,
	}

	h.register <- client

	go client.writePump()
	go client.readPump()
}

// writePump pumps frames to the connection and keeps it alive with pings
func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNoStatusReceived, websocket.CloseNormalClosure) {
					c.hub.logger.WithError(err).Debug("Write error")
				}
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the connection. Clients never send chart commands over
// the socket; reads exist to surface pongs and closes.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongTimeout))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.WithError(err).Debug("WebSocket closed")
			}
			return
		}
	}
}

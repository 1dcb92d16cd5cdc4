package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/studybuddy/internal/app"
)

const writeWait = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// ViewSource yields the current tracker view.
type ViewSource interface {
	View() app.View
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) send(v app.View) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// StatusHub pushes the tracker view to websocket clients whenever it
// changes.
type StatusHub struct {
	source   ViewSource
	interval time.Duration
	logger   *slog.Logger
	clients  map[*wsClient]bool
	mu       sync.RWMutex
}

// NewStatusHub creates a StatusHub polling source every interval.
func NewStatusHub(source ViewSource, interval time.Duration, logger *slog.Logger) *StatusHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusHub{
		source:   source,
		interval: interval,
		logger:   logger,
		clients:  make(map[*wsClient]bool),
	}
}

// ServeHTTP upgrades the connection and sends the current view at once.
func (h *StatusHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	c := &wsClient{conn: conn}
	if err := c.send(h.source.View()); err != nil {
		return
	}

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", h.Clients())

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		h.logger.Debug("websocket client disconnected", "clients", h.Clients())
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Clients returns the number of connected clients.
func (h *StatusHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Run broadcasts view changes until ctx is done.
func (h *StatusHub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last app.View
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		v := h.source.View()
		if sameView(v, last) {
			continue
		}
		last = v
		h.broadcast(v)
	}
}

func (h *StatusHub) broadcast(v app.View) {
	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.send(v); err != nil {
			h.logger.Debug("websocket send failed", "error", err)
			c.conn.Close()
		}
	}
}

// CloseAll disconnects every client.
func (h *StatusHub) CloseAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.conn.Close()
	}
}

// sameView ignores the timestamp so idle ticks are not pushed.
func sameView(a, b app.View) bool {
	a.UpdatedAt = time.Time{}
	b.UpdatedAt = time.Time{}
	return a == b
}

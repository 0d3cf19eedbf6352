package server

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/thiagokokada/gitviz-go/internal/graph"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 1 << 20
	sendBuffer     = 16
)

// Hub fans provider payloads out to every connected page. It keeps the last
// graph and completion payloads so pages connecting later start from the
// current state.
type Hub struct {
	onLayout func([]graph.LayoutUpdate) int

	mu           sync.Mutex
	clients      map[*client]struct{}
	lastGraph    []byte
	lastComplete []byte
	closed       bool
}

type client struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
}

// NewHub returns a hub that forwards layout reports from pages to onLayout.
func NewHub(onLayout func([]graph.LayoutUpdate) int) *Hub {
	return &Hub{
		onLayout: onLayout,
		clients:  make(map[*client]struct{}),
	}
}

type noticeMessage struct {
	Notice string `json:"notice"`
}

type layoutMessage struct {
	Layout []graph.LayoutUpdate `json:"layout"`
}

func (h *Hub) RenderGraph(g graph.Graph) {
	payload, err := json.Marshal(g)
	if err != nil {
		slog.Error("encode graph", slog.Any("error", err))
		return
	}
	h.broadcast(payload, &h.lastGraph)
}

func (h *Hub) SetComplete(complete bool) {
	payload, _ := json.Marshal(complete)
	h.broadcast(payload, &h.lastComplete)
}

func (h *Hub) Notify(message string) {
	payload, err := json.Marshal(noticeMessage{Notice: message})
	if err != nil {
		slog.Error("encode notice", slog.Any("error", err))
		return
	}
	h.broadcast(payload, nil)
}

func (h *Hub) broadcast(payload []byte, keep *[]byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	if keep != nil {
		*keep = payload
	}
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			slog.Warn("dropping slow client", slog.String("client", c.id.String()))
			h.removeLocked(c)
		}
	}
}

// Clients returns the number of connected pages.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) register(conn *websocket.Conn) (*client, bool) {
	c := &client{id: uuid.New(), conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	for _, payload := range [][]byte{h.lastGraph, h.lastComplete} {
		if payload != nil {
			c.send <- payload
		}
	}
	h.clients[c] = struct{}{}
	slog.Info("client connected", slog.String("client", c.id.String()), slog.Int("clients", len(h.clients)))
	return c, true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		h.removeLocked(c)
		slog.Info("client disconnected", slog.String("client", c.id.String()), slog.Int("clients", len(h.clients)))
	}
}

func (h *Hub) removeLocked(c *client) {
	delete(h.clients, c)
	close(c.send)
}

// Close disconnects every page and stops accepting new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}

// serve pumps messages for c until the connection drops.
func (h *Hub) serve(c *client) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writePump(c)
	}()
	h.readPump(c)
	h.unregister(c)
	<-done
}

func (h *Hub) readPump(c *client) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read", slog.String("client", c.id.String()), slog.Any("error", err))
			}
			return
		}
		var msg layoutMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Debug("ignoring malformed client message", slog.String("client", c.id.String()), slog.Any("error", err))
			continue
		}
		if len(msg.Layout) == 0 || h.onLayout == nil {
			continue
		}
		applied := h.onLayout(msg.Layout)
		slog.Debug("layout reported",
			slog.String("client", c.id.String()),
			slog.Int("nodes", len(msg.Layout)),
			slog.Int("applied", applied),
		)
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

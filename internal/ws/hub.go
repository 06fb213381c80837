// Package ws delivers gamification notifications to browser sessions over
// websockets.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/internlink/backend/internal/gamification"
	"github.com/internlink/backend/internal/logger"
)

var ErrTooManyConnections = errors.New("too many websocket connections")

const (
	sendBuffer = 64
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type client struct {
	conn   *websocket.Conn
	hub    *Hub
	userID uuid.UUID
	send   chan []byte
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.hub.RemoveClient(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.RemoveClient(c)
				return
			}
		}
	}
}

// readPump drains control frames until the peer goes away.
func (c *client) readPump() {
	defer c.hub.RemoveClient(c)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Hub tracks live sockets per user. It implements gamification.Notifier.
type Hub struct {
	mu       sync.RWMutex
	clients  map[uuid.UUID]map[*client]struct{}
	count    int
	maxConns int
	log      *logger.Logger
}

// NewHub returns a hub accepting at most maxConns sockets; 0 means unlimited.
func NewHub(maxConns int, log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		clients:  make(map[uuid.UUID]map[*client]struct{}),
		maxConns: maxConns,
		log:      log.With("component", "ws"),
	}
}

func (h *Hub) AddClient(userID uuid.UUID, conn *websocket.Conn) (*client, error) {
	c := &client{conn: conn, hub: h, userID: userID, send: make(chan []byte, sendBuffer)}
	hello, err := json.Marshal(Message{Type: MsgConnected, Payload: ConnectedPayload{UserID: userID}})
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	if h.maxConns > 0 && h.count >= h.maxConns {
		h.mu.Unlock()
		return nil, ErrTooManyConnections
	}
	set, ok := h.clients[userID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[userID] = set
	}
	set[c] = struct{}{}
	h.count++
	c.send <- hello
	h.mu.Unlock()

	go c.writePump()
	return c, nil
}

func (h *Hub) RemoveClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	h.count--
	close(c.send)
}

func (h *Hub) Notify(_ context.Context, userID uuid.UUID, n gamification.Notification) {
	data, err := json.Marshal(notificationMessage(n))
	if err != nil {
		h.log.Warn("marshal notification", "kind", string(n.Kind), "error", err)
		return
	}

	var slow []*client
	// Sends happen under the read lock so RemoveClient cannot close a
	// channel mid-send.
	h.mu.RLock()
	for c := range h.clients[userID] {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn("ws client too slow, disconnecting", "user_id", userID)
		h.RemoveClient(c)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *Hub) UserClientCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, set := range h.clients {
		for c := range set {
			close(c.send)
		}
		delete(h.clients, userID)
	}
	h.count = 0
}

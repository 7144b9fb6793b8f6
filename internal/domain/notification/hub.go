// internal/domain/notification/hub.go
package notification

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	clientBufferSize = 16
)

// client is one websocket connection of a user
type client struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Hub pushes notifications to the connected clients of each user. A client
// whose buffer is full is disconnected rather than allowed to block
// publishers.
type Hub struct {
	mu      sync.RWMutex
	clients map[uint]map[*client]struct{}
	closed  bool
	log     logrus.FieldLogger
}

// NewHub creates an empty hub
func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		clients: make(map[uint]map[*client]struct{}),
		log:     log,
	}
}

// Serve registers conn for userID and blocks until the peer disconnects
func (h *Hub) Serve(userID uint, conn *websocket.Conn) {
	c := &client{
		conn: conn,
		send: make(chan []byte, clientBufferSize),
		done: make(chan struct{}),
	}

	if !h.register(userID, c) {
		c.close()
		return
	}
	defer h.unregister(userID, c)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.writePump(c)
	}()

	h.readPump(c)
	c.close()
	wg.Wait()
}

// Publish delivers n to every connection of userID
func (h *Hub) Publish(userID uint, n *Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		h.log.WithError(err).Error("Failed to encode notification")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients[userID] {
		select {
		case c.send <- payload:
		default:
			h.log.WithField("user_id", userID).Warn("Dropping slow notification client")
			delete(h.clients[userID], c)
			c.close()
		}
	}
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
}

// ClientCount returns the number of open connections for userID
func (h *Hub) ClientCount(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Close disconnects every client and rejects new ones
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for userID, set := range h.clients {
		for c := range set {
			c.close()
		}
		delete(h.clients, userID)
	}
}

func (h *Hub) register(userID uint, c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*client]struct{})
	}
	h.clients[userID][c] = struct{}{}
	return true
}

func (h *Hub) unregister(userID uint, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.clients[userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, userID)
		}
	}
}

// readPump discards client frames and keeps the read deadline fresh
func (h *Hub) readPump(c *client) {
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.WithError(err).Debug("Notification socket closed unexpectedly")
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// Package realtime keeps the live websocket connections used to push in-app
// notifications to open clients.
package realtime

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 5 * time.Second

// Connection wraps websocket.Conn with the owning user
type Connection struct {
	conn   *websocket.Conn
	userID string
	mu     sync.Mutex // gorilla allows one concurrent writer
}

func (c *Connection) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// Hub tracks open connections per user
type Hub struct {
	mu          sync.RWMutex
	connections map[string]map[*Connection]struct{}
	logger      *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		connections: make(map[string]map[*Connection]struct{}),
		logger:      logger,
	}
}

// Add registers conn for userID
func (h *Hub) Add(userID string, conn *websocket.Conn) *Connection {
	c := &Connection{conn: conn, userID: userID}

	h.mu.Lock()
	if _, ok := h.connections[userID]; !ok {
		h.connections[userID] = make(map[*Connection]struct{})
	}
	h.connections[userID][c] = struct{}{}
	total := len(h.connections[userID])
	h.mu.Unlock()

	h.logger.Debug("websocket connected", zap.String("user_id", userID), zap.Int("connections", total))
	return c
}

// Remove unregisters and closes c. Safe to call more than once.
func (h *Hub) Remove(c *Connection) {
	h.mu.Lock()
	if conns, ok := h.connections[c.userID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.connections, c.userID)
		}
	}
	h.mu.Unlock()

	_ = c.conn.Close()
	h.logger.Debug("websocket disconnected", zap.String("user_id", c.userID))
}

// Publish writes v to every open connection of userID and returns how many accepted it.
// Writes run concurrently, so one stalled socket costs at most writeWait.
// Connections that fail the write are dropped.
func (h *Hub) Publish(userID string, v any) int {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.connections[userID]))
	for c := range h.connections[userID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	var (
		wg        sync.WaitGroup
		delivered atomic.Int64
	)
	for _, c := range conns {
		wg.Add(1)
		go func(c *Connection) {
			defer wg.Done()
			if err := c.writeJSON(v); err != nil {
				h.logger.Debug("websocket write failed", zap.String("user_id", userID), zap.Error(err))
				h.Remove(c)
				return
			}
			delivered.Add(1)
		}(c)
	}
	wg.Wait()
	return int(delivered.Load())
}

// ConnectionCount returns the number of open connections for userID
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[userID])
}

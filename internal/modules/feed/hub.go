// Package feed pushes notification lifecycle events to connected role
// dashboards over websockets. Delivery is best effort; a dashboard that is
// offline simply misses the event and catches up via the list endpoint.
package feed

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Hub tracks at most one live connection per recipient.
type Hub struct {
	connections map[int64]*websocket.Conn
	mutex       sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		connections: make(map[int64]*websocket.Conn),
	}
}

// Register attaches a connection for a recipient, replacing any previous
// one.
func (h *Hub) Register(userID int64, conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if oldConn, exists := h.connections[userID]; exists && oldConn != nil {
		_ = oldConn.Close()
	}

	h.connections[userID] = conn
}

func (h *Hub) Unregister(userID int64) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if conn, exists := h.connections[userID]; exists && conn != nil {
		_ = conn.Close()
		delete(h.connections, userID)
	}
}

// Publish sends an event to the recipient's dashboard if one is
// connected. A write failure drops the connection.
func (h *Hub) Publish(userID int64, event interface{}) {
	h.mutex.RLock()
	conn, exists := h.connections[userID]
	h.mutex.RUnlock()

	if !exists || conn == nil {
		return
	}

	if err := conn.WriteJSON(event); err != nil {
		h.Unregister(userID)
	}
}

// IsOnline reports whether the recipient has a live dashboard connection.
func (h *Hub) IsOnline(userID int64) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	_, exists := h.connections[userID]
	return exists
}

// Close drops every connection (graceful shutdown).
func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for userID, conn := range h.connections {
		if conn != nil {
			_ = conn.Close()
		}
		delete(h.connections, userID)
	}
}

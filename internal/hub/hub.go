// Package hub fans persisted chat events out to WebSocket subscribers of a session.
package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/xiaot623/gogo/fraudgpt/internal/domain"
)

const sendBufferSize = 64

// Connection represents a single WebSocket subscriber.
type Connection struct {
	ID        string
	SessionID string
	Conn      *websocket.Conn
	Send      chan []byte
	mu        sync.Mutex
}

// Hub tracks subscribers per session and delivers events to them.
type Hub struct {
	// Connections indexed by connection ID
	connections map[string]*Connection

	// Sessions maps session_id to set of connection IDs
	sessions map[string]map[string]bool

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *sessionMessage
	done       chan struct{}

	log logrus.FieldLogger
	mu  sync.RWMutex
}

type sessionMessage struct {
	SessionID string
	Data      []byte
}

// NewHub creates a new Hub. Call Run to start delivering events.
func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		sessions:    make(map[string]map[string]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		broadcast:   make(chan *sessionMessage, 256),
		done:        make(chan struct{}),
		log:         log,
	}
}

// Run is the hub's main loop. It returns when ctx is done and closes every connection.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.mu.Lock()
		for id, conn := range h.connections {
			close(conn.Send)
			delete(h.connections, id)
		}
		h.sessions = make(map[string]map[string]bool)
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn.ID] = conn
			if h.sessions[conn.SessionID] == nil {
				h.sessions[conn.SessionID] = make(map[string]bool)
			}
			h.sessions[conn.SessionID][conn.ID] = true
			h.mu.Unlock()
			h.log.WithFields(logrus.Fields{"conn_id": conn.ID, "session_id": conn.SessionID}).Debug("subscriber registered")

		case conn := <-h.unregister:
			h.remove(conn)

		case msg := <-h.broadcast:
			h.mu.RLock()
			var slow []*Connection
			for connID := range h.sessions[msg.SessionID] {
				conn, ok := h.connections[connID]
				if !ok {
					continue
				}
				select {
				case conn.Send <- msg.Data:
				default:
					slow = append(slow, conn)
				}
			}
			h.mu.RUnlock()
			for _, conn := range slow {
				h.log.WithField("conn_id", conn.ID).Warn("subscriber buffer full, dropping connection")
				h.remove(conn)
			}
		}
	}
}

func (h *Hub) remove(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[conn.ID]; !ok {
		return
	}
	delete(h.connections, conn.ID)
	if h.sessions[conn.SessionID] != nil {
		delete(h.sessions[conn.SessionID], conn.ID)
		if len(h.sessions[conn.SessionID]) == 0 {
			delete(h.sessions, conn.SessionID)
		}
	}
	close(conn.Send)
	h.log.WithField("conn_id", conn.ID).Debug("subscriber unregistered")
}

// NewConnection wraps ws as a subscriber of sessionID.
func (h *Hub) NewConnection(ws *websocket.Conn, sessionID string) *Connection {
	return &Connection{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Conn:      ws,
		Send:      make(chan []byte, sendBufferSize),
	}
}

// Register adds a connection. It reports false if the hub has stopped.
func (h *Hub) Register(conn *Connection) bool {
	select {
	case h.register <- conn:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a connection and closes its Send channel.
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Publish queues ev for the subscribers of its session. It never blocks: when the
// queue is full or the hub has stopped the event is dropped.
func (h *Hub) Publish(ev domain.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.WithError(err).Error("failed to encode event")
		return
	}
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.broadcast <- &sessionMessage{SessionID: ev.SessionID, Data: data}:
	default:
		h.log.WithFields(logrus.Fields{"session_id": ev.SessionID, "type": ev.Type}).Warn("event queue full, dropping event")
	}
}

// SubscriberCount returns the number of connections bound to sessionID.
func (h *Hub) SubscriberCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// WriteMessage writes a message to the connection with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// SetWriteDeadline sets the write deadline for the connection.
func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.Conn.SetWriteDeadline(t)
}

// Close closes the connection.
func (c *Connection) Close() error {
	return c.Conn.Close()
}

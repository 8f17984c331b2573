package hub

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// ServerOptions tunes the WebSocket keepalive.
type ServerOptions struct {
	PingInterval   time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxMessageSize int64
}

// DefaultServerOptions returns the keepalive settings used in production.
func DefaultServerOptions() ServerOptions {
	return ServerOptions{
		PingInterval:   30 * time.Second,
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxMessageSize: 4096,
	}
}

// Server upgrades HTTP requests into session subscriptions.
type Server struct {
	hub      *Hub
	opts     ServerOptions
	log      logrus.FieldLogger
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(h *Hub, opts ServerOptions, log logrus.FieldLogger) *Server {
	return &Server{
		hub:  h,
		opts: opts,
		log:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Subscribe upgrades the request and streams events of sessionID until the client leaves.
func (s *Server) Subscribe(c echo.Context, sessionID string) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.log.WithError(err).Warn("failed to upgrade websocket")
		return nil
	}

	conn := s.hub.NewConnection(ws, sessionID)
	if !s.hub.Register(conn) {
		_ = ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		return ws.Close()
	}
	ws.SetReadLimit(s.opts.MaxMessageSize)

	go s.writePump(conn)
	go s.readPump(conn)
	return nil
}

// readPump drains client frames so control messages are processed. Subscribers are read-only.
func (s *Server) readPump(conn *Connection) {
	defer func() {
		s.hub.Unregister(conn)
		conn.Close()
	}()

	_ = conn.Conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		return conn.Conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	})

	for {
		if _, _, err := conn.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.log.WithError(err).WithField("conn_id", conn.ID).Warn("websocket read failed")
			}
			return
		}
	}
}

// writePump writes queued events and keepalive pings.
func (s *Server) writePump(conn *Connection) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if !ok {
				// Hub closed the channel
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.log.WithError(err).WithField("conn_id", conn.ID).Debug("failed to write event")
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

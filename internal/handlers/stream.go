package handlers

import (
	"encoding/json"
	"log/slog"
	"time"

	"newsboard/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512
	sendBuffer     = 256
)

// 默认只允许同源连接
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type StreamHandler struct {
	logger *slog.Logger
}

func NewStreamHandler(logger *slog.Logger) *StreamHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamHandler{logger: logger.With("component", "stream")}
}

// Stream upgrades to a websocket and pushes every intent and store broadcast
// of the session until the peer goes away. The current posts and user state
// are sent first.
func (h *StreamHandler) Stream(c *gin.Context) {
	s := current(c)
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "session", s.ID, "error", err)
		return
	}
	logger := h.logger.With("session", s.ID)

	send := make(chan []byte, sendBuffer)
	push := func(m services.Message) {
		b, err := json.Marshal(m)
		if err != nil {
			logger.Error("Failed to encode stream message", "type", m.Type, "error", err)
			return
		}
		select {
		case send <- b:
		default:
			logger.Warn("Stream buffer full, dropping message", "type", m.Type)
		}
	}

	if state, err := s.Posts.State(); err == nil {
		push(services.Message{Type: services.MessagePosts, Payload: state})
	}
	push(services.Message{Type: services.MessageUser, Payload: s.User.State()})
	off := s.Listen(push)

	done := make(chan struct{})
	go h.writePump(conn, send, done, logger)
	h.readPump(conn, logger)

	off()
	close(done)
	logger.Debug("Stream closed")
}

// readPump only handles control frames; the stream is one way.
func (h *StreamHandler) readPump(conn *websocket.Conn, logger *slog.Logger) {
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket read error", "error", err)
			}
			return
		}
	}
}

func (h *StreamHandler) writePump(conn *websocket.Conn, send <-chan []byte, done <-chan struct{}, logger *slog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-done:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("WebSocket write error", "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Warn("WebSocket ping error", "error", err)
				return
			}
		}
	}
}

package devserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/rentmate/rentmate-go/internal/chat"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096

	// Publishing is throttled per connection; bursts beyond this are
	// rejected with an error frame instead of being queued.
	publishRate  = rate.Limit(5)
	publishBurst = 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsClient is one live chat connection, scoped to a single room by its
// ENTER frame.
type wsClient struct {
	server *Server
	conn   *websocket.Conn
	userID string
	send   chan []byte

	limiter *rate.Limiter

	mu   sync.Mutex
	room string
}

func (c *wsClient) roomID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

func (c *wsClient) setRoom(roomID string) {
	c.mu.Lock()
	c.room = roomID
	c.mu.Unlock()
}

// handleWS upgrades the connection. The bearer token rides the query string
// since browser WebSocket clients cannot set headers.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := validateToken(token, s.jwtSecret)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &wsClient{
		server:  s,
		conn:    conn,
		userID:  claims.UserID,
		send:    make(chan []byte, 256),
		limiter: rate.NewLimiter(publishRate, publishBurst),
	}

	s.hub.register <- client
	go client.writePump()
	go client.readPump()
}

func (c *wsClient) readPump() {
	defer func() {
		c.server.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("ws read error", "error", err, "user_id", c.userID)
			}
			return
		}

		var frame chat.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		c.handleFrame(frame)
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) handleFrame(frame chat.Frame) {
	switch frame.Type {
	case chat.FrameEnter:
		room, err := c.server.store.RoomByID(frame.RoomID)
		if err != nil {
			c.sendError("room not found")
			return
		}
		if room.OwnerID != c.userID && room.RenterID != c.userID {
			c.sendError("not a member of this room")
			return
		}
		c.setRoom(room.ID)

	case chat.FrameTalk:
		if c.roomID() == "" || frame.RoomID != c.roomID() {
			c.sendError("enter the room before talking")
			return
		}
		if frame.Message == "" {
			return
		}
		if !c.limiter.Allow() {
			c.sendError("slow down")
			return
		}

		// The sender id on the frame is ignored; the authenticated user is
		// authoritative.
		msg, err := c.server.store.CreateMessage(frame.RoomID, chat.ID(c.userID), frame.Message, time.Now())
		if err != nil {
			slog.Error("failed to store message", "error", err)
			c.sendError("failed to send message")
			return
		}

		data, err := json.Marshal(msg)
		if err != nil {
			return
		}
		c.server.deliver(frame.RoomID, data)
	}
}

func (c *wsClient) sendError(msg string) {
	data, err := json.Marshal(map[string]string{"type": "ERROR", "message": msg})
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

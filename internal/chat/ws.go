package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait      = 10 * time.Second
	wsMaxMessageSize = 4096
)

// WSChannel is a room-scoped live channel over a WebSocket connection. One
// connection serves one room session; the read loop delivers inbound
// messages in arrival order on a single goroutine.
type WSChannel struct {
	conn   *websocket.Conn
	roomID string

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// DialWS opens the live channel for a room. The bearer token rides the query
// string, and an ENTER frame scopes the connection to the room before any
// delivery starts.
func DialWS(ctx context.Context, wsURL, token, roomID string, deliver func(Message)) (*WSChannel, error) {
	u := wsURL + "?token=" + url.QueryEscape(token)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial chat channel: %w", err)
	}
	conn.SetReadLimit(wsMaxMessageSize)

	ch := &WSChannel{conn: conn, roomID: roomID}

	if err := ch.writeFrame(Frame{Type: FrameEnter, RoomID: roomID}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enter room: %w", err)
	}

	go ch.readLoop(deliver)
	return ch, nil
}

// Publish sends text to the room through the open connection. Nothing is
// appended locally; the server echoes the message back with its own
// timestamp.
func (ch *WSChannel) Publish(roomID string, senderID ID, text string) error {
	return ch.writeFrame(Frame{
		Type:     FrameTalk,
		RoomID:   roomID,
		SenderID: senderID,
		Message:  text,
	})
}

// Close tears the connection down. Safe to call multiple times.
func (ch *WSChannel) Close() error {
	ch.closeOnce.Do(func() {
		ch.writeMu.Lock()
		ch.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		ch.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		ch.writeMu.Unlock()
		ch.closeErr = ch.conn.Close()
	})
	return ch.closeErr
}

func (ch *WSChannel) writeFrame(f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	ch.writeMu.Lock()
	defer ch.writeMu.Unlock()
	ch.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return ch.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop feeds deliver until the connection dies. There is no automatic
// reconnect: a dropped channel is logged and the session silently misses
// messages from then on.
func (ch *WSChannel) readLoop(deliver func(Message)) {
	defer ch.conn.Close()
	for {
		_, data, err := ch.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("chat channel read error", "room_id", ch.roomID, "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("chat channel bad frame", "room_id", ch.roomID, "error", err)
			continue
		}
		if msg.RoomID != "" && msg.RoomID != ch.roomID {
			continue
		}
		// Control frames (e.g. server-side errors) carry neither sender nor
		// room; they are not part of the message log.
		if msg.SenderID == "" && msg.RoomID == "" {
			slog.Warn("chat channel notice", "room_id", ch.roomID, "payload", string(data))
			continue
		}
		deliver(msg)
	}
}

package devserver

import (
	"log/slog"
	"sync"
)

type roomMessage struct {
	RoomID string
	Data   []byte
}

// Hub tracks live chat connections and fans messages out to every
// connection entered into a room — including the sender, whose copy is the
// echo the client appends from.
type Hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]bool

	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan *roomMessage

	done chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan *roomMessage, 256),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			slog.Info("chat client connected", "user_id", client.userID)

		case client := <-h.unregister:
			h.mu.Lock()
			if h.clients[client] {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			slog.Info("chat client disconnected", "user_id", client.userID)

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if client.roomID() != msg.RoomID {
					continue
				}
				select {
				case client.send <- msg.Data:
				default:
					// Slow consumer; drop the connection rather than block
					// delivery to the rest of the room.
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()

		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return
		}
	}
}

// BroadcastToRoom delivers data to every connection in the room on this
// instance.
func (h *Hub) BroadcastToRoom(roomID string, data []byte) {
	h.broadcast <- &roomMessage{RoomID: roomID, Data: data}
}

func (h *Hub) Shutdown() {
	close(h.done)
}

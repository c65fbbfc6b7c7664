package api

import (
	"context"
	"net/http"

	"github.com/rentmate/rentmate-go/internal/chat"
	"github.com/rentmate/rentmate-go/internal/models"
)

func (c *Client) ListRooms(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	if err := c.do(ctx, http.MethodGet, "/api/chat/rooms", nil, nil, &rooms, true); err != nil {
		return nil, err
	}
	return rooms, nil
}

// OpenRoom returns the chat room for an item, creating it on first contact.
func (c *Client) OpenRoom(ctx context.Context, itemID string) (*models.Room, error) {
	var room models.Room
	body := map[string]string{"itemId": itemID}
	if err := c.do(ctx, http.MethodPost, "/api/chat/rooms", nil, body, &room, true); err != nil {
		return nil, err
	}
	return &room, nil
}

// RoomMessages returns a room's history, oldest first.
func (c *Client) RoomMessages(ctx context.Context, roomID string) ([]chat.Message, error) {
	var messages []chat.Message
	path := "/api/chat/rooms/" + roomID + "/messages"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &messages, true); err != nil {
		return nil, err
	}
	return messages, nil
}

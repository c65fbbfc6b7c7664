package models

import "time"

// Room is a chat room tied to an item between its owner and a renter.
type Room struct {
	ID            string     `json:"id"`
	ItemID        string     `json:"item_id"`
	ItemTitle     string     `json:"item_title"`
	OwnerID       string     `json:"owner_id"`
	RenterID      string     `json:"renter_id"`
	CreatedAt     time.Time  `json:"created_at"`
	LastMessage   string     `json:"last_message,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
}

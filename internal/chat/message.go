package chat

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// ID is a chat participant identifier. Different endpoints are inconsistent
// about whether identifiers arrive as JSON strings or numbers, so ID
// normalizes both to a string; "mine vs other" classification compares the
// normalized form.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// FromInt builds an ID from a numeric identifier.
func FromInt(n int64) ID { return ID(strconv.FormatInt(n, 10)) }

// Message is one entry in a room's message log.
//
// SendTime is nil for a locally-composed outbound message in live mode until
// the server echoes it back with its own timestamp; in simulation mode the
// client stamps it immediately.
type Message struct {
	RoomID   string     `json:"roomId,omitempty"`
	SenderID ID         `json:"senderId"`
	Message  string     `json:"message"`
	SendTime *time.Time `json:"sendTime"`
}

// Frame types on the live channel.
const (
	FrameEnter = "ENTER"
	FrameTalk  = "TALK"
)

// Frame is the outbound envelope on the live channel.
type Frame struct {
	Type     string `json:"type"`
	RoomID   string `json:"roomId"`
	SenderID ID     `json:"senderId,omitempty"`
	Message  string `json:"message,omitempty"`
}

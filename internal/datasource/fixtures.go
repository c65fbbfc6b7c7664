package datasource

import (
	"time"

	"github.com/rentmate/rentmate-go/internal/chat"
	"github.com/rentmate/rentmate-go/internal/models"
)

// Fixture identifiers are stable so offline sessions are reproducible.
const (
	FixtureSelfID  = "u-demo"
	FixtureOwnerID = "u-mina"
	FixtureDrillID = "i-drill"
	FixtureTentID  = "i-tent"
	FixtureRoomID  = "r-drill"
)

func (s *Simulated) seed() {
	seededAt := time.Date(2026, time.January, 15, 9, 0, 0, 0, time.Local)

	demo := models.User{ID: FixtureSelfID, Nickname: "demo", Email: "demo@rentmate.local", CreatedAt: seededAt}
	mina := models.User{ID: FixtureOwnerID, Nickname: "mina", Email: "mina@rentmate.local", CreatedAt: seededAt}
	s.users[demo.ID] = demo
	s.users[mina.ID] = mina
	s.self = demo

	s.items[FixtureDrillID] = models.Item{
		ID:          FixtureDrillID,
		OwnerID:     mina.ID,
		Title:       "Cordless power drill",
		Description: "18V drill with two batteries and a bit set.",
		Category:    "tools",
		HourlyRate:  20000,
		Available:   true,
		CreatedAt:   seededAt,
	}
	s.items[FixtureTentID] = models.Item{
		ID:          FixtureTentID,
		OwnerID:     mina.ID,
		Title:       "4-person camping tent",
		Description: "Waterproof dome tent, pitches in ten minutes.",
		Category:    "outdoor",
		HourlyRate:  5000,
		Available:   true,
		CreatedAt:   seededAt.Add(time.Hour),
	}

	s.rooms[FixtureRoomID] = models.Room{
		ID:        FixtureRoomID,
		ItemID:    FixtureDrillID,
		ItemTitle: "Cordless power drill",
		OwnerID:   mina.ID,
		RenterID:  demo.ID,
		CreatedAt: seededAt.Add(2 * time.Hour),
	}

	greetAt := seededAt.Add(2 * time.Hour)
	replyAt := greetAt.Add(5 * time.Minute)
	s.messages[FixtureRoomID] = []chat.Message{
		{RoomID: FixtureRoomID, SenderID: chat.ID(demo.ID), Message: "Hi, is the drill free this weekend?", SendTime: &greetAt},
		{RoomID: FixtureRoomID, SenderID: chat.ID(mina.ID), Message: "Yes, Saturday morning works.", SendTime: &replyAt},
	}
}

// Package chat owns the message log and live-channel lifecycle for one chat
// room at a time, presenting the same contract whether the backend is a
// remote channel or a local simulation.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// ErrSessionClosed is returned for operations on a closed session. A closed
// session is terminal; re-entering a room creates a brand-new session.
var ErrSessionClosed = errors.New("chat: session closed")

// ErrNotSubscribed is returned when a live publish has no open channel to
// travel through.
var ErrNotSubscribed = errors.New("chat: no open subscription")

// Subscription is an opaque handle on a room's live feed.
type Subscription interface {
	Close() error
}

// Source is the controller's view of the backend. Exactly one implementation
// is chosen at composition time; no operation branches on a mode flag.
type Source interface {
	// Identity resolves the caller's own identifier. The live subscription
	// must not open before this succeeds, since message authorship cannot be
	// classified without it.
	Identity(ctx context.Context) (ID, error)

	// History returns a room's messages, oldest first.
	History(ctx context.Context, roomID string) ([]Message, error)

	// Subscribe opens the room's live feed. Inbound messages are handed to
	// deliver in arrival order. A local source has no feed and returns a nil
	// Subscription.
	Subscribe(ctx context.Context, roomID string, deliver func(Message)) (Subscription, error)

	// Publish sends text to the room. A local source stamps the message with
	// the client clock and returns it for immediate append; a remote source
	// returns nil — the authoritative copy, carrying the server-assigned
	// timestamp, arrives later through the subscription as the channel's own
	// echo.
	Publish(ctx context.Context, roomID string, senderID ID, text string) (*Message, error)
}

// Session is the state for one mounted chat room. It exclusively owns its
// message log; the log is discarded with the session on unmount.
type Session struct {
	roomID string
	selfID ID

	mu         sync.Mutex
	messages   []Message
	sub        Subscription
	subscribed bool
	closed     bool
}

func (s *Session) RoomID() string { return s.roomID }
func (s *Session) SelfID() ID     { return s.selfID }

// Messages returns a snapshot of the log in arrival order.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Mine reports whether the message was sent by this session's user.
func (s *Session) Mine(m Message) bool {
	return m.SenderID == s.selfID
}

// append adds a message in arrival order. Arrival order is authoritative:
// no reordering by timestamp and no deduplication — a backend that delivers
// twice shows up twice.
func (s *Session) append(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.messages = append(s.messages, m)
}

// Controller drives chat room sessions against a single Source.
type Controller struct {
	src Source
	now func() time.Time
	log *slog.Logger
}

// NewController builds a controller over src. A nil clock uses time.Now; a
// nil logger uses slog.Default.
func NewController(src Source, now func() time.Time, logger *slog.Logger) *Controller {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{src: src, now: now, log: logger}
}

// Initialize resolves identity and loads history for a room. Identity comes
// first: without it inbound/outbound classification is impossible, so a
// failed lookup aborts before any subscription could open.
func (c *Controller) Initialize(ctx context.Context, roomID string) (*Session, error) {
	selfID, err := c.src.Identity(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve identity: %w", err)
	}

	history, err := c.src.History(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	return &Session{
		roomID:   roomID,
		selfID:   selfID,
		messages: history,
	}, nil
}

// Subscribe opens the session's live feed. It is idempotent per session: at
// most one subscription is ever opened, so repeated calls (e.g. from a
// re-render) never duplicate delivery. The subscribe is one-shot — a failed
// attempt is logged and not retried; the session stays usable but may miss
// live messages.
func (c *Controller) Subscribe(ctx context.Context, s *Session) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.subscribed {
		s.mu.Unlock()
		return nil
	}
	s.subscribed = true
	s.mu.Unlock()

	sub, err := c.src.Subscribe(ctx, s.roomID, s.append)
	if err != nil {
		c.log.Error("chat subscribe failed", "room_id", s.roomID, "error", err)
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		if sub != nil {
			sub.Close()
		}
		return ErrSessionClosed
	}
	s.sub = sub
	s.mu.Unlock()
	return nil
}

// Publish sends text to the room. Empty or whitespace-only text is a no-op,
// not an error.
//
// The local echo behavior deliberately diverges between modes: a simulated
// source appends immediately with a client-assigned timestamp, while in live
// mode nothing is appended here — the log is fed only by the server's echo,
// which is the source of truth for sendTime. Do not "fix" this by appending
// optimistically in live mode.
func (c *Controller) Publish(ctx context.Context, s *Session, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.mu.Unlock()

	echo, err := c.src.Publish(ctx, s.roomID, s.selfID, text)
	if err != nil {
		return fmt.Errorf("failed to publish: %w", err)
	}
	if echo != nil {
		s.append(*echo)
	}
	return nil
}

// Close releases the session's subscription. It is idempotent and a no-op
// when nothing was ever subscribed (simulation mode). The session is
// terminal afterwards.
func (c *Controller) Close(s *Session) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub != nil {
		if err := sub.Close(); err != nil {
			c.log.Warn("chat subscription close failed", "room_id", s.roomID, "error", err)
		}
	}
}

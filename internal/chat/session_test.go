package chat

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource scripts a Source for controller tests. With live=true it
// behaves like a remote backend: publishes are recorded but nothing is
// returned for local append, and inbound deliveries happen only through
// Deliver. With live=false it behaves like the simulation: publish returns a
// client-stamped echo and no subscription is opened.
type fakeSource struct {
	live bool
	self ID
	hist []Message
	now  time.Time

	identityErr  error
	historyErr   error
	subscribeErr error

	subscribeCalls int
	published      []Message
	deliver        func(Message)
}

type fakeSub struct {
	closed int
}

func (s *fakeSub) Close() error {
	s.closed++
	return nil
}

func (f *fakeSource) Identity(ctx context.Context) (ID, error) {
	if f.identityErr != nil {
		return "", f.identityErr
	}
	return f.self, nil
}

func (f *fakeSource) History(ctx context.Context, roomID string) ([]Message, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return append([]Message(nil), f.hist...), nil
}

func (f *fakeSource) Subscribe(ctx context.Context, roomID string, deliver func(Message)) (Subscription, error) {
	f.subscribeCalls++
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	if !f.live {
		return nil, nil
	}
	f.deliver = deliver
	return &fakeSub{}, nil
}

func (f *fakeSource) Publish(ctx context.Context, roomID string, senderID ID, text string) (*Message, error) {
	msg := Message{RoomID: roomID, SenderID: senderID, Message: text}
	f.published = append(f.published, msg)
	if f.live {
		return nil, nil
	}
	stamped := msg
	t := f.now
	stamped.SendTime = &t
	return &stamped, nil
}

func (f *fakeSource) Deliver(m Message) {
	if f.deliver != nil {
		f.deliver(m)
	}
}

func newTestController(src Source) *Controller {
	return NewController(src, func() time.Time {
		return time.Date(2026, time.February, 1, 10, 0, 0, 0, time.UTC)
	}, nil)
}

func TestInitialize(t *testing.T) {
	t.Run("loads identity then history", func(t *testing.T) {
		sendTime := time.Date(2026, time.January, 30, 9, 0, 0, 0, time.UTC)
		src := &fakeSource{self: "7", hist: []Message{
			{SenderID: "3", Message: "is this still available?", SendTime: &sendTime},
		}}
		c := newTestController(src)

		s, err := c.Initialize(context.Background(), "room-1")
		require.NoError(t, err)
		assert.Equal(t, "room-1", s.RoomID())
		assert.Equal(t, ID("7"), s.SelfID())
		require.Len(t, s.Messages(), 1)
		assert.False(t, s.Mine(s.Messages()[0]))
	})

	t.Run("identity failure aborts before any subscription", func(t *testing.T) {
		src := &fakeSource{identityErr: errors.New("boom")}
		c := newTestController(src)

		_, err := c.Initialize(context.Background(), "room-1")
		require.Error(t, err)
		assert.Zero(t, src.subscribeCalls)
	})

	t.Run("history failure aborts", func(t *testing.T) {
		src := &fakeSource{self: "7", historyErr: errors.New("boom")}
		c := newTestController(src)

		_, err := c.Initialize(context.Background(), "room-1")
		require.Error(t, err)
	})
}

func TestSubscribeIdempotent(t *testing.T) {
	src := &fakeSource{live: true, self: "7"}
	c := newTestController(src)

	s, err := c.Initialize(context.Background(), "room-1")
	require.NoError(t, err)

	require.NoError(t, c.Subscribe(context.Background(), s))
	require.NoError(t, c.Subscribe(context.Background(), s))
	require.NoError(t, c.Subscribe(context.Background(), s))
	assert.Equal(t, 1, src.subscribeCalls)

	// One inbound delivery appends exactly once even after repeated
	// Subscribe calls.
	src.Deliver(Message{SenderID: "3", Message: "hello"})
	assert.Len(t, s.Messages(), 1)
}

func TestSubscribeFailureIsOneShot(t *testing.T) {
	src := &fakeSource{live: true, self: "7", subscribeErr: errors.New("transport down")}
	c := newTestController(src)

	s, err := c.Initialize(context.Background(), "room-1")
	require.NoError(t, err)

	require.Error(t, c.Subscribe(context.Background(), s))
	// No reconnect: a second call does not retry the transport.
	require.NoError(t, c.Subscribe(context.Background(), s))
	assert.Equal(t, 1, src.subscribeCalls)
}

func TestPublish(t *testing.T) {
	t.Run("whitespace-only text is a no-op", func(t *testing.T) {
		src := &fakeSource{self: "7"}
		c := newTestController(src)
		s, err := c.Initialize(context.Background(), "room-1")
		require.NoError(t, err)

		for _, text := range []string{"", "   ", "\n\t "} {
			require.NoError(t, c.Publish(context.Background(), s, text))
		}
		assert.Empty(t, s.Messages())
		assert.Empty(t, src.published)
	})

	t.Run("simulation appends synchronously with a client timestamp", func(t *testing.T) {
		src := &fakeSource{self: "7", now: time.Date(2026, time.February, 1, 10, 0, 0, 0, time.UTC)}
		c := newTestController(src)
		s, err := c.Initialize(context.Background(), "room-1")
		require.NoError(t, err)

		require.NoError(t, c.Publish(context.Background(), s, "hi"))

		msgs := s.Messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, s.SelfID(), msgs[0].SenderID)
		assert.True(t, s.Mine(msgs[0]))
		require.NotNil(t, msgs[0].SendTime)
	})

	t.Run("live mode never appends locally", func(t *testing.T) {
		src := &fakeSource{live: true, self: "7"}
		c := newTestController(src)
		s, err := c.Initialize(context.Background(), "room-1")
		require.NoError(t, err)
		require.NoError(t, c.Subscribe(context.Background(), s))

		require.NoError(t, c.Publish(context.Background(), s, "hi"))
		assert.Empty(t, s.Messages(), "live publish must wait for the server echo")
		require.Len(t, src.published, 1)

		// The append happens only when the echo comes back in.
		echoTime := time.Date(2026, time.February, 1, 10, 0, 1, 0, time.UTC)
		src.Deliver(Message{SenderID: "7", Message: "hi", SendTime: &echoTime})

		msgs := s.Messages()
		require.Len(t, msgs, 1)
		assert.True(t, s.Mine(msgs[0]))
		assert.Equal(t, echoTime, *msgs[0].SendTime)
	})

	t.Run("arrival order is kept, duplicates included", func(t *testing.T) {
		src := &fakeSource{live: true, self: "7"}
		c := newTestController(src)
		s, err := c.Initialize(context.Background(), "room-1")
		require.NoError(t, err)
		require.NoError(t, c.Subscribe(context.Background(), s))

		later := time.Date(2026, time.February, 1, 11, 0, 0, 0, time.UTC)
		earlier := later.Add(-time.Hour)
		src.Deliver(Message{SenderID: "3", Message: "first", SendTime: &later})
		src.Deliver(Message{SenderID: "3", Message: "second", SendTime: &earlier})
		src.Deliver(Message{SenderID: "3", Message: "second", SendTime: &earlier})

		msgs := s.Messages()
		require.Len(t, msgs, 3)
		assert.Equal(t, "first", msgs[0].Message)
		assert.Equal(t, "second", msgs[1].Message)
		assert.Equal(t, "second", msgs[2].Message)
	})
}

func TestClose(t *testing.T) {
	src := &fakeSource{live: true, self: "7"}
	c := newTestController(src)
	s, err := c.Initialize(context.Background(), "room-1")
	require.NoError(t, err)
	require.NoError(t, c.Subscribe(context.Background(), s))

	sub := s.sub.(*fakeSub)
	c.Close(s)
	c.Close(s)
	assert.Equal(t, 1, sub.closed, "close must release the subscription exactly once")

	// A closed session accepts nothing further.
	src.Deliver(Message{SenderID: "3", Message: "late"})
	assert.Empty(t, s.Messages())
	assert.ErrorIs(t, c.Publish(context.Background(), s, "hi"), ErrSessionClosed)
	assert.ErrorIs(t, c.Subscribe(context.Background(), s), ErrSessionClosed)
}

func TestCloseWithoutSubscribe(t *testing.T) {
	src := &fakeSource{self: "7"}
	c := newTestController(src)
	s, err := c.Initialize(context.Background(), "room-1")
	require.NoError(t, err)

	// Simulation mode never subscribed; close is still safe, twice.
	c.Close(s)
	c.Close(s)
}

func TestIDNormalization(t *testing.T) {
	cases := []struct {
		name string
		json string
		want ID
	}{
		{"string id", `{"senderId":"42","message":"x","sendTime":null}`, "42"},
		{"numeric id", `{"senderId":42,"message":"x","sendTime":null}`, "42"},
		{"null id", `{"senderId":null,"message":"x","sendTime":null}`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var m Message
			require.NoError(t, jsonUnmarshal(tc.json, &m))
			assert.Equal(t, tc.want, m.SenderID)
			assert.Nil(t, m.SendTime)
		})
	}

	t.Run("numeric and string forms classify as the same sender", func(t *testing.T) {
		var m Message
		require.NoError(t, jsonUnmarshal(`{"senderId":7,"message":"x"}`, &m))
		s := &Session{selfID: "7"}
		assert.True(t, s.Mine(m))
	})
}

func jsonUnmarshal(s string, v any) error {
	return json.Unmarshal([]byte(s), v)
}

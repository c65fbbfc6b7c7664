package devserver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const roomChannelPrefix = "rentmate:room:"

// Fanout relays room messages through Redis pub/sub so several devserver
// instances can share one chat plane. Without it the hub broadcasts locally
// only.
type Fanout struct {
	client *redis.Client
}

func NewFanout(redisURL string) (*Fanout, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return &Fanout{client: client}, nil
}

func (f *Fanout) Publish(roomID string, data []byte) error {
	return f.client.Publish(context.Background(), roomChannelPrefix+roomID, data).Err()
}

// Run pumps inbound pub/sub traffic into handler until ctx is cancelled.
func (f *Fanout) Run(ctx context.Context, handler func(roomID string, data []byte)) {
	pubsub := f.client.PSubscribe(ctx, roomChannelPrefix+"*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			roomID := strings.TrimPrefix(msg.Channel, roomChannelPrefix)
			handler(roomID, []byte(msg.Payload))
			slog.Debug("fanout message", "room_id", roomID)
		case <-ctx.Done():
			return
		}
	}
}

func (f *Fanout) Close() error {
	return f.client.Close()
}

package datasource

import (
	"context"
	"fmt"
	"sync"

	"github.com/rentmate/rentmate-go/internal/api"
	"github.com/rentmate/rentmate-go/internal/chat"
	"github.com/rentmate/rentmate-go/internal/models"
	"github.com/rentmate/rentmate-go/internal/store"
)

// Remote serves the DataSource surface from the real backend: REST through
// the api client and live chat through a per-room WebSocket channel.
type Remote struct {
	api      *api.Client
	wsURL    string
	sessions store.SessionStore

	mu       sync.Mutex
	channels map[string]*chat.WSChannel
}

func NewRemote(client *api.Client, wsURL string, sessions store.SessionStore) *Remote {
	return &Remote{
		api:      client,
		wsURL:    wsURL,
		sessions: sessions,
		channels: make(map[string]*chat.WSChannel),
	}
}

// --- chat.Source ---

func (r *Remote) Identity(ctx context.Context) (chat.ID, error) {
	user, err := r.api.Me(ctx)
	if err != nil {
		return "", err
	}
	return chat.ID(user.ID), nil
}

func (r *Remote) History(ctx context.Context, roomID string) ([]chat.Message, error) {
	return r.api.RoomMessages(ctx, roomID)
}

type remoteSubscription struct {
	remote *Remote
	roomID string
	ch     *chat.WSChannel
}

func (s *remoteSubscription) Close() error {
	s.remote.mu.Lock()
	if s.remote.channels[s.roomID] == s.ch {
		delete(s.remote.channels, s.roomID)
	}
	s.remote.mu.Unlock()
	return s.ch.Close()
}

func (r *Remote) Subscribe(ctx context.Context, roomID string, deliver func(chat.Message)) (chat.Subscription, error) {
	token := r.sessions.Get(store.KeyAccessToken)
	if token == "" {
		return nil, fmt.Errorf("%w: not logged in", api.ErrUnauthorized)
	}

	ch, err := chat.DialWS(ctx, r.wsURL, token, roomID, deliver)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.channels[roomID] = ch
	r.mu.Unlock()
	return &remoteSubscription{remote: r, roomID: roomID, ch: ch}, nil
}

// Publish sends through the room's open channel and returns no local echo:
// the appended copy arrives through the subscription with the
// server-assigned timestamp.
func (r *Remote) Publish(ctx context.Context, roomID string, senderID chat.ID, text string) (*chat.Message, error) {
	r.mu.Lock()
	ch := r.channels[roomID]
	r.mu.Unlock()
	if ch == nil {
		return nil, chat.ErrNotSubscribed
	}
	if err := ch.Publish(roomID, senderID, text); err != nil {
		return nil, err
	}
	return nil, nil
}

// --- marketplace operations, delegated to the REST client ---

func (r *Remote) Login(ctx context.Context, email, password string) (*models.User, error) {
	return r.api.Login(ctx, email, password)
}

func (r *Remote) ListItems(ctx context.Context, filter api.ItemFilter) ([]models.Item, error) {
	return r.api.ListItems(ctx, filter)
}

func (r *Remote) GetItem(ctx context.Context, itemID string) (*models.Item, error) {
	return r.api.GetItem(ctx, itemID)
}

func (r *Remote) CreateItem(ctx context.Context, item api.NewItem) (*models.Item, error) {
	return r.api.CreateItem(ctx, item)
}

func (r *Remote) UpdateItem(ctx context.Context, itemID string, item api.NewItem) (*models.Item, error) {
	return r.api.UpdateItem(ctx, itemID, item)
}

func (r *Remote) RequestRental(ctx context.Context, req api.RentalRequest) (*models.Rental, error) {
	return r.api.RequestRental(ctx, req)
}

func (r *Remote) ApproveRental(ctx context.Context, rentalID string) (*models.Rental, error) {
	return r.api.ApproveRental(ctx, rentalID)
}

func (r *Remote) RejectRental(ctx context.Context, rentalID string) (*models.Rental, error) {
	return r.api.RejectRental(ctx, rentalID)
}

func (r *Remote) CancelRental(ctx context.Context, rentalID string) (*models.Rental, error) {
	return r.api.CancelRental(ctx, rentalID)
}

func (r *Remote) ListRentals(ctx context.Context, role string) ([]models.Rental, error) {
	return r.api.ListRentals(ctx, role)
}

func (r *Remote) CreateReview(ctx context.Context, review api.NewReview) (*models.Review, error) {
	return r.api.CreateReview(ctx, review)
}

func (r *Remote) ItemReviews(ctx context.Context, itemID string) ([]models.Review, error) {
	return r.api.ItemReviews(ctx, itemID)
}

func (r *Remote) ConfirmPayment(ctx context.Context, conf api.PaymentConfirmation) (*models.Payment, error) {
	return r.api.ConfirmPayment(ctx, conf)
}

func (r *Remote) ListRooms(ctx context.Context) ([]models.Room, error) {
	return r.api.ListRooms(ctx)
}

func (r *Remote) OpenRoom(ctx context.Context, itemID string) (*models.Room, error) {
	return r.api.OpenRoom(ctx, itemID)
}

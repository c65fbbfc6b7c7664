// Package datasource selects, once at composition time, where the client's
// data comes from: the remote backend or a local simulation. Every feature
// talks to the same interface; nothing branches on a mode flag per
// operation.
package datasource

import (
	"context"

	"github.com/rentmate/rentmate-go/internal/api"
	"github.com/rentmate/rentmate-go/internal/chat"
	"github.com/rentmate/rentmate-go/internal/models"
)

// DataSource is the client's complete backend surface. Remote serves it over
// REST plus a WebSocket channel; Simulated serves it from in-memory
// fixtures for offline development.
type DataSource interface {
	chat.Source

	Login(ctx context.Context, email, password string) (*models.User, error)

	ListItems(ctx context.Context, filter api.ItemFilter) ([]models.Item, error)
	GetItem(ctx context.Context, itemID string) (*models.Item, error)
	CreateItem(ctx context.Context, item api.NewItem) (*models.Item, error)
	UpdateItem(ctx context.Context, itemID string, item api.NewItem) (*models.Item, error)

	RequestRental(ctx context.Context, req api.RentalRequest) (*models.Rental, error)
	ApproveRental(ctx context.Context, rentalID string) (*models.Rental, error)
	RejectRental(ctx context.Context, rentalID string) (*models.Rental, error)
	CancelRental(ctx context.Context, rentalID string) (*models.Rental, error)
	ListRentals(ctx context.Context, role string) ([]models.Rental, error)

	CreateReview(ctx context.Context, review api.NewReview) (*models.Review, error)
	ItemReviews(ctx context.Context, itemID string) ([]models.Review, error)

	ConfirmPayment(ctx context.Context, conf api.PaymentConfirmation) (*models.Payment, error)

	ListRooms(ctx context.Context) ([]models.Room, error)
	OpenRoom(ctx context.Context, itemID string) (*models.Room, error)
}

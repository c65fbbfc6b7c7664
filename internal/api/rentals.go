package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/rentmate/rentmate-go/internal/models"
)

// RentalRequest submits a rental for an item over a time window. The caller
// gates the window (both endpoints present, start strictly before end) at
// submission time; pricing preview never does.
type RentalRequest struct {
	ItemID     string    `json:"item_id"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	TotalPrice float64   `json:"total_price"`
}

func (c *Client) RequestRental(ctx context.Context, req RentalRequest) (*models.Rental, error) {
	var rental models.Rental
	if err := c.do(ctx, http.MethodPost, "/api/rentals", nil, req, &rental, true); err != nil {
		return nil, err
	}
	return &rental, nil
}

func (c *Client) ApproveRental(ctx context.Context, rentalID string) (*models.Rental, error) {
	return c.decideRental(ctx, rentalID, "approve")
}

func (c *Client) RejectRental(ctx context.Context, rentalID string) (*models.Rental, error) {
	return c.decideRental(ctx, rentalID, "reject")
}

func (c *Client) CancelRental(ctx context.Context, rentalID string) (*models.Rental, error) {
	return c.decideRental(ctx, rentalID, "cancel")
}

func (c *Client) decideRental(ctx context.Context, rentalID, action string) (*models.Rental, error) {
	var rental models.Rental
	path := "/api/rentals/" + rentalID + "/" + action
	if err := c.do(ctx, http.MethodPost, path, nil, nil, &rental, true); err != nil {
		return nil, err
	}
	return &rental, nil
}

// ListRentals returns the caller's rentals. Role is "renter" (requests I
// made) or "owner" (requests against my items); empty returns both.
func (c *Client) ListRentals(ctx context.Context, role string) ([]models.Rental, error) {
	query := url.Values{}
	if role != "" {
		query.Set("role", role)
	}
	var rentals []models.Rental
	if err := c.do(ctx, http.MethodGet, "/api/rentals", query, nil, &rentals, true); err != nil {
		return nil, err
	}
	return rentals, nil
}

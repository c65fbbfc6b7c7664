package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rentmate/rentmate-go/internal/models"
)

type NewReview struct {
	RentalID string `json:"rental_id"`
	Rating   int    `json:"rating"`
	Content  string `json:"content"`
}

// CreateReview submits a review for a completed rental. A second submission
// for the same rental surfaces as ErrDuplicateReview so the caller can show
// a specific message instead of a generic failure.
func (c *Client) CreateReview(ctx context.Context, review NewReview) (*models.Review, error) {
	var created models.Review
	err := c.do(ctx, http.MethodPost, "/api/reviews", nil, review, &created, true)
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateReview, apiErr.Message)
		}
		return nil, err
	}
	return &created, nil
}

func (c *Client) ItemReviews(ctx context.Context, itemID string) ([]models.Review, error) {
	var reviews []models.Review
	if err := c.do(ctx, http.MethodGet, "/api/items/"+itemID+"/reviews", nil, nil, &reviews, false); err != nil {
		return nil, err
	}
	return reviews, nil
}

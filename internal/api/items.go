package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rentmate/rentmate-go/internal/models"
)

// ItemFilter narrows an item listing. Zero values mean "no filter".
type ItemFilter struct {
	Keyword  string
	Category string
	Page     int
}

func (c *Client) ListItems(ctx context.Context, filter ItemFilter) ([]models.Item, error) {
	query := url.Values{}
	if filter.Keyword != "" {
		query.Set("keyword", filter.Keyword)
	}
	if filter.Category != "" {
		query.Set("category", filter.Category)
	}
	if filter.Page > 0 {
		query.Set("page", strconv.Itoa(filter.Page))
	}

	var items []models.Item
	if err := c.do(ctx, http.MethodGet, "/api/items", query, nil, &items, false); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) GetItem(ctx context.Context, itemID string) (*models.Item, error) {
	var item models.Item
	if err := c.do(ctx, http.MethodGet, "/api/items/"+itemID, nil, nil, &item, false); err != nil {
		return nil, err
	}
	return &item, nil
}

// NewItem is the payload for creating or updating a listing.
type NewItem struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	HourlyRate  float64 `json:"hourly_rate"`
	ImageURL    string  `json:"image_url,omitempty"`
	Latitude    float64 `json:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty"`
}

func (c *Client) CreateItem(ctx context.Context, item NewItem) (*models.Item, error) {
	var created models.Item
	if err := c.do(ctx, http.MethodPost, "/api/items", nil, item, &created, true); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateItem(ctx context.Context, itemID string, item NewItem) (*models.Item, error) {
	var updated models.Item
	if err := c.do(ctx, http.MethodPut, "/api/items/"+itemID, nil, item, &updated, true); err != nil {
		return nil, err
	}
	return &updated, nil
}

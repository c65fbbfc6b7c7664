package models

import "time"

type Item struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	HourlyRate  float64   `json:"hourly_rate"`
	ImageURL    string    `json:"image_url"`
	Latitude    float64   `json:"latitude,omitempty"`
	Longitude   float64   `json:"longitude,omitempty"`
	Available   bool      `json:"available"`
	CreatedAt   time.Time `json:"created_at"`
}

type ItemSummary struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Category   string  `json:"category"`
	HourlyRate float64 `json:"hourly_rate"`
	ImageURL   string  `json:"image_url"`
	Available  bool    `json:"available"`
}

package models

import "time"

const (
	RentalRequested = "requested"
	RentalApproved  = "approved"
	RentalRejected  = "rejected"
	RentalCancelled = "cancelled"
	RentalPaid      = "paid"
)

type Rental struct {
	ID         string    `json:"id"`
	ItemID     string    `json:"item_id"`
	RenterID   string    `json:"renter_id"`
	OwnerID    string    `json:"owner_id"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	TotalPrice float64   `json:"total_price"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

type Review struct {
	ID        string    `json:"id"`
	RentalID  string    `json:"rental_id"`
	AuthorID  string    `json:"author_id"`
	Rating    int       `json:"rating"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type Payment struct {
	ID         string    `json:"id"`
	RentalID   string    `json:"rental_id"`
	PaymentKey string    `json:"payment_key"`
	OrderID    string    `json:"order_id"`
	Amount     float64   `json:"amount"`
	Status     string    `json:"status"`
	ApprovedAt time.Time `json:"approved_at"`
}

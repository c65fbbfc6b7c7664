package api

import (
	"context"
	"net/http"

	"github.com/rentmate/rentmate-go/internal/models"
)

// PaymentConfirmation carries the parameters the payment provider appends to
// its success-redirect URL. The backend verifies the amount against the
// rental before capturing.
type PaymentConfirmation struct {
	PaymentKey string  `json:"paymentKey"`
	OrderID    string  `json:"orderId"`
	Amount     float64 `json:"amount"`
}

func (c *Client) ConfirmPayment(ctx context.Context, conf PaymentConfirmation) (*models.Payment, error) {
	var payment models.Payment
	if err := c.do(ctx, http.MethodPost, "/api/payments/confirm", nil, conf, &payment, true); err != nil {
		return nil, err
	}
	return &payment, nil
}

package lib

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentRequest is what the checkout engine asks a gateway to collect.
type PaymentRequest struct {
	ReferenceID string
	Amount      decimal.Decimal
	Currency    string
	ChannelCode string
	Description string
	ExpiresAt   time.Time
	Metadata    map[string]string
}

type PaymentResponse struct {
	Provider    string
	ExternalID  string
	Status      string
	CheckoutURL string
}

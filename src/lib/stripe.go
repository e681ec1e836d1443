package lib

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
)

var stripeClient *stripe.Client

func GetStripeClient(apiKey string) *stripe.Client {
	if stripeClient != nil {
		return stripeClient
	}
	stripeClient = stripe.NewClient(apiKey)
	return stripeClient
}

// StripeGateway collects payments through a hosted Checkout Session.
type StripeGateway struct {
	sc         *stripe.Client
	successURL string
}

func NewStripeGateway(sc *stripe.Client, appHost string) *StripeGateway {
	return &StripeGateway{
		sc:         sc,
		successURL: fmt.Sprintf("%s/checkout/callback/success", strings.TrimRight(appHost, "/")),
	}
}

func (g *StripeGateway) Provider() string {
	return "stripe"
}

// Stripe only accepts session expiry between 30 minutes and 24 hours ahead.
func stripeExpiry(at time.Time, now time.Time) int64 {
	lo, hi := now.Add(31*time.Minute), now.Add(24*time.Hour-time.Minute)
	if at.Before(lo) {
		at = lo
	}
	if at.After(hi) {
		at = hi
	}
	return at.Unix()
}

// Currencies Stripe bills in whole units. Everything else, IDR included,
// is sent in hundredths.
var stripeZeroDecimal = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true,
	"krw": true, "mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true,
	"vuv": true, "xaf": true, "xof": true, "xpf": true,
}

func stripeUnitAmount(amount decimal.Decimal, currency string) int64 {
	if stripeZeroDecimal[strings.ToLower(currency)] {
		return amount.Round(0).IntPart()
	}
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func (g *StripeGateway) CreatePaymentRequest(ctx context.Context, req PaymentRequest) (*PaymentResponse, error) {
	params := &stripe.CheckoutSessionCreateParams{
		SuccessURL:        stripe.String(g.successURL),
		UIMode:            stripe.String("hosted"),
		Mode:              stripe.String("payment"),
		ClientReferenceID: stripe.String(req.ReferenceID),
		ExpiresAt:         stripe.Int64(stripeExpiry(req.ExpiresAt, time.Now())),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency: stripe.String(strings.ToLower(req.Currency)),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
					UnitAmount: stripe.Int64(stripeUnitAmount(req.Amount, req.Currency)),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: req.Metadata,
	}
	session, err := g.sc.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	return &PaymentResponse{
		Provider:    g.Provider(),
		ExternalID:  session.ID,
		Status:      string(session.Status),
		CheckoutURL: session.URL,
	}, nil
}

// CancelPaymentRequest expires an open session so it can no longer be paid.
func (g *StripeGateway) CancelPaymentRequest(ctx context.Context, externalID string) error {
	if _, err := g.sc.V1CheckoutSessions.Expire(ctx, externalID, nil); err != nil {
		return fmt.Errorf("stripe: expire checkout session %s: %w", externalID, err)
	}
	return nil
}

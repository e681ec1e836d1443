// Package checkout turns a cart of slots and inventory into a HOLD booking
// with an invoice and a pending payment, and moves bookings through the rest
// of their lifecycle.
package checkout

import (
	"arena/src/config"
	"arena/src/lib"
	"arena/src/models"
	"arena/src/lib/metrics"
	"context"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"
)

type PaymentGateway interface {
	Provider() string
	CreatePaymentRequest(ctx context.Context, req lib.PaymentRequest) (*lib.PaymentResponse, error)
}

// PaymentCanceller is implemented by gateways that can withdraw an open
// payment request once its booking is released.
type PaymentCanceller interface {
	CancelPaymentRequest(ctx context.Context, externalID string) error
}

type Notifier interface {
	BookingConfirmed(ctx context.Context, booking *models.Booking) error
}

type Service struct {
	db       *gorm.DB
	gateway  PaymentGateway
	notifier Notifier
	currency string
	loc      *time.Location
	now      func() time.Time

	// in-flight confirmation notices
	notifying sync.WaitGroup
}

type Option func(*Service)

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithCurrency(currency string) Option {
	return func(s *Service) { s.currency = currency }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires the engine. gateway may be nil, in which case payments are
// created without a hosted checkout link.
func NewService(db *gorm.DB, gateway PaymentGateway, opts ...Option) *Service {
	s := &Service{
		db:       db,
		gateway:  gateway,
		currency: "IDR",
		loc:      config.BusinessLocation,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(ctx, config.TxTimeout)
	defer cancel()
	return s.db.WithContext(ctx).Transaction(fn)
}

// HoldWindow is how long an unpaid booking keeps its slots. Fee-bearing
// methods go through the gateway and expire fast.
func HoldWindow(fee int64) time.Duration {
	if fee > 0 {
		return config.GatewayHoldWindow
	}
	return config.OfflineHoldWindow
}

// cancelPaymentRequests withdraws released payments at the gateway. Errors
// are logged only; a payment that still goes through is recorded as
// REFUND_REQUIRED by ConfirmPayment.
func (s *Service) cancelPaymentRequests(ctx context.Context, externalIDs []string) {
	canceller, ok := s.gateway.(PaymentCanceller)
	if !ok {
		return
	}
	for _, id := range externalIDs {
		if err := canceller.CancelPaymentRequest(ctx, id); err != nil {
			metrics.GatewayFailure(s.gateway.Provider())
			log.Printf("[checkout] Could not cancel payment request %s: %s\n", id, err.Error())
		}
	}
}

// Drain waits for confirmation notices that are still being sent.
func (s *Service) Drain() {
	s.notifying.Wait()
}

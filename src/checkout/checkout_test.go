package checkout

import (
	"arena/src/apperror"
	"arena/src/config"
	"arena/src/db/dbtest"
	"arena/src/lib"
	"arena/src/models"
	"arena/src/models/scopes"
	"arena/src/pricing"
	"arena/src/types"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type gatewayMock struct {
	mock.Mock
}

func (m *gatewayMock) Provider() string {
	return "mock"
}

func (m *gatewayMock) CreatePaymentRequest(ctx context.Context, req lib.PaymentRequest) (*lib.PaymentResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*lib.PaymentResponse)
	return resp, args.Error(1)
}

type notifierMock struct {
	mock.Mock
}

func (m *notifierMock) BookingConfirmed(ctx context.Context, booking *models.Booking) error {
	return m.Called(booking.ID).Error(0)
}

type fixture struct {
	db      *gorm.DB
	svc     *Service
	gateway *gatewayMock
	clock   time.Time

	court     []models.Slot
	coach     []models.Slot
	qris      models.PaymentMethod
	cash      models.PaymentMethod
	racket    models.Inventory
	alice     models.User
	bob       models.User
	coachUser models.Staff
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	gdb := dbtest.Open(t)
	f := &fixture{
		db:      gdb,
		gateway: &gatewayMock{},
		clock:   time.Date(2025, 1, 5, 3, 0, 0, 0, time.UTC),
	}
	opts = append([]Option{WithClock(func() time.Time { return f.clock })}, opts...)
	f.svc = NewService(gdb, f.gateway, opts...)

	court := models.Court{Name: "Court 1", Slug: "court-1", IsActive: true}
	require.NoError(t, gdb.Create(&court).Error)
	f.coachUser = models.Staff{Name: "Coach", Role: types.STAFF_COACH, IsActive: true}
	require.NoError(t, gdb.Create(&f.coachUser).Error)

	engine := pricing.NewEngine(gdb, config.BusinessLocation)
	day, err := pricing.ParseLocalDate("2025-01-06", config.BusinessLocation)
	require.NoError(t, err)
	_, err = engine.ReconcileDayPricing(context.Background(), pricing.Court(court.ID), day, pricing.PricePlan{HappyPrice: 100_000, PeakPrice: 150_000})
	require.NoError(t, err)
	_, err = engine.ReconcileDayPricing(context.Background(), pricing.Staff(types.SLOT_COACH, f.coachUser.ID), day, pricing.PricePlan{HappyPrice: 50_000, PeakPrice: 75_000})
	require.NoError(t, err)
	require.NoError(t, gdb.Where("type = ?", types.SLOT_COURT).Order("start_at").Find(&f.court).Error)
	require.NoError(t, gdb.Where("type = ?", types.SLOT_COACH).Order("start_at").Find(&f.coach).Error)
	require.Len(t, f.court, 18)

	f.qris = models.PaymentMethod{Name: "QRIS", Code: "qris", ChannelCode: "QRIS", Fee: 4_500, IsActive: true}
	f.cash = models.PaymentMethod{Name: "Cash at venue", Code: "cash", IsActive: true}
	require.NoError(t, gdb.Create(&f.qris).Error)
	require.NoError(t, gdb.Create(&f.cash).Error)
	f.racket = models.Inventory{Name: "Racket", Quantity: 3, Price: 10_000, IsActive: true}
	require.NoError(t, gdb.Create(&f.racket).Error)
	f.alice = models.User{Name: "Alice", Email: "alice@example.com"}
	f.bob = models.User{Name: "Bob", Email: "bob@example.com"}
	require.NoError(t, gdb.Create(&f.alice).Error)
	require.NoError(t, gdb.Create(&f.bob).Error)
	return f
}

func (f *fixture) cashCheckout(user models.User, courtSlots ...models.Slot) CheckoutRequest {
	req := CheckoutRequest{UserID: user.ID, PaymentMethodID: f.cash.ID}
	for _, s := range courtSlots {
		req.CourtSlotIDs = append(req.CourtSlotIDs, s.ID)
	}
	return req
}

func (f *fixture) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func TestCheckoutHoldsSlotsAndBills(t *testing.T) {
	f := newFixture(t)
	f.gateway.
		On("CreatePaymentRequest", mock.Anything, mock.MatchedBy(func(r lib.PaymentRequest) bool {
			return r.ChannelCode == "QRIS" && r.Amount.Equal(decimal.NewFromInt(274_500)) && r.Currency == "IDR"
		})).
		Return(&lib.PaymentResponse{Provider: "mock", ExternalID: "pr-1", CheckoutURL: "https://pay/pr-1"}, nil).
		Once()

	result, err := f.svc.Checkout(context.Background(), CheckoutRequest{
		UserID:          f.alice.ID,
		PaymentMethodID: f.qris.ID,
		CourtSlotIDs:    []uint{f.court[1].ID, f.court[2].ID, f.court[1].ID},
		CoachSlotIDs:    []uint{f.coach[1].ID},
		Inventory:       []InventoryLine{{InventoryID: f.racket.ID, Quantity: 1}, {InventoryID: f.racket.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	f.gateway.AssertExpectations(t)

	assert.Equal(t, int64(270_000), result.Subtotal)
	assert.Equal(t, int64(4_500), result.ProcessingFee)
	assert.Equal(t, int64(274_500), result.Total)
	assert.Equal(t, "https://pay/pr-1", result.PaymentURL)
	assert.Regexp(t, `^INV-20250105-[0-9A-F]{8}$`, result.InvoiceNumber)
	assert.Equal(t, f.clock.Add(15*time.Minute), result.HoldExpiresAt)

	booking, err := f.svc.GetBooking(context.Background(), f.alice.ID, result.BookingID, false)
	require.NoError(t, err)
	assert.Equal(t, types.BOOKING_HOLD, booking.Status)
	assert.Equal(t, int64(270_000), booking.TotalPrice)
	assert.Equal(t, int64(4_500), booking.ProcessingFee)
	assert.Len(t, booking.Details, 2)
	assert.Len(t, booking.Coaches, 1)
	require.Len(t, booking.Inventories, 1)
	assert.Equal(t, 2, booking.Inventories[0].Quantity)
	require.Len(t, booking.Invoices, 1)
	assert.Equal(t, types.PAYMENT_PENDING, booking.Invoices[0].Status)
	require.Len(t, booking.Payments, 1)
	payment := booking.Payments[0]
	assert.Equal(t, result.InvoiceNumber, payment.ReferenceID)
	require.NotNil(t, payment.ExternalID)
	assert.Equal(t, "pr-1", *payment.ExternalID)
	assert.True(t, payment.DueDate.Equal(result.HoldExpiresAt))

	_, err = f.svc.GetBooking(context.Background(), f.bob.ID, result.BookingID, false)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestCheckoutFeeFreeMethodHoldsForADay(t *testing.T) {
	f := newFixture(t)
	result, err := f.svc.Checkout(context.Background(), f.cashCheckout(f.alice, f.court[0]))
	require.NoError(t, err)
	f.gateway.AssertNotCalled(t, "CreatePaymentRequest", mock.Anything, mock.Anything)

	assert.Equal(t, f.clock.Add(24*time.Hour), result.HoldExpiresAt)
	assert.Zero(t, result.ProcessingFee)
	assert.Equal(t, int64(100_000), result.Total)
	assert.Empty(t, result.PaymentURL)
}

func TestCheckoutGatewayFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.gateway.On("CreatePaymentRequest", mock.Anything, mock.Anything).Return(nil, errors.New("gateway down")).Once()

	req := f.cashCheckout(f.alice, f.court[0])
	req.PaymentMethodID = f.qris.ID
	result, err := f.svc.Checkout(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, result.PaymentURL)

	var payment models.Payment
	require.NoError(t, f.db.Where("reference_id = ?", result.InvoiceNumber).Take(&payment).Error)
	assert.Nil(t, payment.ExternalID)
	assert.Equal(t, types.PAYMENT_PENDING, payment.Status)
	f.gateway.AssertExpectations(t)
}

func TestCheckoutValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Checkout(ctx, CheckoutRequest{UserID: f.alice.ID, PaymentMethodID: f.cash.ID})
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))

	req := f.cashCheckout(f.alice, f.court[0])
	req.PaymentMethodID = 999
	_, err = f.svc.Checkout(ctx, req)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	require.NoError(t, f.db.Model(&f.cash).Update("is_active", false).Error)
	_, err = f.svc.Checkout(ctx, f.cashCheckout(f.alice, f.court[0]))
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))

	assert.Zero(t, f.count(t, &models.Booking{}, "user_id = ?", f.alice.ID))
}

func TestCheckoutFailsClosedOnInvalidSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.cashCheckout(f.alice, f.court[0])
	req.CourtSlotIDs = append(req.CourtSlotIDs, 99_999)
	_, err := f.svc.Checkout(ctx, req)
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))

	req = f.cashCheckout(f.alice, f.court[0])
	req.CourtSlotIDs = append(req.CourtSlotIDs, f.coach[0].ID)
	_, err = f.svc.Checkout(ctx, req)
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))

	require.NoError(t, f.db.Model(&f.court[3]).Update("is_available", false).Error)
	_, err = f.svc.Checkout(ctx, f.cashCheckout(f.alice, f.court[0], f.court[3]))
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))

	assert.Zero(t, f.count(t, &models.BookingDetail{}, "1 = 1"))
	assert.Zero(t, f.count(t, &models.Booking{}, "1 = 1"))
}

func TestCheckoutIsAtomicWhenOneSlotIsTaken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Checkout(ctx, f.cashCheckout(f.alice, f.court[5]))
	require.NoError(t, err)

	_, err = f.svc.Checkout(ctx, f.cashCheckout(f.bob, f.court[4], f.court[5], f.court[6]))
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	assert.Zero(t, f.count(t, &models.BookingDetail{}, "slot_id IN ?", []uint{f.court[4].ID, f.court[6].ID}))
	assert.Zero(t, f.count(t, &models.Booking{}, "user_id = ?", f.bob.ID))
	assert.Zero(t, f.count(t, &models.Invoice{}, "booking_id <> ?", first.BookingID))

	var owner models.BookingDetail
	require.NoError(t, f.db.Where("slot_id = ?", f.court[5].ID).Take(&owner).Error)
	assert.Equal(t, first.BookingID, owner.BookingID)
}

func TestCheckoutRejectsSlotsOfInactiveOwners(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.db.Model(&f.coachUser).Update("is_active", false).Error)
	req := f.cashCheckout(f.alice, f.court[0])
	req.CoachSlotIDs = []uint{f.coach[0].ID}
	_, err := f.svc.Checkout(ctx, req)
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))

	var court models.Court
	require.NoError(t, f.db.Take(&court, *f.court[0].CourtID).Error)
	require.NoError(t, f.db.Model(&court).Update("is_active", false).Error)
	_, err = f.svc.Checkout(ctx, f.cashCheckout(f.alice, f.court[0]))
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))

	assert.Zero(t, f.count(t, &models.Booking{}, "1 = 1"))
}

func TestCheckoutUniqueIndexCatchesLateReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	slot := f.court[0]
	other := models.Booking{UserID: f.bob.ID, Status: types.BOOKING_HOLD}
	require.NoError(t, f.db.Create(&other).Error)

	// Another booking takes the slot after the reserved check has passed.
	fired := false
	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test:take_slot", func(db *gorm.DB) {
		if fired || db.Statement.Schema == nil || db.Statement.Schema.Table != "booking_details" {
			return
		}
		fired = true
		require.NoError(t, db.Session(&gorm.Session{NewDB: true}).Create(&models.BookingDetail{
			BookingID: other.ID,
			SlotID:    slot.ID,
			Price:     slot.Price,
		}).Error)
	}))

	_, err := f.svc.Checkout(ctx, f.cashCheckout(f.alice, slot))
	require.Error(t, err)
	assert.True(t, fired)
	assert.True(t, apperror.Is(err, apperror.KindConflict))
	assert.Contains(t, apperror.Message(err), "booked by someone else")
	assert.Zero(t, f.count(t, &models.BookingDetail{}, "1 = 1"))
	assert.Zero(t, f.count(t, &models.Booking{}, "user_id = ?", f.alice.ID))
}

func TestConcurrentCheckoutsBookASlotOnce(t *testing.T) {
	f := newFixture(t)
	slot := f.court[10]
	users := []models.User{f.alice, f.bob}

	var wg sync.WaitGroup
	errs := make([]error, len(users))
	for i, u := range users {
		wg.Add(1)
		go func(i int, u models.User) {
			defer wg.Done()
			_, errs[i] = f.svc.Checkout(context.Background(), f.cashCheckout(u, slot))
		}(i, u)
	}
	wg.Wait()

	succeeded, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case apperror.Is(err, apperror.KindConflict):
			conflicts++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, int64(1), f.count(t, &models.BookingDetail{}, "slot_id = ?", slot.ID))
}

func TestRecheckoutReplacesCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Checkout(ctx, f.cashCheckout(f.alice, f.court[0]))
	require.NoError(t, err)

	req := f.cashCheckout(f.alice, f.court[1])
	req.BookingID = &first.BookingID
	second, err := f.svc.Checkout(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.BookingID, second.BookingID)
	assert.NotEqual(t, first.InvoiceNumber, second.InvoiceNumber)

	assert.Zero(t, f.count(t, &models.BookingDetail{}, "slot_id = ?", f.court[0].ID))
	assert.Equal(t, int64(1), f.count(t, &models.BookingDetail{}, "slot_id = ?", f.court[1].ID))
	assert.Equal(t, int64(1), f.count(t, &models.Invoice{}, "number = ? AND status = ?", first.InvoiceNumber, types.PAYMENT_VOID))
	assert.Equal(t, int64(1), f.count(t, &models.Payment{}, "reference_id = ? AND status = ?", second.InvoiceNumber, types.PAYMENT_PENDING))

	// The released slot is bookable again.
	_, err = f.svc.Checkout(ctx, f.cashCheckout(f.bob, f.court[0]))
	require.NoError(t, err)

	req = f.cashCheckout(f.bob, f.court[2])
	req.BookingID = &first.BookingID
	_, err = f.svc.Checkout(ctx, req)
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))
}

func TestInventoryStockIsNetOfHolds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.cashCheckout(f.alice, f.court[0])
	req.Inventory = []InventoryLine{{InventoryID: f.racket.ID, Quantity: 2}}
	_, err := f.svc.Checkout(ctx, req)
	require.NoError(t, err)

	req = f.cashCheckout(f.bob, f.court[1])
	req.Inventory = []InventoryLine{{InventoryID: f.racket.ID, Quantity: 2}}
	_, err = f.svc.Checkout(ctx, req)
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))
	assert.Zero(t, f.count(t, &models.BookingDetail{}, "slot_id = ?", f.court[1].ID))

	req.Inventory[0].Quantity = 1
	_, err = f.svc.Checkout(ctx, req)
	require.NoError(t, err)

	stock, err := f.svc.AvailableInventory(ctx)
	require.NoError(t, err)
	require.Len(t, stock, 1)
	assert.Zero(t, stock[0].Available)

	req = f.cashCheckout(f.bob, f.court[2])
	req.Inventory = []InventoryLine{{InventoryID: 12_345, Quantity: 1}}
	_, err = f.svc.Checkout(ctx, req)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestHoldWindow(t *testing.T) {
	assert.Equal(t, 15*time.Minute, HoldWindow(1))
	assert.Equal(t, 24*time.Hour, HoldWindow(0))
}

func TestReservedSlotsAreNotBookable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Checkout(ctx, f.cashCheckout(f.alice, f.court[0]))
	require.NoError(t, err)

	var open int64
	require.NoError(t, f.db.Model(&models.Slot{}).
		Where("type = ?", types.SLOT_COURT).
		Scopes(scopes.Available, pricing.Unreserved(types.SLOT_COURT)).
		Count(&open).Error)
	assert.Equal(t, int64(17), open)
}

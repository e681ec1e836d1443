package checkout

import (
	"arena/src/apperror"
	"arena/src/lib"
	"arena/src/lib/metrics"
	"arena/src/models"
	"arena/src/models/scopes"
	"arena/src/pricing"
	"arena/src/types"
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CheckoutRequest struct {
	UserID          uint
	BookingID       *uint
	PaymentMethodID uint
	CourtSlotIDs    []uint
	CoachSlotIDs    []uint
	BallboySlotIDs  []uint
	Inventory       []InventoryLine
}

func (r CheckoutRequest) slotGroups() []slotGroup {
	return []slotGroup{
		{Type: types.SLOT_COURT, IDs: r.CourtSlotIDs},
		{Type: types.SLOT_COACH, IDs: r.CoachSlotIDs},
		{Type: types.SLOT_BALLBOY, IDs: r.BallboySlotIDs},
	}
}

type slotGroup struct {
	Type types.SlotType
	IDs  []uint
}

type CheckoutResult struct {
	BookingID     uint      `json:"booking_id"`
	InvoiceNumber string    `json:"invoice_number"`
	Subtotal      int64     `json:"subtotal"`
	ProcessingFee int64     `json:"processing_fee"`
	Total         int64     `json:"total"`
	HoldExpiresAt time.Time `json:"hold_expires_at"`
	PaymentURL    string    `json:"payment_url,omitempty"`
}

// Checkout reserves the requested slots and inventory for the user in one
// transaction. Either every line is reserved or nothing is. The payment
// gateway is called after commit and its failure only leaves PaymentURL
// empty.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	started := time.Now()
	if len(req.CourtSlotIDs)+len(req.CoachSlotIDs)+len(req.BallboySlotIDs) == 0 {
		metrics.Checkout("rejected", time.Since(started).Seconds())
		return nil, apperror.BadRequest("select at least one slot")
	}

	var (
		result  CheckoutResult
		method  models.PaymentMethod
		payment models.Payment
		voided  []string
	)
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", req.PaymentMethodID).Take(&method).Error; err != nil {
			return apperror.NotFoundOr(err, "payment method %d not found", req.PaymentMethodID)
		}
		if !method.IsActive {
			return apperror.BadRequest("payment method %s is not active", method.Name)
		}

		booking, released, err := s.holdBooking(tx, req.UserID, req.BookingID)
		voided = released
		if err != nil {
			return err
		}

		var subtotal int64
		for _, group := range req.slotGroups() {
			sum, err := reserveSlots(tx, booking.ID, group)
			if err != nil {
				return err
			}
			subtotal += sum
		}
		extras, err := reserveInventory(tx, booking.ID, req.Inventory)
		if err != nil {
			return err
		}
		subtotal += extras

		fee := method.Fee
		total := subtotal + fee
		now := s.now()
		expires := now.Add(HoldWindow(fee))
		if err := tx.Model(booking).Updates(map[string]any{
			"total_price":     subtotal,
			"processing_fee":  fee,
			"hold_expires_at": expires,
		}).Error; err != nil {
			return err
		}

		number := newInvoiceNumber(now, s.loc)
		payment = models.Payment{
			BookingID:       booking.ID,
			PaymentMethodID: method.ID,
			ReferenceID:     number,
			Amount:          total,
			Fee:             fee,
			Status:          types.PAYMENT_PENDING,
			DueDate:         expires,
			Metadata: types.JSONB{
				"booking_id": booking.ID,
				"method":     method.Code,
			},
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		invoice := models.Invoice{
			BookingID:     booking.ID,
			Number:        number,
			Subtotal:      subtotal,
			ProcessingFee: fee,
			Total:         total,
			Status:        types.PAYMENT_PENDING,
			PaymentID:     &payment.ID,
		}
		if err := tx.Create(&invoice).Error; err != nil {
			return err
		}

		result = CheckoutResult{
			BookingID:     booking.ID,
			InvoiceNumber: number,
			Subtotal:      subtotal,
			ProcessingFee: fee,
			Total:         total,
			HoldExpiresAt: expires,
		}
		return nil
	})
	if err != nil {
		if apperror.KindOf(err) == apperror.KindInternal {
			metrics.Checkout("error", time.Since(started).Seconds())
			log.Printf("[checkout] Error for user %d: %s\n", req.UserID, err.Error())
			return nil, apperror.Internal(err, "could not complete checkout")
		}
		metrics.Checkout("rejected", time.Since(started).Seconds())
		return nil, err
	}
	metrics.Checkout("ok", time.Since(started).Seconds())
	s.cancelPaymentRequests(ctx, voided)
	log.Printf("[checkout] Booking %d held until %s, invoice %s total %d\n", result.BookingID, result.HoldExpiresAt.Format(time.RFC3339), result.InvoiceNumber, result.Total)

	if method.ChannelCode != "" && s.gateway != nil {
		result.PaymentURL = s.requestPayment(ctx, payment, method)
	}
	return &result, nil
}

// holdBooking creates a new HOLD booking or reopens an existing one owned by
// the user, clearing its previous cart. It returns the gateway ids of the
// payments it voided.
func (s *Service) holdBooking(tx *gorm.DB, userID uint, bookingID *uint) (*models.Booking, []string, error) {
	if bookingID == nil {
		booking := models.Booking{UserID: userID, Status: types.BOOKING_HOLD}
		if err := tx.Create(&booking).Error; err != nil {
			return nil, nil, err
		}
		return &booking, nil, nil
	}

	var booking models.Booking
	if err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", *bookingID).
		Take(&booking).
		Error; err != nil {
		return nil, nil, apperror.NotFoundOr(err, "booking %d not found", *bookingID)
	}
	if booking.UserID != userID {
		return nil, nil, apperror.BadRequest("booking %d belongs to another user", booking.ID)
	}
	if booking.Status != types.BOOKING_HOLD {
		return nil, nil, apperror.BadRequest("booking %d is %s and can no longer be changed", booking.ID, booking.Status)
	}
	if err := clearCart(tx, booking.ID); err != nil {
		return nil, nil, err
	}
	voided, err := settlePending(tx, booking.ID, types.PAYMENT_VOID)
	if err != nil {
		return nil, nil, err
	}
	return &booking, voided, nil
}

// clearCart removes every detail row of the booking, which frees its slots.
func clearCart(tx *gorm.DB, bookingID uint) error {
	for _, child := range models.BookingChildren() {
		if err := tx.Where("booking_id = ?", bookingID).Delete(child).Error; err != nil {
			return fmt.Errorf("clear booking %d: %w", bookingID, err)
		}
	}
	return nil
}

// settlePending moves the booking's pending payments and invoices to status
// and returns the gateway ids of the payments it moved.
func settlePending(tx *gorm.DB, bookingID uint, status types.PaymentStatus) ([]string, error) {
	var external []string
	if err := tx.
		Model(&models.Payment{}).
		Where("booking_id = ? AND external_id IS NOT NULL", bookingID).
		Scopes(scopes.WithPendingStatus).
		Pluck("external_id", &external).
		Error; err != nil {
		return nil, err
	}
	if err := tx.
		Model(&models.Payment{}).
		Where("booking_id = ?", bookingID).
		Scopes(scopes.WithPendingStatus).
		Update("status", status).
		Error; err != nil {
		return nil, err
	}
	return external, tx.
		Model(&models.Invoice{}).
		Where("booking_id = ?", bookingID).
		Scopes(scopes.WithPendingStatus).
		Update("status", status).
		Error
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// reserveSlots attaches the group's slots to the booking and returns their
// price sum. Missing, unavailable or wrongly typed ids and slots of an
// inactive court or staff member fail the whole group; a slot another
// booking already holds is a conflict.
func reserveSlots(tx *gorm.DB, bookingID uint, group slotGroup) (int64, error) {
	ids := uniqueIDs(group.IDs)
	if len(ids) == 0 {
		return 0, nil
	}
	var slots []models.Slot
	if err := tx.
		Scopes(scopes.WithIDs(ids...), scopes.Available, pricing.OwnerActive).
		Where("type = ?", group.Type).
		Order("id").
		Find(&slots).
		Error; err != nil {
		return 0, err
	}
	if len(slots) < len(ids) {
		return 0, apperror.BadRequest("%d of %d %s slots are invalid or unavailable", len(ids)-len(slots), len(ids), group.Type)
	}

	reserved, err := pricing.ReservedSlotIDs(tx, group.Type, ids)
	if err != nil {
		return 0, err
	}
	if len(reserved) > 0 {
		return 0, apperror.Conflict("%d %s slots are already booked", len(reserved), group.Type)
	}

	var sum int64
	for _, slot := range slots {
		if err := tx.Create(models.NewReservation(bookingID, slot)).Error; err != nil {
			if apperror.Is(err, apperror.KindConflict) {
				return 0, apperror.Conflict("slot %d was booked by someone else", slot.ID)
			}
			return 0, err
		}
		sum += slot.Price
	}
	return sum, nil
}

// requestPayment asks the gateway for a hosted payment and records it.
// Failures are logged and counted only.
func (s *Service) requestPayment(ctx context.Context, payment models.Payment, method models.PaymentMethod) string {
	resp, err := s.gateway.CreatePaymentRequest(ctx, lib.PaymentRequest{
		ReferenceID: payment.ReferenceID,
		Amount:      decimal.NewFromInt(payment.Amount),
		Currency:    s.currency,
		ChannelCode: method.ChannelCode,
		Description: fmt.Sprintf("Booking #%d", payment.BookingID),
		ExpiresAt:   payment.DueDate,
		Metadata: map[string]string{
			"booking_id": strconv.FormatUint(uint64(payment.BookingID), 10),
		},
	})
	if err != nil {
		metrics.GatewayFailure(s.gateway.Provider())
		log.Printf("[checkout] Payment request for %s failed: %s\n", payment.ReferenceID, err.Error())
		return ""
	}
	updates := map[string]any{"external_id": resp.ExternalID}
	if resp.CheckoutURL != "" {
		updates["checkout_url"] = resp.CheckoutURL
	}
	if err := s.db.WithContext(ctx).Model(&payment).Updates(updates).Error; err != nil {
		log.Printf("[checkout] Could not store gateway reference for %s: %s\n", payment.ReferenceID, err.Error())
	}
	return resp.CheckoutURL
}

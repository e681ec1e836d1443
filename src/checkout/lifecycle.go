package checkout

import (
	"arena/src/apperror"
	"arena/src/config"
	"arena/src/lib/metrics"
	"arena/src/models"
	"arena/src/types"
	"context"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func lockedPayment(tx *gorm.DB, referenceID string) (*models.Payment, error) {
	var payment models.Payment
	if err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("reference_id = ?", referenceID).
		Take(&payment).
		Error; err != nil {
		return nil, apperror.NotFoundOr(err, "payment %s not found", referenceID)
	}
	return &payment, nil
}

func lockedBooking(tx *gorm.DB, bookingID uint) (*models.Booking, error) {
	var booking models.Booking
	if err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", bookingID).
		Take(&booking).
		Error; err != nil {
		return nil, apperror.NotFoundOr(err, "booking %d not found", bookingID)
	}
	return &booking, nil
}

// release cancels a HOLD booking and frees everything it reserved. It
// returns the gateway ids of the payments it voided.
func release(tx *gorm.DB, booking *models.Booking, reason string) ([]string, error) {
	if err := clearCart(tx, booking.ID); err != nil {
		return nil, err
	}
	voided, err := settlePending(tx, booking.ID, types.PAYMENT_VOID)
	if err != nil {
		return nil, err
	}
	booking.Status = types.BOOKING_CANCELLED
	booking.CancellationReason = &reason
	booking.HoldExpiresAt = nil
	return voided, tx.Model(booking).Updates(map[string]any{
		"status":              types.BOOKING_CANCELLED,
		"cancellation_reason": reason,
		"hold_expires_at":     nil,
	}).Error
}

// paidUpdates is the column set written when the gateway reports success.
func paidUpdates(status types.PaymentStatus, paidAt time.Time, externalID string) map[string]any {
	updates := map[string]any{"status": status, "paid_at": paidAt}
	if externalID != "" {
		updates["external_id"] = externalID
	}
	return updates
}

// ConfirmPayment marks the payment and its invoice paid and confirms the
// booking. A payment that is already paid is a no-op.
//
// Money that arrives after the booking was released is still recorded: the
// payment and its invoice move to REFUND_REQUIRED with paid_at and the
// gateway id set, and a Conflict is returned.
func (s *Service) ConfirmPayment(ctx context.Context, referenceID, externalID string) (*models.Booking, error) {
	var booking *models.Booking
	alreadyPaid, late := false, false
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		payment, err := lockedPayment(tx, referenceID)
		if err != nil {
			return err
		}
		booking, err = lockedBooking(tx, payment.BookingID)
		if err != nil {
			return err
		}
		if payment.Status == types.PAYMENT_PAID {
			alreadyPaid = true
			return nil
		}
		if payment.Status == types.PAYMENT_REFUND_REQUIRED {
			return apperror.Conflict("payment %s was already recorded for refund", referenceID)
		}
		if payment.Status != types.PAYMENT_PENDING || booking.Status != types.BOOKING_HOLD {
			late = true
			if err := tx.Model(payment).Updates(paidUpdates(types.PAYMENT_REFUND_REQUIRED, s.now(), externalID)).Error; err != nil {
				return err
			}
			return tx.
				Model(&models.Invoice{}).
				Where("payment_id = ?", payment.ID).
				Update("status", types.PAYMENT_REFUND_REQUIRED).
				Error
		}

		if err := tx.Model(payment).Updates(paidUpdates(types.PAYMENT_PAID, s.now(), externalID)).Error; err != nil {
			return err
		}
		if err := tx.
			Model(&models.Invoice{}).
			Where("payment_id = ?", payment.ID).
			Update("status", types.PAYMENT_PAID).
			Error; err != nil {
			return err
		}
		booking.Status = types.BOOKING_CONFIRMED
		booking.HoldExpiresAt = nil
		return tx.Model(booking).Updates(map[string]any{
			"status":          types.BOOKING_CONFIRMED,
			"hold_expires_at": nil,
		}).Error
	})
	if err != nil {
		return nil, internalOr(err, "could not confirm payment")
	}
	if alreadyPaid {
		return booking, nil
	}
	if late {
		metrics.LatePayment()
		log.Printf("[checkout] Payment %s arrived for booking %d which is %s, refund required\n", referenceID, booking.ID, booking.Status)
		return nil, apperror.Conflict("booking %d is %s, payment %s needs a refund", booking.ID, booking.Status, referenceID)
	}
	log.Printf("[checkout] Booking %d confirmed by payment %s\n", booking.ID, referenceID)
	s.notifyConfirmed(booking.ID)
	return booking, nil
}

// ExpirePayment records a gateway-side expiry or failure and cancels the
// booking if it is still on hold.
func (s *Service) ExpirePayment(ctx context.Context, referenceID string, status types.PaymentStatus) error {
	if status != types.PAYMENT_EXPIRED && status != types.PAYMENT_FAILED {
		return apperror.BadRequest("cannot expire a payment as %s", status)
	}
	var voided []string
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		payment, err := lockedPayment(tx, referenceID)
		if err != nil {
			return err
		}
		switch payment.Status {
		case types.PAYMENT_PAID:
			return apperror.BadRequest("payment %s is already paid", referenceID)
		case types.PAYMENT_PENDING:
		default:
			return nil
		}
		if err := tx.Model(payment).Update("status", status).Error; err != nil {
			return err
		}
		if err := tx.
			Model(&models.Invoice{}).
			Where("payment_id = ?", payment.ID).
			Update("status", status).
			Error; err != nil {
			return err
		}
		booking, err := lockedBooking(tx, payment.BookingID)
		if err != nil {
			return err
		}
		if booking.Status != types.BOOKING_HOLD {
			return nil
		}
		voided, err = release(tx, booking, "payment "+string(status))
		return err
	})
	if err != nil {
		return internalOr(err, "could not expire payment")
	}
	s.cancelPaymentRequests(ctx, voided)
	return nil
}

// ExpireStaleHolds cancels every HOLD booking whose hold has run out and
// returns how many were cancelled.
func (s *Service) ExpireStaleHolds(ctx context.Context) (int, error) {
	now := s.now()
	var ids []uint
	if err := s.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("status = ? AND hold_expires_at < ?", types.BOOKING_HOLD, now).
		Order("id").
		Pluck("id", &ids).
		Error; err != nil {
		return 0, apperror.Internal(err, "could not list stale holds")
	}

	expired := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		done := false
		var voided []string
		err := s.inTx(ctx, func(tx *gorm.DB) error {
			booking, err := lockedBooking(tx, id)
			if err != nil {
				return err
			}
			if booking.Status != types.BOOKING_HOLD || booking.HoldExpiresAt == nil || !booking.HoldExpiresAt.Before(now) {
				return nil
			}
			expiredIDs, err := settlePending(tx, booking.ID, types.PAYMENT_EXPIRED)
			if err != nil {
				return err
			}
			released, err := release(tx, booking, "hold expired")
			if err != nil {
				return err
			}
			voided = append(expiredIDs, released...)
			done = true
			return nil
		})
		if err != nil {
			log.Printf("[checkout] Error expiring booking %d: %s\n", id, err.Error())
			continue
		}
		if done {
			expired++
			s.cancelPaymentRequests(ctx, voided)
		}
	}
	if expired > 0 {
		log.Printf("[checkout] Expired %d stale holds\n", expired)
	}
	return expired, nil
}

// CancelBooking lets the owner drop a booking that is still on hold.
func (s *Service) CancelBooking(ctx context.Context, userID, bookingID uint, reason string) (*models.Booking, error) {
	if reason == "" {
		reason = "cancelled by customer"
	}
	var (
		booking *models.Booking
		voided  []string
	)
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		var err error
		booking, err = lockedBooking(tx, bookingID)
		if err != nil {
			return err
		}
		if booking.UserID != userID {
			return apperror.BadRequest("booking %d belongs to another user", bookingID)
		}
		if booking.Status != types.BOOKING_HOLD {
			return apperror.BadRequest("booking %d is %s and cannot be cancelled", bookingID, booking.Status)
		}
		voided, err = release(tx, booking, reason)
		return err
	})
	if err != nil {
		return nil, internalOr(err, "could not cancel booking")
	}
	s.cancelPaymentRequests(ctx, voided)
	return booking, nil
}

// GetBooking loads a booking with its cart and billing. Non-admins only see
// their own bookings.
func (s *Service) GetBooking(ctx context.Context, userID, bookingID uint, admin bool) (*models.Booking, error) {
	var booking models.Booking
	tx := s.db.WithContext(ctx).Where("id = ?", bookingID)
	if !admin {
		tx = tx.Where("user_id = ?", userID)
	}
	err := tx.
		Preload("Details.Slot").
		Preload("Coaches.Slot").
		Preload("Ballboys.Slot").
		Preload("Inventories.Inventory").
		Preload("Invoices").
		Preload("Payments.PaymentMethod").
		Take(&booking).
		Error
	if err != nil {
		return nil, apperror.NotFoundOr(err, "booking %d not found", bookingID)
	}
	return &booking, nil
}

// notifyConfirmed sends the confirmation notice in the background with its
// own deadline. Drain waits for it.
func (s *Service) notifyConfirmed(bookingID uint) {
	if s.notifier == nil {
		return
	}
	s.notifying.Add(1)
	go func() {
		defer s.notifying.Done()
		ctx, cancel := context.WithTimeout(context.Background(), config.NotifyTimeout)
		defer cancel()

		var booking models.Booking
		if err := s.db.WithContext(ctx).
			Preload("User").
			Preload("Details.Slot.Court").
			Where("id = ?", bookingID).
			Take(&booking).
			Error; err != nil {
			log.Printf("[checkout] Could not load booking %d for notification: %s\n", bookingID, err.Error())
			return
		}
		if err := s.notifier.BookingConfirmed(ctx, &booking); err != nil {
			log.Printf("[checkout] Could not notify booking %d: %s\n", bookingID, err.Error())
		}
	}()
}

func internalOr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if apperror.KindOf(err) == apperror.KindInternal {
		log.Printf("[checkout] %s: %s\n", msg, err.Error())
		return apperror.Internal(err, "%s", msg)
	}
	return err
}

// Sweep is the scheduler entry point for ExpireStaleHolds.
func (s *Service) Sweep(ctx context.Context) {
	started := time.Now()
	if _, err := s.ExpireStaleHolds(ctx); err != nil {
		log.Printf("[checkout] Hold sweep failed after %s: %s\n", time.Since(started), err.Error())
	}
}

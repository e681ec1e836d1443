package pricing

import (
	"arena/src/apperror"
	"arena/src/models"
	"arena/src/models/scopes"
	"arena/src/types"
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"
)

// OverrideHourPrice sets the price of a single hour, creating the slot when
// the hour has none. A reserved slot is reported in SkippedReserved and left
// alone.
func (e *Engine) OverrideHourPrice(ctx context.Context, res Resource, day time.Time, hour int, price int64) (*DiffResult, error) {
	if hour < 0 || hour > 23 {
		return nil, apperror.BadRequest("hour %d out of range", hour)
	}
	if price < 0 {
		return nil, apperror.BadRequest("price must not be negative")
	}
	var result DiffResult
	err := e.inTx(ctx, func(tx *gorm.DB) error {
		if err := res.check(tx); err != nil {
			return err
		}
		start, end := ToAbsoluteHourRange(day, hour, e.loc)

		var slot models.Slot
		err := tx.
			Scopes(scopes.ForResource(res.Type, res.ID), scopes.StartingBetween(start, end)).
			Take(&slot).
			Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			s := res.newSlot()
			s.StartAt, s.EndAt, s.Price = start, end, price
			if err := tx.Create(&s).Error; err != nil {
				return err
			}
			result.Created = 1
		case err != nil:
			return err
		default:
			reserved, err := IsSlotReserved(tx, slot)
			if err != nil {
				return err
			}
			if reserved {
				result.SkippedReserved = 1
				break
			}
			if slot.Price != price {
				r := tx.Model(&slot).Scopes(Unreserved(res.Type)).Update("price", price)
				if r.Error != nil {
					return r.Error
				}
				result.Updated = int(r.RowsAffected)
				result.SkippedReserved = 1 - result.Updated
			}
		}

		if res.Type == types.SLOT_COURT {
			n, err := refreshCostSchedule(tx, res.ID, start, end)
			if err != nil {
				return err
			}
			result.ScheduleWrites = n
		}
		return nil
	})
	if err != nil {
		if apperror.KindOf(err) == apperror.KindInternal {
			log.Printf("Error overriding %s hour %d: %s\n", res, hour, err.Error())
			return nil, apperror.Internal(err, "could not override hour price")
		}
		return nil, err
	}
	result.record(res)
	return &result, nil
}

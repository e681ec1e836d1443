package pricing

import (
	"arena/src/apperror"
	"arena/src/models"
	"arena/src/types"
	"context"
	"log"
	"time"

	"gorm.io/gorm"
)

type priceChange struct {
	ID    uint
	Price int64
}

type dayDiff struct {
	Create []int
	Update []priceChange
	Delete []uint
	Kept   int
}

// diffDay compares target hour prices against what is stored. Reserved slots
// are left exactly as they are whatever the target says.
func diffDay(target map[int]int64, existing map[int]daySlot) dayDiff {
	var d dayDiff
	for _, h := range sortedHours(existing) {
		cur := existing[h]
		price, wanted := target[h]
		switch {
		case cur.reserved:
			if !wanted || price != cur.slot.Price {
				d.Kept++
			}
		case !wanted:
			d.Delete = append(d.Delete, cur.slot.ID)
		case price != cur.slot.Price:
			d.Update = append(d.Update, priceChange{ID: cur.slot.ID, Price: price})
		}
	}
	for _, h := range sortedHours(target) {
		if _, ok := existing[h]; !ok {
			d.Create = append(d.Create, h)
		}
	}
	return d
}

func (e *Engine) applyDiff(tx *gorm.DB, res Resource, day time.Time, target map[int]int64, d dayDiff) (DiffResult, error) {
	r := DiffResult{SkippedReserved: d.Kept}

	if len(d.Delete) > 0 {
		result := tx.Where("id IN ?", d.Delete).Scopes(Unreserved(res.Type)).Delete(&models.Slot{})
		if result.Error != nil {
			return r, result.Error
		}
		r.Deleted = int(result.RowsAffected)
		r.SkippedReserved += len(d.Delete) - r.Deleted
	}

	for _, u := range d.Update {
		result := tx.
			Model(&models.Slot{}).
			Where("id = ?", u.ID).
			Scopes(Unreserved(res.Type)).
			Update("price", u.Price)
		if result.Error != nil {
			return r, result.Error
		}
		if result.RowsAffected == 0 {
			r.SkippedReserved++
			continue
		}
		r.Updated++
	}

	if len(d.Create) > 0 {
		slots := make([]models.Slot, 0, len(d.Create))
		for _, h := range d.Create {
			s := res.newSlot()
			s.StartAt, s.EndAt = ToAbsoluteHourRange(day, h, e.loc)
			s.Price = target[h]
			slots = append(slots, s)
		}
		if err := tx.Create(&slots).Error; err != nil {
			return r, err
		}
		r.Created = len(slots)
	}
	return r, nil
}

// ReconcileDayPricing moves one day of a resource's slots to the plan with
// the fewest writes: missing hours are created, changed prices updated and
// hours no longer offered deleted. Reserved slots are never touched.
func (e *Engine) ReconcileDayPricing(ctx context.Context, res Resource, day time.Time, plan PricePlan) (*DiffResult, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	var result DiffResult
	err := e.inTx(ctx, func(tx *gorm.DB) error {
		if err := res.check(tx); err != nil {
			return err
		}
		from, to := DayBounds(day, e.loc)
		existing, err := e.loadDay(tx, res, from, to)
		if err != nil {
			return err
		}
		target := plan.Targets()
		r, err := e.applyDiff(tx, res, day, target, diffDay(target, existing))
		if err != nil {
			return err
		}
		if res.Type == types.SLOT_COURT {
			n, err := refreshCostSchedule(tx, res.ID, from, to)
			if err != nil {
				return err
			}
			r.ScheduleWrites = n
		}
		result = r
		return nil
	})
	if err != nil {
		if apperror.KindOf(err) == apperror.KindInternal {
			log.Printf("Error reconciling %s on %s: %s\n", res, day.Format("2006-01-02"), err.Error())
			return nil, apperror.Internal(err, "could not reconcile day pricing")
		}
		return nil, err
	}
	result.record(res)
	return &result, nil
}

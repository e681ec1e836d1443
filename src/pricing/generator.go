package pricing

import (
	"arena/src/apperror"
	"arena/src/config"
	"arena/src/types"
	"context"
	"log"
	"time"

	"gorm.io/gorm"
)

type RangeRequest struct {
	From       time.Time
	To         time.Time
	DaysOfWeek []int
	Plan       PricePlan
}

func (r RangeRequest) validate(loc *time.Location) error {
	if len(r.DaysOfWeek) == 0 {
		return apperror.BadRequest("days_of_week must not be empty")
	}
	for _, d := range r.DaysOfWeek {
		if d < 1 || d > 7 {
			return apperror.BadRequest("day of week %d out of range, expected 1 (Monday) to 7 (Sunday)", d)
		}
	}
	from, to := r.From.In(loc), r.To.In(loc)
	if to.Before(from) {
		return apperror.BadRequest("to_date is before from_date")
	}
	if to.Sub(from) > time.Duration(config.MaxRangeDays)*24*time.Hour {
		return apperror.BadRequest("range may span at most %d days", config.MaxRangeDays)
	}
	return r.Plan.Validate()
}

type GenerateResult struct {
	DaysProcessed int `json:"days_processed"`
	DiffResult
}

// GenerateSlots rebuilds every selected weekday in [From,To] from the plan.
// Each day commits on its own, so a failure leaves earlier days written and
// the returned result counts them. Unreserved slots of a day are replaced;
// hours holding a reserved slot keep it and get no new slot.
func (e *Engine) GenerateSlots(ctx context.Context, res Resource, req RangeRequest) (*GenerateResult, error) {
	if err := req.validate(e.loc); err != nil {
		return nil, err
	}
	if err := res.check(e.db.WithContext(ctx)); err != nil {
		return nil, err
	}

	wanted := make(map[int]bool, len(req.DaysOfWeek))
	for _, d := range req.DaysOfWeek {
		wanted[d] = true
	}
	target := req.Plan.Targets()
	result := &GenerateResult{}
	defer func() { result.record(res) }()

	first, _ := DayBounds(req.From, e.loc)
	last, _ := DayBounds(req.To, e.loc)
	for day := first.In(e.loc); !day.After(last.In(e.loc)); day = day.AddDate(0, 0, 1) {
		if !wanted[DayOfWeekNumber(day)] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		var r DiffResult
		err := e.inTx(ctx, func(tx *gorm.DB) error {
			var err error
			r, err = e.regenerateDay(tx, res, day, target)
			return err
		})
		if err != nil {
			log.Printf("Error generating slots for %s on %s: %s\n", res, day.Format(config.DATE_FORMAT), err.Error())
			if apperror.KindOf(err) != apperror.KindInternal {
				return result, err
			}
			return result, apperror.Internal(err, "could not generate slots for %s", day.Format(config.DATE_FORMAT))
		}
		result.DaysProcessed++
		result.add(r)
	}
	return result, nil
}

func (e *Engine) regenerateDay(tx *gorm.DB, res Resource, day time.Time, target map[int]int64) (DiffResult, error) {
	from, to := DayBounds(day, e.loc)
	existing, err := e.loadDay(tx, res, from, to)
	if err != nil {
		return DiffResult{}, err
	}

	var d dayDiff
	for _, h := range sortedHours(existing) {
		if existing[h].reserved {
			d.Kept++
			continue
		}
		d.Delete = append(d.Delete, existing[h].slot.ID)
	}
	for _, h := range sortedHours(target) {
		if cur, ok := existing[h]; ok && cur.reserved {
			continue
		}
		d.Create = append(d.Create, h)
	}

	// Delete before create so the natural key is free for the new rows.
	r, err := e.applyDiff(tx, res, day, target, d)
	if err != nil {
		return r, err
	}
	if res.Type == types.SLOT_COURT {
		n, err := refreshCostSchedule(tx, res.ID, from, to)
		if err != nil {
			return r, err
		}
		r.ScheduleWrites = n
	}
	return r, nil
}

package pricing

import (
	"arena/src/apperror"
	"arena/src/models"
	"arena/src/models/scopes"
	"arena/src/types"
	"context"
	"time"
)

type SlotQuery struct {
	Type       types.SlotType
	Day        time.Time
	ResourceID uint
	// Bookable drops slots that are flagged unavailable or already reserved.
	Bookable bool
}

// Slots lists one local day of slots for the given type, optionally narrowed
// to a single court or staff member.
func (e *Engine) Slots(ctx context.Context, q SlotQuery) ([]models.Slot, error) {
	if !q.Type.Valid() {
		return nil, apperror.BadRequest("unknown slot type %q", q.Type)
	}
	from, to := DayBounds(q.Day, e.loc)
	tx := e.db.WithContext(ctx).
		Where("type = ?", q.Type).
		Scopes(scopes.StartingBetween(from, to))
	if q.ResourceID != 0 {
		tx = tx.Scopes(scopes.ForResource(q.Type, q.ResourceID))
	}
	if q.Bookable {
		tx = tx.Scopes(scopes.Available, Unreserved(q.Type))
	}
	if q.Type == types.SLOT_COURT {
		tx = tx.Preload("Court")
	} else {
		tx = tx.Preload("Staff")
	}
	var slots []models.Slot
	if err := tx.Order("start_at").Order("id").Find(&slots).Error; err != nil {
		return nil, apperror.Internal(err, "could not list slots")
	}
	return slots, nil
}

type AvailableStaff struct {
	Staff  models.Staff `json:"staff"`
	SlotID uint         `json:"slot_id"`
	Price  int64        `json:"price"`
}

// AvailableStaffAt lists staff of the given type with a bookable slot at the
// local hour.
func (e *Engine) AvailableStaffAt(ctx context.Context, t types.SlotType, day time.Time, hour int) ([]AvailableStaff, error) {
	if t != types.SLOT_COACH && t != types.SLOT_BALLBOY {
		return nil, apperror.BadRequest("unknown staff type %q", t)
	}
	if hour < 0 || hour > 23 {
		return nil, apperror.BadRequest("hour %d out of range", hour)
	}
	start, end := ToAbsoluteHourRange(day, hour, e.loc)
	var slots []models.Slot
	if err := e.db.WithContext(ctx).
		Where("type = ?", t).
		Scopes(scopes.StartingBetween(start, end), scopes.Available, Unreserved(t)).
		Preload("Staff", "is_active = ?", true).
		Order("staff_id").
		Find(&slots).
		Error; err != nil {
		return nil, apperror.Internal(err, "could not list available staff")
	}
	out := make([]AvailableStaff, 0, len(slots))
	for _, s := range slots {
		if s.Staff == nil {
			continue
		}
		out = append(out, AvailableStaff{Staff: *s.Staff, SlotID: s.ID, Price: s.Price})
	}
	return out, nil
}

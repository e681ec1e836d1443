package pricing

import (
	"arena/src/models"
	"arena/src/types"
	"fmt"

	"gorm.io/gorm"
)

func reservationTable(t types.SlotType) string {
	switch t {
	case types.SLOT_COACH:
		return models.BookingCoach{}.TableName()
	case types.SLOT_BALLBOY:
		return models.BookingBallboy{}.TableName()
	default:
		return models.BookingDetail{}.TableName()
	}
}

// ReservedSlotIDs reports which of ids are referenced by a reservation row.
// Every slot type goes through this one query so the booked check cannot
// drift between courts and staff.
func ReservedSlotIDs(tx *gorm.DB, t types.SlotType, ids []uint) (map[uint]bool, error) {
	out := make(map[uint]bool)
	if len(ids) == 0 {
		return out, nil
	}
	var reserved []uint
	if err := tx.
		Model(models.ReservationModelFor(t)).
		Where("slot_id IN ?", ids).
		Pluck("slot_id", &reserved).
		Error; err != nil {
		return nil, err
	}
	for _, id := range reserved {
		out[id] = true
	}
	return out, nil
}

func IsSlotReserved(tx *gorm.DB, slot models.Slot) (bool, error) {
	reserved, err := ReservedSlotIDs(tx, slot.Type, []uint{slot.ID})
	if err != nil {
		return false, err
	}
	return reserved[slot.ID], nil
}

// Unreserved keeps only slots no reservation row points at. Used as a guard
// on UPDATE and DELETE so a reservation that lands after the diff was
// computed still wins.
func Unreserved(t types.SlotType) func(db *gorm.DB) *gorm.DB {
	table := reservationTable(t)
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(fmt.Sprintf("NOT EXISTS (SELECT 1 FROM %s r WHERE r.slot_id = slots.id)", table))
	}
}

// OwnerActive keeps slots whose court or staff member is active and not
// deleted.
func OwnerActive(db *gorm.DB) *gorm.DB {
	courts := db.NamingStrategy.TableName("Court")
	staff := db.NamingStrategy.TableName("Staff")
	return db.Where(fmt.Sprintf(
		"(EXISTS (SELECT 1 FROM %s c WHERE c.id = slots.court_id AND c.is_active = ? AND c.deleted_at IS NULL)"+
			" OR EXISTS (SELECT 1 FROM %s s WHERE s.id = slots.staff_id AND s.is_active = ? AND s.deleted_at IS NULL))",
		courts, staff), true, true)
}

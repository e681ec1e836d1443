package scopes

import (
	"arena/src/types"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func WithIDs(ids ...uint) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("id IN (?)", ids)
	}
}

// ForResource narrows slots to one court, or to one staff member acting as t.
func ForResource(t types.SlotType, id uint) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if t == types.SLOT_COURT {
			return db.Where("type = ? AND court_id = ?", t, id)
		}
		return db.Where("type = ? AND staff_id = ?", t, id)
	}
}

func StartingBetween(from, to time.Time) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("start_at >= ? AND start_at < ?", from.UTC(), to.UTC())
	}
}

func Available(db *gorm.DB) *gorm.DB {
	return db.Where("is_available = ?", true)
}

func HeldOrConfirmed(db *gorm.DB) *gorm.DB {
	return db.Where(clause.IN{Column: clause.Column{Table: "bookings", Name: "status"}, Values: []any{types.BOOKING_HOLD, types.BOOKING_CONFIRMED}})
}

func WithPendingStatus(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", types.PAYMENT_PENDING)
}

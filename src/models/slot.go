package models

import (
	"arena/src/types"
	"time"
)

// Slot is one hour of a court's or a staff member's time. Court slots are
// unique on (court_id, start_at), staff slots on (staff_id, type, start_at).
type Slot struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	Type        types.SlotType `gorm:"type:varchar(16);not null;index;uniqueIndex:idx_slots_staff_start,priority:2" json:"type"`
	CourtID     *uint          `gorm:"uniqueIndex:idx_slots_court_start,priority:1" json:"court_id,omitempty"`
	StaffID     *uint          `gorm:"uniqueIndex:idx_slots_staff_start,priority:1" json:"staff_id,omitempty"`
	StartAt     time.Time      `gorm:"not null;index;uniqueIndex:idx_slots_court_start,priority:2;uniqueIndex:idx_slots_staff_start,priority:3" json:"start_at"`
	EndAt       time.Time      `gorm:"not null" json:"end_at"`
	Price       int64          `gorm:"not null" json:"price"`
	IsAvailable bool           `gorm:"not null;index" json:"is_available"`

	Court *Court `gorm:"foreignKey:CourtID;constraint:OnDelete:CASCADE" json:"court,omitempty"`
	Staff *Staff `gorm:"foreignKey:StaffID;constraint:OnDelete:CASCADE" json:"staff,omitempty"`

	types.HardTimestamps
}

// CourtCostSchedule mirrors court slot pricing for reporting. It is derived
// from slots and refreshed inside the same transaction as every court write.
type CourtCostSchedule struct {
	ID      uint      `gorm:"primarykey" json:"id"`
	CourtID uint      `gorm:"not null;uniqueIndex:idx_cost_schedules_court_start,priority:1" json:"court_id"`
	StartAt time.Time `gorm:"not null;uniqueIndex:idx_cost_schedules_court_start,priority:2" json:"start_at"`
	EndAt   time.Time `gorm:"not null" json:"end_at"`
	Price   int64     `gorm:"not null" json:"price"`

	types.HardTimestamps
}

package models

import (
	"arena/src/types"
	"time"
)

type Booking struct {
	ID                 uint                `gorm:"primarykey" json:"id"`
	UserID             uint                `gorm:"index;not null" json:"user_id"`
	Status             types.BookingStatus `gorm:"type:varchar(16);index;not null" json:"status"`
	// Sum of the reserved lines. The gateway fee is kept apart.
	TotalPrice         int64               `json:"total_price"`
	ProcessingFee      int64               `json:"processing_fee"`
	HoldExpiresAt      *time.Time          `gorm:"index" json:"hold_expires_at,omitempty"`
	CancellationReason *string             `json:"cancellation_reason,omitempty"`

	User        *User              `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Details     []BookingDetail    `gorm:"constraint:OnDelete:CASCADE" json:"details,omitempty"`
	Coaches     []BookingCoach     `gorm:"constraint:OnDelete:CASCADE" json:"coaches,omitempty"`
	Ballboys    []BookingBallboy   `gorm:"constraint:OnDelete:CASCADE" json:"ballboys,omitempty"`
	Inventories []BookingInventory `gorm:"constraint:OnDelete:CASCADE" json:"inventories,omitempty"`
	Invoices    []Invoice          `json:"invoices,omitempty"`
	Payments    []Payment          `json:"payments,omitempty"`

	types.Timestamps
}

// BookingDetail reserves one court slot. The unique slot_id index is what
// guarantees a slot is attached to at most one booking.
type BookingDetail struct {
	ID        uint  `gorm:"primarykey" json:"id"`
	BookingID uint  `gorm:"index;not null" json:"booking_id"`
	SlotID    uint  `gorm:"uniqueIndex;not null" json:"slot_id"`
	Price     int64 `json:"price"`

	Slot *Slot `gorm:"foreignKey:SlotID" json:"slot,omitempty"`

	types.HardTimestamps
}

type BookingCoach struct {
	ID        uint  `gorm:"primarykey" json:"id"`
	BookingID uint  `gorm:"index;not null" json:"booking_id"`
	SlotID    uint  `gorm:"uniqueIndex;not null" json:"slot_id"`
	Price     int64 `json:"price"`

	Slot *Slot `gorm:"foreignKey:SlotID" json:"slot,omitempty"`

	types.HardTimestamps
}

type BookingBallboy struct {
	ID        uint  `gorm:"primarykey" json:"id"`
	BookingID uint  `gorm:"index;not null" json:"booking_id"`
	SlotID    uint  `gorm:"uniqueIndex;not null" json:"slot_id"`
	Price     int64 `json:"price"`

	Slot *Slot `gorm:"foreignKey:SlotID" json:"slot,omitempty"`

	types.HardTimestamps
}

type BookingInventory struct {
	ID          uint  `gorm:"primarykey" json:"id"`
	BookingID   uint  `gorm:"index;not null" json:"booking_id"`
	InventoryID uint  `gorm:"index;not null" json:"inventory_id"`
	Quantity    int   `gorm:"not null" json:"quantity"`
	Price       int64 `json:"price"`

	Inventory *Inventory `gorm:"foreignKey:InventoryID" json:"inventory,omitempty"`

	types.HardTimestamps
}

// ReservationModelFor returns the detail table model that holds reservations
// for slots of type t.
func ReservationModelFor(t types.SlotType) any {
	switch t {
	case types.SLOT_COACH:
		return &BookingCoach{}
	case types.SLOT_BALLBOY:
		return &BookingBallboy{}
	default:
		return &BookingDetail{}
	}
}

// NewReservation builds the detail row attaching slot to a booking.
func NewReservation(bookingID uint, slot Slot) any {
	switch slot.Type {
	case types.SLOT_COACH:
		return &BookingCoach{BookingID: bookingID, SlotID: slot.ID, Price: slot.Price}
	case types.SLOT_BALLBOY:
		return &BookingBallboy{BookingID: bookingID, SlotID: slot.ID, Price: slot.Price}
	default:
		return &BookingDetail{BookingID: bookingID, SlotID: slot.ID, Price: slot.Price}
	}
}

// BookingChildren lists every table owned by a booking.
func BookingChildren() []any {
	return []any{&BookingDetail{}, &BookingCoach{}, &BookingBallboy{}, &BookingInventory{}}
}

func (BookingDetail) TableName() string  { return "booking_details" }
func (BookingCoach) TableName() string   { return "booking_coaches" }
func (BookingBallboy) TableName() string { return "booking_ballboys" }

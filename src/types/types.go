package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

// HardTimestamps is used by rows that take part in unique constraints and
// therefore must be physically deleted.
type HardTimestamps struct {
	CreatedAt time.Time `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type SlotType string

const (
	SLOT_COURT   SlotType = "COURT"
	SLOT_COACH   SlotType = "COACH"
	SLOT_BALLBOY SlotType = "BALLBOY"
)

func (t SlotType) Valid() bool {
	return t == SLOT_COURT || t == SLOT_COACH || t == SLOT_BALLBOY
}

type StaffRole string

const (
	STAFF_COACH   StaffRole = "COACH"
	STAFF_BALLBOY StaffRole = "BALLBOY"
)

type BookingStatus string

const (
	BOOKING_HOLD      BookingStatus = "HOLD"
	BOOKING_CONFIRMED BookingStatus = "CONFIRMED"
	BOOKING_CANCELLED BookingStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PAYMENT_PENDING PaymentStatus = "PENDING"
	PAYMENT_PAID    PaymentStatus = "PAID"
	PAYMENT_EXPIRED PaymentStatus = "EXPIRED"
	PAYMENT_FAILED  PaymentStatus = "FAILED"
	PAYMENT_VOID    PaymentStatus = "VOID"

	// Money arrived for a payment whose booking was already released.
	PAYMENT_REFUND_REQUIRED PaymentStatus = "REFUND_REQUIRED"
)

type UserRole string

const (
	ROLE_USER  UserRole = "user"
	ROLE_ADMIN UserRole = "admin"
)

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type CreateCourtRequestBody struct {
	Name string `json:"name" binding:"required"`
}

type CreateStaffRequestBody struct {
	Name string    `json:"name" binding:"required"`
	Role StaffRole `json:"role" binding:"required,oneof=COACH BALLBOY"`
}

type RangePricingRequestBody struct {
	// Only used for staff routes, court routes ignore it.
	Type        SlotType `json:"type" binding:"omitempty,oneof=COACH BALLBOY"`
	FromDate    string   `json:"from_date" binding:"required,isodate"`
	ToDate      string   `json:"to_date" binding:"required,isodate"`
	DaysOfWeek  []int    `json:"days_of_week" binding:"required,min=1,daysofweek"`
	HappyPrice  int64    `json:"happy_price" binding:"min=0"`
	PeakPrice   int64    `json:"peak_price" binding:"min=0"`
	ClosedHours []int    `json:"closed_hours" binding:"omitempty,dive,min=0,max=23"`
}

type DayPricingRequestBody struct {
	Type        SlotType `json:"type" binding:"omitempty,oneof=COACH BALLBOY"`
	Date        string   `json:"date" binding:"required,isodate"`
	HappyPrice  int64    `json:"happy_price" binding:"min=0"`
	PeakPrice   int64    `json:"peak_price" binding:"min=0"`
	ClosedHours []int    `json:"closed_hours" binding:"omitempty,dive,min=0,max=23"`
}

type HourPricingRequestBody struct {
	Type  SlotType `json:"type" binding:"omitempty,oneof=COACH BALLBOY"`
	Date  string   `json:"date" binding:"required,isodate"`
	Hour  *int     `json:"hour" binding:"required,min=0,max=23"`
	Price int64    `json:"price" binding:"min=0"`
}

type InventoryLine struct {
	InventoryID uint `json:"inventory_id" binding:"required"`
	Quantity    int  `json:"quantity" binding:"required,min=1"`
}

type CheckoutRequestBody struct {
	BookingID       *uint           `json:"booking_id,omitempty"`
	PaymentMethodID uint            `json:"payment_method_id" binding:"required"`
	CourtSlotIDs    []uint          `json:"court_slot_ids"`
	CoachSlotIDs    []uint          `json:"coach_slot_ids"`
	BallboySlotIDs  []uint          `json:"ballboy_slot_ids"`
	Inventories     []InventoryLine `json:"inventories" binding:"omitempty,dive"`
}

type SlotQueryFilters struct {
	Type       SlotType `form:"type" binding:"required,oneof=COURT COACH BALLBOY"`
	Date       string   `form:"date" binding:"required,isodate"`
	ResourceID uint     `form:"resource_id"`
}

type AvailableStaffQueryFilters struct {
	Date string `form:"date" binding:"required,isodate"`
	Hour *int   `form:"hour" binding:"required,min=0,max=23"`
}

type CancelBookingRequestBody struct {
	Reason string `json:"reason"`
}

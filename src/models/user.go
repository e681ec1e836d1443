package models

import "arena/src/types"

type User struct {
	ID    uint           `gorm:"primarykey" json:"id"`
	Name  string         `json:"name,omitempty"`
	Email string         `gorm:"index" json:"email,omitempty"`
	Phone string         `gorm:"index" json:"phone,omitempty"`
	Role  types.UserRole `gorm:"type:varchar(16);default:'user'" json:"role,omitempty"`

	Bookings []Booking `gorm:"foreignKey:UserID" json:"bookings,omitempty"`

	types.Timestamps
}

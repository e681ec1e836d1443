package models

import "arena/src/types"

type Court struct {
	ID       uint   `gorm:"primarykey" json:"id"`
	Name     string `gorm:"not null" json:"name"`
	Slug     string `gorm:"uniqueIndex" json:"slug"`
	IsActive bool   `json:"is_active"`

	Slots []Slot `gorm:"foreignKey:CourtID" json:"slots,omitempty"`

	types.Timestamps
}

type Staff struct {
	ID       uint            `gorm:"primarykey" json:"id"`
	Name     string          `gorm:"not null" json:"name"`
	Role     types.StaffRole `gorm:"type:varchar(16);index;not null" json:"role"`
	IsActive bool            `json:"is_active"`

	Slots []Slot `gorm:"foreignKey:StaffID" json:"slots,omitempty"`

	types.Timestamps
}

package models

import "arena/src/types"

type Inventory struct {
	ID       uint   `gorm:"primarykey" json:"id"`
	Name     string `gorm:"not null" json:"name"`
	Quantity int    `gorm:"not null" json:"quantity"`
	Price    int64  `json:"price"`
	IsActive bool   `json:"is_active"`

	types.Timestamps
}

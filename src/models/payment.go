package models

import (
	"arena/src/types"
	"time"
)

type PaymentMethod struct {
	ID   uint   `gorm:"primarykey" json:"id"`
	Name string `gorm:"not null" json:"name"`
	Code string `gorm:"uniqueIndex" json:"code"`
	// Gateway channel, e.g. QRIS or ID_OVO. Empty for offline methods.
	ChannelCode string `json:"channel_code,omitempty"`
	Fee         int64  `json:"fee"`
	IsActive    bool   `json:"is_active"`

	types.Timestamps
}

type Payment struct {
	ID              uint                `gorm:"primarykey" json:"id"`
	BookingID       uint                `gorm:"index;not null" json:"booking_id"`
	PaymentMethodID uint                `gorm:"index" json:"payment_method_id"`
	ReferenceID     string              `gorm:"uniqueIndex;not null" json:"reference_id"`
	ExternalID      *string             `gorm:"index" json:"external_id,omitempty"`
	Amount          int64               `json:"amount"`
	Fee             int64               `json:"fee"`
	Status          types.PaymentStatus `gorm:"type:varchar(16);index;not null" json:"status"`
	DueDate         time.Time           `json:"due_date"`
	CheckoutURL     *string             `json:"checkout_url,omitempty"`
	PaidAt          *time.Time          `json:"paid_at,omitempty"`
	Metadata        types.JSONB         `gorm:"type:jsonb" json:"metadata,omitempty"`

	PaymentMethod *PaymentMethod `gorm:"foreignKey:PaymentMethodID" json:"payment_method,omitempty"`

	types.Timestamps
}

type Invoice struct {
	ID            uint                `gorm:"primarykey" json:"id"`
	BookingID     uint                `gorm:"index;not null" json:"booking_id"`
	Number        string              `gorm:"uniqueIndex;not null" json:"number"`
	Subtotal      int64               `json:"subtotal"`
	ProcessingFee int64               `json:"processing_fee"`
	Total         int64               `json:"total"`
	Status        types.PaymentStatus `gorm:"type:varchar(16);index;not null" json:"status"`
	PaymentID     *uint               `json:"payment_id,omitempty"`

	Payment *Payment `gorm:"foreignKey:PaymentID" json:"payment,omitempty"`

	types.Timestamps
}

package models

import "gorm.io/gorm"

func All() []any {
	return []any{
		&User{},
		&Court{},
		&Staff{},
		&Slot{},
		&CourtCostSchedule{},
		&PaymentMethod{},
		&Inventory{},
		&Booking{},
		&BookingDetail{},
		&BookingCoach{},
		&BookingBallboy{},
		&BookingInventory{},
		&Payment{},
		&Invoice{},
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}

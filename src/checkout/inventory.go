package checkout

import (
	"arena/src/apperror"
	"arena/src/models"
	"arena/src/models/scopes"
	"context"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryLine struct {
	InventoryID uint `json:"inventory_id"`
	Quantity    int  `json:"quantity"`
}

// heldQuantity sums what live bookings other than excludeBooking hold of an
// inventory item.
func heldQuantity(tx *gorm.DB, inventoryID, excludeBooking uint) (int, error) {
	var held int
	err := tx.
		Model(&models.BookingInventory{}).
		Joins("JOIN bookings ON bookings.id = booking_inventories.booking_id AND bookings.deleted_at IS NULL").
		Where("booking_inventories.inventory_id = ?", inventoryID).
		Where("booking_inventories.booking_id <> ?", excludeBooking).
		Scopes(scopes.HeldOrConfirmed).
		Select("COALESCE(SUM(booking_inventories.quantity), 0)").
		Scan(&held).
		Error
	return held, err
}

// mergeLines folds repeated items into one line so stock is checked once per
// item.
func mergeLines(lines []InventoryLine) ([]InventoryLine, error) {
	qty := make(map[uint]int, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, apperror.BadRequest("quantity for inventory %d must be positive", l.InventoryID)
		}
		qty[l.InventoryID] += l.Quantity
	}
	out := make([]InventoryLine, 0, len(qty))
	for id, q := range qty {
		out = append(out, InventoryLine{InventoryID: id, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InventoryID < out[j].InventoryID })
	return out, nil
}

// reserveInventory locks each item row, checks stock net of other live
// holds and writes the booking lines. Returns the inventory subtotal.
func reserveInventory(tx *gorm.DB, bookingID uint, lines []InventoryLine) (int64, error) {
	merged, err := mergeLines(lines)
	if err != nil {
		return 0, err
	}
	var subtotal int64
	for _, line := range merged {
		var item models.Inventory
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", line.InventoryID).
			Take(&item).
			Error; err != nil {
			return 0, apperror.NotFoundOr(err, "inventory %d not found", line.InventoryID)
		}
		if !item.IsActive {
			return 0, apperror.BadRequest("inventory %s is not available", item.Name)
		}
		held, err := heldQuantity(tx, item.ID, bookingID)
		if err != nil {
			return 0, err
		}
		if item.Quantity-held < line.Quantity {
			return 0, apperror.BadRequest("not enough %s in stock: %d left", item.Name, max(item.Quantity-held, 0))
		}
		row := models.BookingInventory{
			BookingID:   bookingID,
			InventoryID: item.ID,
			Quantity:    line.Quantity,
			Price:       item.Price,
		}
		if err := tx.Create(&row).Error; err != nil {
			return 0, err
		}
		subtotal += item.Price * int64(line.Quantity)
	}
	return subtotal, nil
}

type InventoryAvailability struct {
	models.Inventory
	Available int `json:"available"`
}

// AvailableInventory lists active items with their stock net of live holds.
func (s *Service) AvailableInventory(ctx context.Context) ([]InventoryAvailability, error) {
	var items []models.Inventory
	db := s.db.WithContext(ctx)
	if err := db.Where("is_active = ?", true).Order("name").Find(&items).Error; err != nil {
		return nil, apperror.Internal(err, "could not list inventory")
	}
	out := make([]InventoryAvailability, 0, len(items))
	for _, item := range items {
		held, err := heldQuantity(db, item.ID, 0)
		if err != nil {
			return nil, apperror.Internal(err, "could not compute stock for %s", item.Name)
		}
		out = append(out, InventoryAvailability{Inventory: item, Available: max(item.Quantity-held, 0)})
	}
	return out, nil
}

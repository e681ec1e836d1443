package pricing

import (
	"arena/src/apperror"
	"arena/src/models"
	"arena/src/types"
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Resource identifies whose timeline a slot belongs to: a court, or a staff
// member selling time as a coach or a ballboy.
type Resource struct {
	Type types.SlotType
	ID   uint
}

func Court(id uint) Resource {
	return Resource{Type: types.SLOT_COURT, ID: id}
}

func Staff(t types.SlotType, id uint) Resource {
	return Resource{Type: t, ID: id}
}

func (r Resource) String() string {
	return fmt.Sprintf("%s#%d", r.Type, r.ID)
}

func (r Resource) newSlot() models.Slot {
	id := r.ID
	s := models.Slot{Type: r.Type, IsAvailable: true}
	if r.Type == types.SLOT_COURT {
		s.CourtID = &id
	} else {
		s.StaffID = &id
	}
	return s
}

// check verifies the resource exists and, for staff, holds the role the slot
// type sells.
func (r Resource) check(tx *gorm.DB) error {
	switch r.Type {
	case types.SLOT_COURT:
		var court models.Court
		err := tx.Select("id").Where("id = ?", r.ID).Take(&court).Error
		return apperror.NotFoundOr(err, "court %d not found", r.ID)
	case types.SLOT_COACH, types.SLOT_BALLBOY:
		var staff models.Staff
		err := tx.Select("id", "role").Where("id = ?", r.ID).Take(&staff).Error
		if err != nil {
			return apperror.NotFoundOr(err, "staff %d not found", r.ID)
		}
		if string(staff.Role) != string(r.Type) {
			return apperror.BadRequest("staff %d is a %s and cannot be priced as %s", r.ID, staff.Role, r.Type)
		}
		return nil
	default:
		return apperror.BadRequest("unknown slot type %q", r.Type)
	}
}

// StaffResource builds the resource for a staff member, taking the slot type
// from the staff role when t is empty.
func (e *Engine) StaffResource(ctx context.Context, staffID uint, t types.SlotType) (Resource, error) {
	if t != "" {
		return Staff(t, staffID), nil
	}
	var staff models.Staff
	if err := e.db.WithContext(ctx).Select("id", "role").Where("id = ?", staffID).Take(&staff).Error; err != nil {
		return Resource{}, apperror.NotFoundOr(err, "staff %d not found", staffID)
	}
	return Staff(types.SlotType(staff.Role), staffID), nil
}

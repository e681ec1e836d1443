package pricing

import (
	"arena/src/models"
	"arena/src/models/scopes"
	"arena/src/types"
	"context"
	"time"

	"gorm.io/gorm"
)

// refreshCostSchedule makes the court's schedule rows in [from,to) match its
// slots one for one. It runs in the caller's transaction so the schedule can
// never disagree with the slots it mirrors.
func refreshCostSchedule(tx *gorm.DB, courtID uint, from, to time.Time) (int, error) {
	var slots []models.Slot
	if err := tx.
		Scopes(scopes.ForResource(types.SLOT_COURT, courtID), scopes.StartingBetween(from, to)).
		Find(&slots).
		Error; err != nil {
		return 0, err
	}
	var rows []models.CourtCostSchedule
	if err := tx.
		Where("court_id = ?", courtID).
		Scopes(scopes.StartingBetween(from, to)).
		Find(&rows).
		Error; err != nil {
		return 0, err
	}

	current := make(map[int64]models.CourtCostSchedule, len(rows))
	for _, r := range rows {
		current[r.StartAt.Unix()] = r
	}

	writes := 0
	var create []models.CourtCostSchedule
	for _, s := range slots {
		key := s.StartAt.Unix()
		row, ok := current[key]
		delete(current, key)
		if !ok {
			create = append(create, models.CourtCostSchedule{
				CourtID: courtID,
				StartAt: s.StartAt.UTC(),
				EndAt:   s.EndAt.UTC(),
				Price:   s.Price,
			})
			continue
		}
		if row.Price != s.Price || !row.EndAt.Equal(s.EndAt) {
			if err := tx.
				Model(&row).
				Updates(map[string]any{"price": s.Price, "end_at": s.EndAt.UTC()}).
				Error; err != nil {
				return writes, err
			}
			writes++
		}
	}
	if len(create) > 0 {
		if err := tx.Create(&create).Error; err != nil {
			return writes, err
		}
		writes += len(create)
	}
	if len(current) > 0 {
		stale := make([]uint, 0, len(current))
		for _, r := range current {
			stale = append(stale, r.ID)
		}
		if err := tx.Where("id IN ?", stale).Delete(&models.CourtCostSchedule{}).Error; err != nil {
			return writes, err
		}
		writes += len(stale)
	}
	return writes, nil
}

// CostSchedule returns the court's schedule for one local day.
func (e *Engine) CostSchedule(ctx context.Context, courtID uint, day time.Time) ([]models.CourtCostSchedule, error) {
	if err := Court(courtID).check(e.db.WithContext(ctx)); err != nil {
		return nil, err
	}
	from, to := DayBounds(day, e.loc)
	var rows []models.CourtCostSchedule
	err := e.db.WithContext(ctx).
		Where("court_id = ?", courtID).
		Scopes(scopes.StartingBetween(from, to)).
		Order("start_at").
		Find(&rows).
		Error
	return rows, err
}

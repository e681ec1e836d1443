package pricing

import (
	"arena/src/config"
	"arena/src/lib/metrics"
	"arena/src/models"
	"arena/src/models/scopes"
	"context"
	"time"

	"gorm.io/gorm"
)

type Engine struct {
	db  *gorm.DB
	loc *time.Location
	now func() time.Time
}

func NewEngine(db *gorm.DB, loc *time.Location) *Engine {
	if loc == nil {
		loc = config.BusinessLocation
	}
	return &Engine{
		db:  db,
		loc: loc,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (e *Engine) Location() *time.Location {
	return e.loc
}

func (e *Engine) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(ctx, config.TxTimeout)
	defer cancel()
	return e.db.WithContext(ctx).Transaction(fn)
}

// DiffResult counts the writes one reconciliation performed. Reserved slots
// are never written and show up in SkippedReserved instead.
type DiffResult struct {
	Created         int `json:"created"`
	Updated         int `json:"updated"`
	Deleted         int `json:"deleted"`
	SkippedReserved int `json:"skipped_reserved"`
	ScheduleWrites  int `json:"schedule_writes"`
}

func (r *DiffResult) add(o DiffResult) {
	r.Created += o.Created
	r.Updated += o.Updated
	r.Deleted += o.Deleted
	r.SkippedReserved += o.SkippedReserved
	r.ScheduleWrites += o.ScheduleWrites
}

func (r DiffResult) Writes() int {
	return r.Created + r.Updated + r.Deleted
}

func (r DiffResult) record(res Resource) {
	metrics.SlotWrites(string(res.Type), r.Created, r.Updated, r.Deleted)
	metrics.ReservedSkips(string(res.Type), r.SkippedReserved)
}

type daySlot struct {
	slot     models.Slot
	reserved bool
}

// loadDay returns the resource's slots in [from,to) keyed by local hour,
// each flagged with whether a reservation points at it.
func (e *Engine) loadDay(tx *gorm.DB, res Resource, from, to time.Time) (map[int]daySlot, error) {
	var slots []models.Slot
	if err := tx.
		Scopes(scopes.ForResource(res.Type, res.ID), scopes.StartingBetween(from, to)).
		Order("start_at").
		Find(&slots).
		Error; err != nil {
		return nil, err
	}
	ids := make([]uint, len(slots))
	for i, s := range slots {
		ids[i] = s.ID
	}
	reserved, err := ReservedSlotIDs(tx, res.Type, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[int]daySlot, len(slots))
	for _, s := range slots {
		h := LocalHour(s.StartAt, e.loc)
		if _, dup := out[h]; dup {
			continue
		}
		out[h] = daySlot{slot: s, reserved: reserved[s.ID]}
	}
	return out, nil
}

package pricing

import (
	"arena/src/apperror"
	"arena/src/config"
	"arena/src/db/dbtest"
	"arena/src/models"
	"arena/src/models/scopes"
	"arena/src/types"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var standardPlan = PricePlan{HappyPrice: 100_000, PeakPrice: 150_000}

func slotWith(id uint, price int64) models.Slot {
	return models.Slot{ID: id, Type: types.SLOT_COURT, Price: price}
}

func setup(t *testing.T) (*Engine, *gorm.DB) {
	t.Helper()
	gdb := dbtest.Open(t)
	return NewEngine(gdb, config.BusinessLocation), gdb
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseLocalDate(s, config.BusinessLocation)
	require.NoError(t, err)
	return d
}

func newCourt(t *testing.T, gdb *gorm.DB, name string) models.Court {
	t.Helper()
	c := models.Court{Name: name, Slug: name, IsActive: true}
	require.NoError(t, gdb.Create(&c).Error)
	return c
}

func newStaff(t *testing.T, gdb *gorm.DB, role types.StaffRole) models.Staff {
	t.Helper()
	s := models.Staff{Name: "staff", Role: role, IsActive: true}
	require.NoError(t, gdb.Create(&s).Error)
	return s
}

func daySlots(t *testing.T, gdb *gorm.DB, res Resource, day time.Time) map[int]models.Slot {
	t.Helper()
	from, to := DayBounds(day, config.BusinessLocation)
	var slots []models.Slot
	require.NoError(t, gdb.Scopes(scopes.ForResource(res.Type, res.ID), scopes.StartingBetween(from, to)).Find(&slots).Error)
	out := make(map[int]models.Slot, len(slots))
	for _, s := range slots {
		h := LocalHour(s.StartAt, config.BusinessLocation)
		_, dup := out[h]
		require.False(t, dup, "two slots at hour %d", h)
		out[h] = s
	}
	return out
}

// reserve attaches slot to a fresh booking.
func reserve(t *testing.T, gdb *gorm.DB, slot models.Slot) {
	t.Helper()
	u := models.User{Name: "player"}
	require.NoError(t, gdb.Create(&u).Error)
	b := models.Booking{UserID: u.ID, Status: types.BOOKING_CONFIRMED}
	require.NoError(t, gdb.Create(&b).Error)
	require.NoError(t, gdb.Create(models.NewReservation(b.ID, slot)).Error)
}

func weekOf(t *testing.T, days ...int) RangeRequest {
	return RangeRequest{
		From:       mustDate(t, "2025-01-06"),
		To:         mustDate(t, "2025-01-12"),
		DaysOfWeek: days,
		Plan:       standardPlan,
	}
}

func TestGenerateSlotsCreatesBandPrices(t *testing.T) {
	engine, gdb := setup(t)
	court := newCourt(t, gdb, "court-a")
	res := Court(court.ID)

	result, err := engine.GenerateSlots(context.Background(), res, weekOf(t, 1, 3))
	require.NoError(t, err)
	assert.Equal(t, 2, result.DaysProcessed)
	assert.Equal(t, 36, result.Created)

	monday := daySlots(t, gdb, res, mustDate(t, "2025-01-06"))
	require.Len(t, monday, 18)
	for h, s := range monday {
		assert.GreaterOrEqual(t, h, HappyStart)
		if h < HappyEnd {
			assert.Equal(t, int64(100_000), s.Price)
		} else {
			assert.Equal(t, int64(150_000), s.Price)
		}
		assert.Equal(t, time.Hour, s.EndAt.Sub(s.StartAt))
		assert.True(t, s.IsAvailable)
	}
	assert.Empty(t, daySlots(t, gdb, res, mustDate(t, "2025-01-07")))

	var schedule int64
	require.NoError(t, gdb.Model(&models.CourtCostSchedule{}).Where("court_id = ?", court.ID).Count(&schedule).Error)
	assert.Equal(t, int64(36), schedule)
}

func TestGenerateSlotsIsRepeatable(t *testing.T) {
	engine, gdb := setup(t)
	court := newCourt(t, gdb, "court-a")
	res := Court(court.ID)
	ctx := context.Background()

	_, err := engine.GenerateSlots(ctx, res, weekOf(t, 1))
	require.NoError(t, err)

	req := weekOf(t, 1)
	req.Plan = PricePlan{HappyPrice: 80_000, PeakPrice: 120_000, ClosedHours: []int{22, 23}}
	result, err := engine.GenerateSlots(ctx, res, req)
	require.NoError(t, err)
	assert.Equal(t, 18, result.Deleted)
	assert.Equal(t, 16, result.Created)

	monday := daySlots(t, gdb, res, mustDate(t, "2025-01-06"))
	assert.Len(t, monday, 16)
	assert.Equal(t, int64(80_000), monday[6].Price)
	assert.Equal(t, int64(120_000), monday[21].Price)

	schedule, err := engine.CostSchedule(ctx, court.ID, mustDate(t, "2025-01-06"))
	require.NoError(t, err)
	require.Len(t, schedule, 16)
	assert.Equal(t, int64(80_000), schedule[0].Price)
}

func TestGenerateSlotsKeepsReservedSlots(t *testing.T) {
	engine, gdb := setup(t)
	court := newCourt(t, gdb, "court-a")
	res := Court(court.ID)
	ctx := context.Background()
	monday := mustDate(t, "2025-01-06")

	_, err := engine.GenerateSlots(ctx, res, weekOf(t, 1))
	require.NoError(t, err)
	booked := daySlots(t, gdb, res, monday)[10]
	reserve(t, gdb, booked)

	req := weekOf(t, 1)
	req.Plan = PricePlan{HappyPrice: 1, PeakPrice: 2}
	result, err := engine.GenerateSlots(ctx, res, req)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SkippedReserved)
	assert.Equal(t, 17, result.Created)

	after := daySlots(t, gdb, res, monday)
	assert.Len(t, after, 18)
	assert.Equal(t, booked.ID, after[10].ID)
	assert.Equal(t, booked.Price, after[10].Price)
	assert.Equal(t, int64(1), after[9].Price)
}

func TestGenerateSlotsKeepsConflictKind(t *testing.T) {
	engine, gdb := setup(t)
	court := newCourt(t, gdb, "court-a")
	res := Court(court.ID)
	ctx := context.Background()
	monday := mustDate(t, "2025-01-06")

	_, err := engine.GenerateSlots(ctx, res, weekOf(t, 1))
	require.NoError(t, err)
	taken := daySlots(t, gdb, res, monday)[16]
	u := models.User{Name: "player"}
	require.NoError(t, gdb.Create(&u).Error)
	b := models.Booking{UserID: u.ID, Status: types.BOOKING_HOLD}
	require.NoError(t, gdb.Create(&b).Error)

	// A checkout lands between the diff and the delete, so the hour is
	// created again on top of the slot it kept.
	fired := false
	require.NoError(t, gdb.Callback().Delete().Before("gorm:delete").Register("test:reserve_mid_regenerate", func(db *gorm.DB) {
		if fired || db.Statement.Schema == nil || db.Statement.Schema.Table != "slots" {
			return
		}
		fired = true
		require.NoError(t, db.Session(&gorm.Session{NewDB: true}).Create(models.NewReservation(b.ID, taken)).Error)
	}))

	result, err := engine.GenerateSlots(ctx, res, weekOf(t, 1))
	require.Error(t, err)
	assert.True(t, fired)
	assert.True(t, apperror.Is(err, apperror.KindConflict))
	assert.Zero(t, result.DaysProcessed)

	after := daySlots(t, gdb, res, monday)
	assert.Len(t, after, 18)
	assert.Equal(t, taken.ID, after[16].ID)
}

func TestGenerateSlotsValidation(t *testing.T) {
	engine, gdb := setup(t)
	court := newCourt(t, gdb, "court-a")
	ctx := context.Background()

	req := weekOf(t, 8)
	_, err := engine.GenerateSlots(ctx, Court(court.ID), req)
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))

	req = weekOf(t, 1)
	req.From, req.To = req.To, req.From
	_, err = engine.GenerateSlots(ctx, Court(court.ID), req)
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))

	req = weekOf(t, 1)
	req.To = req.From.AddDate(2, 0, 0)
	_, err = engine.GenerateSlots(ctx, Court(court.ID), req)
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))

	_, err = engine.GenerateSlots(ctx, Court(court.ID+100), weekOf(t, 1))
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestStaffRoleMustMatchSlotType(t *testing.T) {
	engine, gdb := setup(t)
	coach := newStaff(t, gdb, types.STAFF_COACH)
	ctx := context.Background()

	_, err := engine.GenerateSlots(ctx, Staff(types.SLOT_BALLBOY, coach.ID), weekOf(t, 1))
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))

	result, err := engine.GenerateSlots(ctx, Staff(types.SLOT_COACH, coach.ID), weekOf(t, 1))
	require.NoError(t, err)
	assert.Equal(t, 18, result.Created)
	assert.Zero(t, result.ScheduleWrites)
}

func TestReconcileDayPricingMinimalWrites(t *testing.T) {
	engine, gdb := setup(t)
	court := newCourt(t, gdb, "court-a")
	res := Court(court.ID)
	ctx := context.Background()
	monday := mustDate(t, "2025-01-06")

	_, err := engine.GenerateSlots(ctx, res, weekOf(t, 1))
	require.NoError(t, err)
	before := daySlots(t, gdb, res, monday)

	plan := PricePlan{HappyPrice: 100_000, PeakPrice: 175_000, ClosedHours: []int{6}}
	result, err := engine.ReconcileDayPricing(ctx, res, monday, plan)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, 9, result.Updated)
	assert.Zero(t, result.Created)

	after := daySlots(t, gdb, res, monday)
	assert.Len(t, after, 17)
	assert.NotContains(t, after, 6)
	assert.Equal(t, before[7].ID, after[7].ID)
	assert.Equal(t, before[20].ID, after[20].ID)
	assert.Equal(t, int64(175_000), after[20].Price)

	again, err := engine.ReconcileDayPricing(ctx, res, monday, plan)
	require.NoError(t, err)
	assert.Zero(t, again.Writes())
	assert.Zero(t, again.ScheduleWrites)

	reopened, err := engine.ReconcileDayPricing(ctx, res, monday, PricePlan{HappyPrice: 100_000, PeakPrice: 175_000})
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.Created)
	assert.Equal(t, 1, reopened.Writes())

	schedule, err := engine.CostSchedule(ctx, court.ID, monday)
	require.NoError(t, err)
	assert.Len(t, schedule, 18)
}

func TestReconcileDayPricingLeavesReservedSlots(t *testing.T) {
	engine, gdb := setup(t)
	court := newCourt(t, gdb, "court-a")
	res := Court(court.ID)
	ctx := context.Background()
	monday := mustDate(t, "2025-01-06")

	_, err := engine.ReconcileDayPricing(ctx, res, monday, standardPlan)
	require.NoError(t, err)
	slots := daySlots(t, gdb, res, monday)
	reserve(t, gdb, slots[8])
	reserve(t, gdb, slots[16])

	result, err := engine.ReconcileDayPricing(ctx, res, monday, PricePlan{HappyPrice: 1, PeakPrice: 1, ClosedHours: []int{8}})
	require.NoError(t, err)
	assert.Equal(t, 2, result.SkippedReserved)
	assert.Zero(t, result.Deleted)

	after := daySlots(t, gdb, res, monday)
	assert.Equal(t, slots[8].ID, after[8].ID)
	assert.Equal(t, int64(100_000), after[8].Price)
	assert.Equal(t, int64(150_000), after[16].Price)
	assert.Equal(t, int64(1), after[17].Price)
}

func TestOverrideHourPrice(t *testing.T) {
	engine, gdb := setup(t)
	court := newCourt(t, gdb, "court-a")
	res := Court(court.ID)
	ctx := context.Background()
	monday := mustDate(t, "2025-01-06")

	created, err := engine.OverrideHourPrice(ctx, res, monday, 3, 50_000)
	require.NoError(t, err)
	assert.Equal(t, 1, created.Created)
	assert.Equal(t, 1, created.ScheduleWrites)

	updated, err := engine.OverrideHourPrice(ctx, res, monday, 3, 60_000)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Updated)

	same, err := engine.OverrideHourPrice(ctx, res, monday, 3, 60_000)
	require.NoError(t, err)
	assert.Zero(t, same.Writes())

	slot := daySlots(t, gdb, res, monday)[3]
	assert.Equal(t, int64(60_000), slot.Price)
	reserve(t, gdb, slot)

	skipped, err := engine.OverrideHourPrice(ctx, res, monday, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, skipped.SkippedReserved)
	assert.Equal(t, int64(60_000), daySlots(t, gdb, res, monday)[3].Price)

	schedule, err := engine.CostSchedule(ctx, court.ID, monday)
	require.NoError(t, err)
	require.Len(t, schedule, 1)
	assert.Equal(t, int64(60_000), schedule[0].Price)

	_, err = engine.OverrideHourPrice(ctx, res, monday, 24, 1)
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))
}

func TestReservedSlotIDsSeparatesTypes(t *testing.T) {
	engine, gdb := setup(t)
	court := newCourt(t, gdb, "court-a")
	coach := newStaff(t, gdb, types.STAFF_COACH)
	ctx := context.Background()
	monday := mustDate(t, "2025-01-06")

	_, err := engine.OverrideHourPrice(ctx, Court(court.ID), monday, 10, 1)
	require.NoError(t, err)
	_, err = engine.OverrideHourPrice(ctx, Staff(types.SLOT_COACH, coach.ID), monday, 10, 1)
	require.NoError(t, err)
	courtSlot := daySlots(t, gdb, Court(court.ID), monday)[10]
	coachSlot := daySlots(t, gdb, Staff(types.SLOT_COACH, coach.ID), monday)[10]
	reserve(t, gdb, coachSlot)

	reserved, err := ReservedSlotIDs(gdb, types.SLOT_COACH, []uint{courtSlot.ID, coachSlot.ID})
	require.NoError(t, err)
	assert.Equal(t, map[uint]bool{coachSlot.ID: true}, reserved)

	ok, err := IsSlotReserved(gdb, courtSlot)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAvailabilityListings(t *testing.T) {
	engine, gdb := setup(t)
	coach := newStaff(t, gdb, types.STAFF_COACH)
	busy := newStaff(t, gdb, types.STAFF_COACH)
	ctx := context.Background()
	monday := mustDate(t, "2025-01-06")

	_, err := engine.ReconcileDayPricing(ctx, Staff(types.SLOT_COACH, coach.ID), monday, standardPlan)
	require.NoError(t, err)
	_, err = engine.ReconcileDayPricing(ctx, Staff(types.SLOT_COACH, busy.ID), monday, standardPlan)
	require.NoError(t, err)
	reserve(t, gdb, daySlots(t, gdb, Staff(types.SLOT_COACH, busy.ID), monday)[18])

	staff, err := engine.AvailableStaffAt(ctx, types.SLOT_COACH, monday, 18)
	require.NoError(t, err)
	require.Len(t, staff, 1)
	assert.Equal(t, coach.ID, staff[0].Staff.ID)
	assert.Equal(t, int64(150_000), staff[0].Price)

	none, err := engine.AvailableStaffAt(ctx, types.SLOT_BALLBOY, monday, 18)
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := engine.Slots(ctx, SlotQuery{Type: types.SLOT_COACH, Day: monday})
	require.NoError(t, err)
	assert.Len(t, all, 36)

	bookable, err := engine.Slots(ctx, SlotQuery{Type: types.SLOT_COACH, Day: monday, ResourceID: busy.ID, Bookable: true})
	require.NoError(t, err)
	assert.Len(t, bookable, 17)
}

func TestRangePricingScenario(t *testing.T) {
	engine, gdb := setup(t)
	court := newCourt(t, gdb, "centre")
	res := Court(court.ID)

	result, err := engine.GenerateSlots(context.Background(), res, RangeRequest{
		From:       mustDate(t, "2025-01-01"),
		To:         mustDate(t, "2025-01-02"),
		DaysOfWeek: []int{3, 4},
		Plan:       PricePlan{HappyPrice: 50_000, PeakPrice: 80_000, ClosedHours: []int{0, 1, 2, 3, 4, 5}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.DaysProcessed)
	assert.Equal(t, 36, result.Created)

	for _, date := range []string{"2025-01-01", "2025-01-02"} {
		slots := daySlots(t, gdb, res, mustDate(t, date))
		require.Len(t, slots, 18, date)
		for h := 6; h <= 14; h++ {
			assert.Equal(t, int64(50_000), slots[h].Price)
		}
		for h := 15; h <= 23; h++ {
			assert.Equal(t, int64(80_000), slots[h].Price)
		}
	}
}

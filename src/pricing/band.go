// Package pricing turns recurring price rules into hourly slots and keeps
// them in step with later rule changes without touching reserved slots.
package pricing

import (
	"arena/src/apperror"
	"arena/src/config"
	"sort"
	"time"
)

// Happy hours run [6,15), peak hours [15,24). Hours 0-5 are never sold.
const (
	HappyStart = 6
	HappyEnd   = 15
	PeakStart  = 15
	PeakEnd    = 24
)

func HoursForBand(start, endExclusive int) []int {
	if endExclusive <= start {
		return []int{}
	}
	hours := make([]int, 0, endExclusive-start)
	for h := start; h < endExclusive; h++ {
		hours = append(hours, h)
	}
	return hours
}

func ParseLocalDate(s string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(config.DATE_FORMAT, s, loc)
	if err != nil {
		return time.Time{}, apperror.BadRequest("invalid date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}

// ToAbsoluteHourRange returns the UTC instants bounding hour on the local
// calendar day. Hour 23 ends at 00:00 of the following day.
func ToAbsoluteHourRange(day time.Time, hour int, loc *time.Location) (time.Time, time.Time) {
	d := day.In(loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, loc).UTC()
	return start, start.Add(time.Hour)
}

func DayBounds(day time.Time, loc *time.Location) (time.Time, time.Time) {
	d := day.In(loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}

// DayOfWeekNumber numbers days Monday=1 through Sunday=7.
func DayOfWeekNumber(day time.Time) int {
	wd := int(day.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func LocalHour(t time.Time, loc *time.Location) int {
	return t.In(loc).Hour()
}

type PricePlan struct {
	HappyPrice  int64
	PeakPrice   int64
	ClosedHours []int
}

func (p PricePlan) Validate() error {
	if p.HappyPrice < 0 || p.PeakPrice < 0 {
		return apperror.BadRequest("prices must not be negative")
	}
	for _, h := range p.ClosedHours {
		if h < 0 || h > 23 {
			return apperror.BadRequest("closed hour %d out of range", h)
		}
	}
	return nil
}

// Targets maps every open hour to its band price.
func (p PricePlan) Targets() map[int]int64 {
	closed := make(map[int]bool, len(p.ClosedHours))
	for _, h := range p.ClosedHours {
		closed[h] = true
	}
	out := make(map[int]int64, PeakEnd-HappyStart)
	for _, h := range HoursForBand(HappyStart, HappyEnd) {
		if !closed[h] {
			out[h] = p.HappyPrice
		}
	}
	for _, h := range HoursForBand(PeakStart, PeakEnd) {
		if !closed[h] {
			out[h] = p.PeakPrice
		}
	}
	return out
}

func sortedHours[V any](m map[int]V) []int {
	hours := make([]int, 0, len(m))
	for h := range m {
		hours = append(hours, h)
	}
	sort.Ints(hours)
	return hours
}

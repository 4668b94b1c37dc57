package availability

import (
	"sort"
	"time"

	"github.com/md-rashed-zaman/shopqueue/services/booking-service/internal/model"
)

type Interval struct {
	Start time.Time
	End   time.Time
}

// GenerateSlots returns the shop's slot grid for the calendar date of date:
// starts at opening, one slot every Duration minutes, and only slots that end
// by closing. The date's year/month/day are read as given and interpreted in
// the shop's time zone.
func GenerateSlots(shop model.Shop, date time.Time) []time.Time {
	step := shop.SlotDuration()
	if step <= 0 || shop.Closing <= shop.Opening {
		return nil
	}
	openAt, closeAt := window(shop, date)

	var slots []time.Time
	for t := openAt; !t.Add(step).After(closeAt); t = t.Add(step) {
		slots = append(slots, t)
	}
	return slots
}

// OnGrid reports whether t is one of the slots for t's shop-local date.
func OnGrid(shop model.Shop, t time.Time) bool {
	local := t.In(shop.Location())
	for _, slot := range GenerateSlots(shop, local) {
		if slot.Equal(t) {
			return true
		}
	}
	return false
}

// DayBounds returns [start, end) of the shop-local calendar day containing date.
func DayBounds(shop model.Shop, date time.Time) (time.Time, time.Time) {
	loc := shop.Location()
	y, m, d := date.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}

// LocalDate normalises t to the shop-local calendar date it falls on.
func LocalDate(shop model.Shop, t time.Time) time.Time {
	y, m, d := t.In(shop.Location()).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func window(shop model.Shop, date time.Time) (time.Time, time.Time) {
	loc := shop.Location()
	y, m, d := date.Date()
	openAt := time.Date(y, m, d, shop.Opening.Hour(), shop.Opening.Minute(), 0, 0, loc)
	closeAt := time.Date(y, m, d, shop.Closing.Hour(), shop.Closing.Minute(), 0, 0, loc)
	return openAt, closeAt
}

// Counts maps slot instants to the number of confirmed appointments there.
type Counts map[int64]int

func CountConfirmed(times []time.Time) Counts {
	c := make(Counts, len(times))
	for _, t := range times {
		c[t.UnixNano()]++
	}
	return c
}

func (c Counts) At(t time.Time) int {
	return c[t.UnixNano()]
}

// Filter keeps grid slots that are under capacity and not blocked. Output
// order follows the grid, which is already chronological.
func Filter(grid []time.Time, counts Counts, capacity int, blocked []Interval) []time.Time {
	out := make([]time.Time, 0, len(grid))
	for _, slot := range grid {
		if counts.At(slot) >= capacity {
			continue
		}
		if Blocked(slot, blocked) {
			continue
		}
		out = append(out, slot)
	}
	return out
}

// Blocked reports whether t falls inside any interval. Only the slot's start
// instant is checked: [b.Start, b.End) contains t.
func Blocked(t time.Time, blocked []Interval) bool {
	for _, b := range blocked {
		if !t.Before(b.Start) && t.Before(b.End) {
			return true
		}
	}
	return false
}

// Overlaps reports whether the half-open intervals a and b intersect.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

func FromBlockedSlots(slots []model.BlockedSlot) []Interval {
	out := make([]Interval, 0, len(slots))
	for _, s := range slots {
		out = append(out, Interval{Start: s.Start, End: s.End})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// FirstAtOrAfter returns the first slot not before t.
func FirstAtOrAfter(slots []time.Time, t time.Time) (time.Time, bool) {
	for _, s := range slots {
		if !s.Before(t) {
			return s, true
		}
	}
	return time.Time{}, false
}

package schedule

import (
	"sort"
	"time"
)

const dateLayout = "2006-01-02"

// DayBlock is a blocked interval anchored on a calendar date.
type DayBlock struct {
	Date     time.Time
	Interval Interval
}

// Calendar tracks one provider's free and blocked intervals per day. Free
// slots for a date are always derived from the template minus that date's
// blocked intervals, so the two sets never overlap after regeneration.
//
// Calendar is not safe for concurrent use; the booking engine serializes
// access per provider.
type Calendar struct {
	template Template
	free     map[string][]Interval
	blocked  map[string][]Interval
}

func NewCalendar(template Template) *Calendar {
	return &Calendar{
		template: template,
		free:     make(map[string][]Interval),
		blocked:  make(map[string][]Interval),
	}
}

func (c *Calendar) Template() Template {
	return c.template
}

func dateKey(t time.Time) string {
	return t.Format(dateLayout)
}

// Regenerate rebuilds the date's free-slot list from the template, dropping
// every slot that overlaps a blocked interval. Idempotent for a fixed
// template and blocked set.
func (c *Calendar) Regenerate(date time.Time) {
	key := dateKey(date)
	slots := c.template.Slots()
	blocked := c.blocked[key]

	free := slots[:0:0]
	for _, slot := range slots {
		clear := true
		for _, b := range blocked {
			if slot.Overlaps(b) {
				clear = false
				break
			}
		}
		if clear {
			free = append(free, slot)
		}
	}
	c.free[key] = free
}

// Generated reports whether the date's free-slot list has been built. A
// fully booked or fully blocked day still counts as generated.
func (c *Calendar) Generated(date time.Time) bool {
	_, ok := c.free[dateKey(date)]
	return ok
}

// RegenerateRange regenerates consecutive days starting at from.
func (c *Calendar) RegenerateRange(from time.Time, days int) {
	for i := 0; i < days; i++ {
		c.Regenerate(from.AddDate(0, 0, i))
	}
}

// Block records a blocked interval for the date and regenerates that day.
// It fails with ErrBlockConflict when the interval overlaps an existing
// block; conflicts against reservations are the engine's concern.
func (c *Calendar) Block(date time.Time, iv Interval) error {
	key := dateKey(date)
	for _, existing := range c.blocked[key] {
		if iv.Overlaps(existing) {
			return ErrBlockConflict
		}
	}
	c.blocked[key] = insertSorted(c.blocked[key], iv)
	c.Regenerate(date)
	return nil
}

// ResetBlocks drops every blocked interval and regenerated day, returning
// the calendar to a clean template state.
func (c *Calendar) ResetBlocks() {
	c.free = make(map[string][]Interval)
	c.blocked = make(map[string][]Interval)
}

// IsBlocked reports whether the interval overlaps any blocked interval on
// the date.
func (c *Calendar) IsBlocked(date time.Time, iv Interval) bool {
	for _, b := range c.blocked[dateKey(date)] {
		if iv.Overlaps(b) {
			return true
		}
	}
	return false
}

// FreeSlots returns a copy of the date's free slots in start order.
func (c *Calendar) FreeSlots(date time.Time) []Interval {
	slots := c.free[dateKey(date)]
	out := make([]Interval, len(slots))
	copy(out, slots)
	return out
}

// BlockedIntervals returns a copy of the date's blocked intervals.
func (c *Calendar) BlockedIntervals(date time.Time) []Interval {
	blocked := c.blocked[dateKey(date)]
	out := make([]Interval, len(blocked))
	copy(out, blocked)
	return out
}

// Blocks returns every blocked interval across all dates, ordered by date
// then start time. Used when snapshotting calendar state.
func (c *Calendar) Blocks() []DayBlock {
	keys := make([]string, 0, len(c.blocked))
	for k := range c.blocked {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []DayBlock
	for _, k := range keys {
		date, _ := time.Parse(dateLayout, k)
		for _, iv := range c.blocked[k] {
			out = append(out, DayBlock{Date: date, Interval: iv})
		}
	}
	return out
}

// ReserveSlot removes the single slot beginning at the given instant from
// the day's free set.
func (c *Calendar) ReserveSlot(at time.Time) error {
	key := dateKey(at)
	start := TimeOfDayFrom(at)
	slots := c.free[key]
	for i, slot := range slots {
		if slot.Start == start {
			c.free[key] = append(slots[:i:i], slots[i+1:]...)
			return nil
		}
	}
	return ErrSlotNotFree
}

// ReleaseSlot restores the single slot beginning at the given instant to the
// day's free set, provided the template generates it and it is not blocked.
func (c *Calendar) ReleaseSlot(at time.Time) {
	key := dateKey(at)
	start := TimeOfDayFrom(at)

	for _, slot := range c.free[key] {
		if slot.Start == start {
			return // already free
		}
	}

	for _, slot := range c.template.Slots() {
		if slot.Start != start {
			continue
		}
		if c.IsBlocked(at, slot) {
			return
		}
		c.free[key] = insertSorted(c.free[key], slot)
		return
	}
}

func insertSorted(ivs []Interval, iv Interval) []Interval {
	i := sort.Search(len(ivs), func(n int) bool { return ivs[n].Start >= iv.Start })
	ivs = append(ivs, Interval{})
	copy(ivs[i+1:], ivs[i:])
	ivs[i] = iv
	return ivs
}

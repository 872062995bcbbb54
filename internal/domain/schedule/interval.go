package schedule

import (
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is a minute-resolution clock time, minutes since midnight.
type TimeOfDay int

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay parses an "HH:MM" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parsing time of day %q: %w", s, err)
	}
	return NewTimeOfDay(parsed.Hour(), parsed.Minute()), nil
}

// TimeOfDayFrom extracts the clock time of an instant.
func TimeOfDayFrom(t time.Time) TimeOfDay {
	return NewTimeOfDay(t.Hour(), t.Minute())
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// At anchors the clock time on a calendar date.
func (t TimeOfDay) At(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location())
}

func (t TimeOfDay) Add(d time.Duration) TimeOfDay {
	return t + TimeOfDay(d/time.Minute)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Interval is an immutable clock-time range within one day. Label is free
// text attached to blocked ranges (the reason the time is unavailable).
type Interval struct {
	Start TimeOfDay
	End   TimeOfDay
	Label string
}

// NewInterval builds an interval, rejecting empty and inverted ranges.
func NewInterval(start, end TimeOfDay) (Interval, error) {
	if start >= end {
		return Interval{}, ErrInvalidInterval
	}
	return Interval{Start: start, End: end}, nil
}

// NewLabeledInterval builds an interval carrying a label.
func NewLabeledInterval(start, end TimeOfDay, label string) (Interval, error) {
	iv, err := NewInterval(start, end)
	if err != nil {
		return Interval{}, err
	}
	iv.Label = label
	return iv, nil
}

// Overlaps reports whether the two intervals share any instant, boundaries
// included.
func (i Interval) Overlaps(other Interval) bool {
	return !(i.End < other.Start) && !(i.Start > other.End)
}

// Contains reports whether this interval fully encloses the other.
func (i Interval) Contains(other Interval) bool {
	return i.Start <= other.Start && i.End >= other.End
}

func (i Interval) String() string {
	s := i.Start.String() + " - " + i.End.String()
	if i.Label != "" {
		s += " (" + i.Label + ")"
	}
	return s
}

// ParseInterval parses an "HH:MM-HH:MM" range.
func ParseInterval(s string) (Interval, error) {
	startRaw, endRaw, ok := strings.Cut(s, "-")
	if !ok {
		return Interval{}, fmt.Errorf("parsing interval %q: want HH:MM-HH:MM", s)
	}
	start, err := ParseTimeOfDay(startRaw)
	if err != nil {
		return Interval{}, err
	}
	end, err := ParseTimeOfDay(endRaw)
	if err != nil {
		return Interval{}, err
	}
	return NewInterval(start, end)
}

package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Template is the standard working-day shape of a provider: the open windows
// that are cut into fixed-duration slots when a day's availability is
// generated.
type Template struct {
	Windows      []Interval
	SlotDuration time.Duration
}

// DefaultTemplate is the reference working day: 09:00-12:00 and 13:00-18:00
// cut into 30-minute slots.
func DefaultTemplate() Template {
	return Template{
		Windows: []Interval{
			{Start: NewTimeOfDay(9, 0), End: NewTimeOfDay(12, 0)},
			{Start: NewTimeOfDay(13, 0), End: NewTimeOfDay(18, 0)},
		},
		SlotDuration: 30 * time.Minute,
	}
}

// ParseTemplate builds a template from a comma-separated list of
// "HH:MM-HH:MM" windows.
func ParseTemplate(windows string, slotDuration time.Duration) (Template, error) {
	if slotDuration < time.Minute {
		return Template{}, fmt.Errorf("slot duration %s too small", slotDuration)
	}
	var t Template
	t.SlotDuration = slotDuration
	for _, raw := range strings.Split(windows, ",") {
		iv, err := ParseInterval(strings.TrimSpace(raw))
		if err != nil {
			return Template{}, err
		}
		t.Windows = append(t.Windows, iv)
	}
	if len(t.Windows) == 0 {
		return Template{}, fmt.Errorf("template %q has no windows", windows)
	}
	return t, nil
}

// Slots cuts every window into consecutive slot-sized intervals. Only slots
// that fit entirely inside a window are produced.
func (t Template) Slots() []Interval {
	var slots []Interval
	for _, w := range t.Windows {
		cur := w.Start
		for cur.Add(t.SlotDuration) <= w.End {
			slots = append(slots, Interval{Start: cur, End: cur.Add(t.SlotDuration)})
			cur = cur.Add(t.SlotDuration)
		}
	}
	return slots
}

// WorkdayEnd is the close of the last window, used to clip the booking
// horizon to the provider's final working instant of the day.
func (t Template) WorkdayEnd() TimeOfDay {
	var end TimeOfDay
	for _, w := range t.Windows {
		if w.End > end {
			end = w.End
		}
	}
	return end
}

// Covers reports whether the clock time falls inside any window, boundaries
// included.
func (t Template) Covers(tod TimeOfDay) bool {
	for _, w := range t.Windows {
		if tod >= w.Start && tod <= w.End {
			return true
		}
	}
	return false
}

package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/careslot/careslot/internal/config"
	"github.com/careslot/careslot/internal/domain/schedule"
)

// Policy is the engine's slot acceptance rule set.
//
// BookingWindows and Template are deliberately independent: the reference
// policy generates afternoon availability to 18:00 but stops accepting
// bookings at 17:30. Both boundaries are kept as-is and configurable so the
// discrepancy stays visible instead of being silently reconciled.
type Policy struct {
	SlotDuration time.Duration
	HorizonDays  int

	// BookingWindows are the clock ranges, bounds inclusive, a booking may
	// start in.
	BookingWindows []schedule.Interval

	// Template shapes the free slots generated for each provider's day.
	Template schedule.Template
}

// DefaultPolicy is the reference policy: 30-minute slots, a 30-day horizon,
// bookings accepted 09:00-11:59 and 13:00-17:30, availability generated for
// 09:00-12:00 and 13:00-18:00.
func DefaultPolicy() Policy {
	return Policy{
		SlotDuration: 30 * time.Minute,
		HorizonDays:  30,
		BookingWindows: []schedule.Interval{
			{Start: schedule.NewTimeOfDay(9, 0), End: schedule.NewTimeOfDay(11, 59)},
			{Start: schedule.NewTimeOfDay(13, 0), End: schedule.NewTimeOfDay(17, 30)},
		},
		Template: schedule.DefaultTemplate(),
	}
}

// PolicyFromConfig builds a policy from the booking configuration section.
func PolicyFromConfig(cfg config.BookingConfig) (Policy, error) {
	template, err := schedule.ParseTemplate(cfg.TemplateWindows, cfg.SlotDuration)
	if err != nil {
		return Policy{}, fmt.Errorf("parsing template windows: %w", err)
	}

	var windows []schedule.Interval
	for _, raw := range strings.Split(cfg.Windows, ",") {
		iv, err := schedule.ParseInterval(strings.TrimSpace(raw))
		if err != nil {
			return Policy{}, fmt.Errorf("parsing booking windows: %w", err)
		}
		windows = append(windows, iv)
	}

	return Policy{
		SlotDuration:   cfg.SlotDuration,
		HorizonDays:    cfg.HorizonDays,
		BookingWindows: windows,
		Template:       template,
	}, nil
}

// withinBookingWindows reports whether a booking may start at the clock
// time. Bounds are inclusive on both ends, which is how the reference
// policy rejects 12:00 (morning window ends 11:59) while accepting the
// 17:30 closing slot.
func (p Policy) withinBookingWindows(tod schedule.TimeOfDay) bool {
	for _, w := range p.BookingWindows {
		if tod >= w.Start && tod <= w.End {
			return true
		}
	}
	return false
}

// horizonEnd is the last instant a booking may target: the horizon day's
// final working instant per the template.
func (p Policy) horizonEnd(now time.Time) time.Time {
	day := now.AddDate(0, 0, p.HorizonDays)
	return p.Template.WorkdayEnd().At(day)
}

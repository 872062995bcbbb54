package booking

import (
	"sort"
	"time"

	"github.com/careslot/careslot/internal/domain/reservation"
	"github.com/careslot/careslot/internal/domain/schedule"
	"github.com/google/uuid"
)

// Slot is one bookable opening on a provider's calendar.
type Slot struct {
	ProviderID uuid.UUID `json:"provider_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

// IsSlotAvailable reports whether the instant is a bookable opening for the
// provider. Unknown providers and instants off the availability index read
// as unavailable.
func (e *Engine) IsSlotAvailable(providerID uuid.UUID, at time.Time) bool {
	at = e.localize(at)

	e.mu.RLock()
	ps, ok := e.providers[providerID]
	e.mu.RUnlock()
	if !ok {
		return false
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	e.mu.RLock()
	e.ensureDayLocked(ps, at)
	e.mu.RUnlock()
	return ps.slots[at.Unix()]
}

// ListAvailableSlots returns the provider's free slots for one day, sorted
// by start. Slots already past, and slots outside the booking horizon, are
// filtered out.
func (e *Engine) ListAvailableSlots(providerID uuid.UUID, day time.Time) []Slot {
	day = e.localize(day)

	e.mu.RLock()
	ps, ok := e.providers[providerID]
	e.mu.RUnlock()
	if !ok {
		return nil
	}

	now := e.now()
	horizon := e.policy.horizonEnd(now)

	ps.mu.Lock()
	defer ps.mu.Unlock()
	e.mu.RLock()
	e.ensureDayLocked(ps, day)
	e.mu.RUnlock()

	var out []Slot
	for _, iv := range ps.calendar.FreeSlots(day) {
		start := iv.Start.At(day)
		if !start.After(now) || start.After(horizon) {
			continue
		}
		if !ps.slots[start.Unix()] {
			continue
		}
		out = append(out, Slot{
			ProviderID: providerID,
			Start:      start,
			End:        iv.End.At(day),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// ProviderBlocks returns the provider's blocked intervals, sorted by date
// then start.
func (e *Engine) ProviderBlocks(providerID uuid.UUID) []schedule.DayBlock {
	e.mu.RLock()
	ps, ok := e.providers[providerID]
	e.mu.RUnlock()
	if !ok {
		return nil
	}
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.calendar.Blocks()
}

// Get returns a copy of the reservation, or reservation.ErrNotFound.
func (e *Engine) Get(id uint64) (*reservation.Reservation, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.reservations[id]
	if !ok {
		return nil, reservation.ErrNotFound
	}
	return r.Clone(), nil
}

// ListPending returns every pending reservation awaiting the provider's
// decision, ordered by scheduled instant then ID.
func (e *Engine) ListPending(providerID uuid.UUID) []reservation.Reservation {
	return e.collect(func(r *reservation.Reservation) bool {
		return r.ProviderID == providerID && r.Status == reservation.StatusPending
	})
}

// ListByStatus returns every reservation in the given status, ordered by
// scheduled instant then ID.
func (e *Engine) ListByStatus(status reservation.Status) []reservation.Reservation {
	return e.collect(func(r *reservation.Reservation) bool {
		return r.Status == status
	})
}

// ListUpcomingForRequester returns the requester's pending and confirmed
// reservations scheduled after now.
func (e *Engine) ListUpcomingForRequester(requesterID uuid.UUID) []reservation.Reservation {
	now := e.now()
	return e.collect(func(r *reservation.Reservation) bool {
		return r.RequesterID == requesterID && upcoming(r, now)
	})
}

// ListUpcomingForProvider returns the provider's pending and confirmed
// reservations scheduled after now.
func (e *Engine) ListUpcomingForProvider(providerID uuid.UUID) []reservation.Reservation {
	now := e.now()
	return e.collect(func(r *reservation.Reservation) bool {
		return r.ProviderID == providerID && upcoming(r, now)
	})
}

// UpcomingConfirmed returns every confirmed reservation scheduled inside
// (now, now+window]. The reminder worker sweeps this.
func (e *Engine) UpcomingConfirmed(window time.Duration) []reservation.Reservation {
	now := e.now()
	cutoff := now.Add(window)
	return e.collect(func(r *reservation.Reservation) bool {
		return r.Status == reservation.StatusConfirmed &&
			r.ScheduledAt.After(now) && !r.ScheduledAt.After(cutoff)
	})
}

func upcoming(r *reservation.Reservation, now time.Time) bool {
	if r.Status != reservation.StatusPending && r.Status != reservation.StatusConfirmed {
		return false
	}
	return r.ScheduledAt.After(now)
}

// collect copies matching reservations out of the arena sorted by scheduled
// instant then ID, so listings are deterministic across calls.
func (e *Engine) collect(match func(*reservation.Reservation) bool) []reservation.Reservation {
	e.mu.RLock()
	var out []reservation.Reservation
	for _, r := range e.reservations {
		if match(r) {
			out = append(out, *r.Clone())
		}
	}
	e.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ScheduledAt.Before(out[j].ScheduledAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

package booking

import (
	"github.com/careslot/careslot/internal/domain/reservation"
	"github.com/careslot/careslot/internal/domain/schedule"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Snapshot is the engine's full durable state: the ID counter, every
// reservation, and each provider's blocked intervals. Free slots are not
// persisted; Restore regenerates them from the template and re-applies
// confirmed reservations.
type Snapshot struct {
	NextID       uint64                    `json:"next_id"`
	Reservations []reservation.Reservation `json:"reservations"`
	Providers    []ProviderSnapshot        `json:"providers"`
}

type ProviderSnapshot struct {
	ID     uuid.UUID           `json:"id"`
	Blocks []schedule.DayBlock `json:"blocks"`
}

// Snapshot captures a consistent copy of the engine state. It holds every
// provider lock for the duration, so mutations are quiesced while it runs.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	states := make([]*providerState, 0, len(e.providers))
	for _, ps := range e.providers {
		states = append(states, ps)
	}
	e.mu.RUnlock()

	for _, ps := range states {
		ps.mu.RLock()
	}
	defer func() {
		for _, ps := range states {
			ps.mu.RUnlock()
		}
	}()

	e.mu.RLock()
	defer e.mu.RUnlock()

	snap := Snapshot{NextID: e.nextID}
	for _, r := range e.reservations {
		snap.Reservations = append(snap.Reservations, *r.Clone())
	}
	for _, ps := range states {
		snap.Providers = append(snap.Providers, ProviderSnapshot{
			ID:     ps.id,
			Blocks: ps.calendar.Blocks(),
		})
	}
	return snap
}

// Restore replaces the engine state wholesale from a snapshot. Providers
// referenced only by reservations are registered implicitly so their
// calendars exist before confirmed slots are re-reserved.
func (e *Engine) Restore(snap Snapshot) error {
	e.mu.Lock()
	e.providers = make(map[uuid.UUID]*providerState)
	e.reservations = make(map[uint64]*reservation.Reservation)
	e.nextID = snap.NextID
	if e.nextID == 0 {
		e.nextID = 1
	}
	e.mu.Unlock()

	for _, p := range snap.Providers {
		e.RegisterProvider(p.ID)
	}

	e.mu.Lock()
	for i := range snap.Reservations {
		r := snap.Reservations[i]
		e.reservations[r.ID] = &r
		if r.ID >= e.nextID {
			e.nextID = r.ID + 1
		}
	}
	e.mu.Unlock()

	for i := range snap.Reservations {
		r := snap.Reservations[i]
		e.mu.RLock()
		_, known := e.providers[r.ProviderID]
		e.mu.RUnlock()
		if !known {
			e.RegisterProvider(r.ProviderID)
		}
	}

	for _, p := range snap.Providers {
		if len(p.Blocks) == 0 {
			continue
		}
		e.mu.RLock()
		ps := e.providers[p.ID]
		e.mu.RUnlock()

		ps.mu.Lock()
		next := schedule.NewCalendar(e.policy.Template)
		for _, b := range p.Blocks {
			if err := next.Block(b.Date, b.Interval); err != nil {
				ps.mu.Unlock()
				return err
			}
		}
		ps.calendar = next
		ps.mu.Unlock()
	}

	// One regeneration pass rebuilds every free-slot index and re-reserves
	// confirmed slots on top of the restored blocks.
	e.mu.RLock()
	states := make([]*providerState, 0, len(e.providers))
	for _, ps := range e.providers {
		states = append(states, ps)
	}
	e.mu.RUnlock()
	for _, ps := range states {
		ps.mu.Lock()
		e.regenerate(ps)
		ps.mu.Unlock()
	}

	e.log.Info("engine state restored",
		zap.Int("reservations", len(snap.Reservations)),
		zap.Int("providers", len(snap.Providers)),
	)
	return nil
}

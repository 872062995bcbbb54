package reservation

import (
	"time"

	"github.com/google/uuid"
)

// State transition possibilities:
//
//	pending → confirmed → completed
//	pending → cancelled
//	confirmed → cancelled
//
// Completed and cancelled are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Reservation is a single appointment between a requester and a provider.
// All mutation goes through the state-machine methods; the booking engine
// owns every instance and never exposes direct field assignment.
type Reservation struct {
	ID          uint64    `json:"id"`
	RequesterID uuid.UUID `json:"requester_id"`
	ProviderID  uuid.UUID `json:"provider_id"`

	ScheduledAt time.Time     `json:"scheduled_at"`
	Duration    time.Duration `json:"duration"`
	Status      Status        `json:"status"`

	// Notes supplied by the requester at booking time.
	RequestNotes string `json:"request_notes,omitempty"`

	// Outcome data, populated only on completion.
	OutcomeNotes    string         `json:"outcome_notes,omitempty"`
	PrescribedItems map[string]int `json:"prescribed_items,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// EndsAt is the exclusive end of the reservation's slot window.
func (r *Reservation) EndsAt() time.Time {
	return r.ScheduledAt.Add(r.Duration)
}

// OverlapsWindow reports whether the reservation's slot window shares any
// instant with [start, end).
func (r *Reservation) OverlapsWindow(start, end time.Time) bool {
	return start.Before(r.EndsAt()) && r.ScheduledAt.Before(end)
}

func (r *Reservation) CanTransitionTo(next Status) bool {
	allowed := map[Status][]Status{
		StatusPending:   {StatusConfirmed, StatusCancelled},
		StatusConfirmed: {StatusCompleted, StatusCancelled},
		StatusCompleted: {},
		StatusCancelled: {},
	}

	for _, s := range allowed[r.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// Confirm moves a pending reservation to confirmed.
func (r *Reservation) Confirm(now time.Time) error {
	if !r.CanTransitionTo(StatusConfirmed) {
		return ErrInvalidTransition
	}
	r.Status = StatusConfirmed
	r.ConfirmedAt = &now
	return nil
}

// Cancel moves a pending or confirmed reservation to cancelled.
func (r *Reservation) Cancel(now time.Time) error {
	if !r.CanTransitionTo(StatusCancelled) {
		return ErrInvalidTransition
	}
	r.Status = StatusCancelled
	r.CancelledAt = &now
	return nil
}

// Complete finalizes a confirmed reservation with its outcome. Prescribed
// items are only ever attached here; stock validation happens in the engine
// before this is called.
func (r *Reservation) Complete(now time.Time, outcomeNotes string, items map[string]int) error {
	if !r.CanTransitionTo(StatusCompleted) {
		return ErrInvalidTransition
	}
	r.Status = StatusCompleted
	r.CompletedAt = &now
	r.OutcomeNotes = outcomeNotes
	if len(items) > 0 {
		r.PrescribedItems = make(map[string]int, len(items))
		for code, qty := range items {
			r.PrescribedItems[code] = qty
		}
	}
	return nil
}

// Retime replaces the scheduled instant of a pending or confirmed
// reservation, keeping identity and status. The engine revalidates the new
// instant before calling this.
func (r *Reservation) Retime(newAt time.Time) error {
	if r.Status != StatusPending && r.Status != StatusConfirmed {
		return ErrInvalidTransition
	}
	r.ScheduledAt = newAt
	return nil
}

// Clone returns a deep copy safe to hand outside the engine's locks.
func (r *Reservation) Clone() *Reservation {
	out := *r
	if r.PrescribedItems != nil {
		out.PrescribedItems = make(map[string]int, len(r.PrescribedItems))
		for code, qty := range r.PrescribedItems {
			out.PrescribedItems[code] = qty
		}
	}
	return &out
}

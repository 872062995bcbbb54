package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/careslot/careslot/internal/domain/reservation"
	"github.com/careslot/careslot/internal/domain/schedule"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StockDispenser is the inventory collaborator consulted when a reservation
// completes with prescribed items. CheckStock verifies an item can cover the
// quantity without changing it; the engine checks every item before the
// first decrement so a shortfall aborts the completion with no stock change.
type StockDispenser interface {
	CheckStock(ctx context.Context, itemCode string, qty int) error
	DecrementStock(ctx context.Context, itemCode string, qty int) error
}

// Outcome carries the data attached to a reservation on completion.
type Outcome struct {
	Notes string
	Items map[string]int // item code → quantity
}

// Engine owns every provider calendar and every reservation. It is an
// explicitly constructed instance, injected where needed.
//
// Concurrency model: mutations touching one provider are serialized on that
// provider's lock; the engine lock guards the reservation arena and the
// provider registry. Exclusive lock order is always provider then engine,
// so readers holding only one of the two never observe a half-applied
// confirm or cancel.
type Engine struct {
	policy Policy
	log    *zap.Logger
	stock  StockDispenser
	now    func() time.Time

	mu           sync.RWMutex
	providers    map[uuid.UUID]*providerState
	reservations map[uint64]*reservation.Reservation
	nextID       uint64
}

// providerState is the per-provider shard: the calendar plus the derived
// bookable-slot index keyed by slot start (unix seconds).
type providerState struct {
	mu       sync.RWMutex
	id       uuid.UUID
	calendar *schedule.Calendar
	slots    map[int64]bool
}

type Option func(*Engine)

// WithStock wires the inventory collaborator used by Complete.
func WithStock(d StockDispenser) Option {
	return func(e *Engine) { e.stock = d }
}

// WithClock overrides the engine's time source. Tests use this to pin
// horizon and past-slot boundaries.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(policy Policy, log *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		policy:       policy,
		log:          log,
		now:          time.Now,
		providers:    make(map[uuid.UUID]*providerState),
		reservations: make(map[uint64]*reservation.Reservation),
		nextID:       1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Policy() Policy {
	return e.policy
}

// RegisterProvider creates a calendar for the provider from the standard
// template and publishes its availability over the whole booking horizon.
// Registering an already-known provider is a no-op.
func (e *Engine) RegisterProvider(providerID uuid.UUID) {
	e.mu.Lock()
	if _, ok := e.providers[providerID]; ok {
		e.mu.Unlock()
		return
	}
	ps := &providerState{
		id:       providerID,
		calendar: schedule.NewCalendar(e.policy.Template),
		slots:    make(map[int64]bool),
	}
	e.providers[providerID] = ps
	e.mu.Unlock()

	ps.mu.Lock()
	defer ps.mu.Unlock()
	e.regenerate(ps)
}

// SetProviderSchedule replaces the provider's blocked intervals and
// regenerates availability. Each block must clear existing reservations;
// overlap with a reservation's slot window, or between two blocks, fails
// the whole update with ErrConflict and leaves the calendar untouched.
func (e *Engine) SetProviderSchedule(providerID uuid.UUID, blocks []schedule.DayBlock) error {
	e.RegisterProvider(providerID)

	e.mu.RLock()
	ps := e.providers[providerID]
	e.mu.RUnlock()

	ps.mu.Lock()
	defer ps.mu.Unlock()
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, b := range blocks {
		start := b.Interval.Start.At(b.Date)
		end := b.Interval.End.At(b.Date)
		if e.hasReservationOverlapLocked(providerID, start, end, 0) {
			return fmt.Errorf("%w: block %s on %s", ErrConflict, b.Interval, b.Date.Format("2006-01-02"))
		}
	}

	next := schedule.NewCalendar(e.policy.Template)
	for _, b := range blocks {
		if err := next.Block(b.Date, b.Interval); err != nil {
			return fmt.Errorf("%w: block %s on %s", ErrConflict, b.Interval, b.Date.Format("2006-01-02"))
		}
	}

	ps.calendar = next
	e.regenerateLocked(ps)
	return nil
}

// regenerate rebuilds the provider's free slots and availability index;
// callers hold ps.mu.
func (e *Engine) regenerate(ps *providerState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.regenerateLocked(ps)
}

// regenerateLocked rebuilds free slots for the horizon and re-applies every
// confirmed reservation on top. Callers hold ps.mu and e.mu.
func (e *Engine) regenerateLocked(ps *providerState) {
	now := e.now()
	days := e.policy.HorizonDays + 1
	ps.calendar.RegenerateRange(now, days)

	ps.slots = make(map[int64]bool)
	for i := 0; i < days; i++ {
		day := now.AddDate(0, 0, i)
		for _, slot := range ps.calendar.FreeSlots(day) {
			ps.slots[slot.Start.At(day).Unix()] = true
		}
	}

	for _, r := range e.reservations {
		if r.ProviderID == ps.id && r.Status == reservation.StatusConfirmed {
			if err := ps.calendar.ReserveSlot(r.ScheduledAt); err == nil {
				ps.slots[r.ScheduledAt.Unix()] = false
			}
		}
	}
}

// ensureDayLocked generates availability for a day the horizon has rolled
// into since the last full regeneration, so a long-running engine keeps the
// tail of the horizon bookable. Callers hold ps.mu and at least a read lock
// on e.mu.
func (e *Engine) ensureDayLocked(ps *providerState, day time.Time) {
	if ps.calendar.Generated(day) {
		return
	}

	ps.calendar.Regenerate(day)
	for _, slot := range ps.calendar.FreeSlots(day) {
		ps.slots[slot.Start.At(day).Unix()] = true
	}

	for _, r := range e.reservations {
		if r.ProviderID != ps.id || r.Status != reservation.StatusConfirmed || !sameDate(r.ScheduledAt, day) {
			continue
		}
		if err := ps.calendar.ReserveSlot(r.ScheduledAt); err == nil {
			ps.slots[r.ScheduledAt.Unix()] = false
		}
	}
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// localize expresses a caller-supplied instant in the engine clock's
// location, so date and time-of-day derivations agree with the generated
// slots regardless of the offset the client sent.
func (e *Engine) localize(at time.Time) time.Time {
	return at.In(e.now().Location()).Truncate(time.Minute)
}

// BookSlot validates a requested slot and creates a pending reservation.
// The calendar is not touched here: availability is only committed when the
// provider confirms, and competing requests for the same instant are caught
// by the conflict scan over pending and confirmed reservations.
func (e *Engine) BookSlot(ctx context.Context, requesterID, providerID uuid.UUID, at time.Time, notes string) (*reservation.Reservation, error) {
	at = e.localize(at)
	now := e.now()

	if !at.After(now) {
		return nil, ErrPastSlot
	}
	if at.After(e.policy.horizonEnd(now)) {
		return nil, ErrHorizonExceeded
	}
	if !e.policy.withinBookingWindows(schedule.TimeOfDayFrom(at)) {
		return nil, ErrOutOfHours
	}

	e.mu.RLock()
	ps, ok := e.providers[providerID]
	e.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownProvider
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ensureDayLocked(ps, at)

	end := at.Add(e.policy.SlotDuration)
	if e.hasReservationOverlapLocked(providerID, at, end, 0) {
		return nil, ErrConflict
	}

	window := schedule.Interval{
		Start: schedule.TimeOfDayFrom(at),
		End:   schedule.TimeOfDayFrom(at).Add(e.policy.SlotDuration),
	}
	if ps.calendar.IsBlocked(at, window) {
		return nil, ErrConflict
	}

	if bookable, known := ps.slots[at.Unix()]; !known || !bookable {
		return nil, ErrSlotUnavailable
	}

	id := e.nextID
	e.nextID++
	r := &reservation.Reservation{
		ID:           id,
		RequesterID:  requesterID,
		ProviderID:   providerID,
		ScheduledAt:  at,
		Duration:     e.policy.SlotDuration,
		Status:       reservation.StatusPending,
		RequestNotes: notes,
		CreatedAt:    now,
	}
	e.reservations[id] = r

	e.log.Info("reservation requested",
		zap.Uint64("reservation_id", id),
		zap.String("provider_id", providerID.String()),
		zap.Time("scheduled_at", at),
	)

	return r.Clone(), nil
}

// Confirm resolves a pending reservation. Accepting transitions it to
// confirmed and commits the slot in the provider's calendar; rejecting
// discards it entirely, retaining no status.
func (e *Engine) Confirm(ctx context.Context, id uint64, accept bool) (*reservation.Reservation, error) {
	ps, err := e.providerFor(id)
	if err != nil {
		return nil, err
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.reservations[id]
	if !ok || r.Status != reservation.StatusPending {
		return nil, reservation.ErrNotFound
	}

	if !accept {
		delete(e.reservations, id)
		e.log.Info("reservation rejected", zap.Uint64("reservation_id", id))
		return r.Clone(), nil
	}

	e.ensureDayLocked(ps, r.ScheduledAt)
	if err := ps.calendar.ReserveSlot(r.ScheduledAt); err != nil {
		return nil, ErrSlotUnavailable
	}
	if err := r.Confirm(e.now()); err != nil {
		ps.calendar.ReleaseSlot(r.ScheduledAt)
		return nil, err
	}
	ps.slots[r.ScheduledAt.Unix()] = false

	e.log.Info("reservation confirmed",
		zap.Uint64("reservation_id", id),
		zap.Time("scheduled_at", r.ScheduledAt),
	)

	return r.Clone(), nil
}

// Cancel transitions a pending or confirmed reservation to cancelled and,
// when it held a confirmed slot, restores that slot's availability.
// Cancelling a terminal reservation reports ErrInvalidTransition and
// changes nothing.
func (e *Engine) Cancel(ctx context.Context, id uint64) (*reservation.Reservation, error) {
	ps, err := e.providerFor(id)
	if err != nil {
		return nil, err
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.reservations[id]
	if !ok {
		return nil, reservation.ErrNotFound
	}

	wasConfirmed := r.Status == reservation.StatusConfirmed
	if err := r.Cancel(e.now()); err != nil {
		return nil, err
	}

	if wasConfirmed {
		e.ensureDayLocked(ps, r.ScheduledAt)
		ps.calendar.ReleaseSlot(r.ScheduledAt)
		ps.slots[r.ScheduledAt.Unix()] = e.slotFreeLocked(ps, r.ScheduledAt)
	}

	e.log.Info("reservation cancelled", zap.Uint64("reservation_id", id))
	return r.Clone(), nil
}

// Complete finalizes a confirmed reservation, attaching its outcome. Every
// prescribed item's stock is checked before any is decremented, so a
// shortfall on one item aborts the completion with no reservation or stock
// change.
func (e *Engine) Complete(ctx context.Context, id uint64, outcome Outcome) (*reservation.Reservation, error) {
	ps, err := e.providerFor(id)
	if err != nil {
		return nil, err
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()

	e.mu.RLock()
	r, ok := e.reservations[id]
	e.mu.RUnlock()
	if !ok {
		return nil, reservation.ErrNotFound
	}
	if !r.CanTransitionTo(reservation.StatusCompleted) {
		return nil, reservation.ErrInvalidTransition
	}

	if len(outcome.Items) > 0 {
		if e.stock == nil {
			return nil, fmt.Errorf("no stock dispenser configured")
		}
		codes := make([]string, 0, len(outcome.Items))
		for code := range outcome.Items {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			if err := e.stock.CheckStock(ctx, code, outcome.Items[code]); err != nil {
				return nil, fmt.Errorf("checking stock for %q: %w", code, err)
			}
		}
		for _, code := range codes {
			if err := e.stock.DecrementStock(ctx, code, outcome.Items[code]); err != nil {
				return nil, fmt.Errorf("decrementing stock for %q: %w", code, err)
			}
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := r.Complete(e.now(), outcome.Notes, outcome.Items); err != nil {
		return nil, err
	}

	e.log.Info("reservation completed",
		zap.Uint64("reservation_id", id),
		zap.Int("prescribed_items", len(outcome.Items)),
	)

	return r.Clone(), nil
}

// Reschedule cancels the old reservation, then books a fresh slot with the
// new provider and instant. There is no rollback: if the new booking is
// rejected, the old reservation stays cancelled and the combined failure is
// reported as ErrRescheduleFailed wrapping the rejection.
func (e *Engine) Reschedule(ctx context.Context, id uint64, newProviderID uuid.UUID, newAt time.Time, notes string) (*reservation.Reservation, error) {
	old, err := e.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}

	booked, err := e.BookSlot(ctx, old.RequesterID, newProviderID, newAt, notes)
	if err != nil {
		e.log.Warn("reschedule left old reservation cancelled",
			zap.Uint64("old_reservation_id", id),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrRescheduleFailed, err)
	}
	return booked, nil
}

// Retime replaces the scheduled instant of a pending or confirmed
// reservation in place, keeping its identity and status. The new instant
// must clear every booking validation; a confirmed reservation's slot moves
// atomically.
func (e *Engine) Retime(ctx context.Context, id uint64, newAt time.Time) (*reservation.Reservation, error) {
	newAt = e.localize(newAt)
	now := e.now()

	if !newAt.After(now) {
		return nil, ErrPastSlot
	}
	if newAt.After(e.policy.horizonEnd(now)) {
		return nil, ErrHorizonExceeded
	}
	if !e.policy.withinBookingWindows(schedule.TimeOfDayFrom(newAt)) {
		return nil, ErrOutOfHours
	}

	ps, err := e.providerFor(id)
	if err != nil {
		return nil, err
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.reservations[id]
	if !ok {
		return nil, reservation.ErrNotFound
	}
	if r.Status != reservation.StatusPending && r.Status != reservation.StatusConfirmed {
		return nil, reservation.ErrInvalidTransition
	}

	e.ensureDayLocked(ps, newAt)

	end := newAt.Add(e.policy.SlotDuration)
	if e.hasReservationOverlapLocked(r.ProviderID, newAt, end, id) {
		return nil, ErrConflict
	}

	window := schedule.Interval{
		Start: schedule.TimeOfDayFrom(newAt),
		End:   schedule.TimeOfDayFrom(newAt).Add(e.policy.SlotDuration),
	}
	if ps.calendar.IsBlocked(newAt, window) {
		return nil, ErrConflict
	}

	if bookable, known := ps.slots[newAt.Unix()]; !known || !bookable {
		return nil, ErrSlotUnavailable
	}

	oldAt := r.ScheduledAt
	if err := r.Retime(newAt); err != nil {
		return nil, err
	}

	if r.Status == reservation.StatusConfirmed {
		ps.calendar.ReleaseSlot(oldAt)
		ps.slots[oldAt.Unix()] = e.slotFreeLocked(ps, oldAt)
		if err := ps.calendar.ReserveSlot(newAt); err == nil {
			ps.slots[newAt.Unix()] = false
		}
	}

	e.log.Info("reservation retimed",
		zap.Uint64("reservation_id", id),
		zap.Time("from", oldAt),
		zap.Time("to", newAt),
	)

	return r.Clone(), nil
}

// providerFor resolves the provider shard owning a reservation.
func (e *Engine) providerFor(id uint64) (*providerState, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.reservations[id]
	if !ok {
		return nil, reservation.ErrNotFound
	}
	ps, ok := e.providers[r.ProviderID]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return ps, nil
}

// hasReservationOverlapLocked scans the provider's pending and confirmed
// reservations for any slot window overlapping [start, end). Callers hold
// e.mu; excludeID skips the reservation being retimed.
func (e *Engine) hasReservationOverlapLocked(providerID uuid.UUID, start, end time.Time, excludeID uint64) bool {
	for _, r := range e.reservations {
		if r.ID == excludeID || r.ProviderID != providerID {
			continue
		}
		if r.Status != reservation.StatusPending && r.Status != reservation.StatusConfirmed {
			continue
		}
		if r.OverlapsWindow(start, end) {
			return true
		}
	}
	return false
}

// slotFreeLocked reports whether the calendar currently lists the slot at
// the instant as free. Callers hold ps.mu.
func (e *Engine) slotFreeLocked(ps *providerState, at time.Time) bool {
	start := schedule.TimeOfDayFrom(at)
	for _, slot := range ps.calendar.FreeSlots(at) {
		if slot.Start == start {
			return true
		}
	}
	return false
}

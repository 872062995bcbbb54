package booking

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/careslot/careslot/internal/domain/reservation"
	"github.com/careslot/careslot/internal/domain/schedule"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Monday 10:00, mid-morning inside working hours.
var testNow = time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return NewEngine(DefaultPolicy(), zap.NewNop(), opts...)
}

func at(daysAhead, hour, minute int) time.Time {
	d := testNow.AddDate(0, 0, daysAhead)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, time.UTC)
}

type fakeDispenser struct {
	levels     map[string]int
	dispensed  map[string]int
	failOnCode string
}

func (f *fakeDispenser) CheckStock(_ context.Context, code string, qty int) error {
	if code == f.failOnCode {
		return fmt.Errorf("insufficient stock for %s", code)
	}
	if f.levels != nil && qty > f.levels[code] {
		return fmt.Errorf("insufficient stock for %s", code)
	}
	return nil
}

func (f *fakeDispenser) DecrementStock(_ context.Context, code string, qty int) error {
	if code == f.failOnCode {
		return fmt.Errorf("insufficient stock for %s", code)
	}
	if f.levels != nil {
		f.levels[code] -= qty
	}
	if f.dispensed == nil {
		f.dispensed = make(map[string]int)
	}
	f.dispensed[code] += qty
	return nil
}

func TestBookSlot(t *testing.T) {
	ctx := context.Background()
	requester := uuid.New()
	provider := uuid.New()

	t.Run("creates a pending reservation without touching the calendar", func(t *testing.T) {
		e := newTestEngine(t)
		e.RegisterProvider(provider)

		slot := at(1, 14, 0)
		r, err := e.BookSlot(ctx, requester, provider, slot, "first visit")
		require.NoError(t, err)
		assert.Equal(t, reservation.StatusPending, r.Status)
		assert.Equal(t, slot, r.ScheduledAt)
		assert.Equal(t, "first visit", r.RequestNotes)

		// Availability only changes on confirm.
		assert.True(t, e.IsSlotAvailable(provider, slot))
	})

	t.Run("assigns strictly increasing identifiers", func(t *testing.T) {
		e := newTestEngine(t)
		e.RegisterProvider(provider)

		a, err := e.BookSlot(ctx, requester, provider, at(1, 14, 0), "")
		require.NoError(t, err)
		b, err := e.BookSlot(ctx, requester, provider, at(1, 15, 0), "")
		require.NoError(t, err)
		assert.Greater(t, b.ID, a.ID)
	})

	t.Run("rejects a past instant", func(t *testing.T) {
		e := newTestEngine(t)
		e.RegisterProvider(provider)

		_, err := e.BookSlot(ctx, requester, provider, at(0, 9, 0), "")
		assert.ErrorIs(t, err, ErrPastSlot)
	})

	t.Run("rejects the current instant", func(t *testing.T) {
		e := newTestEngine(t)
		e.RegisterProvider(provider)

		_, err := e.BookSlot(ctx, requester, provider, testNow, "")
		assert.ErrorIs(t, err, ErrPastSlot)
	})

	t.Run("accepts the last slot inside the horizon", func(t *testing.T) {
		e := newTestEngine(t)
		e.RegisterProvider(provider)

		_, err := e.BookSlot(ctx, requester, provider, at(30, 17, 30), "")
		assert.NoError(t, err)
	})

	t.Run("rejects an instant past the horizon", func(t *testing.T) {
		e := newTestEngine(t)
		e.RegisterProvider(provider)

		_, err := e.BookSlot(ctx, requester, provider, at(31, 9, 0), "")
		assert.ErrorIs(t, err, ErrHorizonExceeded)
	})

	t.Run("rejects instants outside booking hours", func(t *testing.T) {
		e := newTestEngine(t)
		e.RegisterProvider(provider)

		for _, tc := range []struct {
			name         string
			hour, minute int
		}{
			{"before opening", 8, 30},
			{"lunch gap", 12, 15},
			{"noon boundary", 12, 0},
			{"after cutoff", 18, 0},
		} {
			t.Run(tc.name, func(t *testing.T) {
				_, err := e.BookSlot(ctx, requester, provider, at(1, tc.hour, tc.minute), "")
				assert.ErrorIs(t, err, ErrOutOfHours)
			})
		}
	})

	t.Run("rejects an unknown provider", func(t *testing.T) {
		e := newTestEngine(t)

		_, err := e.BookSlot(ctx, requester, uuid.New(), at(1, 14, 0), "")
		assert.ErrorIs(t, err, ErrUnknownProvider)
	})

	t.Run("rejects an off-grid instant inside booking hours", func(t *testing.T) {
		e := newTestEngine(t)
		e.RegisterProvider(provider)

		_, err := e.BookSlot(ctx, requester, provider, at(1, 14, 10), "")
		assert.ErrorIs(t, err, ErrSlotUnavailable)
	})

	t.Run("rejects a second request for a held slot", func(t *testing.T) {
		e := newTestEngine(t)
		e.RegisterProvider(provider)

		slot := at(1, 14, 0)
		_, err := e.BookSlot(ctx, requester, provider, slot, "")
		require.NoError(t, err)

		_, err = e.BookSlot(ctx, uuid.New(), provider, slot, "")
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("allows the same instant with another provider", func(t *testing.T) {
		e := newTestEngine(t)
		other := uuid.New()
		e.RegisterProvider(provider)
		e.RegisterProvider(other)

		slot := at(1, 14, 0)
		_, err := e.BookSlot(ctx, requester, provider, slot, "")
		require.NoError(t, err)
		_, err = e.BookSlot(ctx, requester, other, slot, "")
		assert.NoError(t, err)
	})
}

func TestHorizonRollsForward(t *testing.T) {
	ctx := context.Background()
	requester := uuid.New()
	provider := uuid.New()

	current := testNow
	e := NewEngine(DefaultPolicy(), zap.NewNop(), WithClock(func() time.Time { return current }))
	e.RegisterProvider(provider)

	_, err := e.BookSlot(ctx, requester, provider, at(32, 17, 30), "")
	assert.ErrorIs(t, err, ErrHorizonExceeded)

	// Two days later the same slot is the last bookable instant of the
	// horizon, on a day the calendar had not generated at registration.
	current = current.Add(48 * time.Hour)

	assert.Len(t, e.ListAvailableSlots(provider, at(32, 0, 0)), 16)
	assert.True(t, e.IsSlotAvailable(provider, at(32, 17, 30)))

	r, err := e.BookSlot(ctx, requester, provider, at(32, 17, 30), "")
	require.NoError(t, err)

	_, err = e.Confirm(ctx, r.ID, true)
	require.NoError(t, err)
	assert.False(t, e.IsSlotAvailable(provider, at(32, 17, 30)))
}

func TestClientOffsetNormalization(t *testing.T) {
	ctx := context.Background()
	requester := uuid.New()
	provider := uuid.New()

	e := newTestEngine(t)
	e.RegisterProvider(provider)

	plus8 := time.FixedZone("UTC+8", 8*3600)

	t.Run("booking in a client offset lands on the same instant's slot", func(t *testing.T) {
		// 17:00+08:00 is 09:00 UTC: the same instant with a different
		// wall-clock reading.
		local := at(1, 9, 0).In(plus8)

		r, err := e.BookSlot(ctx, requester, provider, local, "")
		require.NoError(t, err)
		assert.True(t, r.ScheduledAt.Equal(at(1, 9, 0)))

		_, err = e.Confirm(ctx, r.ID, true)
		require.NoError(t, err)
		assert.False(t, e.IsSlotAvailable(provider, at(1, 9, 0)))

		// The 17:00 UTC slot is a distinct instant; it must survive the
		// confirm above and remain confirmable itself.
		assert.True(t, e.IsSlotAvailable(provider, at(1, 17, 0)))
		r2, err := e.BookSlot(ctx, uuid.New(), provider, at(1, 17, 0), "")
		require.NoError(t, err)
		_, err = e.Confirm(ctx, r2.ID, true)
		require.NoError(t, err)
	})

	t.Run("out-of-hours is judged on the engine's clock", func(t *testing.T) {
		// 20:00+08:00 is 12:00 UTC, inside the midday gap.
		local := time.Date(2025, 3, 11, 20, 0, 0, 0, plus8)
		_, err := e.BookSlot(ctx, requester, provider, local, "")
		assert.ErrorIs(t, err, ErrOutOfHours)
	})
}

func TestConfirm(t *testing.T) {
	ctx := context.Background()
	requester := uuid.New()
	provider := uuid.New()

	t.Run("accept commits the slot", func(t *testing.T) {
		e := newTestEngine(t)
		e.RegisterProvider(provider)

		slot := at(1, 14, 0)
		r, err := e.BookSlot(ctx, requester, provider, slot, "")
		require.NoError(t, err)

		confirmed, err := e.Confirm(ctx, r.ID, true)
		require.NoError(t, err)
		assert.Equal(t, reservation.StatusConfirmed, confirmed.Status)
		require.NotNil(t, confirmed.ConfirmedAt)
		assert.False(t, e.IsSlotAvailable(provider, slot))
	})

	t.Run("reject discards the reservation entirely", func(t *testing.T) {
		e := newTestEngine(t)
		e.RegisterProvider(provider)

		slot := at(1, 14, 0)
		r, err := e.BookSlot(ctx, requester, provider, slot, "")
		require.NoError(t, err)

		_, err = e.Confirm(ctx, r.ID, false)
		require.NoError(t, err)

		_, err = e.Get(r.ID)
		assert.ErrorIs(t, err, reservation.ErrNotFound)
		assert.True(t, e.IsSlotAvailable(provider, slot))
	})

	t.Run("confirming twice fails", func(t *testing.T) {
		e := newTestEngine(t)
		e.RegisterProvider(provider)

		r, err := e.BookSlot(ctx, requester, provider, at(1, 14, 0), "")
		require.NoError(t, err)
		_, err = e.Confirm(ctx, r.ID, true)
		require.NoError(t, err)

		_, err = e.Confirm(ctx, r.ID, true)
		assert.ErrorIs(t, err, reservation.ErrNotFound)
	})

	t.Run("unknown reservation", func(t *testing.T) {
		e := newTestEngine(t)

		_, err := e.Confirm(ctx, 42, true)
		assert.ErrorIs(t, err, reservation.ErrNotFound)
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	requester := uuid.New()
	provider := uuid.New()

	t.Run("cancelling a confirmed reservation restores the slot", func(t *testing.T) {
		e := newTestEngine(t)
		e.RegisterProvider(provider)

		slot := at(1, 14, 0)
		r, err := e.BookSlot(ctx, requester, provider, slot, "")
		require.NoError(t, err)
		_, err = e.Confirm(ctx, r.ID, true)
		require.NoError(t, err)
		require.False(t, e.IsSlotAvailable(provider, slot))

		cancelled, err := e.Cancel(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, reservation.StatusCancelled, cancelled.Status)
		assert.True(t, e.IsSlotAvailable(provider, slot))

		// The freed slot is immediately bookable again.
		_, err = e.BookSlot(ctx, uuid.New(), provider, slot, "")
		assert.NoError(t, err)
	})

	t.Run("cancelling a pending reservation keeps the record", func(t *testing.T) {
		e := newTestEngine(t)
		e.RegisterProvider(provider)

		r, err := e.BookSlot(ctx, requester, provider, at(1, 14, 0), "")
		require.NoError(t, err)

		_, err = e.Cancel(ctx, r.ID)
		require.NoError(t, err)

		got, err := e.Get(r.ID)
		require.NoError(t, err)
		assert.Equal(t, reservation.StatusCancelled, got.Status)
	})

	t.Run("terminal states stay terminal", func(t *testing.T) {
		e := newTestEngine(t, WithStock(&fakeDispenser{}))
		e.RegisterProvider(provider)

		r, err := e.BookSlot(ctx, requester, provider, at(1, 14, 0), "")
		require.NoError(t, err)
		_, err = e.Confirm(ctx, r.ID, true)
		require.NoError(t, err)
		_, err = e.Complete(ctx, r.ID, Outcome{Notes: "done"})
		require.NoError(t, err)

		_, err = e.Cancel(ctx, r.ID)
		assert.ErrorIs(t, err, reservation.ErrInvalidTransition)

		got, err := e.Get(r.ID)
		require.NoError(t, err)
		assert.Equal(t, reservation.StatusCompleted, got.Status)
	})
}

func TestComplete(t *testing.T) {
	ctx := context.Background()
	requester := uuid.New()
	provider := uuid.New()

	confirmed := func(t *testing.T, e *Engine) uint64 {
		t.Helper()
		r, err := e.BookSlot(ctx, requester, provider, at(1, 14, 0), "")
		require.NoError(t, err)
		_, err = e.Confirm(ctx, r.ID, true)
		require.NoError(t, err)
		return r.ID
	}

	t.Run("records outcome and dispenses prescribed items", func(t *testing.T) {
		disp := &fakeDispenser{levels: map[string]int{"AMOX-500": 20}}
		e := newTestEngine(t, WithStock(disp))
		e.RegisterProvider(provider)
		id := confirmed(t, e)

		r, err := e.Complete(ctx, id, Outcome{
			Notes: "seasonal allergy",
			Items: map[string]int{"AMOX-500": 2},
		})
		require.NoError(t, err)
		assert.Equal(t, reservation.StatusCompleted, r.Status)
		assert.Equal(t, "seasonal allergy", r.OutcomeNotes)
		assert.Equal(t, 18, disp.levels["AMOX-500"])
	})

	t.Run("dispense failure leaves the reservation confirmed", func(t *testing.T) {
		disp := &fakeDispenser{failOnCode: "RARE-1"}
		e := newTestEngine(t, WithStock(disp))
		e.RegisterProvider(provider)
		id := confirmed(t, e)

		_, err := e.Complete(ctx, id, Outcome{Items: map[string]int{"RARE-1": 1}})
		require.Error(t, err)

		got, err := e.Get(id)
		require.NoError(t, err)
		assert.Equal(t, reservation.StatusConfirmed, got.Status)
		assert.Empty(t, got.OutcomeNotes)
	})

	t.Run("shortfall on one item dispenses nothing", func(t *testing.T) {
		disp := &fakeDispenser{
			levels:     map[string]int{"AMOX-500": 10, "RARE-1": 0},
			failOnCode: "RARE-1",
		}
		e := newTestEngine(t, WithStock(disp))
		e.RegisterProvider(provider)
		id := confirmed(t, e)

		_, err := e.Complete(ctx, id, Outcome{
			Items: map[string]int{"AMOX-500": 2, "RARE-1": 1},
		})
		require.Error(t, err)

		assert.Equal(t, 10, disp.levels["AMOX-500"])
		assert.Empty(t, disp.dispensed)

		got, err := e.Get(id)
		require.NoError(t, err)
		assert.Equal(t, reservation.StatusConfirmed, got.Status)
	})

	t.Run("completing a pending reservation fails", func(t *testing.T) {
		e := newTestEngine(t)
		e.RegisterProvider(provider)

		r, err := e.BookSlot(ctx, requester, provider, at(1, 14, 0), "")
		require.NoError(t, err)

		_, err = e.Complete(ctx, r.ID, Outcome{Notes: "early"})
		assert.ErrorIs(t, err, reservation.ErrInvalidTransition)
	})
}

func TestReschedule(t *testing.T) {
	ctx := context.Background()
	requester := uuid.New()
	provider := uuid.New()

	t.Run("moves a confirmed reservation to a fresh slot", func(t *testing.T) {
		e := newTestEngine(t)
		e.RegisterProvider(provider)

		oldSlot, newSlot := at(1, 14, 0), at(2, 9, 30)
		r, err := e.BookSlot(ctx, requester, provider, oldSlot, "")
		require.NoError(t, err)
		_, err = e.Confirm(ctx, r.ID, true)
		require.NoError(t, err)

		moved, err := e.Reschedule(ctx, r.ID, provider, newSlot, "moved")
		require.NoError(t, err)
		assert.NotEqual(t, r.ID, moved.ID)
		assert.Equal(t, newSlot, moved.ScheduledAt)
		assert.Equal(t, reservation.StatusPending, moved.Status)
		assert.True(t, e.IsSlotAvailable(provider, oldSlot))

		old, err := e.Get(r.ID)
		require.NoError(t, err)
		assert.Equal(t, reservation.StatusCancelled, old.Status)
	})

	t.Run("rebooking failure leaves the original cancelled", func(t *testing.T) {
		e := newTestEngine(t)
		e.RegisterProvider(provider)

		r, err := e.BookSlot(ctx, requester, provider, at(1, 14, 0), "")
		require.NoError(t, err)
		_, err = e.Confirm(ctx, r.ID, true)
		require.NoError(t, err)

		_, err = e.Reschedule(ctx, r.ID, provider, at(1, 12, 15), "")
		assert.ErrorIs(t, err, ErrRescheduleFailed)
		assert.ErrorIs(t, err, ErrOutOfHours)

		old, getErr := e.Get(r.ID)
		require.NoError(t, getErr)
		assert.Equal(t, reservation.StatusCancelled, old.Status)
	})
}

func TestRetime(t *testing.T) {
	ctx := context.Background()
	requester := uuid.New()
	provider := uuid.New()

	t.Run("moves a confirmed slot atomically", func(t *testing.T) {
		e := newTestEngine(t)
		e.RegisterProvider(provider)

		oldSlot, newSlot := at(1, 14, 0), at(1, 15, 0)
		r, err := e.BookSlot(ctx, requester, provider, oldSlot, "")
		require.NoError(t, err)
		_, err = e.Confirm(ctx, r.ID, true)
		require.NoError(t, err)

		moved, err := e.Retime(ctx, r.ID, newSlot)
		require.NoError(t, err)
		assert.Equal(t, r.ID, moved.ID)
		assert.Equal(t, reservation.StatusConfirmed, moved.Status)
		assert.True(t, e.IsSlotAvailable(provider, oldSlot))
		assert.False(t, e.IsSlotAvailable(provider, newSlot))
	})

	t.Run("conflicting target is rejected", func(t *testing.T) {
		e := newTestEngine(t)
		e.RegisterProvider(provider)

		taken := at(1, 15, 0)
		_, err := e.BookSlot(ctx, uuid.New(), provider, taken, "")
		require.NoError(t, err)

		r, err := e.BookSlot(ctx, requester, provider, at(1, 14, 0), "")
		require.NoError(t, err)

		_, err = e.Retime(ctx, r.ID, taken)
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestSetProviderSchedule(t *testing.T) {
	ctx := context.Background()
	requester := uuid.New()
	provider := uuid.New()

	block := func(daysAhead int, from, to schedule.TimeOfDay) schedule.DayBlock {
		return schedule.DayBlock{
			Date:     testNow.AddDate(0, 0, daysAhead),
			Interval: schedule.Interval{Start: from, End: to, Label: "rounds"},
		}
	}

	t.Run("blocked intervals disappear from availability", func(t *testing.T) {
		e := newTestEngine(t)
		e.RegisterProvider(provider)
		require.True(t, e.IsSlotAvailable(provider, at(1, 14, 0)))

		err := e.SetProviderSchedule(provider, []schedule.DayBlock{
			block(1, schedule.NewTimeOfDay(14, 0), schedule.NewTimeOfDay(16, 0)),
		})
		require.NoError(t, err)

		assert.False(t, e.IsSlotAvailable(provider, at(1, 14, 0)))
		assert.False(t, e.IsSlotAvailable(provider, at(1, 15, 30)))
		assert.True(t, e.IsSlotAvailable(provider, at(1, 16, 30)))

		_, err = e.BookSlot(ctx, requester, provider, at(1, 14, 30), "")
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("block overlapping a reservation is rejected whole", func(t *testing.T) {
		e := newTestEngine(t)
		e.RegisterProvider(provider)

		_, err := e.BookSlot(ctx, requester, provider, at(1, 14, 0), "")
		require.NoError(t, err)

		err = e.SetProviderSchedule(provider, []schedule.DayBlock{
			block(1, schedule.NewTimeOfDay(9, 0), schedule.NewTimeOfDay(10, 0)),
			block(1, schedule.NewTimeOfDay(14, 0), schedule.NewTimeOfDay(15, 0)),
		})
		assert.ErrorIs(t, err, ErrConflict)

		// The morning block was not applied either.
		assert.True(t, e.IsSlotAvailable(provider, at(1, 9, 0)))
	})

	t.Run("replacing blocks keeps confirmed slots committed", func(t *testing.T) {
		e := newTestEngine(t)
		e.RegisterProvider(provider)

		slot := at(1, 14, 0)
		r, err := e.BookSlot(ctx, requester, provider, slot, "")
		require.NoError(t, err)
		_, err = e.Confirm(ctx, r.ID, true)
		require.NoError(t, err)

		err = e.SetProviderSchedule(provider, []schedule.DayBlock{
			block(2, schedule.NewTimeOfDay(9, 0), schedule.NewTimeOfDay(12, 0)),
		})
		require.NoError(t, err)

		assert.False(t, e.IsSlotAvailable(provider, slot))
	})
}

func TestListings(t *testing.T) {
	ctx := context.Background()
	provider := uuid.New()
	alice := uuid.New()
	bob := uuid.New()

	t.Run("pending listing is ordered by instant then id", func(t *testing.T) {
		e := newTestEngine(t)
		e.RegisterProvider(provider)

		late, err := e.BookSlot(ctx, alice, provider, at(2, 15, 0), "")
		require.NoError(t, err)
		early, err := e.BookSlot(ctx, bob, provider, at(1, 9, 0), "")
		require.NoError(t, err)

		got := e.ListPending(provider)
		require.Len(t, got, 2)
		assert.Equal(t, early.ID, got[0].ID)
		assert.Equal(t, late.ID, got[1].ID)

		// Stable across repeated reads.
		assert.Equal(t, got, e.ListPending(provider))
	})

	t.Run("upcoming listings split by party", func(t *testing.T) {
		e := newTestEngine(t)
		e.RegisterProvider(provider)

		ra, err := e.BookSlot(ctx, alice, provider, at(1, 14, 0), "")
		require.NoError(t, err)
		_, err = e.Confirm(ctx, ra.ID, true)
		require.NoError(t, err)
		_, err = e.BookSlot(ctx, bob, provider, at(1, 15, 0), "")
		require.NoError(t, err)

		forAlice := e.ListUpcomingForRequester(alice)
		require.Len(t, forAlice, 1)
		assert.Equal(t, ra.ID, forAlice[0].ID)

		assert.Len(t, e.ListUpcomingForProvider(provider), 2)
	})

	t.Run("cancelled reservations drop out of upcoming", func(t *testing.T) {
		e := newTestEngine(t)
		e.RegisterProvider(provider)

		r, err := e.BookSlot(ctx, alice, provider, at(1, 14, 0), "")
		require.NoError(t, err)
		_, err = e.Cancel(ctx, r.ID)
		require.NoError(t, err)

		assert.Empty(t, e.ListUpcomingForRequester(alice))
		assert.Len(t, e.ListByStatus(reservation.StatusCancelled), 1)
	})

	t.Run("available slots exclude held openings once confirmed", func(t *testing.T) {
		e := newTestEngine(t)
		e.RegisterProvider(provider)

		day := testNow.AddDate(0, 0, 1)
		before := e.ListAvailableSlots(provider, day)
		require.NotEmpty(t, before)

		r, err := e.BookSlot(ctx, alice, provider, at(1, 14, 0), "")
		require.NoError(t, err)
		_, err = e.Confirm(ctx, r.ID, true)
		require.NoError(t, err)

		after := e.ListAvailableSlots(provider, day)
		assert.Len(t, after, len(before)-1)
		for _, s := range after {
			assert.False(t, s.Start.Equal(at(1, 14, 0)))
		}
	})

	t.Run("reminder window picks only near confirmed reservations", func(t *testing.T) {
		e := newTestEngine(t)
		e.RegisterProvider(provider)

		near, err := e.BookSlot(ctx, alice, provider, at(1, 9, 0), "")
		require.NoError(t, err)
		_, err = e.Confirm(ctx, near.ID, true)
		require.NoError(t, err)

		far, err := e.BookSlot(ctx, bob, provider, at(5, 9, 0), "")
		require.NoError(t, err)
		_, err = e.Confirm(ctx, far.ID, true)
		require.NoError(t, err)

		got := e.UpcomingConfirmed(24 * time.Hour)
		require.Len(t, got, 1)
		assert.Equal(t, near.ID, got[0].ID)
	})
}

func TestSnapshotRestore(t *testing.T) {
	ctx := context.Background()
	requester := uuid.New()
	provider := uuid.New()

	e := newTestEngine(t)
	e.RegisterProvider(provider)
	require.NoError(t, e.SetProviderSchedule(provider, []schedule.DayBlock{{
		Date:     testNow.AddDate(0, 0, 2),
		Interval: schedule.Interval{Start: schedule.NewTimeOfDay(9, 0), End: schedule.NewTimeOfDay(12, 0), Label: "conference"},
	}}))

	slot := at(1, 14, 0)
	r, err := e.BookSlot(ctx, requester, provider, slot, "follow-up")
	require.NoError(t, err)
	_, err = e.Confirm(ctx, r.ID, true)
	require.NoError(t, err)
	pending, err := e.BookSlot(ctx, requester, provider, at(3, 10, 0), "")
	require.NoError(t, err)

	snap := e.Snapshot()

	restored := newTestEngine(t)
	require.NoError(t, restored.Restore(snap))

	got, err := restored.Get(r.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusConfirmed, got.Status)
	assert.False(t, restored.IsSlotAvailable(provider, slot))
	assert.False(t, restored.IsSlotAvailable(provider, at(2, 9, 30)))

	gotPending, err := restored.Get(pending.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusPending, gotPending.Status)

	// ID allocation continues past the snapshot.
	next, err := restored.BookSlot(ctx, requester, provider, at(4, 9, 0), "")
	require.NoError(t, err)
	assert.Greater(t, next.ID, pending.ID)
}

func TestConcurrentBooking(t *testing.T) {
	ctx := context.Background()
	provider := uuid.New()

	e := newTestEngine(t)
	e.RegisterProvider(provider)

	slot := at(1, 14, 0)
	const attempts = 16

	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			_, err := e.BookSlot(ctx, uuid.New(), provider, slot, "")
			errs <- err
		}()
	}

	var won int
	for i := 0; i < attempts; i++ {
		if err := <-errs; err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, ErrConflict)
		}
	}
	assert.Equal(t, 1, won)
}

package booking

import "errors"

var (
	// Validation errors: reported, never retried, never mutate state.
	ErrPastSlot        = errors.New("slot is not in the future")
	ErrHorizonExceeded = errors.New("slot is beyond the booking horizon")
	ErrOutOfHours      = errors.New("slot falls outside booking hours")

	// Conflict errors: the caller must pick a different slot.
	ErrConflict        = errors.New("slot conflicts with an existing reservation or blocked interval")
	ErrSlotUnavailable = errors.New("slot is not available")

	ErrUnknownProvider = errors.New("provider has no calendar registered")

	// ErrRescheduleFailed marks the one partial-workflow outcome: the old
	// reservation was cancelled but the replacement booking was rejected.
	ErrRescheduleFailed = errors.New("old reservation cancelled but new booking failed")
)

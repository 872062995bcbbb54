package schedule

import "errors"

var (
	ErrInvalidInterval = errors.New("interval start must be before end")
	ErrBlockConflict   = errors.New("blocked interval overlaps an existing blocked interval")
	ErrSlotNotFree     = errors.New("slot is not in the free set")
)

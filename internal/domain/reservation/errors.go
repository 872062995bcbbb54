package reservation

import "errors"

var (
	ErrNotFound          = errors.New("reservation not found")
	ErrInvalidTransition = errors.New("invalid reservation status transition")
)

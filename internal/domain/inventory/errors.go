package inventory

import "errors"

var (
	ErrMedicationNotFound     = errors.New("medication not found")
	ErrMedicationExists       = errors.New("medication code or name already exists")
	ErrInsufficientStock      = errors.New("requested quantity exceeds available stock")
	ErrInvalidQuantity        = errors.New("quantity must be positive")
	ErrNoReplenishmentPending = errors.New("no replenishment request pending")
)

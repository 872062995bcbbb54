package record

import "errors"

var (
	ErrEntryNotFound    = errors.New("record entry not found")
	ErrInvalidEntryType = errors.New("invalid record entry type")
	ErrEmptyContent     = errors.New("record entry content is required")
)

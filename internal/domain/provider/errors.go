package provider

import "errors"

var (
	ErrProviderNotFound = errors.New("provider not found")
	ErrProviderInactive = errors.New("provider is not accepting reservations")
)

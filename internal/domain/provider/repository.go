package provider

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Provider) error

	// GetByID retrieves a provider by primary key. Returns ErrProviderNotFound if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*Provider, error)

	Update(ctx context.Context, p *Provider) error

	// ListBySpecialty returns active providers matching the specialty,
	// case-insensitively; an empty specialty matches everyone.
	ListBySpecialty(ctx context.Context, specialty string) ([]*Provider, error)
}

package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error

	// GetByID retrieves a patient by primary key. Returns ErrPatientNotFound if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	Update(ctx context.Context, p *Patient) error

	// SoftDelete marks the patient as deleted (retention requirement).
	SoftDelete(ctx context.Context, id uuid.UUID) error

	List(ctx context.Context, page, pageSize int) ([]*Patient, error)
}

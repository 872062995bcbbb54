package record

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Append(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Entry, error)
	AddAddendum(ctx context.Context, a *Addendum) error
}

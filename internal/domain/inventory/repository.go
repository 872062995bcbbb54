package inventory

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, m *Medication) error
	GetByID(ctx context.Context, id uuid.UUID) (*Medication, error)
	GetByCode(ctx context.Context, code string) (*Medication, error)
	Update(ctx context.Context, m *Medication) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, q *ListMedicationsQuery) ([]*Medication, error)
}

package inventory

import (
	"time"

	"github.com/google/uuid"
)

// Medication is a stocked pharmacy item. Code is the human-facing identifier
// prescriptions reference; quantities are whole units.
type Medication struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	Code string `gorm:"column:code;type:varchar(50);uniqueIndex;not null"`
	Name string `gorm:"column:name;type:varchar(255);uniqueIndex;not null"`

	Quantity          int `gorm:"column:quantity;not null;default:0"`
	LowStockThreshold int `gorm:"column:low_stock_threshold;not null;default:5"`

	// Units requested from the supplier but not yet delivered.
	PendingReplenishment int `gorm:"column:pending_replenishment;not null;default:0"`
}

func (Medication) TableName() string {
	return "pharmacy.medications"
}

// IsLowStock reports whether the on-hand quantity has fallen below the
// alert threshold.
func (m *Medication) IsLowStock() bool {
	return m.Quantity < m.LowStockThreshold
}

// Decrement removes dispensed units from stock.
func (m *Medication) Decrement(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if qty > m.Quantity {
		return ErrInsufficientStock
	}
	m.Quantity -= qty
	return nil
}

// Adjust applies a stock correction. Positive deltas add units, negative
// deltas remove them; stock never goes below zero.
func (m *Medication) Adjust(delta int) error {
	if delta == 0 {
		return ErrInvalidQuantity
	}
	if delta < 0 && -delta > m.Quantity {
		return ErrInsufficientStock
	}
	m.Quantity += delta
	return nil
}

// RequestReplenishment accumulates a supplier order for the medication.
func (m *Medication) RequestReplenishment(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	m.PendingReplenishment += qty
	return nil
}

// FulfillReplenishment moves the pending order into on-hand stock.
func (m *Medication) FulfillReplenishment() error {
	if m.PendingReplenishment == 0 {
		return ErrNoReplenishmentPending
	}
	m.Quantity += m.PendingReplenishment
	m.PendingReplenishment = 0
	return nil
}

type CreateMedicationCommand struct {
	Code              string
	Name              string
	Quantity          int
	LowStockThreshold int
}

type ListMedicationsQuery struct {
	LowStockOnly          bool
	WithReplenishmentOnly bool
	Page                  int
	PageSize              int
}

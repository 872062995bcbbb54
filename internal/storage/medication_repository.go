package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/careslot/careslot/internal/domain/inventory"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MedicationRepository struct {
	db *gorm.DB
}

func NewMedicationRepository(db *gorm.DB) *MedicationRepository {
	return &MedicationRepository{db: db}
}

func (r *MedicationRepository) Create(ctx context.Context, m *inventory.Medication) error {
	err := r.db.WithContext(ctx).Create(m).Error
	if err != nil && strings.Contains(err.Error(), "duplicate key") {
		return inventory.ErrMedicationExists
	}
	if err != nil {
		return fmt.Errorf("creating medication: %w", err)
	}
	return nil
}

func (r *MedicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*inventory.Medication, error) {
	var m inventory.Medication
	err := r.db.WithContext(ctx).Where("deleted_at IS NULL").First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, inventory.ErrMedicationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching medication: %w", err)
	}
	return &m, nil
}

func (r *MedicationRepository) GetByCode(ctx context.Context, code string) (*inventory.Medication, error) {
	var m inventory.Medication
	err := r.db.WithContext(ctx).Where("deleted_at IS NULL AND code = ?", code).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, inventory.ErrMedicationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching medication by code: %w", err)
	}
	return &m, nil
}

func (r *MedicationRepository) Update(ctx context.Context, m *inventory.Medication) error {
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *MedicationRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&inventory.Medication{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", time.Now())
	if res.Error != nil {
		return fmt.Errorf("deleting medication: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return inventory.ErrMedicationNotFound
	}
	return nil
}

func (r *MedicationRepository) List(ctx context.Context, q *inventory.ListMedicationsQuery) ([]*inventory.Medication, error) {
	query := r.db.WithContext(ctx).Where("deleted_at IS NULL")
	if q.LowStockOnly {
		query = query.Where("quantity < low_stock_threshold")
	}
	if q.WithReplenishmentOnly {
		query = query.Where("pending_replenishment > 0")
	}

	var out []*inventory.Medication
	err := query.Order("code").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing medications: %w", err)
	}
	return out, nil
}

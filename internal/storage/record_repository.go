package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/careslot/careslot/internal/domain/record"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RecordRepository struct {
	db *gorm.DB
}

func NewRecordRepository(db *gorm.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

func (r *RecordRepository) Append(ctx context.Context, e *record.Entry) error {
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("appending record entry: %w", err)
	}
	return nil
}

func (r *RecordRepository) GetByID(ctx context.Context, id uuid.UUID) (*record.Entry, error) {
	var e record.Entry
	err := r.db.WithContext(ctx).Preload("Addenda").First(&e, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, record.ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching record entry: %w", err)
	}
	return &e, nil
}

func (r *RecordRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*record.Entry, error) {
	var out []*record.Entry
	err := r.db.WithContext(ctx).
		Preload("Addenda").
		Where("patient_id = ?", patientID).
		Order("created_at").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing record entries: %w", err)
	}
	return out, nil
}

func (r *RecordRepository) AddAddendum(ctx context.Context, a *record.Addendum) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&record.Entry{}).Where("id = ?", a.EntryID).Count(&count).Error; err != nil {
		return fmt.Errorf("checking record entry: %w", err)
	}
	if count == 0 {
		return record.ErrEntryNotFound
	}
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("adding addendum: %w", err)
	}
	return nil
}

package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/careslot/careslot/internal/domain/provider"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProviderRepository struct {
	db *gorm.DB
}

func NewProviderRepository(db *gorm.DB) *ProviderRepository {
	return &ProviderRepository{db: db}
}

func (r *ProviderRepository) Create(ctx context.Context, p *provider.Provider) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("creating provider: %w", err)
	}
	return nil
}

func (r *ProviderRepository) GetByID(ctx context.Context, id uuid.UUID) (*provider.Provider, error) {
	var p provider.Provider
	err := r.db.WithContext(ctx).Where("deleted_at IS NULL").First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, provider.ErrProviderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching provider: %w", err)
	}
	return &p, nil
}

func (r *ProviderRepository) Update(ctx context.Context, p *provider.Provider) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *ProviderRepository) ListBySpecialty(ctx context.Context, specialty string) ([]*provider.Provider, error) {
	q := r.db.WithContext(ctx).Where("deleted_at IS NULL AND is_active")
	if specialty != "" {
		q = q.Where("LOWER(specialty) = LOWER(?)", specialty)
	}

	var out []*provider.Provider
	if err := q.Order("last_name, first_name").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("listing providers: %w", err)
	}
	return out, nil
}

// ListAll returns every provider including inactive ones, used at startup to
// register calendars for records that may still hold reservations.
func (r *ProviderRepository) ListAll(ctx context.Context) ([]*provider.Provider, error) {
	var out []*provider.Provider
	if err := r.db.WithContext(ctx).Where("deleted_at IS NULL").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("listing providers: %w", err)
	}
	return out, nil
}

package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/careslot/careslot/internal/domain/inventory"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type InventoryService struct {
	repo     inventory.Repository
	auditSvc *AuditService
	log      *zap.Logger
}

func NewInventoryService(repo inventory.Repository, auditSvc *AuditService, log *zap.Logger) *InventoryService {
	return &InventoryService{repo: repo, auditSvc: auditSvc, log: log}
}

func (s *InventoryService) CreateMedication(ctx context.Context, cmd *inventory.CreateMedicationCommand, caller *Caller) (*inventory.Medication, error) {
	if caller.Role != "admin" && caller.Role != "pharmacist" {
		return nil, ErrForbidden
	}

	var fields []string
	if strings.TrimSpace(cmd.Code) == "" {
		fields = append(fields, "code is required")
	}
	if strings.TrimSpace(cmd.Name) == "" {
		fields = append(fields, "name is required")
	}
	if cmd.Quantity < 0 {
		fields = append(fields, "quantity must not be negative")
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	m := &inventory.Medication{
		Code:              strings.ToUpper(strings.TrimSpace(cmd.Code)),
		Name:              strings.TrimSpace(cmd.Name),
		Quantity:          cmd.Quantity,
		LowStockThreshold: cmd.LowStockThreshold,
	}
	if m.LowStockThreshold <= 0 {
		m.LowStockThreshold = 5
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID: caller.UserID, UserRole: caller.Role,
		Action: "create", ResourceType: "medication", ResourceID: m.ID.String(), IPAddress: caller.IP,
	})
	return m, nil
}

func (s *InventoryService) GetMedication(ctx context.Context, id uuid.UUID) (*inventory.Medication, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *InventoryService) ListMedications(ctx context.Context, q *inventory.ListMedicationsQuery) ([]*inventory.Medication, error) {
	if q.PageSize <= 0 || q.PageSize > 100 {
		q.PageSize = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	return s.repo.List(ctx, q)
}

// CheckStock verifies a medication can cover the quantity without touching
// it. The engine checks every prescribed item before dispensing any, so a
// shortfall on one item leaves the rest of the stock unchanged.
func (s *InventoryService) CheckStock(ctx context.Context, itemCode string, qty int) error {
	if qty <= 0 {
		return inventory.ErrInvalidQuantity
	}
	m, err := s.repo.GetByCode(ctx, itemCode)
	if err != nil {
		return err
	}
	if qty > m.Quantity {
		return inventory.ErrInsufficientStock
	}
	return nil
}

// DecrementStock dispenses units of a medication by code. It satisfies the
// engine's dispenser dependency, so completing a reservation with
// prescribed items flows through here.
func (s *InventoryService) DecrementStock(ctx context.Context, itemCode string, qty int) error {
	m, err := s.repo.GetByCode(ctx, itemCode)
	if err != nil {
		return err
	}
	if err := m.Decrement(qty); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, m); err != nil {
		return fmt.Errorf("updating stock: %w", err)
	}

	if m.IsLowStock() {
		s.log.Warn("medication below stock threshold",
			zap.String("code", m.Code),
			zap.Int("quantity", m.Quantity),
			zap.Int("threshold", m.LowStockThreshold),
		)
	}
	return nil
}

// AdjustStock applies a manual stock correction, positive or negative.
func (s *InventoryService) AdjustStock(ctx context.Context, id uuid.UUID, delta int, caller *Caller) (*inventory.Medication, error) {
	if caller.Role != "admin" && caller.Role != "pharmacist" {
		return nil, ErrForbidden
	}

	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.Adjust(delta); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("updating stock: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID: caller.UserID, UserRole: caller.Role,
		Action: "update", ResourceType: "medication", ResourceID: m.ID.String(), IPAddress: caller.IP,
		Changes: fmt.Sprintf(`{"stock_delta":%d}`, delta),
	})
	return m, nil
}

// SetLowStockThreshold changes the quantity below which the medication is
// flagged for reorder.
func (s *InventoryService) SetLowStockThreshold(ctx context.Context, id uuid.UUID, threshold int, caller *Caller) (*inventory.Medication, error) {
	if caller.Role != "admin" && caller.Role != "pharmacist" {
		return nil, ErrForbidden
	}
	if threshold < 0 {
		return nil, &ValidationError{Fields: []string{"threshold must not be negative"}}
	}

	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	m.LowStockThreshold = threshold
	if err := s.repo.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("updating medication: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID: caller.UserID, UserRole: caller.Role,
		Action: "update", ResourceType: "medication", ResourceID: m.ID.String(), IPAddress: caller.IP,
		Changes: fmt.Sprintf(`{"low_stock_threshold":%d}`, threshold),
	})
	return m, nil
}

// RequestReplenishment records a supplier order for a medication.
func (s *InventoryService) RequestReplenishment(ctx context.Context, id uuid.UUID, qty int, caller *Caller) (*inventory.Medication, error) {
	if caller.Role != "admin" && caller.Role != "pharmacist" {
		return nil, ErrForbidden
	}

	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.RequestReplenishment(qty); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("updating medication: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID: caller.UserID, UserRole: caller.Role,
		Action: "update", ResourceType: "medication", ResourceID: m.ID.String(), IPAddress: caller.IP,
		Changes: fmt.Sprintf(`{"replenishment_requested":%d}`, qty),
	})
	return m, nil
}

// FulfillReplenishment moves a pending supplier order into on-hand stock.
func (s *InventoryService) FulfillReplenishment(ctx context.Context, id uuid.UUID, caller *Caller) (*inventory.Medication, error) {
	if caller.Role != "admin" && caller.Role != "pharmacist" {
		return nil, ErrForbidden
	}

	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.FulfillReplenishment(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("updating medication: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID: caller.UserID, UserRole: caller.Role,
		Action: "update", ResourceType: "medication", ResourceID: m.ID.String(), IPAddress: caller.IP,
	})
	return m, nil
}

func (s *InventoryService) DeleteMedication(ctx context.Context, id uuid.UUID, caller *Caller) error {
	if caller.Role != "admin" {
		return ErrForbidden
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID: caller.UserID, UserRole: caller.Role,
		Action: "delete", ResourceType: "medication", ResourceID: id.String(), IPAddress: caller.IP,
	})
	return nil
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/careslot/careslot/internal/booking"
	"github.com/careslot/careslot/internal/domain/patient"
	"github.com/careslot/careslot/internal/domain/provider"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DirectoryService manages the patient and provider registries. Creating a
// provider also registers their calendar with the booking engine so slots
// are bookable immediately.
type DirectoryService struct {
	patientRepo  patient.Repository
	providerRepo provider.Repository
	engine       *booking.Engine
	auditSvc     *AuditService
	log          *zap.Logger
}

func NewDirectoryService(
	patientRepo patient.Repository,
	providerRepo provider.Repository,
	engine *booking.Engine,
	auditSvc *AuditService,
	log *zap.Logger,
) *DirectoryService {
	return &DirectoryService{
		patientRepo:  patientRepo,
		providerRepo: providerRepo,
		engine:       engine,
		auditSvc:     auditSvc,
		log:          log,
	}
}

func (s *DirectoryService) CreatePatient(ctx context.Context, cmd *patient.CreatePatientCommand, caller *Caller) (*patient.Patient, error) {
	var fields []string
	if strings.TrimSpace(cmd.FirstName) == "" {
		fields = append(fields, "first_name is required")
	}
	if strings.TrimSpace(cmd.LastName) == "" {
		fields = append(fields, "last_name is required")
	}
	if !cmd.Gender.IsValid() {
		fields = append(fields, "gender is invalid")
	}
	if cmd.DateOfBirth.IsZero() || cmd.DateOfBirth.After(time.Now()) {
		fields = append(fields, "date_of_birth is invalid")
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	p := &patient.Patient{
		FirstName:   strings.TrimSpace(cmd.FirstName),
		LastName:    strings.TrimSpace(cmd.LastName),
		DateOfBirth: cmd.DateOfBirth,
		Gender:      cmd.Gender,
		Phone:       strings.TrimSpace(cmd.Phone),
		Email:       strings.ToLower(strings.TrimSpace(cmd.Email)),
		Status:      patient.StatusActive,
	}
	if err := s.patientRepo.Create(ctx, p); err != nil {
		s.log.Error("failed to create patient", zap.Error(err))
		return nil, fmt.Errorf("creating patient: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID: caller.UserID, UserRole: caller.Role,
		Action: "create", ResourceType: "patient", ResourceID: p.ID.String(), IPAddress: caller.IP,
	})
	return p, nil
}

func (s *DirectoryService) GetPatient(ctx context.Context, id uuid.UUID, caller *Caller) (*patient.Patient, error) {
	if caller.Role == "patient" {
		if caller.PatientID == nil || *caller.PatientID != id {
			return nil, ErrForbidden
		}
	}
	return s.patientRepo.GetByID(ctx, id)
}

func (s *DirectoryService) ListPatients(ctx context.Context, page, pageSize int, caller *Caller) ([]*patient.Patient, error) {
	if caller.Role == "patient" {
		return nil, ErrForbidden
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	if page <= 0 {
		page = 1
	}
	return s.patientRepo.List(ctx, page, pageSize)
}

func (s *DirectoryService) DeactivatePatient(ctx context.Context, id uuid.UUID, caller *Caller) error {
	if caller.Role != "admin" {
		return ErrForbidden
	}
	p, err := s.patientRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	p.Deactivate()
	if err := s.patientRepo.Update(ctx, p); err != nil {
		return fmt.Errorf("deactivating patient: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID: caller.UserID, UserRole: caller.Role,
		Action: "update", ResourceType: "patient", ResourceID: id.String(), IPAddress: caller.IP,
		Changes: `{"status":"inactive"}`,
	})
	return nil
}

func (s *DirectoryService) CreateProvider(ctx context.Context, cmd *provider.CreateProviderCommand, caller *Caller) (*provider.Provider, error) {
	if caller.Role != "admin" {
		return nil, ErrForbidden
	}

	var fields []string
	if strings.TrimSpace(cmd.FirstName) == "" {
		fields = append(fields, "first_name is required")
	}
	if strings.TrimSpace(cmd.LastName) == "" {
		fields = append(fields, "last_name is required")
	}
	if strings.TrimSpace(cmd.Specialty) == "" {
		fields = append(fields, "specialty is required")
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	p := &provider.Provider{
		FirstName: strings.TrimSpace(cmd.FirstName),
		LastName:  strings.TrimSpace(cmd.LastName),
		Specialty: strings.TrimSpace(cmd.Specialty),
		Email:     strings.ToLower(strings.TrimSpace(cmd.Email)),
		IsActive:  true,
	}
	if err := s.providerRepo.Create(ctx, p); err != nil {
		s.log.Error("failed to create provider", zap.Error(err))
		return nil, fmt.Errorf("creating provider: %w", err)
	}

	s.engine.RegisterProvider(p.ID)

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID: caller.UserID, UserRole: caller.Role,
		Action: "create", ResourceType: "provider", ResourceID: p.ID.String(), IPAddress: caller.IP,
	})
	return p, nil
}

func (s *DirectoryService) GetProvider(ctx context.Context, id uuid.UUID) (*provider.Provider, error) {
	return s.providerRepo.GetByID(ctx, id)
}

func (s *DirectoryService) ListProviders(ctx context.Context, specialty string) ([]*provider.Provider, error) {
	return s.providerRepo.ListBySpecialty(ctx, specialty)
}

package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/careslot/careslot/internal/domain/patient"
	"github.com/careslot/careslot/internal/domain/record"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type RecordService struct {
	repo        record.Repository
	patientRepo patient.Repository
	auditSvc    *AuditService
	log         *zap.Logger
}

func NewRecordService(repo record.Repository, patientRepo patient.Repository, auditSvc *AuditService, log *zap.Logger) *RecordService {
	return &RecordService{repo: repo, patientRepo: patientRepo, auditSvc: auditSvc, log: log}
}

// AppendEntry adds a diagnosis or treatment line to a patient's record.
// Entries are append-only; there is no update or delete path.
func (s *RecordService) AppendEntry(ctx context.Context, cmd *record.AppendEntryCommand, caller *Caller) (*record.Entry, error) {
	if caller.Role != "provider" && caller.Role != "admin" {
		return nil, ErrForbidden
	}

	var fields []string
	if !cmd.Type.IsValid() {
		fields = append(fields, "type must be diagnosis or treatment")
	}
	if strings.TrimSpace(cmd.Content) == "" {
		fields = append(fields, "content is required")
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	if _, err := s.patientRepo.GetByID(ctx, cmd.PatientID); err != nil {
		return nil, fmt.Errorf("verifying patient: %w", err)
	}

	e := &record.Entry{
		PatientID:     cmd.PatientID,
		ProviderID:    cmd.ProviderID,
		ReservationID: cmd.ReservationID,
		Type:          cmd.Type,
		Content:       strings.TrimSpace(cmd.Content),
	}
	if err := s.repo.Append(ctx, e); err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID: caller.UserID, UserRole: caller.Role,
		Action: "create", ResourceType: "record_entry", ResourceID: e.ID.String(), IPAddress: caller.IP,
	})
	return e, nil
}

// ListByPatient returns a patient's full record in chronological order.
// Patients may only read their own record.
func (s *RecordService) ListByPatient(ctx context.Context, patientID uuid.UUID, caller *Caller) ([]*record.Entry, error) {
	if caller.Role == "patient" {
		if caller.PatientID == nil || *caller.PatientID != patientID {
			return nil, ErrForbidden
		}
	}

	entries, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID: caller.UserID, UserRole: caller.Role,
		Action: "read", ResourceType: "record", ResourceID: patientID.String(), IPAddress: caller.IP,
	})
	return entries, nil
}

// AddAddendum appends a correction to an existing entry. The original entry
// stays untouched.
func (s *RecordService) AddAddendum(ctx context.Context, cmd *record.AddAddendumCommand, caller *Caller) (*record.Addendum, error) {
	if caller.Role != "provider" && caller.Role != "admin" {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(cmd.Content) == "" {
		return nil, &ValidationError{Fields: []string{"content is required"}}
	}

	a := &record.Addendum{
		EntryID:   cmd.EntryID,
		Content:   strings.TrimSpace(cmd.Content),
		CreatedBy: caller.UserID,
	}
	if err := s.repo.AddAddendum(ctx, a); err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID: caller.UserID, UserRole: caller.Role,
		Action: "update", ResourceType: "record_entry", ResourceID: cmd.EntryID.String(), IPAddress: caller.IP,
	})
	return a, nil
}

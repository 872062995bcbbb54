package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/careslot/careslot/internal/booking"
	"github.com/careslot/careslot/internal/domain/patient"
	"github.com/careslot/careslot/internal/domain/provider"
	"github.com/careslot/careslot/internal/domain/reservation"
	"github.com/careslot/careslot/internal/domain/schedule"
	"github.com/careslot/careslot/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SnapshotSaver persists engine snapshots. Saving is best effort from the
// service's point of view; the engine itself is the source of truth.
type SnapshotSaver interface {
	Save(ctx context.Context, snap booking.Snapshot) error
}

type BookingService struct {
	engine       *booking.Engine
	providerRepo provider.Repository
	patientRepo  patient.Repository
	snapshots    SnapshotSaver
	auditSvc     *AuditService
	metrics      *metrics.Collector
	log          *zap.Logger
}

func NewBookingService(
	engine *booking.Engine,
	providerRepo provider.Repository,
	patientRepo patient.Repository,
	snapshots SnapshotSaver,
	auditSvc *AuditService,
	collector *metrics.Collector,
	log *zap.Logger,
) *BookingService {
	return &BookingService{
		engine:       engine,
		providerRepo: providerRepo,
		patientRepo:  patientRepo,
		snapshots:    snapshots,
		auditSvc:     auditSvc,
		metrics:      collector,
		log:          log,
	}
}

type RequestReservationCommand struct {
	RequesterID uuid.UUID
	ProviderID  uuid.UUID
	At          time.Time
	Notes       string
}

// RequestReservation validates the parties and asks the engine for a
// pending reservation. Patients may only request for themselves.
func (s *BookingService) RequestReservation(ctx context.Context, cmd *RequestReservationCommand, caller *Caller) (*reservation.Reservation, error) {
	if caller.Role == "patient" && (caller.PatientID == nil || *caller.PatientID != cmd.RequesterID) {
		return nil, ErrForbidden
	}

	p, err := s.patientRepo.GetByID(ctx, cmd.RequesterID)
	if err != nil {
		return nil, fmt.Errorf("verifying patient: %w", err)
	}
	if !p.IsActive() {
		return nil, patient.ErrPatientInactive
	}

	prov, err := s.providerRepo.GetByID(ctx, cmd.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("verifying provider: %w", err)
	}
	if !prov.IsActive {
		return nil, provider.ErrProviderInactive
	}

	r, err := s.engine.BookSlot(ctx, cmd.RequesterID, cmd.ProviderID, cmd.At, cmd.Notes)
	if err != nil {
		s.metrics.BookingRejections.WithLabelValues(rejectionReason(err)).Inc()
		return nil, err
	}

	s.metrics.ReservationsTotal.WithLabelValues(string(reservation.StatusPending)).Inc()
	s.audit(ctx, caller, "create", r.ID)
	s.saveSnapshot(ctx)
	return r, nil
}

// DecideReservation records the provider's accept or reject decision on a
// pending reservation. Only the provider the slot belongs to (or an admin)
// may decide.
func (s *BookingService) DecideReservation(ctx context.Context, id uint64, accept bool, caller *Caller) (*reservation.Reservation, error) {
	if err := s.requireProviderOwnership(id, caller); err != nil {
		return nil, err
	}

	r, err := s.engine.Confirm(ctx, id, accept)
	if err != nil {
		return nil, err
	}

	if accept {
		s.metrics.ReservationsTotal.WithLabelValues(string(reservation.StatusConfirmed)).Inc()
	} else {
		s.metrics.BookingRejections.WithLabelValues("provider_rejected").Inc()
	}
	s.audit(ctx, caller, "update", id)
	s.saveSnapshot(ctx)
	return r, nil
}

// CancelReservation cancels a pending or confirmed reservation. Patients
// may only cancel their own.
func (s *BookingService) CancelReservation(ctx context.Context, id uint64, caller *Caller) (*reservation.Reservation, error) {
	if err := s.requireParticipant(id, caller); err != nil {
		return nil, err
	}

	r, err := s.engine.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}

	s.metrics.ReservationsTotal.WithLabelValues(string(reservation.StatusCancelled)).Inc()
	s.audit(ctx, caller, "update", id)
	s.saveSnapshot(ctx)
	return r, nil
}

// CompleteReservation finalizes a confirmed reservation with its outcome.
func (s *BookingService) CompleteReservation(ctx context.Context, id uint64, outcome booking.Outcome, caller *Caller) (*reservation.Reservation, error) {
	if err := s.requireProviderOwnership(id, caller); err != nil {
		return nil, err
	}

	r, err := s.engine.Complete(ctx, id, outcome)
	if err != nil {
		return nil, err
	}

	var dispensed int
	for _, qty := range outcome.Items {
		dispensed += qty
	}
	if dispensed > 0 {
		s.metrics.ItemsDispensedTotal.Add(float64(dispensed))
	}
	s.metrics.ReservationsTotal.WithLabelValues(string(reservation.StatusCompleted)).Inc()
	s.audit(ctx, caller, "update", id)
	s.saveSnapshot(ctx)
	return r, nil
}

// RescheduleReservation cancels the old reservation and books a new slot.
// The new booking starts over as pending even when the old one was already
// confirmed.
func (s *BookingService) RescheduleReservation(ctx context.Context, id uint64, newProviderID uuid.UUID, newAt time.Time, notes string, caller *Caller) (*reservation.Reservation, error) {
	if err := s.requireParticipant(id, caller); err != nil {
		return nil, err
	}

	prov, err := s.providerRepo.GetByID(ctx, newProviderID)
	if err != nil {
		return nil, fmt.Errorf("verifying provider: %w", err)
	}
	if !prov.IsActive {
		return nil, provider.ErrProviderInactive
	}

	r, err := s.engine.Reschedule(ctx, id, newProviderID, newAt, notes)
	if err != nil {
		s.metrics.BookingRejections.WithLabelValues(rejectionReason(err)).Inc()
		s.saveSnapshot(ctx)
		return nil, err
	}

	s.audit(ctx, caller, "update", id)
	s.saveSnapshot(ctx)
	return r, nil
}

// SetSchedule replaces a provider's blocked intervals. Only the provider
// themselves or an admin may change a schedule.
func (s *BookingService) SetSchedule(ctx context.Context, providerID uuid.UUID, blocks []schedule.DayBlock, caller *Caller) error {
	if caller.Role != "admin" {
		if caller.Role != "provider" || caller.ProviderID == nil || *caller.ProviderID != providerID {
			return ErrForbidden
		}
	}

	if _, err := s.providerRepo.GetByID(ctx, providerID); err != nil {
		return fmt.Errorf("verifying provider: %w", err)
	}

	if err := s.engine.SetProviderSchedule(providerID, blocks); err != nil {
		return err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID: caller.UserID, UserRole: caller.Role,
		Action: "update", ResourceType: "schedule", ResourceID: providerID.String(), IPAddress: caller.IP,
	})
	s.saveSnapshot(ctx)
	return nil
}

func (s *BookingService) GetReservation(ctx context.Context, id uint64, caller *Caller) (*reservation.Reservation, error) {
	r, err := s.engine.Get(id)
	if err != nil {
		return nil, err
	}
	if !callerMayView(r, caller) {
		return nil, ErrForbidden
	}
	return r, nil
}

func (s *BookingService) ListAvailableSlots(providerID uuid.UUID, day time.Time) []booking.Slot {
	return s.engine.ListAvailableSlots(providerID, day)
}

func (s *BookingService) IsSlotAvailable(providerID uuid.UUID, at time.Time) bool {
	return s.engine.IsSlotAvailable(providerID, at)
}

func (s *BookingService) ListPending(providerID uuid.UUID, caller *Caller) ([]reservation.Reservation, error) {
	if caller.Role != "admin" {
		if caller.Role != "provider" || caller.ProviderID == nil || *caller.ProviderID != providerID {
			return nil, ErrForbidden
		}
	}
	return s.engine.ListPending(providerID), nil
}

// ListUpcoming returns the caller's own upcoming reservations: the
// requester view for patients, the calendar view for providers.
func (s *BookingService) ListUpcoming(caller *Caller) ([]reservation.Reservation, error) {
	switch caller.Role {
	case "patient":
		if caller.PatientID == nil {
			return nil, ErrForbidden
		}
		return s.engine.ListUpcomingForRequester(*caller.PatientID), nil
	case "provider":
		if caller.ProviderID == nil {
			return nil, ErrForbidden
		}
		return s.engine.ListUpcomingForProvider(*caller.ProviderID), nil
	default:
		return nil, ErrForbidden
	}
}

func (s *BookingService) ListByStatus(status reservation.Status, caller *Caller) ([]reservation.Reservation, error) {
	if caller.Role != "admin" {
		return nil, ErrForbidden
	}
	if !status.IsValid() {
		return nil, &ValidationError{Fields: []string{"status is invalid"}}
	}
	return s.engine.ListByStatus(status), nil
}

func (s *BookingService) ProviderBlocks(providerID uuid.UUID) []schedule.DayBlock {
	return s.engine.ProviderBlocks(providerID)
}

// SaveSnapshot writes the engine state to the snapshot store.
func (s *BookingService) SaveSnapshot(ctx context.Context) error {
	if s.snapshots == nil {
		return nil
	}
	if err := s.snapshots.Save(ctx, s.engine.Snapshot()); err != nil {
		return fmt.Errorf("persisting snapshot: %w", err)
	}
	s.metrics.SnapshotsStoredTotal.Inc()
	return nil
}

func (s *BookingService) saveSnapshot(ctx context.Context) {
	if err := s.SaveSnapshot(ctx); err != nil {
		s.log.Error("failed to persist engine snapshot", zap.Error(err))
	}
}

func (s *BookingService) requireProviderOwnership(id uint64, caller *Caller) error {
	if caller.Role == "admin" {
		return nil
	}
	r, err := s.engine.Get(id)
	if err != nil {
		return err
	}
	if caller.Role != "provider" || caller.ProviderID == nil || *caller.ProviderID != r.ProviderID {
		return ErrForbidden
	}
	return nil
}

func (s *BookingService) requireParticipant(id uint64, caller *Caller) error {
	if caller.Role == "admin" {
		return nil
	}
	r, err := s.engine.Get(id)
	if err != nil {
		return err
	}
	if !callerMayView(r, caller) {
		return ErrForbidden
	}
	return nil
}

func callerMayView(r *reservation.Reservation, caller *Caller) bool {
	switch caller.Role {
	case "admin":
		return true
	case "provider":
		return caller.ProviderID != nil && *caller.ProviderID == r.ProviderID
	case "patient":
		return caller.PatientID != nil && *caller.PatientID == r.RequesterID
	}
	return false
}

func (s *BookingService) audit(ctx context.Context, caller *Caller, action string, id uint64) {
	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.UserID,
		UserRole:     caller.Role,
		Action:       action,
		ResourceType: "reservation",
		ResourceID:   fmt.Sprintf("%d", id),
		IPAddress:    caller.IP,
	})
}

// rejectionReason maps booking errors onto stable metric labels.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, booking.ErrPastSlot):
		return "past_slot"
	case errors.Is(err, booking.ErrHorizonExceeded):
		return "horizon_exceeded"
	case errors.Is(err, booking.ErrOutOfHours):
		return "out_of_hours"
	case errors.Is(err, booking.ErrConflict):
		return "conflict"
	case errors.Is(err, booking.ErrSlotUnavailable):
		return "slot_unavailable"
	case errors.Is(err, booking.ErrUnknownProvider):
		return "unknown_provider"
	default:
		return "other"
	}
}

// Caller identifies the authenticated principal on whose behalf a service
// call runs. Handlers build it from the JWT claims in the request context.
type Caller struct {
	UserID     uuid.UUID
	Role       string
	ProviderID *uuid.UUID
	PatientID  *uuid.UUID
	IP         string
	RequestID  string
}

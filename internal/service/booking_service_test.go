package service

import (
	"context"
	"testing"
	"time"

	"github.com/careslot/careslot/internal/booking"
	"github.com/careslot/careslot/internal/domain"
	"github.com/careslot/careslot/internal/domain/patient"
	"github.com/careslot/careslot/internal/domain/provider"
	"github.com/careslot/careslot/internal/domain/reservation"
	"github.com/careslot/careslot/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Monday 10:00, mid-morning inside working hours.
var svcTestNow = time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

type fakePatientRepo struct {
	patients map[uuid.UUID]*patient.Patient
}

func (f *fakePatientRepo) Create(_ context.Context, p *patient.Patient) error {
	f.patients[p.ID] = p
	return nil
}

func (f *fakePatientRepo) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := f.patients[id]
	if !ok {
		return nil, patient.ErrPatientNotFound
	}
	return p, nil
}

func (f *fakePatientRepo) Update(_ context.Context, p *patient.Patient) error {
	f.patients[p.ID] = p
	return nil
}

func (f *fakePatientRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	delete(f.patients, id)
	return nil
}

func (f *fakePatientRepo) List(_ context.Context, _, _ int) ([]*patient.Patient, error) {
	out := make([]*patient.Patient, 0, len(f.patients))
	for _, p := range f.patients {
		out = append(out, p)
	}
	return out, nil
}

type fakeProviderRepo struct {
	providers map[uuid.UUID]*provider.Provider
}

func (f *fakeProviderRepo) Create(_ context.Context, p *provider.Provider) error {
	f.providers[p.ID] = p
	return nil
}

func (f *fakeProviderRepo) GetByID(_ context.Context, id uuid.UUID) (*provider.Provider, error) {
	p, ok := f.providers[id]
	if !ok {
		return nil, provider.ErrProviderNotFound
	}
	return p, nil
}

func (f *fakeProviderRepo) Update(_ context.Context, p *provider.Provider) error {
	f.providers[p.ID] = p
	return nil
}

func (f *fakeProviderRepo) ListBySpecialty(_ context.Context, _ string) ([]*provider.Provider, error) {
	out := make([]*provider.Provider, 0, len(f.providers))
	for _, p := range f.providers {
		out = append(out, p)
	}
	return out, nil
}

type fakeSnapshotSaver struct {
	saves int
}

func (f *fakeSnapshotSaver) Save(_ context.Context, _ booking.Snapshot) error {
	f.saves++
	return nil
}

type fakeAuditRepo struct{}

func (fakeAuditRepo) Create(_ context.Context, _ *domain.AuditLog) error { return nil }

type bookingFixture struct {
	svc       *BookingService
	engine    *booking.Engine
	patients  *fakePatientRepo
	providers *fakeProviderRepo
	saver     *fakeSnapshotSaver

	patientID  uuid.UUID
	providerID uuid.UUID
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()

	log := zap.NewNop()
	collector := metrics.NewCollectorWith(prometheus.NewRegistry(), "test")
	auditSvc := NewAuditService(fakeAuditRepo{}, collector, log)
	t.Cleanup(auditSvc.Shutdown)

	engine := booking.NewEngine(booking.DefaultPolicy(), log,
		booking.WithClock(func() time.Time { return svcTestNow }))

	f := &bookingFixture{
		engine:     engine,
		patients:   &fakePatientRepo{patients: make(map[uuid.UUID]*patient.Patient)},
		providers:  &fakeProviderRepo{providers: make(map[uuid.UUID]*provider.Provider)},
		saver:      &fakeSnapshotSaver{},
		patientID:  uuid.New(),
		providerID: uuid.New(),
	}
	f.patients.patients[f.patientID] = &patient.Patient{
		ID: f.patientID, FirstName: "Ada", LastName: "Osei", Status: patient.StatusActive,
	}
	f.providers.providers[f.providerID] = &provider.Provider{
		ID: f.providerID, FirstName: "Kofi", LastName: "Mensah", Specialty: "cardiology", IsActive: true,
	}
	engine.RegisterProvider(f.providerID)

	f.svc = NewBookingService(engine, f.providers, f.patients, f.saver, auditSvc, collector, log)
	return f
}

func (f *bookingFixture) slot(daysAhead, hour, minute int) time.Time {
	d := svcTestNow.AddDate(0, 0, daysAhead)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, time.UTC)
}

func patientCaller(id uuid.UUID) *Caller {
	return &Caller{UserID: uuid.New(), Role: "patient", PatientID: &id}
}

func providerCaller(id uuid.UUID) *Caller {
	return &Caller{UserID: uuid.New(), Role: "provider", ProviderID: &id}
}

func adminCaller() *Caller {
	return &Caller{UserID: uuid.New(), Role: "admin"}
}

func TestRequestReservation(t *testing.T) {
	ctx := context.Background()

	t.Run("books a pending reservation and snapshots the engine", func(t *testing.T) {
		f := newBookingFixture(t)

		r, err := f.svc.RequestReservation(ctx, &RequestReservationCommand{
			RequesterID: f.patientID,
			ProviderID:  f.providerID,
			At:          f.slot(1, 14, 0),
		}, patientCaller(f.patientID))
		require.NoError(t, err)

		assert.Equal(t, reservation.StatusPending, r.Status)
		assert.Equal(t, f.patientID, r.RequesterID)
		assert.Equal(t, 1, f.saver.saves)
	})

	t.Run("patient cannot book on behalf of another patient", func(t *testing.T) {
		f := newBookingFixture(t)
		other := uuid.New()
		f.patients.patients[other] = &patient.Patient{ID: other, Status: patient.StatusActive}

		_, err := f.svc.RequestReservation(ctx, &RequestReservationCommand{
			RequesterID: other,
			ProviderID:  f.providerID,
			At:          f.slot(1, 14, 0),
		}, patientCaller(f.patientID))
		assert.ErrorIs(t, err, ErrForbidden)
		assert.Zero(t, f.saver.saves)
	})

	t.Run("admin may book for any patient", func(t *testing.T) {
		f := newBookingFixture(t)

		r, err := f.svc.RequestReservation(ctx, &RequestReservationCommand{
			RequesterID: f.patientID,
			ProviderID:  f.providerID,
			At:          f.slot(1, 14, 0),
		}, adminCaller())
		require.NoError(t, err)
		assert.Equal(t, reservation.StatusPending, r.Status)
	})

	t.Run("rejects inactive patients", func(t *testing.T) {
		f := newBookingFixture(t)
		f.patients.patients[f.patientID].Status = patient.StatusInactive

		_, err := f.svc.RequestReservation(ctx, &RequestReservationCommand{
			RequesterID: f.patientID,
			ProviderID:  f.providerID,
			At:          f.slot(1, 14, 0),
		}, patientCaller(f.patientID))
		assert.ErrorIs(t, err, patient.ErrPatientInactive)
	})

	t.Run("rejects deactivated providers", func(t *testing.T) {
		f := newBookingFixture(t)
		f.providers.providers[f.providerID].IsActive = false

		_, err := f.svc.RequestReservation(ctx, &RequestReservationCommand{
			RequesterID: f.patientID,
			ProviderID:  f.providerID,
			At:          f.slot(1, 14, 0),
		}, patientCaller(f.patientID))
		assert.ErrorIs(t, err, provider.ErrProviderInactive)
	})

	t.Run("unknown patient surfaces not found", func(t *testing.T) {
		f := newBookingFixture(t)

		_, err := f.svc.RequestReservation(ctx, &RequestReservationCommand{
			RequesterID: uuid.New(),
			ProviderID:  f.providerID,
			At:          f.slot(1, 14, 0),
		}, adminCaller())
		assert.ErrorIs(t, err, patient.ErrPatientNotFound)
	})
}

func TestDecideReservation(t *testing.T) {
	ctx := context.Background()

	book := func(t *testing.T, f *bookingFixture) uint64 {
		t.Helper()
		r, err := f.svc.RequestReservation(ctx, &RequestReservationCommand{
			RequesterID: f.patientID,
			ProviderID:  f.providerID,
			At:          f.slot(1, 14, 0),
		}, patientCaller(f.patientID))
		require.NoError(t, err)
		return r.ID
	}

	t.Run("owning provider confirms", func(t *testing.T) {
		f := newBookingFixture(t)
		id := book(t, f)

		r, err := f.svc.DecideReservation(ctx, id, true, providerCaller(f.providerID))
		require.NoError(t, err)
		assert.Equal(t, reservation.StatusConfirmed, r.Status)
		assert.False(t, f.svc.IsSlotAvailable(f.providerID, f.slot(1, 14, 0)))
	})

	t.Run("another provider may not decide", func(t *testing.T) {
		f := newBookingFixture(t)
		id := book(t, f)

		_, err := f.svc.DecideReservation(ctx, id, true, providerCaller(uuid.New()))
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("patient may not decide", func(t *testing.T) {
		f := newBookingFixture(t)
		id := book(t, f)

		_, err := f.svc.DecideReservation(ctx, id, true, patientCaller(f.patientID))
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("rejection removes the reservation", func(t *testing.T) {
		f := newBookingFixture(t)
		id := book(t, f)

		_, err := f.svc.DecideReservation(ctx, id, false, providerCaller(f.providerID))
		require.NoError(t, err)

		_, err = f.svc.GetReservation(ctx, id, adminCaller())
		assert.ErrorIs(t, err, reservation.ErrNotFound)
	})
}

func TestCancelReservationAccess(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t)

	r, err := f.svc.RequestReservation(ctx, &RequestReservationCommand{
		RequesterID: f.patientID,
		ProviderID:  f.providerID,
		At:          f.slot(1, 14, 0),
	}, patientCaller(f.patientID))
	require.NoError(t, err)

	_, err = f.svc.CancelReservation(ctx, r.ID, patientCaller(uuid.New()))
	assert.ErrorIs(t, err, ErrForbidden)

	cancelled, err := f.svc.CancelReservation(ctx, r.ID, patientCaller(f.patientID))
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusCancelled, cancelled.Status)
}

func TestGetReservationVisibility(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t)

	r, err := f.svc.RequestReservation(ctx, &RequestReservationCommand{
		RequesterID: f.patientID,
		ProviderID:  f.providerID,
		At:          f.slot(1, 14, 0),
	}, patientCaller(f.patientID))
	require.NoError(t, err)

	for name, caller := range map[string]*Caller{
		"admin":           adminCaller(),
		"owning provider": providerCaller(f.providerID),
		"requester":       patientCaller(f.patientID),
	} {
		t.Run(name+" may view", func(t *testing.T) {
			got, err := f.svc.GetReservation(ctx, r.ID, caller)
			require.NoError(t, err)
			assert.Equal(t, r.ID, got.ID)
		})
	}

	for name, caller := range map[string]*Caller{
		"unrelated provider": providerCaller(uuid.New()),
		"unrelated patient":  patientCaller(uuid.New()),
		"pharmacist":         {UserID: uuid.New(), Role: "pharmacist"},
	} {
		t.Run(name+" may not view", func(t *testing.T) {
			_, err := f.svc.GetReservation(ctx, r.ID, caller)
			assert.ErrorIs(t, err, ErrForbidden)
		})
	}
}

func TestListAccessControl(t *testing.T) {
	f := newBookingFixture(t)

	t.Run("pending list is provider-scoped", func(t *testing.T) {
		_, err := f.svc.ListPending(f.providerID, providerCaller(f.providerID))
		assert.NoError(t, err)

		_, err = f.svc.ListPending(f.providerID, providerCaller(uuid.New()))
		assert.ErrorIs(t, err, ErrForbidden)

		_, err = f.svc.ListPending(f.providerID, patientCaller(f.patientID))
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("status listing is admin only", func(t *testing.T) {
		_, err := f.svc.ListByStatus(reservation.StatusPending, adminCaller())
		assert.NoError(t, err)

		_, err = f.svc.ListByStatus(reservation.StatusPending, providerCaller(f.providerID))
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("status listing validates the status", func(t *testing.T) {
		_, err := f.svc.ListByStatus(reservation.Status("bogus"), adminCaller())
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("upcoming listing follows the caller role", func(t *testing.T) {
		_, err := f.svc.ListUpcoming(patientCaller(f.patientID))
		assert.NoError(t, err)

		_, err = f.svc.ListUpcoming(providerCaller(f.providerID))
		assert.NoError(t, err)

		_, err = f.svc.ListUpcoming(adminCaller())
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestSetScheduleAccess(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t)

	err := f.svc.SetSchedule(ctx, f.providerID, nil, providerCaller(uuid.New()))
	assert.ErrorIs(t, err, ErrForbidden)

	err = f.svc.SetSchedule(ctx, f.providerID, nil, providerCaller(f.providerID))
	assert.NoError(t, err)

	err = f.svc.SetSchedule(ctx, uuid.New(), nil, adminCaller())
	assert.ErrorIs(t, err, provider.ErrProviderNotFound)
}

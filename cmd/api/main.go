package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/careslot/careslot/internal/booking"
	"github.com/careslot/careslot/internal/config"
	v1 "github.com/careslot/careslot/internal/handler/v1"
	"github.com/careslot/careslot/internal/service"
	"github.com/careslot/careslot/internal/storage"
	"github.com/careslot/careslot/internal/worker"
	"github.com/careslot/careslot/pkg/auth"
	"github.com/careslot/careslot/pkg/database"
	"github.com/careslot/careslot/pkg/logger"
	"github.com/careslot/careslot/pkg/metrics"
	"github.com/careslot/careslot/pkg/tracer"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("loading configuration: " + err.Error())
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("building logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := tracer.Init(cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if err := database.Migrate(db, log); err != nil {
		return err
	}

	collector := metrics.NewCollector("careslot")

	userRepo := storage.NewUserRepository(db)
	patientRepo := storage.NewPatientRepository(db)
	providerRepo := storage.NewProviderRepository(db)
	medicationRepo := storage.NewMedicationRepository(db)
	recordRepo := storage.NewRecordRepository(db)
	auditRepo := storage.NewAuditRepository(db)
	snapshotStore := storage.NewSnapshotStore(db)

	auditSvc := service.NewAuditService(auditRepo, collector, log)
	defer auditSvc.Shutdown()

	inventorySvc := service.NewInventoryService(medicationRepo, auditSvc, log)

	policy, err := booking.PolicyFromConfig(cfg.Booking)
	if err != nil {
		return err
	}
	engine := booking.NewEngine(policy, log, booking.WithStock(inventorySvc))

	// Rehydrate engine state: the last snapshot wins, then any providers
	// added since get registered with clean calendars.
	snap, err := snapshotStore.LoadLatest(ctx)
	switch {
	case err == nil:
		if err := engine.Restore(snap); err != nil {
			return err
		}
	case errors.Is(err, storage.ErrNoSnapshot):
		log.Info("no engine snapshot found, starting clean")
	default:
		return err
	}
	providers, err := providerRepo.ListAll(ctx)
	if err != nil {
		return err
	}
	for _, p := range providers {
		engine.RegisterProvider(p.ID)
	}

	jwtManager := auth.NewJWTManager(cfg.JWT)
	authSvc := service.NewAuthService(userRepo, jwtManager, log)
	bookingSvc := service.NewBookingService(engine, providerRepo, patientRepo, snapshotStore, auditSvc, collector, log)
	directorySvc := service.NewDirectoryService(patientRepo, providerRepo, engine, auditSvc, log)
	recordSvc := service.NewRecordService(recordRepo, patientRepo, auditSvc, log)

	router := v1.NewRouter(ctx, cfg, v1.Services{
		Auth:      authSvc,
		Booking:   bookingSvc,
		Directory: directorySvc,
		Inventory: inventorySvc,
		Record:    recordSvc,
	}, jwtManager, collector, log)

	if cfg.Reminder.Enabled {
		reminder := worker.NewReminder(engine, &worker.LogNotifier{Log: log}, cfg.Reminder, collector, log)
		go reminder.Run(ctx)
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("environment", cfg.App.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	// Final snapshot so a clean shutdown loses nothing.
	if err := bookingSvc.SaveSnapshot(shutdownCtx); err != nil {
		log.Error("failed to persist final snapshot", zap.Error(err))
	}

	return nil
}

package worker

import (
	"context"
	"sync"
	"time"

	"github.com/careslot/careslot/internal/booking"
	"github.com/careslot/careslot/internal/config"
	"github.com/careslot/careslot/internal/domain/reservation"
	"github.com/careslot/careslot/pkg/metrics"
	"go.uber.org/zap"
)

// Notifier delivers a reminder for a confirmed reservation. The shipped
// implementation logs; a mail or SMS gateway slots in behind the same
// interface.
type Notifier interface {
	SendReminder(ctx context.Context, r reservation.Reservation) error
}

// LogNotifier writes reminders to the application log.
type LogNotifier struct {
	Log *zap.Logger
}

func (n *LogNotifier) SendReminder(_ context.Context, r reservation.Reservation) error {
	n.Log.Info("appointment reminder",
		zap.Uint64("reservation_id", r.ID),
		zap.String("requester_id", r.RequesterID.String()),
		zap.Time("scheduled_at", r.ScheduledAt),
	)
	return nil
}

// Reminder periodically sweeps the engine for confirmed reservations inside
// the lookahead window and notifies each one once.
type Reminder struct {
	engine   *booking.Engine
	notifier Notifier
	cfg      config.ReminderConfig
	metrics  *metrics.Collector
	log      *zap.Logger

	mu   sync.Mutex
	sent map[uint64]time.Time
}

func NewReminder(engine *booking.Engine, notifier Notifier, cfg config.ReminderConfig, collector *metrics.Collector, log *zap.Logger) *Reminder {
	return &Reminder{
		engine:   engine,
		notifier: notifier,
		cfg:      cfg,
		metrics:  collector,
		log:      log,
		sent:     make(map[uint64]time.Time),
	}
}

// Run blocks until the context is cancelled, sweeping on every tick.
func (w *Reminder) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	w.log.Info("reminder worker started",
		zap.Duration("interval", w.cfg.Interval),
		zap.Duration("lookahead", w.cfg.Lookahead),
	)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("reminder worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Reminder) sweep(ctx context.Context) {
	upcoming := w.engine.UpcomingConfirmed(w.cfg.Lookahead)

	for _, r := range upcoming {
		if w.alreadySent(r.ID) {
			continue
		}
		if err := w.notifier.SendReminder(ctx, r); err != nil {
			w.log.Error("failed to send reminder",
				zap.Uint64("reservation_id", r.ID),
				zap.Error(err),
			)
			continue
		}
		w.markSent(r.ID, r.ScheduledAt)
		w.metrics.RemindersSentTotal.Inc()
	}

	w.prune()
}

func (w *Reminder) alreadySent(id uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.sent[id]
	return ok
}

func (w *Reminder) markSent(id uint64, scheduledAt time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sent[id] = scheduledAt
}

// prune drops dedup entries whose appointment instant has passed, keeping
// the map bounded.
func (w *Reminder) prune() {
	now := time.Now()
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, at := range w.sent {
		if at.Before(now) {
			delete(w.sent, id)
		}
	}
}

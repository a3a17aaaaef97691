package booking

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/massagebook/libs/metrics"
	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/directory"
	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/events"
	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/storage"
)

// Directory is the read side of the user directory the manager joins against.
type Directory interface {
	GetUser(ctx context.Context, id string) (directory.User, error)
	GetProvider(ctx context.Context, id string) (directory.Provider, error)
}

type Options struct {
	Emitter     events.Emitter
	Logger      *slog.Logger
	Metrics     *metrics.BookingMetrics
	HorizonDays int
	Now         func() time.Time
	NewID       func() string
}

// Manager owns the appointment lifecycle. Every operation returns a Result; store failures are
// logged and surface as KindStorage.
type Manager struct {
	store   storage.Repository
	avail   *availability.Checker
	dir     Directory
	emitter events.Emitter
	logger  *slog.Logger
	metrics *metrics.BookingMetrics
	tracer  trace.Tracer
	horizon int
	now     func() time.Time
	newID   func() string
}

func NewManager(store storage.Repository, dir Directory, opts Options) *Manager {
	m := &Manager{
		store:   store,
		avail:   availability.NewChecker(store),
		dir:     dir,
		emitter: opts.Emitter,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		tracer:  otel.Tracer("booking"),
		horizon: opts.HorizonDays,
		now:     opts.Now,
		newID:   opts.NewID,
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.emitter == nil {
		m.emitter = events.LogEmitter{Logger: m.logger}
	}
	if m.horizon <= 0 {
		m.horizon = availability.DefaultHorizonDays
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.newID == nil {
		m.newID = uuid.NewString
	}
	return m
}

// run wraps one operation in a span and records its outcome.
func (m *Manager) run(ctx context.Context, op string, attrs []attribute.KeyValue, fn func(context.Context) (Result, error)) Result {
	ctx, span := m.tracer.Start(ctx, "booking."+op, trace.WithAttributes(attrs...))
	defer span.End()
	start := time.Now()

	res, err := fn(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "booking store failure", "op", op, "err", err)
		span.RecordError(err)
	}
	if res.Success {
		span.SetStatus(codes.Ok, "")
		if res.Appointment != nil {
			span.SetAttributes(attribute.String("appointment.id", res.Appointment.ID))
		}
	} else {
		span.SetStatus(codes.Error, res.Message)
		span.SetAttributes(attribute.String("booking.failure", string(res.Kind)))
	}
	m.metrics.ObserveOperation(op, res.outcome(), time.Since(start))
	return res
}

func (m *Manager) emit(ctx context.Context, ev events.Event) {
	err := m.emitter.Emit(ctx, ev)
	m.metrics.ObserveEvent(ev.Type, err == nil)
	if err != nil {
		m.logger.WarnContext(ctx, "appointment event not delivered",
			"event_type", ev.Type, "appointment_id", ev.Appointment.ID, "err", err)
	}
}

// storeFailure maps a store or directory error to a Result, returning err only when it is a
// backend failure worth logging.
func storeFailure(err error) (Result, error) {
	res := fromStoreError(err)
	if res.Kind == KindStorage {
		return res, err
	}
	return res, nil
}

func (m *Manager) timestamp() time.Time {
	return m.now().UTC()
}

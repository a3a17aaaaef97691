package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	otelx "github.com/md-rashed-zaman/massagebook/libs/otel"
	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/model"
)

// Event types double as Kafka topic names.
const (
	TypeCreated     = "booking.appointment.created.v1"
	TypeConfirmed   = "booking.appointment.confirmed.v1"
	TypeCancelled   = "booking.appointment.cancelled.v1"
	TypeCompleted   = "booking.appointment.completed.v1"
	TypeRescheduled = "booking.appointment.rescheduled.v1"
)

type Event struct {
	ID          string            `json:"eventId"`
	Type        string            `json:"eventType"`
	OccurredAt  time.Time         `json:"occurredAt"`
	ActorID     string            `json:"actorId"`
	Appointment model.Appointment `json:"appointment"`
	// Previous slot, set on reschedule.
	FromDate string `json:"fromDate,omitempty"`
	FromTime string `json:"fromTime,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

func New(eventType, actorID string, appt model.Appointment, at time.Time) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		OccurredAt:  at.UTC(),
		ActorID:     actorID,
		Appointment: appt,
	}
}

type Emitter interface {
	Emit(ctx context.Context, ev Event) error
}

// LogEmitter writes events to the log. Used when no broker is configured.
type LogEmitter struct {
	Logger *slog.Logger
}

func (e LogEmitter) Emit(ctx context.Context, ev Event) error {
	if e.Logger == nil {
		return nil
	}
	attrs := []any{
		"event_id", ev.ID,
		"event_type", ev.Type,
		"appointment_id", ev.Appointment.ID,
		"status", ev.Appointment.Status,
		"actor_id", ev.ActorID,
	}
	if traceparent, _ := otelx.TraceContextStrings(ctx); traceparent != "" {
		attrs = append(attrs, "traceparent", traceparent)
	}
	e.Logger.InfoContext(ctx, "appointment event", attrs...)
	return nil
}

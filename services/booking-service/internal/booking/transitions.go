package booking

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/md-rashed-zaman/massagebook/libs/auth"
	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/events"
	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/model"
)

const rescheduleLabel = "REAGENDADO: "

type RescheduleRequest struct {
	ID     string `json:"id"`
	Date   string `json:"date"`
	Time   string `json:"time"`
	Reason string `json:"reason"`
}

// Confirm accepts a pending appointment. Only the owning provider may confirm.
func (m *Manager) Confirm(ctx context.Context, actor auth.Identity, id string) Result {
	return m.transition(ctx, actor, id, "confirm", model.StatusConfirmed, events.TypeConfirmed, msgConfirmed,
		func(a model.Appointment) error {
			if !ownedByProvider(actor, a) {
				return reject(KindForbidden, "you are not allowed to confirm this appointment")
			}
			if a.Status != model.StatusPending {
				return reject(KindInvalidTransition, "only pending appointments can be confirmed (current status: %s)", a.Status)
			}
			return nil
		})
}

// Complete closes a confirmed appointment. Only the owning provider may complete.
func (m *Manager) Complete(ctx context.Context, actor auth.Identity, id string) Result {
	return m.transition(ctx, actor, id, "complete", model.StatusCompleted, events.TypeCompleted, msgCompleted,
		func(a model.Appointment) error {
			if !ownedByProvider(actor, a) {
				return reject(KindForbidden, "you are not allowed to complete this appointment")
			}
			if a.Status != model.StatusConfirmed {
				return reject(KindInvalidTransition, "only confirmed appointments can be completed (current status: %s)", a.Status)
			}
			return nil
		})
}

// Cancel releases the slot of a pending or confirmed appointment. The owning provider or the
// owning client may cancel; terminal appointments are rejected.
func (m *Manager) Cancel(ctx context.Context, actor auth.Identity, id string) Result {
	return m.transition(ctx, actor, id, "cancel", model.StatusCancelled, events.TypeCancelled, msgCancelled,
		func(a model.Appointment) error {
			if !ownedByProvider(actor, a) && !ownedByClient(actor, a) {
				return reject(KindForbidden, "you are not allowed to cancel this appointment")
			}
			if a.Status.Terminal() {
				return reject(KindInvalidTransition, "appointment is already %s and cannot be cancelled", a.Status)
			}
			return nil
		})
}

func (m *Manager) transition(ctx context.Context, actor auth.Identity, id, op string, to model.Status, eventType, msg string,
	guard func(model.Appointment) error) Result {
	return m.run(ctx, op, []attribute.KeyValue{attribute.String("appointment.id", id)}, func(ctx context.Context) (Result, error) {
		id = strings.TrimSpace(id)
		if id == "" {
			return fail(KindValidation, "appointment id is required"), nil
		}
		if !actor.IsClient() && !actor.IsProvider() {
			return fail(KindValidation, "an acting client or provider is required"), nil
		}

		now := m.timestamp()
		updated, err := m.store.Update(ctx, id, func(a *model.Appointment) error {
			if err := guard(*a); err != nil {
				return err
			}
			if !a.Status.CanTransition(to) {
				return reject(KindInvalidTransition, "cannot move appointment from %s to %s", a.Status, to)
			}
			a.Status = to
			a.UpdatedAt = now
			return nil
		})
		if err != nil {
			return storeFailure(err)
		}
		m.emit(ctx, events.New(eventType, actor.UserID, updated, now))
		return ok(msg, updated), nil
	})
}

// Reschedule moves a non-terminal appointment to a new slot, keeping its status. The reason is
// appended to the notes; earlier notes are never overwritten.
func (m *Manager) Reschedule(ctx context.Context, actor auth.Identity, req RescheduleRequest) Result {
	attrs := []attribute.KeyValue{
		attribute.String("appointment.id", req.ID),
		attribute.String("appointment.date", req.Date),
		attribute.String("appointment.time", req.Time),
	}
	return m.run(ctx, "reschedule", attrs, func(ctx context.Context) (Result, error) {
		req.ID = strings.TrimSpace(req.ID)
		reason := strings.TrimSpace(req.Reason)
		if req.ID == "" {
			return fail(KindValidation, "appointment id is required"), nil
		}
		if reason == "" {
			return fail(KindValidation, "a reason is required to reschedule"), nil
		}
		if !actor.IsProvider() {
			return fail(KindValidation, msgProviderOnly), nil
		}
		if res, bad := validateSlot(req.Date, req.Time); bad {
			return res, nil
		}

		guard := func(a model.Appointment) error {
			if !ownedByProvider(actor, a) {
				return reject(KindForbidden, "you are not allowed to reschedule this appointment")
			}
			if a.Status.Terminal() {
				return reject(KindInvalidTransition, "%s appointments cannot be rescheduled", a.Status)
			}
			return nil
		}

		current, err := m.store.Get(ctx, req.ID)
		if err != nil {
			return storeFailure(err)
		}
		if err := guard(current); err != nil {
			return storeFailure(err)
		}
		moving := current.Date != req.Date || current.Time != req.Time
		if moving {
			free, err := m.avail.IsAvailableExcluding(ctx, current.ProviderID, req.Date, req.Time, current.ID)
			if err != nil {
				return storeFailure(err)
			}
			if !free {
				return fail(KindConflict, "the new time slot is not available"), nil
			}
		}

		now := m.timestamp()
		updated, err := m.store.Update(ctx, req.ID, func(a *model.Appointment) error {
			if err := guard(*a); err != nil {
				return err
			}
			a.Date = req.Date
			a.Time = req.Time
			a.Notes = appendReason(a.Notes, reason)
			a.UpdatedAt = now
			return nil
		})
		if err != nil {
			return storeFailure(err)
		}

		ev := events.New(events.TypeRescheduled, actor.UserID, updated, now)
		ev.FromDate, ev.FromTime, ev.Reason = current.Date, current.Time, reason
		m.emit(ctx, ev)
		return ok(msgRescheduled, updated), nil
	})
}

func appendReason(notes, reason string) string {
	if notes == "" {
		return rescheduleLabel + reason
	}
	return notes + "\n\n" + rescheduleLabel + reason
}

func ownedByProvider(actor auth.Identity, a model.Appointment) bool {
	return actor.IsProvider() && a.ProviderID == actor.UserID
}

func ownedByClient(actor auth.Identity, a model.Appointment) bool {
	return actor.IsClient() && a.ClientID == actor.UserID
}

package booking

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/md-rashed-zaman/massagebook/libs/auth"
	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/directory"
	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/events"
	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/slots"
)

type CreateRequest struct {
	ProviderID string `json:"providerId"`
	ServiceID  string `json:"serviceId"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Notes      string `json:"notes"`
}

type ManualRequest struct {
	ClientID  string `json:"clientId"`
	ServiceID string `json:"serviceId"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Notes     string `json:"notes"`
}

// CreateAppointment books a slot for the acting client. The appointment starts pending.
func (m *Manager) CreateAppointment(ctx context.Context, actor auth.Identity, req CreateRequest) Result {
	attrs := []attribute.KeyValue{
		attribute.String("provider.id", req.ProviderID),
		attribute.String("appointment.date", req.Date),
		attribute.String("appointment.time", req.Time),
	}
	return m.run(ctx, "create", attrs, func(ctx context.Context) (Result, error) {
		if !actor.IsClient() {
			return fail(KindValidation, msgClientOnly), nil
		}
		req.ProviderID = strings.TrimSpace(req.ProviderID)
		req.ServiceID = strings.TrimSpace(req.ServiceID)
		if req.ProviderID == "" || req.ServiceID == "" {
			return fail(KindValidation, "providerId and serviceId are required"), nil
		}
		if res, bad := validateSlot(req.Date, req.Time); bad {
			return res, nil
		}

		provider, err := m.dir.GetProvider(ctx, req.ProviderID)
		if err != nil {
			if directory.IsNotFound(err) {
				return fail(KindValidation, "provider not found"), nil
			}
			return fail(KindStorage, msgStorage), err
		}
		if _, found := provider.Service(req.ServiceID); !found {
			return fail(KindValidation, "service not offered by this provider"), nil
		}

		now := m.timestamp()
		appt := model.Appointment{
			ID:         m.newID(),
			ClientID:   actor.UserID,
			ProviderID: provider.ID,
			ServiceID:  req.ServiceID,
			Date:       req.Date,
			Time:       req.Time,
			Status:     model.StatusPending,
			Notes:      strings.TrimSpace(req.Notes),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if res, err := m.book(ctx, appt); !res.Success {
			return res, err
		}
		m.emit(ctx, events.New(events.TypeCreated, actor.UserID, appt, now))
		return ok(msgCreated, appt), nil
	})
}

// CreateManualAppointment lets a provider book one of its own slots on behalf of a client. The
// appointment is confirmed straight away.
func (m *Manager) CreateManualAppointment(ctx context.Context, actor auth.Identity, req ManualRequest) Result {
	attrs := []attribute.KeyValue{
		attribute.String("provider.id", actor.UserID),
		attribute.String("appointment.date", req.Date),
		attribute.String("appointment.time", req.Time),
	}
	return m.run(ctx, "create_manual", attrs, func(ctx context.Context) (Result, error) {
		if !actor.IsProvider() {
			return fail(KindValidation, msgProviderOnly), nil
		}
		req.ClientID = strings.TrimSpace(req.ClientID)
		req.ServiceID = strings.TrimSpace(req.ServiceID)
		if req.ClientID == "" || req.ServiceID == "" {
			return fail(KindValidation, "clientId and serviceId are required"), nil
		}
		if res, bad := validateSlot(req.Date, req.Time); bad {
			return res, nil
		}

		client, err := m.dir.GetUser(ctx, req.ClientID)
		if err != nil {
			if directory.IsNotFound(err) {
				return fail(KindValidation, "client not found"), nil
			}
			return fail(KindStorage, msgStorage), err
		}
		if client.Role != auth.RoleClient {
			return fail(KindValidation, "client not found"), nil
		}
		provider, err := m.dir.GetProvider(ctx, actor.UserID)
		if err != nil {
			if directory.IsNotFound(err) {
				return fail(KindValidation, "provider not found"), nil
			}
			return fail(KindStorage, msgStorage), err
		}
		if _, found := provider.Service(req.ServiceID); !found {
			return fail(KindValidation, "service not offered by this provider"), nil
		}

		now := m.timestamp()
		appt := model.Appointment{
			ID:         m.newID(),
			ClientID:   client.ID,
			ProviderID: actor.UserID,
			ServiceID:  req.ServiceID,
			Date:       req.Date,
			Time:       req.Time,
			Status:     model.StatusConfirmed,
			Notes:      strings.TrimSpace(req.Notes),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if res, err := m.book(ctx, appt); !res.Success {
			return res, err
		}
		m.emit(ctx, events.New(events.TypeCreated, actor.UserID, appt, now))
		return ok(msgManual, appt), nil
	})
}

// book checks availability and inserts. The store repeats the uniqueness check atomically, so a
// race lost after the availability read still ends as a conflict.
func (m *Manager) book(ctx context.Context, appt model.Appointment) (Result, error) {
	free, err := m.avail.IsAvailable(ctx, appt.ProviderID, appt.Date, appt.Time)
	if err != nil {
		return storeFailure(err)
	}
	if !free {
		return fail(KindConflict, msgSlotTaken), nil
	}
	if err := m.store.Insert(ctx, appt); err != nil {
		return storeFailure(err)
	}
	return Result{Success: true}, nil
}

func validateSlot(date, t string) (Result, bool) {
	if _, err := model.ParseDate(date); err != nil {
		return fail(KindValidation, msgInvalidDate), true
	}
	if !slots.Valid(t) {
		return fail(KindValidation, msgInvalidTime), true
	}
	return Result{}, false
}

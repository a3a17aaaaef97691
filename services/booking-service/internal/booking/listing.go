package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/directory"
	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/model"
)

var ErrInvalidDate = errors.New(msgInvalidDate)

// Detailed is an appointment joined with its client, provider and service.
type Detailed struct {
	model.Appointment
	Client   directory.User    `json:"client"`
	Provider directory.User    `json:"provider"`
	Service  directory.Service `json:"service"`
}

// ListForClient returns the client's appointments, pending ones first and then newest first.
func (m *Manager) ListForClient(ctx context.Context, clientID string) ([]Detailed, error) {
	ctx, span := m.tracer.Start(ctx, "booking.list_for_client")
	defer span.End()

	appts, err := m.store.FindByClient(ctx, clientID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	out, err := m.resolve(ctx, appts)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Status == model.StatusPending, out[j].Status == model.StatusPending
		if pi != pj {
			return pi
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	span.SetAttributes(attribute.Int("appointments.count", len(out)))
	return out, nil
}

// ListForProvider returns the provider's appointments in (date, time) order.
func (m *Manager) ListForProvider(ctx context.Context, providerID string) ([]Detailed, error) {
	ctx, span := m.tracer.Start(ctx, "booking.list_for_provider")
	defer span.End()

	appts, err := m.store.FindByProvider(ctx, providerID, "")
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	out, err := m.resolve(ctx, appts)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time < out[j].Time
	})
	span.SetAttributes(attribute.Int("appointments.count", len(out)))
	return out, nil
}

// AvailableSlots lists the open slots of a provider on date.
func (m *Manager) AvailableSlots(ctx context.Context, providerID, date string) ([]string, error) {
	if _, err := model.ParseDate(date); err != nil {
		return nil, ErrInvalidDate
	}
	return m.avail.AvailableSlots(ctx, providerID, date)
}

// AvailableDates lists the dates with an open slot, starting today. days <= 0 uses the
// configured horizon.
func (m *Manager) AvailableDates(ctx context.Context, providerID string, days int) ([]string, error) {
	if days <= 0 {
		days = m.horizon
	}
	return m.avail.AvailableDates(ctx, providerID, m.now(), days)
}

// resolve joins appointments with the directory. Appointments whose client, provider or service
// no longer resolves are left out and logged.
func (m *Manager) resolve(ctx context.Context, appts []model.Appointment) ([]Detailed, error) {
	users := make(map[string]*directory.User)
	providers := make(map[string]*directory.Provider)

	lookupUser := func(id string) (*directory.User, error) {
		if u, seen := users[id]; seen {
			return u, nil
		}
		u, err := m.dir.GetUser(ctx, id)
		if err != nil && !directory.IsNotFound(err) {
			return nil, err
		}
		var found *directory.User
		if err == nil {
			found = &u
		}
		users[id] = found
		return found, nil
	}
	lookupProvider := func(id string) (*directory.Provider, error) {
		if p, seen := providers[id]; seen {
			return p, nil
		}
		p, err := m.dir.GetProvider(ctx, id)
		if err != nil && !directory.IsNotFound(err) {
			return nil, err
		}
		var found *directory.Provider
		if err == nil {
			found = &p
		}
		providers[id] = found
		return found, nil
	}

	out := make([]Detailed, 0, len(appts))
	for _, a := range appts {
		client, err := lookupUser(a.ClientID)
		if err != nil {
			return nil, fmt.Errorf("resolve client %s: %w", a.ClientID, err)
		}
		provider, err := lookupProvider(a.ProviderID)
		if err != nil {
			return nil, fmt.Errorf("resolve provider %s: %w", a.ProviderID, err)
		}

		var missing []string
		if client == nil {
			missing = append(missing, "client")
		}
		var service directory.Service
		if provider == nil {
			missing = append(missing, "provider")
		} else if s, found := provider.Service(a.ServiceID); found {
			service = s
		} else {
			missing = append(missing, "service")
		}
		if len(missing) > 0 {
			m.logger.WarnContext(ctx, "appointment dropped from listing",
				"appointment_id", a.ID, "unresolved", strings.Join(missing, ","))
			continue
		}

		out = append(out, Detailed{
			Appointment: a,
			Client:      *client,
			Provider:    provider.User,
			Service:     service,
		})
	}
	return out, nil
}

package availability

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/slots"
)

// DefaultHorizonDays is how far AvailableDates looks ahead when no horizon is given.
const DefaultHorizonDays = 30

// Reader is the part of the booking store availability needs.
type Reader interface {
	FindByProvider(ctx context.Context, providerID, date string) ([]model.Appointment, error)
}

// Checker answers open-slot questions. It never writes and never validates that the provider
// exists; past dates are answered like any other.
type Checker struct {
	store Reader
}

func NewChecker(store Reader) *Checker {
	return &Checker{store: store}
}

// AvailableSlots returns the canonical slots of date not held by a non-cancelled appointment,
// in grid order.
func (c *Checker) AvailableSlots(ctx context.Context, providerID, date string) ([]string, error) {
	return c.available(ctx, providerID, date, "")
}

func (c *Checker) IsAvailable(ctx context.Context, providerID, date, t string) (bool, error) {
	return c.IsAvailableExcluding(ctx, providerID, date, t, "")
}

// IsAvailableExcluding ignores appointmentID while checking, so an appointment being moved
// does not block its own slot.
func (c *Checker) IsAvailableExcluding(ctx context.Context, providerID, date, t, appointmentID string) (bool, error) {
	if !slots.Valid(t) {
		return false, nil
	}
	open, err := c.available(ctx, providerID, date, appointmentID)
	if err != nil {
		return false, err
	}
	for _, s := range open {
		if s == t {
			return true, nil
		}
	}
	return false, nil
}

// AvailableDates scans horizonDays consecutive days starting at from and returns the ISO dates
// that still have at least one open slot.
func (c *Checker) AvailableDates(ctx context.Context, providerID string, from time.Time, horizonDays int) ([]string, error) {
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}
	appts, err := c.store.FindByProvider(ctx, providerID, "")
	if err != nil {
		return nil, err
	}

	held := make(map[string]map[string]struct{})
	for _, a := range appts {
		if !a.Occupies() {
			continue
		}
		if held[a.Date] == nil {
			held[a.Date] = make(map[string]struct{})
		}
		held[a.Date][a.Time] = struct{}{}
	}

	grid := slots.Canonical()
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	dates := make([]string, 0, horizonDays)
	for i := 0; i < horizonDays; i++ {
		date := start.AddDate(0, 0, i).Format(model.DateLayout)
		taken := held[date]
		for _, s := range grid {
			if _, ok := taken[s]; !ok {
				dates = append(dates, date)
				break
			}
		}
	}
	return dates, nil
}

func (c *Checker) available(ctx context.Context, providerID, date, skipID string) ([]string, error) {
	appts, err := c.store.FindByProvider(ctx, providerID, date)
	if err != nil {
		return nil, err
	}
	taken := make(map[string]struct{}, len(appts))
	for _, a := range appts {
		if a.Date != date || !a.Occupies() || (skipID != "" && a.ID == skipID) {
			continue
		}
		taken[a.Time] = struct{}{}
	}

	grid := slots.Canonical()
	open := grid[:0]
	for _, s := range grid {
		if _, ok := taken[s]; !ok {
			open = append(open, s)
		}
	}
	return open, nil
}

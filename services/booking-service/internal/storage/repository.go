package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/model"
)

var (
	ErrNotFound  = errors.New("appointment not found")
	ErrSlotTaken = errors.New("time slot already taken")
)

// Error is a backend failure: unreachable store, corrupt payload, exhausted retries.
// It is never returned for an empty result.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Mutator edits an appointment inside Update. Returning an error aborts the update and the
// error is handed back to the caller unchanged.
type Mutator func(appt *model.Appointment) error

// Repository persists appointments. Implementations enforce that at most one active
// (pending or confirmed) appointment exists per provider, date and time.
type Repository interface {
	// Insert stores a new appointment, failing with ErrSlotTaken when its slot is held.
	Insert(ctx context.Context, appt model.Appointment) error
	Get(ctx context.Context, id string) (model.Appointment, error)
	// FindByProvider lists a provider's appointments; an empty date means every date.
	FindByProvider(ctx context.Context, providerID, date string) ([]model.Appointment, error)
	FindByClient(ctx context.Context, clientID string) ([]model.Appointment, error)
	// Update applies fn atomically and re-verifies slot uniqueness before committing.
	Update(ctx context.Context, id string, fn Mutator) (model.Appointment, error)
	All(ctx context.Context) ([]model.Appointment, error)
	ReplaceAll(ctx context.Context, appts []model.Appointment) error
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrSlotTaken)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsBackend reports whether err is a store failure rather than a domain outcome.
func IsBackend(err error) bool {
	var se *Error
	return errors.As(err, &se)
}

func wrap(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrSlotTaken) || IsBackend(err) {
		return err
	}
	return &Error{Op: op, Err: err}
}

// checkUnique verifies the active-slot rule over a full collection.
func checkUnique(appts []model.Appointment) error {
	seen := make(map[model.SlotKey]string, len(appts))
	ids := make(map[string]struct{}, len(appts))
	for _, a := range appts {
		if _, dup := ids[a.ID]; dup {
			return fmt.Errorf("duplicate appointment id %s", a.ID)
		}
		ids[a.ID] = struct{}{}
		if !a.Active() {
			continue
		}
		if other, ok := seen[a.SlotKey()]; ok {
			return fmt.Errorf("appointments %s and %s: %w", other, a.ID, ErrSlotTaken)
		}
		seen[a.SlotKey()] = a.ID
	}
	return nil
}

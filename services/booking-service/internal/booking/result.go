package booking

import (
	"errors"
	"fmt"

	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/storage"
)

// Kind classifies a failed Result.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindForbidden         Kind = "forbidden"
	KindConflict          Kind = "conflict"
	KindInvalidTransition Kind = "invalid_transition"
	KindNotFound          Kind = "not_found"
	KindStorage           Kind = "storage"
)

// Result is the uniform outcome of every booking operation. Failures are values, never errors,
// so callers can render Message directly.
type Result struct {
	Success     bool               `json:"success"`
	Message     string             `json:"message"`
	Kind        Kind               `json:"-"`
	Appointment *model.Appointment `json:"appointment,omitempty"`
}

const (
	msgCreated      = "appointment requested"
	msgManual       = "appointment created"
	msgConfirmed    = "appointment confirmed"
	msgCancelled    = "appointment cancelled"
	msgCompleted    = "appointment completed"
	msgRescheduled  = "appointment rescheduled"
	msgSlotTaken    = "time slot is no longer available"
	msgNotFound     = "appointment not found"
	msgStorage      = "could not reach the booking store, please try again"
	msgInvalidDate  = "date must be a valid YYYY-MM-DD date"
	msgInvalidTime  = "time must be a slot between 08:00 and 18:00 on the hour or half hour"
	msgClientOnly   = "only clients can request appointments"
	msgProviderOnly = "only providers can do this"
)

func ok(msg string, appt model.Appointment) Result {
	return Result{Success: true, Message: msg, Appointment: &appt}
}

func fail(kind Kind, format string, args ...any) Result {
	return Result{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// rejection carries a failure Result out of a store mutator.
type rejection struct {
	res Result
}

func (r rejection) Error() string { return r.res.Message }

func reject(kind Kind, format string, args ...any) error {
	return rejection{res: fail(kind, format, args...)}
}

// outcome labels a result for metrics.
func (r Result) outcome() string {
	if r.Success {
		return "ok"
	}
	return string(r.Kind)
}

func fromStoreError(err error) Result {
	var rej rejection
	switch {
	case errors.As(err, &rej):
		return rej.res
	case storage.IsNotFound(err):
		return fail(KindNotFound, msgNotFound)
	case storage.IsConflict(err):
		return fail(KindConflict, msgSlotTaken)
	default:
		return fail(KindStorage, msgStorage)
	}
}

package model

import (
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// DateLayout and TimeLayout are the wire formats of Appointment.Date and Appointment.Time.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Appointment is one booked slot. Services and users are referenced by id only.
type Appointment struct {
	ID         string    `json:"id"`
	ClientID   string    `json:"clientId"`
	ProviderID string    `json:"providerId"`
	ServiceID  string    `json:"serviceId"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
	Status     Status    `json:"status"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Active reports whether the appointment occupies its slot.
func (a Appointment) Active() bool {
	return a.Status.Active()
}

// Occupies reports whether the appointment hides its time from availability listings.
// Completed appointments keep their slot; only cancellation releases it.
func (a Appointment) Occupies() bool {
	return a.Status != StatusCancelled
}

// SlotKey identifies the slot for the active-appointment uniqueness rule.
func (a Appointment) SlotKey() SlotKey {
	return SlotKey{ProviderID: a.ProviderID, Date: a.Date, Time: a.Time}
}

type SlotKey struct {
	ProviderID string
	Date       string
	Time       string
}

func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	default:
		return false
	}
}

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether the lifecycle allows moving from s to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseDate validates an ISO calendar date.
func ParseDate(date string) (time.Time, error) {
	return time.Parse(DateLayout, date)
}

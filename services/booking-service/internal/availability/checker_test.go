package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/model"
)

type fakeReader struct {
	appts []model.Appointment
	err   error
	calls int
}

func (f *fakeReader) FindByProvider(_ context.Context, providerID, date string) ([]model.Appointment, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Appointment
	for _, a := range f.appts {
		if a.ProviderID == providerID && (date == "" || a.Date == date) {
			out = append(out, a)
		}
	}
	return out, nil
}

func appt(id, date, tm string, status model.Status) model.Appointment {
	return model.Appointment{ID: id, ProviderID: "p1", ClientID: "c1", ServiceID: "1", Date: date, Time: tm, Status: status}
}

func TestAvailableSlots_Empty(t *testing.T) {
	c := NewChecker(&fakeReader{})
	got, err := c.AvailableSlots(context.Background(), "p1", "2025-03-10")
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if len(got) != 21 {
		t.Fatalf("expected full grid, got %d slots", len(got))
	}
}

func TestAvailableSlots_ExcludesNonCancelled(t *testing.T) {
	r := &fakeReader{appts: []model.Appointment{
		appt("a1", "2025-03-10", "08:00", model.StatusPending),
		appt("a2", "2025-03-10", "09:00", model.StatusConfirmed),
		appt("a3", "2025-03-10", "10:00", model.StatusCompleted),
		appt("a4", "2025-03-10", "11:00", model.StatusCancelled),
		appt("a5", "2025-03-11", "12:00", model.StatusPending),
	}}
	got, err := NewChecker(r).AvailableSlots(context.Background(), "p1", "2025-03-10")
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if len(got) != 18 {
		t.Fatalf("expected 18 slots, got %d: %v", len(got), got)
	}
	if got[0] != "08:30" {
		t.Fatalf("expected first open slot 08:30, got %s", got[0])
	}
	for _, held := range []string{"08:00", "09:00", "10:00"} {
		for _, s := range got {
			if s == held {
				t.Fatalf("slot %s should be held", held)
			}
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i] <= got[i-1] {
			t.Fatalf("slots out of order: %v", got)
		}
	}
}

func TestIsAvailable(t *testing.T) {
	r := &fakeReader{appts: []model.Appointment{
		appt("a1", "2025-03-10", "10:00", model.StatusPending),
	}}
	c := NewChecker(r)
	ctx := context.Background()

	cases := []struct {
		tm   string
		want bool
	}{
		{"10:00", false},
		{"10:30", true},
		{"18:00", true},
		{"18:30", false},
		{"10:15", false},
	}
	for _, tc := range cases {
		got, err := c.IsAvailable(ctx, "p1", "2025-03-10", tc.tm)
		if err != nil {
			t.Fatalf("IsAvailable(%s): %v", tc.tm, err)
		}
		if got != tc.want {
			t.Fatalf("IsAvailable(%s) = %v, want %v", tc.tm, got, tc.want)
		}
	}

	own, err := c.IsAvailableExcluding(ctx, "p1", "2025-03-10", "10:00", "a1")
	if err != nil || !own {
		t.Fatalf("expected own slot available when excluded, got %v %v", own, err)
	}
}

func TestAvailableDates(t *testing.T) {
	var full []model.Appointment
	for i, s := range []string{"08:00", "08:30", "09:00", "09:30", "10:00", "10:30", "11:00", "11:30", "12:00", "12:30",
		"13:00", "13:30", "14:00", "14:30", "15:00", "15:30", "16:00", "16:30", "17:00", "17:30", "18:00"} {
		status := model.StatusConfirmed
		if i%2 == 0 {
			status = model.StatusPending
		}
		full = append(full, appt("f"+s, "2025-03-11", s, status))
	}
	r := &fakeReader{appts: append(full, appt("x", "2025-03-12", "08:00", model.StatusPending))}

	from := time.Date(2025, 3, 10, 15, 45, 0, 0, time.UTC)
	got, err := NewChecker(r).AvailableDates(context.Background(), "p1", from, 3)
	if err != nil {
		t.Fatalf("AvailableDates: %v", err)
	}
	want := []string{"2025-03-10", "2025-03-12"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if r.calls != 1 {
		t.Fatalf("expected a single store read, got %d", r.calls)
	}

	all, err := NewChecker(&fakeReader{}).AvailableDates(context.Background(), "p1", from, 0)
	if err != nil {
		t.Fatalf("AvailableDates default: %v", err)
	}
	if len(all) != DefaultHorizonDays || all[0] != "2025-03-10" || all[29] != "2025-04-08" {
		t.Fatalf("unexpected default horizon: %v", all)
	}
}

func TestStoreErrorsPropagate(t *testing.T) {
	boom := errors.New("store down")
	c := NewChecker(&fakeReader{err: boom})
	ctx := context.Background()

	if _, err := c.AvailableSlots(ctx, "p1", "2025-03-10"); !errors.Is(err, boom) {
		t.Fatalf("AvailableSlots: expected store error, got %v", err)
	}
	if _, err := c.IsAvailable(ctx, "p1", "2025-03-10", "10:00"); !errors.Is(err, boom) {
		t.Fatalf("IsAvailable: expected store error, got %v", err)
	}
	if _, err := c.AvailableDates(ctx, "p1", time.Now(), 5); !errors.Is(err, boom) {
		t.Fatalf("AvailableDates: expected store error, got %v", err)
	}
}

package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/md-rashed-zaman/massagebook/libs/kafkax"
	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/model"
)

type captureWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (c *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, msgs...)
	return nil
}

func (c *captureWriter) Close() error {
	c.closed = true
	return nil
}

func TestKafkaEmitter(t *testing.T) {
	w := &captureWriter{}
	e := &KafkaEmitter{writer: w}
	appt := model.Appointment{ID: "a1", ProviderID: "p1", Status: model.StatusPending, Date: "2025-03-10", Time: "10:00"}
	ev := New(TypeCreated, "c1", appt, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	if err := e.Emit(context.Background(), ev); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if msg.Topic != TypeCreated || string(msg.Key) != "a1" {
		t.Fatalf("unexpected topic/key: %s %s", msg.Topic, msg.Key)
	}
	if kafkax.HeaderValue(msg.Headers, kafkax.HeaderEventID) != ev.ID {
		t.Fatal("missing event id header")
	}

	var decoded Event
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded.Appointment.ID != "a1" || decoded.ActorID != "c1" || decoded.Type != TypeCreated {
		t.Fatalf("unexpected payload: %+v", decoded)
	}

	if err := e.Close(); err != nil || !w.closed {
		t.Fatalf("expected writer closed, err=%v", err)
	}
}

func TestKafkaEmitterWriteError(t *testing.T) {
	e := &KafkaEmitter{writer: &captureWriter{err: errors.New("broker down")}}
	err := e.Emit(context.Background(), New(TypeCancelled, "p1", model.Appointment{ID: "a1"}, time.Now()))
	if err == nil || !strings.Contains(err.Error(), TypeCancelled) {
		t.Fatalf("expected wrapped publish error, got %v", err)
	}
}

func TestLogEmitter(t *testing.T) {
	var buf bytes.Buffer
	e := LogEmitter{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}
	if err := e.Emit(context.Background(), New(TypeConfirmed, "p1", model.Appointment{ID: "a9"}, time.Now())); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if !strings.Contains(buf.String(), `"appointment_id":"a9"`) {
		t.Fatalf("expected appointment id in log, got %s", buf.String())
	}
	if err := (LogEmitter{}).Emit(context.Background(), Event{}); err != nil {
		t.Fatalf("nil logger should be a no-op: %v", err)
	}
}

package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/md-rashed-zaman/massagebook/libs/kafkax"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEmitter publishes each event to the topic named after its type, keyed by appointment id.
type KafkaEmitter struct {
	writer messageWriter
}

func NewKafkaEmitter(brokers []string) *KafkaEmitter {
	return &KafkaEmitter{writer: kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Balancer: &kafka.Hash{},
	})}
}

func (e *KafkaEmitter) Emit(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ev.Type, err)
	}
	msg := kafkax.NewMessage(ctx, ev.ID, ev.Type, ev.Appointment.ID, payload)
	if err := e.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

func (e *KafkaEmitter) Close() error {
	return e.writer.Close()
}

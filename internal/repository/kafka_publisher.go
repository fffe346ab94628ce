package repository

import (
	"context"
	"fmt"

	"FlowHunter/internal/domain/models"
	"FlowHunter/pkg/kafka"
)

// MessagePublisher is the slice of the Kafka producer the publishers need.
type MessagePublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}, headers ...kafka.Header) error
	Close() error
}

// KafkaPublisher delivers signals and telemetry events to Kafka. Signals
// are keyed by signal ID so the gateway sees redeliveries on one partition.
type KafkaPublisher struct {
	producer       MessagePublisher
	signalsTopic   string
	telemetryTopic string
}

func NewKafkaPublisher(p MessagePublisher, signalsTopic, telemetryTopic string) *KafkaPublisher {
	return &KafkaPublisher{producer: p, signalsTopic: signalsTopic, telemetryTopic: telemetryTopic}
}

func (k *KafkaPublisher) PublishSignal(ctx context.Context, s *models.Signal) error {
	if s == nil {
		return fmt.Errorf("signal is nil")
	}
	err := k.producer.Publish(ctx, k.signalsTopic, []byte(s.SignalID), s,
		kafka.Header{Key: "trace_id", Value: s.SignalID},
		kafka.Header{Key: "symbol", Value: s.Symbol})
	if err != nil {
		return fmt.Errorf("publish signal %s: %w", s.SignalID, err)
	}
	return nil
}

func (k *KafkaPublisher) PublishEvent(ctx context.Context, e models.TelemetryEvent) error {
	key := string(e.Type)
	if e.Symbol != "" {
		key = e.Symbol
	}
	if err := k.producer.Publish(ctx, k.telemetryTopic, []byte(key), e, kafka.Header{Key: "event", Value: string(e.Type)}); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

// PublishMessage sends an unkeyed payload to topic. The log collector
// ships its batches through it.
func (k *KafkaPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return k.producer.Publish(ctx, topic, nil, payload)
}

func (k *KafkaPublisher) Close() error {
	return k.producer.Close()
}

package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"FlowHunter/internal/domain/models"
	"FlowHunter/pkg/queue"

	"github.com/redis/go-redis/v9"
)

// RedisSignalPublisher appends signals to a Redis stream, the lightweight
// alternative to the Kafka bus.
type RedisSignalPublisher struct {
	client redis.UniversalClient
	stream string
	maxLen int64
}

func NewRedisSignalPublisher(client redis.UniversalClient, stream string) *RedisSignalPublisher {
	return &RedisSignalPublisher{client: client, stream: stream, maxLen: 10000}
}

func (r *RedisSignalPublisher) PublishSignal(ctx context.Context, s *models.Signal) error {
	if s == nil {
		return fmt.Errorf("signal is nil")
	}
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}
	err = r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		MaxLen: r.maxLen,
		Approx: true,
		Values: []interface{}{"signal_id", s.SignalID, "payload", string(b)},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", r.stream, err)
	}
	return nil
}

// Close is a no-op; the client belongs to the caller.
func (r *RedisSignalPublisher) Close() error { return nil }

// QueueTelemetryPublisher writes telemetry events to a queue list. It
// backs the telemetry stream when the bus is Redis.
type QueueTelemetryPublisher struct {
	q     queue.QueueService
	topic string
}

func NewQueueTelemetryPublisher(q queue.QueueService, topic string) *QueueTelemetryPublisher {
	return &QueueTelemetryPublisher{q: q, topic: topic}
}

func (p *QueueTelemetryPublisher) PublishEvent(ctx context.Context, e models.TelemetryEvent) error {
	if err := p.q.PublishMessage(ctx, p.topic, e); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

package repository

import (
	"context"

	"FlowHunter/internal/domain/models"
)

// TradeSink accepts normalized trades. The CVD aggregator is the production sink.
type TradeSink interface {
	Ingest(t models.Trade)
}

// SignalPublisher delivers emitted signals to the execution gateway bus.
type SignalPublisher interface {
	PublishSignal(ctx context.Context, s *models.Signal) error
	Close() error
}

// TelemetryPublisher delivers structured events to the telemetry collaborator.
type TelemetryPublisher interface {
	PublishEvent(ctx context.Context, e models.TelemetryEvent) error
}

type Metrics interface {
	RecordTrade(venue, symbol string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordStreamHealth(venue, product string, state int, latencyMs, msgsPerSec, uptimeSec float64, reconnects int)
	RecordSignal(symbol, direction string, emitted bool)
	RecordLastPrice(symbol string, price float64)
}

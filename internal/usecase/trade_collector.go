package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"FlowHunter/internal/domain/models"
	domrepo "FlowHunter/internal/domain/repository"
	"FlowHunter/internal/service/exchange"
	applogger "FlowHunter/pkg/logger"
)

// TradeStream is one venue connection.
type TradeStream interface {
	Run(ctx context.Context) error
	Trades() <-chan models.Trade
	Events() <-chan exchange.HealthEvent
	Venue() models.Venue
	Product() models.Product
}

// TradeAcceptor admits normalized trades into the aggregator.
type TradeAcceptor interface {
	Accept(t models.Trade) bool
}

// StatusSink learns venue connectivity.
type StatusSink interface {
	SetStatus(v models.Venue, s models.ConnStatus)
}

// TradeCollector runs every venue stream and fans its trades and health
// events into the aggregator.
type TradeCollector struct {
	streams []TradeStream
	gate    TradeAcceptor
	status  StatusSink
	events  domrepo.TelemetryPublisher
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewTradeCollector(streams []TradeStream, gate TradeAcceptor, status StatusSink, events domrepo.TelemetryPublisher, metrics domrepo.Metrics, l *applogger.Logger) *TradeCollector {
	return &TradeCollector{streams: streams, gate: gate, status: status, events: events, metrics: metrics, l: l}
}

// Run blocks until ctx is cancelled and every stream has stopped. A stream
// that gives up does not stop the others.
func (c *TradeCollector) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, s := range c.streams {
		wg.Add(3)
		go func(s TradeStream) {
			defer wg.Done()
			if err := s.Run(ctx); err != nil {
				c.l.Error("stream stopped",
					applogger.String("venue", string(s.Venue())),
					applogger.String("product", string(s.Product())),
					applogger.Error(err))
				c.metrics.RecordError("stream_terminal")
			}
		}(s)
		go func(s TradeStream) {
			defer wg.Done()
			for t := range s.Trades() {
				c.gate.Accept(t)
			}
		}(s)
		go func(s TradeStream) {
			defer wg.Done()
			for e := range s.Events() {
				c.onEvent(ctx, e)
			}
		}(s)
	}
	wg.Wait()
	return nil
}

func (c *TradeCollector) onEvent(ctx context.Context, e exchange.HealthEvent) {
	c.status.SetStatus(e.Venue, e.To.Status())
	c.l.Info("stream state",
		applogger.String("venue", string(e.Venue)),
		applogger.String("from", e.From.String()),
		applogger.String("to", e.To.String()),
		applogger.String("reason", e.Reason))
	if !e.Terminal || c.events == nil {
		return
	}
	ev := models.TelemetryEvent{
		Type: models.EventRiskWarning,
		Payload: map[string]any{
			"kind":    "venue_lost",
			"venue":   string(e.Venue),
			"product": string(e.Product),
			"reason":  e.Reason,
		},
		Timestamp: e.Timestamp,
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := c.events.PublishEvent(pctx, ev); err != nil && !errors.Is(err, context.Canceled) {
		c.l.Warn("publish risk warning failed", applogger.Error(err))
	}
}

package middleware

import (
	"fmt"
	"time"

	"FlowHunter/internal/domain/models"
	domrepo "FlowHunter/internal/domain/repository"
)

// TradeGate sits between the venue streams and the aggregator.
// It validates and optionally transforms trades before handing them to the
// sink. Valid trades are never throttled here; the aggregator's bounded
// queue is the only overload policy.
type TradeGate struct {
	sink      domrepo.TradeSink
	metrics   domrepo.Metrics
	maxAge    time.Duration
	now       func() time.Time
	transform func(models.Trade) models.Trade
}

type GateOption func(*TradeGate)

// WithMaxAge rejects trades whose exchange timestamp is older than d.
func WithMaxAge(d time.Duration) GateOption {
	return func(g *TradeGate) { g.maxAge = d }
}

// WithTransform sets a hook applied to each valid trade.
func WithTransform(fn func(models.Trade) models.Trade) GateOption {
	return func(g *TradeGate) { g.transform = fn }
}

// WithNow replaces the wall clock used for the age check.
func WithNow(fn func() time.Time) GateOption {
	return func(g *TradeGate) { g.now = fn }
}

// NewTradeGate creates a gate feeding sink.
func NewTradeGate(sink domrepo.TradeSink, metrics domrepo.Metrics, opts ...GateOption) *TradeGate {
	g := &TradeGate{
		sink:    sink,
		metrics: metrics,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Accept forwards t when it is valid and fresh. It reports whether the
// trade reached the sink.
func (g *TradeGate) Accept(t models.Trade) bool {
	if err := validateTrade(t); err != nil {
		g.metrics.RecordError("gate_invalid")
		return false
	}
	if g.maxAge > 0 && g.now().Sub(t.Timestamp) > g.maxAge {
		g.metrics.RecordError("gate_stale")
		return false
	}
	if g.transform != nil {
		t = g.transform(t)
		if err := validateTrade(t); err != nil {
			g.metrics.RecordError("gate_transform_invalid")
			return false
		}
	}
	g.sink.Ingest(t)
	return true
}

func validateTrade(t models.Trade) error {
	if t.Symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	if t.Venue == "" {
		return fmt.Errorf("venue empty")
	}
	if t.Timestamp.IsZero() {
		return fmt.Errorf("timestamp invalid")
	}
	if t.Price <= 0 || t.Quantity <= 0 {
		return fmt.Errorf("non-positive price/quantity")
	}
	if t.Side != models.SideBuy && t.Side != models.SideSell {
		return fmt.Errorf("side unknown")
	}
	return nil
}

package middleware

import (
	"strings"
	"testing"
	"time"

	"FlowHunter/internal/domain/models"
	"FlowHunter/pkg/metrics"

	"github.com/stretchr/testify/assert"
)

type sinkStub struct{ got []models.Trade }

func (s *sinkStub) Ingest(t models.Trade) { s.got = append(s.got, t) }

type errCounter struct {
	metrics.Nop
	kinds []string
}

func (e *errCounter) RecordError(kind string) { e.kinds = append(e.kinds, kind) }

var now = time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)

func good() models.Trade {
	return models.Trade{
		Venue: models.VenueBybit, Symbol: "BTCUSDT", Price: 100, Quantity: 1,
		Side: models.SideSell, Timestamp: now,
	}
}

func TestTradeGateValidation(t *testing.T) {
	sink := &sinkStub{}
	m := &errCounter{}
	g := NewTradeGate(sink, m, WithNow(func() time.Time { return now }))

	bad := []func(*models.Trade){
		func(t *models.Trade) { t.Symbol = "" },
		func(t *models.Trade) { t.Venue = "" },
		func(t *models.Trade) { t.Price = 0 },
		func(t *models.Trade) { t.Quantity = -1 },
		func(t *models.Trade) { t.Side = 0 },
		func(t *models.Trade) { t.Timestamp = time.Time{} },
	}
	for _, mutate := range bad {
		tr := good()
		mutate(&tr)
		assert.False(t, g.Accept(tr))
	}
	assert.True(t, g.Accept(good()))
	assert.Len(t, sink.got, 1)
	assert.Len(t, m.kinds, len(bad))
}

func TestTradeGateRejectsStale(t *testing.T) {
	sink := &sinkStub{}
	m := &errCounter{}
	g := NewTradeGate(sink, m, WithMaxAge(time.Minute), WithNow(func() time.Time { return now.Add(2 * time.Minute) }))
	assert.False(t, g.Accept(good()))
	assert.Equal(t, []string{"gate_stale"}, m.kinds)
}

func TestTradeGatePassesWholeBurst(t *testing.T) {
	sink := &sinkStub{}
	m := &errCounter{}
	g := NewTradeGate(sink, m, WithMaxAge(time.Minute), WithNow(func() time.Time { return now }))

	const n = 3000
	var sent float64
	for i := 0; i < n; i++ {
		tr := good()
		tr.Side = models.SideBuy
		sent += tr.Price * tr.Quantity
		assert.True(t, g.Accept(tr))
	}

	var got float64
	for _, tr := range sink.got {
		got += tr.Price * tr.Quantity
	}
	assert.Len(t, sink.got, n)
	assert.Equal(t, sent, got, "burst volume reaches the aggregator intact")
	assert.Empty(t, m.kinds)
}

func TestTradeGateTransform(t *testing.T) {
	sink := &sinkStub{}
	g := NewTradeGate(sink, &errCounter{}, WithNow(func() time.Time { return now }),
		WithTransform(func(t models.Trade) models.Trade {
			t.Symbol = strings.ToLower(t.Symbol)
			return t
		}))
	assert.True(t, g.Accept(good()))
	assert.Equal(t, "btcusdt", sink.got[0].Symbol)
}

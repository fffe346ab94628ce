package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordTrade("binance", "BTCUSDT")
	r.RecordTrade("binance", "BTCUSDT")
	r.RecordSignal("BTCUSDT", "LONG", true)
	r.RecordStreamHealth("okx", "perp", 2, 35, 120, 60, 0)
	r.RecordLastPrice("BTCUSDT", 65000)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.tradesTotal.WithLabelValues("binance", "BTCUSDT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.signalsTotal.WithLabelValues("BTCUSDT", "LONG", "true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.streamState.WithLabelValues("okx", "perp")))
	assert.Equal(t, 65000.0, testutil.ToFloat64(r.lastPrice.WithLabelValues("BTCUSDT")))
}

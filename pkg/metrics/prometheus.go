package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	tradesTotal   *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	signalsTotal  *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
	streamState   *prometheus.GaugeVec
	streamLatency *prometheus.GaugeVec
	streamRate    *prometheus.GaugeVec
	streamUptime  *prometheus.GaugeVec
	reconnects    *prometheus.GaugeVec
}

// New registers the recorder's collectors on reg. A nil reg means the
// default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	stream := []string{"venue", "product"}
	return &Recorder{
		tradesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hunter_trades_total",
			Help: "Normalized trades received per venue and symbol",
		}, []string{"venue", "symbol"}),
		errorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hunter_errors_total",
			Help: "Errors by kind",
		}, []string{"type"}),
		signalsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hunter_signal_decisions_total",
			Help: "Pipeline decisions by outcome",
		}, []string{"symbol", "direction", "emitted"}),
		lastPrice: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hunter_last_price",
			Help: "Last traded price for a symbol",
		}, []string{"symbol"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hunter_operation_duration_seconds",
			Help:    "Duration of operations in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		streamState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hunter_stream_state",
			Help: "Connection state: 0 disconnected, 1 connecting, 2 connected, 3 degraded, 4 reconnecting",
		}, stream),
		streamLatency: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hunter_stream_latency_ms",
			Help: "Ping round trip in milliseconds",
		}, stream),
		streamRate: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hunter_stream_messages_per_second",
			Help: "Inbound message rate",
		}, stream),
		streamUptime: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hunter_stream_uptime_seconds",
			Help: "Seconds since the current connection was established",
		}, stream),
		reconnects: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hunter_stream_reconnect_attempts",
			Help: "Consecutive reconnect attempts",
		}, stream),
	}
}

func (r *Recorder) RecordTrade(venue, symbol string) {
	r.tradesTotal.WithLabelValues(venue, symbol).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordStreamHealth(venue, product string, state int, latencyMs, msgsPerSec, uptimeSec float64, reconnects int) {
	r.streamState.WithLabelValues(venue, product).Set(float64(state))
	r.streamLatency.WithLabelValues(venue, product).Set(latencyMs)
	r.streamRate.WithLabelValues(venue, product).Set(msgsPerSec)
	r.streamUptime.WithLabelValues(venue, product).Set(uptimeSec)
	r.reconnects.WithLabelValues(venue, product).Set(float64(reconnects))
}

func (r *Recorder) RecordSignal(symbol, direction string, emitted bool) {
	r.signalsTotal.WithLabelValues(symbol, direction, strconv.FormatBool(emitted)).Inc()
}

func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordTrade(string, string)                                             {}
func (Nop) RecordError(string)                                                     {}
func (Nop) RecordLatency(string, float64)                                          {}
func (Nop) RecordStreamHealth(string, string, int, float64, float64, float64, int) {}
func (Nop) RecordSignal(string, string, bool)                                      {}
func (Nop) RecordLastPrice(string, float64)                                        {}

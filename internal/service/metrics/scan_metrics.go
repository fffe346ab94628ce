package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ScanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "hunter",
		Subsystem: "hologram",
		Name:      "scan_duration_seconds",
		Help:      "Duration of a full hologram scan",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	ScanErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hunter",
		Subsystem: "hologram",
		Name:      "scan_errors_total",
		Help:      "Symbols skipped during a scan, by reason",
	}, []string{"reason"})

	WatchlistSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "hunter",
		Subsystem: "hologram",
		Name:      "watchlist_size",
		Help:      "Symbols on the current watchlist",
	})

	AlignmentScore = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "hunter",
		Subsystem: "hologram",
		Name:      "alignment_score",
		Help:      "Latest alignment score per symbol",
	}, []string{"symbol"})

	ManipulationConfidence = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "hunter",
		Subsystem: "cvd",
		Name:      "manipulation_confidence",
		Help:      "Manipulation confidence of the pipeline window per symbol",
	}, []string{"symbol"})
)

// Register adds the scan collectors to reg once per process. A nil reg
// means the default registry.
func Register(reg prometheus.Registerer) {
	once.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		reg.MustRegister(ScanDuration, ScanErrors, WatchlistSize, AlignmentScore, ManipulationConfidence)
	})
}

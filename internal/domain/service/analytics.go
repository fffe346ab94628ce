package service

import (
	"time"

	"FlowHunter/internal/domain/models"
)

// FlowAnalyzer inspects per-venue flows for manipulation artifacts. series
// names the symbol/window stream so repeated offenders can be tracked; window
// and at place the evaluation in wall-clock periods of that window's length.
type FlowAnalyzer interface {
	Analyze(series string, window time.Duration, at time.Time, flows []models.ExchangeFlow) models.ManipulationAnalysis
}

// FlowSource exposes the latest published CVD snapshots.
type FlowSource interface {
	Snapshot(symbol string, window time.Duration) (*models.CVDSnapshot, bool)
	LastPrice(symbol string) (float64, bool)
}

// HologramSource exposes the latest scan results.
type HologramSource interface {
	State(symbol string) (*models.HologramState, bool)
	Watchlist() []models.HologramState
}

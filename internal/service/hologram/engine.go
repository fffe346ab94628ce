package hologram

import (
	"sync"
	"time"

	"FlowHunter/internal/domain/models"
	"FlowHunter/internal/service/structure"
	"FlowHunter/pkg/config"
)

// Engine fuses daily, 4h and 15m structure into one HologramState.
type Engine struct {
	mu  sync.RWMutex
	cfg config.HologramConfig
	sc  config.StructureConfig
}

func NewEngine(cfg config.HologramConfig, sc config.StructureConfig) *Engine {
	return &Engine{cfg: cfg, sc: sc}
}

// SetConfig swaps thresholds for the next Compute.
func (e *Engine) SetConfig(cfg config.HologramConfig, sc config.StructureConfig) {
	e.mu.Lock()
	e.cfg, e.sc = cfg, sc
	e.mu.Unlock()
}

// Compute analyzes each timeframe and derives score, veto and status.
func (e *Engine) Compute(symbol string, daily, h4, m15 []models.Candle, rs float64, now time.Time) models.HologramState {
	e.mu.RLock()
	cfg, sc := e.cfg, e.sc
	e.mu.RUnlock()

	st := models.HologramState{
		Symbol:    symbol,
		Daily:     structure.Analyze(models.TF1d, daily, sc),
		H4:        structure.Analyze(models.TF4h, h4, sc),
		M15:       structure.Analyze(models.TF15m, m15, sc),
		RS:        rs,
		Timestamp: now,
	}
	st.Score = Score(st.Daily, st.H4, st.M15, sc.FreshShiftBars)
	st.Direction = Bias(st.Daily, st.H4, st.M15)
	st.Veto = Veto(st.Daily, st.H4)
	st.Status = StatusFor(st.Score, st.Veto.Vetoed, cfg.APlusAt, cfg.BAt)
	return st
}

// Score awards 50 for agreeing non-range higher timeframes, 30 for agreeing
// non-range lower timeframes and 20 for a fresh 15m shift.
func Score(daily, h4, m15 models.TimeframeState, freshBars int) int {
	s := 0
	if daily.Trend == h4.Trend && daily.Trend != models.TrendRange {
		s += 50
	}
	if h4.Trend == m15.Trend && h4.Trend != models.TrendRange {
		s += 30
	}
	if structure.FreshShift(m15, freshBars) {
		s += 20
	}
	return min(max(s, 0), 100)
}

// Bias is the direction of the highest timeframe that trends.
func Bias(daily, h4, m15 models.TimeframeState) models.Direction {
	for _, st := range []models.TimeframeState{daily, h4, m15} {
		switch st.Trend {
		case models.TrendBull:
			return models.DirectionLong
		case models.TrendBear:
			return models.DirectionShort
		}
	}
	return models.DirectionNone
}

// Veto blocks longs into a bullish daily's 4h premium and shorts into a
// bearish daily's 4h discount.
func Veto(daily, h4 models.TimeframeState) models.VetoResult {
	switch {
	case daily.Trend == models.TrendBull && h4.Location == models.LocationPremium:
		return models.VetoResult{Vetoed: true, Direction: models.DirectionLong, Reason: "daily bull with 4h in premium"}
	case daily.Trend == models.TrendBear && h4.Location == models.LocationDiscount:
		return models.VetoResult{Vetoed: true, Direction: models.DirectionShort, Reason: "daily bear with 4h in discount"}
	}
	return models.VetoResult{}
}

// StatusFor maps score and veto to a status. A veto always wins.
func StatusFor(score int, vetoed bool, aPlusAt, bAt int) models.Status {
	switch {
	case vetoed:
		return models.StatusVeto
	case score >= aPlusAt:
		return models.StatusAPlus
	case score >= bAt:
		return models.StatusB
	}
	return models.StatusConflict
}

package structure

import (
	"fmt"

	"FlowHunter/internal/domain/models"
	"FlowHunter/pkg/config"
)

// Analyze derives the full TimeframeState of one candle series. Short or
// one-sided series are reported as insufficient, never as an error.
func Analyze(tf models.Timeframe, candles []models.Candle, cfg config.StructureConfig) models.TimeframeState {
	st := models.TimeframeState{
		Timeframe: tf,
		Trend:     models.TrendRange,
		Location:  models.LocationUnknown,
		Bars:      len(candles),
	}
	if len(candles) == 0 {
		st.Insufficient = true
		st.Reason = "no candles"
		return st
	}
	st.Price = candles[len(candles)-1].Close
	if len(candles) < MinCandles {
		st.Insufficient = true
		st.Reason = fmt.Sprintf("need %d candles, have %d", MinCandles, len(candles))
		return st
	}

	st.Fractals = DetectFractals(candles)
	st.Breaks = DetectBreaks(candles, st.Fractals)
	st.Trend = ClassifyTrend(st.Breaks)
	st.LastShift = LastShift(st.Breaks)
	st.POIs = DetectPOIs(candles, st.Breaks)

	r, ok := ComputeDealingRange(st.Fractals, cfg.EquilibriumBand)
	if !ok {
		st.Insufficient = true
		st.Reason = "missing swing high or swing low"
		return st
	}
	st.Range = r
	st.Location = Locate(r, st.Price)
	return st
}

// FreshShift reports whether the last shift happened within the final n bars.
func FreshShift(st models.TimeframeState, n int) bool {
	if st.LastShift == nil || n <= 0 {
		return false
	}
	return st.LastShift.Index >= st.Bars-n
}

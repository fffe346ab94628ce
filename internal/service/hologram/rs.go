package hologram

import "FlowHunter/internal/domain/models"

// PercentChange returns the close-to-close change over the last lookback
// bars. ok is false when the series is too short or starts at zero.
func PercentChange(candles []models.Candle, lookback int) (float64, bool) {
	if lookback <= 0 || len(candles) <= lookback {
		return 0, false
	}
	from := candles[len(candles)-1-lookback].Close
	if from == 0 {
		return 0, false
	}
	to := candles[len(candles)-1].Close
	return (to - from) / from * 100, true
}

// RelativeStrength is the instrument's percent change minus the reference's.
func RelativeStrength(candles, ref []models.Candle, lookback int) (float64, bool) {
	a, ok := PercentChange(candles, lookback)
	if !ok {
		return 0, false
	}
	b, ok := PercentChange(ref, lookback)
	if !ok {
		return 0, false
	}
	return a - b, true
}

// CheckRS requires longs to outperform and shorts to underperform the
// reference. The reference itself always passes.
func CheckRS(dir models.Direction, rs float64, isReference bool) bool {
	if isReference {
		return true
	}
	switch dir {
	case models.DirectionLong:
		return rs > 0
	case models.DirectionShort:
		return rs < 0
	}
	return false
}

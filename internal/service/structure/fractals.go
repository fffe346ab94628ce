// Package structure derives market structure from ordered candles. Every
// function is pure: identical input yields identical output.
package structure

import "FlowHunter/internal/domain/models"

// MinCandles is the shortest series that can hold a fractal.
const MinCandles = 5

// DetectFractals returns swing highs and lows whose extreme strictly exceeds
// the two bars on each side, in index order.
func DetectFractals(candles []models.Candle) []models.Fractal {
	if len(candles) < MinCandles {
		return nil
	}
	var out []models.Fractal
	for i := 2; i < len(candles)-2; i++ {
		c := candles[i]
		isHigh, isLow := true, true
		for _, j := range [4]int{i - 2, i - 1, i + 1, i + 2} {
			if candles[j].High >= c.High {
				isHigh = false
			}
			if candles[j].Low <= c.Low {
				isLow = false
			}
		}
		if isHigh {
			out = append(out, models.Fractal{Type: models.FractalHigh, Price: c.High, Index: i, Timestamp: c.Timestamp})
		}
		if isLow {
			out = append(out, models.Fractal{Type: models.FractalLow, Price: c.Low, Index: i, Timestamp: c.Timestamp})
		}
	}
	return out
}

// DetectBreaks walks the candles and records a break each time a close
// moves beyond the most recent confirmed fractal. A fractal is confirmed two
// bars after it forms and breaks at most once. A break against the trend
// classified from the breaks before it is a shift; breaks out of a range
// never are.
func DetectBreaks(candles []models.Candle, fractals []models.Fractal) []models.StructureBreak {
	var out []models.StructureBreak
	var high, low *models.Fractal
	brokeHigh, brokeLow := false, false
	next := 0

	for j, c := range candles {
		for next < len(fractals) && fractals[next].Index+2 < j {
			f := fractals[next]
			if f.Type == models.FractalHigh {
				high, brokeHigh = &fractals[next], false
			} else {
				low, brokeLow = &fractals[next], false
			}
			next++
		}

		if high != nil && !brokeHigh && c.Close > high.Price {
			brokeHigh = true
			out = appendBreak(out, models.BreakBullish, c, j, *high)
		}
		if low != nil && !brokeLow && c.Close < low.Price {
			brokeLow = true
			out = appendBreak(out, models.BreakBearish, c, j, *low)
		}
	}
	return out
}

func appendBreak(out []models.StructureBreak, dir models.BreakDirection, c models.Candle, idx int, f models.Fractal) []models.StructureBreak {
	b := models.StructureBreak{
		Direction: dir,
		Price:     c.Close,
		Index:     idx,
		Timestamp: c.Timestamp,
		Fractal:   f,
	}
	switch ClassifyTrend(out) {
	case models.TrendBull:
		b.Shift = dir == models.BreakBearish
	case models.TrendBear:
		b.Shift = dir == models.BreakBullish
	}
	return append(out, b)
}

// ClassifyTrend looks at the last three breaks.
func ClassifyTrend(breaks []models.StructureBreak) models.Trend {
	if len(breaks) < 3 {
		return models.TrendRange
	}
	last := breaks[len(breaks)-3:]
	dir := last[0].Direction
	for _, b := range last[1:] {
		if b.Direction != dir {
			return models.TrendRange
		}
	}
	if dir == models.BreakBullish {
		return models.TrendBull
	}
	return models.TrendBear
}

// LastShift returns the most recent shift, or nil.
func LastShift(breaks []models.StructureBreak) *models.StructureBreak {
	for i := len(breaks) - 1; i >= 0; i-- {
		if breaks[i].Shift {
			b := breaks[i]
			return &b
		}
	}
	return nil
}

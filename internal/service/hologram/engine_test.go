package hologram

import (
	"testing"
	"time"

	"FlowHunter/internal/domain/models"
	"FlowHunter/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tf(trend models.Trend, loc models.Location) models.TimeframeState {
	return models.TimeframeState{Trend: trend, Location: loc, Bars: 100}
}

func withShift(st models.TimeframeState, idx int) models.TimeframeState {
	st.LastShift = &models.StructureBreak{Direction: models.BreakBullish, Index: idx, Shift: true}
	return st
}

func TestScore(t *testing.T) {
	bull := models.TrendBull
	tests := []struct {
		name           string
		daily, h4, m15 models.TimeframeState
		want           int
	}{
		{"all range", tf(models.TrendRange, ""), tf(models.TrendRange, ""), tf(models.TrendRange, ""), 0},
		{"htf agree", tf(bull, ""), tf(bull, ""), tf(models.TrendBear, ""), 50},
		{"htf agree on range does not count", tf(models.TrendRange, ""), tf(models.TrendRange, ""), tf(bull, ""), 0},
		{"full alignment", tf(bull, ""), tf(bull, ""), tf(bull, ""), 80},
		{"alignment plus fresh shift", tf(bull, ""), tf(bull, ""), withShift(tf(bull, ""), 98), 100},
		{"stale shift", tf(bull, ""), tf(bull, ""), withShift(tf(bull, ""), 40), 80},
		{"ltf only", tf(models.TrendBear, ""), tf(bull, ""), tf(bull, ""), 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Score(tt.daily, tt.h4, tt.m15, 5)
			assert.Equal(t, tt.want, s)
			assert.GreaterOrEqual(t, s, 0)
			assert.LessOrEqual(t, s, 100)
		})
	}
}

func TestVetoOverridesScore(t *testing.T) {
	daily := tf(models.TrendBull, models.LocationEquilibrium)
	h4 := tf(models.TrendBull, models.LocationPremium)
	m15 := withShift(tf(models.TrendBull, models.LocationDiscount), 99)

	score := Score(daily, h4, m15, 5)
	require.Equal(t, 100, score)

	v := Veto(daily, h4)
	assert.True(t, v.Vetoed)
	assert.Equal(t, models.DirectionLong, v.Direction)
	assert.Equal(t, models.StatusVeto, StatusFor(score, v.Vetoed, 80, 60))

	short := Veto(tf(models.TrendBear, ""), tf(models.TrendBear, models.LocationDiscount))
	assert.True(t, short.Vetoed)
	assert.Equal(t, models.DirectionShort, short.Direction)

	assert.False(t, Veto(daily, tf(models.TrendBull, models.LocationDiscount)).Vetoed)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, models.StatusAPlus, StatusFor(80, false, 80, 60))
	assert.Equal(t, models.StatusB, StatusFor(79, false, 80, 60))
	assert.Equal(t, models.StatusB, StatusFor(60, false, 80, 60))
	assert.Equal(t, models.StatusConflict, StatusFor(59, false, 80, 60))
	assert.Equal(t, models.StatusVeto, StatusFor(0, true, 80, 60))
}

func TestBias(t *testing.T) {
	assert.Equal(t, models.DirectionShort, Bias(tf(models.TrendBear, ""), tf(models.TrendBull, ""), tf(models.TrendBull, "")))
	assert.Equal(t, models.DirectionLong, Bias(tf(models.TrendRange, ""), tf(models.TrendBull, ""), tf(models.TrendBear, "")))
	assert.Equal(t, models.DirectionNone, Bias(tf(models.TrendRange, ""), tf(models.TrendRange, ""), tf(models.TrendRange, "")))
}

func closes(vals ...float64) []models.Candle {
	out := make([]models.Candle, len(vals))
	for i, v := range vals {
		out[i] = models.Candle{Close: v}
	}
	return out
}

func TestRelativeStrength(t *testing.T) {
	sym := closes(100, 105, 110)
	ref := closes(200, 200, 204)

	rs, ok := RelativeStrength(sym, ref, 2)
	require.True(t, ok)
	assert.InDelta(t, 8.0, rs, 1e-9)

	_, ok = RelativeStrength(sym, ref, 3)
	assert.False(t, ok)

	_, ok = PercentChange(closes(0, 1), 1)
	assert.False(t, ok)
}

func TestCheckRS(t *testing.T) {
	assert.True(t, CheckRS(models.DirectionLong, 1.2, false))
	assert.False(t, CheckRS(models.DirectionLong, -0.1, false))
	assert.True(t, CheckRS(models.DirectionShort, -0.1, false))
	assert.False(t, CheckRS(models.DirectionShort, 0, false))
	assert.True(t, CheckRS(models.DirectionShort, 3, true))
	assert.False(t, CheckRS(models.DirectionNone, 3, false))
}

func TestEngineComputeInsufficientData(t *testing.T) {
	e := NewEngine(config.HologramConfig{APlusAt: 80, BAt: 60}, config.StructureConfig{EquilibriumBand: 0.02, FreshShiftBars: 5})
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	st := e.Compute("ETHUSDT", nil, closes(1, 2), closes(1, 2, 3), 0.5, now)

	assert.Equal(t, "ETHUSDT", st.Symbol)
	assert.True(t, st.Daily.Insufficient)
	assert.Equal(t, 0, st.Score)
	assert.Equal(t, models.StatusConflict, st.Status)
	assert.Equal(t, models.DirectionNone, st.Direction)
	assert.Equal(t, now, st.Timestamp)
	assert.Equal(t, 0.5, st.RS)
}

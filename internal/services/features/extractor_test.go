package features

import (
	"math"
	"testing"

	"FlowHunter/internal/domain/models"

	"github.com/stretchr/testify/assert"
)

func TestComputeLogReturns(t *testing.T) {
	c := []models.Candle{{Close: 100}, {Close: 110}, {Close: 0}, {Close: 99}}
	r := ComputeLogReturns(c)
	assert.Len(t, r, 3)
	assert.InDelta(t, math.Log(1.1), r[0], 1e-12)
	assert.Zero(t, r[1])
	assert.Zero(t, r[2])
	assert.Nil(t, ComputeLogReturns(c[:1]))
}

func TestRealizedVolatility(t *testing.T) {
	assert.Zero(t, RealizedVolatility([]float64{0.01}, 2, 100))
	assert.Zero(t, RealizedVolatility([]float64{0.01, 0.01, 0.01}, 3, 100), "constant returns have no variance")

	// sample variance of {0.01, -0.01} is 0.0002
	assert.InDelta(t, math.Sqrt(0.0002*100), RealizedVolatility([]float64{0.01, -0.01}, 2, 100), 1e-12)
}

func TestBarsPerYear(t *testing.T) {
	assert.Equal(t, 365.0, BarsPerYear(models.TF1d))
	assert.Equal(t, 365.0*96, BarsPerYear(models.TF15m))
	assert.Zero(t, BarsPerYear("7m"))
}

func TestATR(t *testing.T) {
	c := []models.Candle{
		{High: 10, Low: 9, Close: 9.5},
		{High: 11, Low: 10, Close: 10.5}, // gap up: tr = 11 - 9.5
		{High: 10.8, Low: 10.2, Close: 10.4},
	}
	assert.InDelta(t, (1.5+0.6)/2, ATR(c, 2), 1e-12)
	assert.Zero(t, ATR(c, 3))
}

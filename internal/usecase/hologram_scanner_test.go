package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"FlowHunter/internal/domain/models"
	"FlowHunter/internal/service/hologram"
	"FlowHunter/pkg/config"
	"FlowHunter/pkg/logger"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func scannerConfig() (config.HologramConfig, config.StructureConfig) {
	return config.HologramConfig{
			ScanInterval:    5 * time.Minute,
			WatchlistSize:   2,
			Workers:         2,
			ReferenceSymbol: "BTCUSDT",
			RSLookback:      16,
			APlusAt:         80,
			BAt:             60,
			ATRPeriod:       14,
			RiskVolatility:  1000,
		}, config.StructureConfig{
			EquilibriumBand: 0.02,
			FreshShiftBars:  5,
			CandleLimit:     100,
		}
}

func seed(fc *fakeCandles, symbol string, base, drift float64) {
	fc.set(symbol, models.TF1d, zigzag(t0, 24*time.Hour, 60, base, drift*4, base*0.03))
	fc.set(symbol, models.TF4h, zigzag(t0, 4*time.Hour, 60, base, drift*2, base*0.02))
	fc.set(symbol, models.TF15m, zigzag(t0, 15*time.Minute, 60, base, drift, base*0.01))
}

func newTestScanner(fc *fakeCandles, rec *eventRecorder, symbols []string) *HologramScanner {
	hc, sc := scannerConfig()
	clk := clock.NewMock()
	clk.Set(t0.Add(48 * time.Hour))
	return NewHologramScanner(fc, hologram.NewEngine(hc, sc), rec, symbols, hc, sc, logger.NewNop(), WithScannerClock(clk))
}

func TestScanBuildsWatchlist(t *testing.T) {
	fc := newFakeCandles()
	seed(fc, "BTCUSDT", 100, 0.5)
	seed(fc, "ETHUSDT", 50, 0.5)
	seed(fc, "SOLUSDT", 20, -0.05)
	rec := &eventRecorder{}
	s := newTestScanner(fc, rec, []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"})

	ranked := s.Scan(context.Background())
	require.Len(t, ranked, 2, "truncated to watchlist size")
	assert.Equal(t, ranked, s.Watchlist())
	assert.GreaterOrEqual(t, ranked[0].Score, ranked[1].Score)

	for _, sym := range []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"} {
		st, ok := s.State(sym)
		require.True(t, ok, sym)
		assert.Equal(t, sym, st.Symbol)
		assert.Greater(t, st.ATR, 0.0)
		assert.Greater(t, st.Volatility, 0.0)
	}

	btc, _ := s.State("BTCUSDT")
	assert.Zero(t, btc.RS, "reference has no relative strength")

	eth, _ := s.State("ETHUSDT")
	ethM15, _ := fc.GetCandles(context.Background(), "ETHUSDT", models.TF15m, 100)
	btcM15, _ := fc.GetCandles(context.Background(), "BTCUSDT", models.TF15m, 100)
	want, ok := hologram.RelativeStrength(ethM15, btcM15, 16)
	require.True(t, ok)
	assert.InDelta(t, want, eth.RS, 1e-9)
	assert.Greater(t, eth.RS, 0.0, "ETH drifts faster in relative terms")

	done := rec.ofType(models.EventScanComplete)
	require.Len(t, done, 1)
	assert.Equal(t, 3, done[0].Payload["scanned"])
	assert.False(t, s.LastScan().IsZero())
}

func TestScanSkipsFailedSymbols(t *testing.T) {
	fc := newFakeCandles()
	seed(fc, "BTCUSDT", 100, 0.5)
	seed(fc, "ETHUSDT", 50, 0.5)
	fc.fail["ETHUSDT"] = errors.New("timeout")
	s := newTestScanner(fc, &eventRecorder{}, []string{"ETHUSDT"})

	assert.Empty(t, s.Scan(context.Background()))
	_, ok := s.State("ETHUSDT")
	assert.False(t, ok)
	_, ok = s.State("BTCUSDT")
	assert.False(t, ok, "the reference is fetched but not listed")
}

func TestScanDropsStateOfSymbolThatStartsFailing(t *testing.T) {
	fc := newFakeCandles()
	seed(fc, "BTCUSDT", 100, 0.5)
	seed(fc, "ETHUSDT", 50, 0.5)
	s := newTestScanner(fc, &eventRecorder{}, []string{"BTCUSDT", "ETHUSDT"})

	s.Scan(context.Background())
	_, ok := s.State("ETHUSDT")
	require.True(t, ok)

	fc.mu.Lock()
	fc.fail["ETHUSDT"] = errors.New("timeout")
	fc.mu.Unlock()
	ranked := s.Scan(context.Background())

	_, ok = s.State("ETHUSDT")
	assert.False(t, ok, "no stale state after a failed fetch")
	_, ok = s.State("BTCUSDT")
	assert.True(t, ok)
	for _, st := range ranked {
		assert.NotEqual(t, "ETHUSDT", st.Symbol)
	}
}

func TestScanInsufficientDataStillReported(t *testing.T) {
	fc := newFakeCandles()
	seed(fc, "BTCUSDT", 100, 0.5)
	fc.set("BTCUSDT", models.TF1d, zigzag(t0, 24*time.Hour, 3, 100, 1, 3))
	s := newTestScanner(fc, &eventRecorder{}, []string{"BTCUSDT"})

	s.Scan(context.Background())
	st, ok := s.State("BTCUSDT")
	require.True(t, ok)
	assert.True(t, st.Daily.Insufficient)
	assert.Equal(t, models.LocationUnknown, st.Daily.Location)
}

func TestScanRiskWarning(t *testing.T) {
	fc := newFakeCandles()
	seed(fc, "BTCUSDT", 100, 0.5)
	rec := &eventRecorder{}
	s := newTestScanner(fc, rec, []string{"BTCUSDT"})
	hc, sc := scannerConfig()
	hc.RiskVolatility = 0.0001
	s.SetConfig([]string{"BTCUSDT"}, hc, sc)

	s.Scan(context.Background())
	warn := rec.ofType(models.EventRiskWarning)
	require.Len(t, warn, 1)
	assert.Equal(t, "BTCUSDT", warn[0].Symbol)
	assert.Equal(t, "volatility", warn[0].Payload["kind"])
}

func TestRank(t *testing.T) {
	states := []models.HologramState{
		{Symbol: "A", Score: 50, Status: models.StatusConflict},
		{Symbol: "B", Score: 100, Status: models.StatusVeto},
		{Symbol: "C", Score: 80, Status: models.StatusAPlus, RS: 1},
		{Symbol: "D", Score: 80, Status: models.StatusAPlus, RS: -3},
	}
	got := Rank(states, 0)
	syms := make([]string, len(got))
	for i, s := range got {
		syms[i] = s.Symbol
	}
	assert.Equal(t, []string{"D", "C", "A", "B"}, syms)
	assert.Len(t, Rank(states, 2), 2)
	assert.Equal(t, "A", states[0].Symbol, "input is not reordered")
}

func TestScannerRunScansImmediately(t *testing.T) {
	fc := newFakeCandles()
	seed(fc, "BTCUSDT", 100, 0.5)
	s := newTestScanner(fc, &eventRecorder{}, []string{"BTCUSDT"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool { return len(s.Watchlist()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

package manipulation

import (
	"testing"
	"time"

	"FlowHunter/internal/domain/models"
	"FlowHunter/pkg/config"
	"FlowHunter/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func defaultConfig() config.ManipulationConfig {
	return config.ManipulationConfig{
		DivergenceThreshold: 50,
		LagRatio:            0.3,
		OutlierSigma:        2.5,
		VolumeSpikeMultiple: 3,
		SustainedWindows:    10,
		SustainedRatio:      0.7,
		VetoAt:              70,
		CautionAt:           40,
	}
}

func connected(v models.Venue, cvd, vol float64) models.ExchangeFlow {
	return models.ExchangeFlow{Venue: v, CVD: cvd, Volume: vol, Status: models.StatusConnected}
}

func outlierScenario() []models.ExchangeFlow {
	return []models.ExchangeFlow{
		connected(models.VenueBinance, 100_000, 1_000_000),
		connected(models.VenueBybit, 120_000, 1_000_000),
		connected(models.VenueOKX, -10_000, 1_000_000),
	}
}

func TestAnalyzeFlagsSingleVenueOutlier(t *testing.T) {
	d := NewDetector(defaultConfig(), logger.NewNop())
	res := d.Analyze("BTCUSDT/5m", 5*time.Minute, t0, outlierScenario())

	require.NotEmpty(t, res.Outliers)
	assert.Equal(t, models.VenueOKX, res.Outliers[0].Venue)
	assert.Equal(t, "cvd", res.Outliers[0].Metric)
	assert.Equal(t, models.PatternSingleOutlier, res.Pattern)
	assert.Equal(t, models.VenueOKX, res.SuspectVenue)
	assert.True(t, res.Detected)
	assert.Contains(t, []models.Recommendation{models.RecommendCaution, models.RecommendVeto}, res.Recommendation)
	assert.GreaterOrEqual(t, res.Confidence, 40.0)
	assert.NotEmpty(t, res.Reasoning)
}

func TestAnalyzeIgnoresDisconnectedVenues(t *testing.T) {
	d := NewDetector(defaultConfig(), logger.NewNop())
	flows := outlierScenario()
	flows[2].Status = models.StatusDisconnected

	res := d.Analyze("BTCUSDT/5m", 5*time.Minute, t0, flows)
	assert.Empty(t, res.Outliers)
	assert.Equal(t, models.PatternNone, res.Pattern)
	assert.Equal(t, models.RecommendProceed, res.Recommendation)
	assert.False(t, res.Detected)
}

func TestAnalyzeHealthyMarket(t *testing.T) {
	d := NewDetector(defaultConfig(), logger.NewNop())
	res := d.Analyze("ETHUSDT/5m", 5*time.Minute, t0, []models.ExchangeFlow{
		connected(models.VenueBinance, 50_000, 900_000),
		connected(models.VenueBybit, 49_000, 800_000),
		connected(models.VenueOKX, 51_000, 850_000),
		connected(models.VenueCoinbase, 50_000, 820_000),
	})
	assert.Equal(t, models.PatternNone, res.Pattern)
	assert.Equal(t, models.RecommendProceed, res.Recommendation)
	assert.False(t, res.Divergence.HasDivergence)
}

func TestVolumeSpikePattern(t *testing.T) {
	d := NewDetector(defaultConfig(), logger.NewNop())
	res := d.Analyze("SOLUSDT/5m", 5*time.Minute, t0, []models.ExchangeFlow{
		connected(models.VenueBinance, 10_000, 4_000_000),
		connected(models.VenueBybit, 9_000, 1_000_000),
	})
	assert.True(t, res.VolumeSpike)
	assert.Equal(t, models.PatternVolumeSpike, res.Pattern)
	assert.Equal(t, models.VenueBinance, res.SuspectVenue)
}

func TestDivergence(t *testing.T) {
	t.Run("lagging by sign and magnitude", func(t *testing.T) {
		div := Divergence([]models.ExchangeFlow{
			connected(models.VenueBinance, 1000, 100),
			connected(models.VenueBybit, -200, 100),
			connected(models.VenueOKX, 100, 100),
			connected(models.VenueCoinbase, 900, 100),
		}, 0.3, 50)
		assert.Equal(t, models.VenueBinance, div.Leader)
		assert.ElementsMatch(t, []models.Venue{models.VenueBybit, models.VenueOKX}, div.Lagging)
		assert.InDelta(t, 0, div.VolDivergence, 1e-9)
	})

	t.Run("opposite venues diverge fully", func(t *testing.T) {
		div := Divergence([]models.ExchangeFlow{
			connected(models.VenueBinance, 1000, 100),
			connected(models.VenueBybit, -1000, 100),
		}, 0.3, 50)
		assert.InDelta(t, 100, div.CVDDivergence, 1e-9)
		assert.InDelta(t, 60, div.Score, 1e-9)
		assert.True(t, div.HasDivergence)
	})

	t.Run("single venue", func(t *testing.T) {
		div := Divergence([]models.ExchangeFlow{connected(models.VenueBinance, 1000, 100)}, 0.3, 50)
		assert.Zero(t, div.Score)
		assert.Empty(t, div.Leader)
	})
}

func TestOutliersNeedThreeVenues(t *testing.T) {
	assert.Nil(t, Outliers([]models.ExchangeFlow{
		connected(models.VenueBinance, 1000, 100),
		connected(models.VenueBybit, -1000, 100),
	}, 2.5))
}

func TestSustainedPattern(t *testing.T) {
	cfg := defaultConfig()
	cfg.SustainedWindows = 5
	cfg.SustainedRatio = 0.6
	d := NewDetector(cfg, logger.NewNop())

	flows := outlierScenario()
	for i := 0; i < 2; i++ {
		res := d.Analyze("BTCUSDT/1m", time.Minute, t0.Add(time.Duration(i)*time.Minute), flows)
		assert.Equal(t, models.PatternSingleOutlier, res.Pattern)
	}
	res := d.Analyze("BTCUSDT/1m", time.Minute, t0.Add(2*time.Minute), flows)
	assert.True(t, res.Sustained)
	assert.Equal(t, models.PatternSustained, res.Pattern)
	assert.Equal(t, models.VenueOKX, res.SuspectVenue)

	other := d.Analyze("BTCUSDT/5m", 5*time.Minute, t0.Add(2*time.Minute), flows)
	assert.False(t, other.Sustained, "series are tracked independently")
}

func TestSustainedCountsEachPeriodOnce(t *testing.T) {
	d := NewDetector(defaultConfig(), logger.NewNop())

	flows := outlierScenario()
	for i := 0; i < 60; i++ {
		res := d.Analyze("BTCUSDT/1m", time.Minute, t0.Add(time.Duration(i)*time.Second), flows)
		require.False(t, res.Sustained, "tick %d", i)
		assert.Equal(t, models.PatternSingleOutlier, res.Pattern)
	}
}

func TestSustainedSkippedPeriodsAreClean(t *testing.T) {
	cfg := defaultConfig()
	cfg.SustainedWindows = 4
	cfg.SustainedRatio = 0.5
	d := NewDetector(cfg, logger.NewNop())

	flows := outlierScenario()
	d.Analyze("BTCUSDT/1m", time.Minute, t0, flows)
	res := d.Analyze("BTCUSDT/1m", time.Minute, t0.Add(10*time.Minute), flows)
	assert.False(t, res.Sustained)

	res = d.Analyze("BTCUSDT/1m", time.Minute, t0.Add(11*time.Minute), flows)
	assert.True(t, res.Sustained)
}

type alwaysCoordinated struct{}

func (alwaysCoordinated) Detect(string, []models.ExchangeFlow) (bool, string) {
	return true, "binance and bybit moved together"
}

func TestCoordinationExtensionPoint(t *testing.T) {
	d := NewDetector(defaultConfig(), logger.NewNop(), WithCoordinationDetector(alwaysCoordinated{}))
	res := d.Analyze("BTCUSDT/5m", 5*time.Minute, t0, outlierScenario())
	assert.Equal(t, models.PatternCoordinated, res.Pattern)
	assert.Contains(t, res.Reasoning, "binance and bybit moved together")
}

func TestTrackerWindow(t *testing.T) {
	tr := newTracker(3)
	at := func(i int) time.Time { return t0.Add(time.Duration(i) * time.Minute) }
	tr.record("s", time.Minute, at(0), models.VenueOKX)
	tr.record("s", time.Minute, at(1), models.VenueOKX)
	tr.record("s", time.Minute, at(2), "")
	tr.record("s", time.Minute, at(3), "")
	_, ok := tr.sustained("s", 0.6)
	assert.False(t, ok, "older flags roll out of the window")
}

func TestTrackerSamePeriodReplaces(t *testing.T) {
	tr := newTracker(3)
	tr.record("s", time.Minute, t0, models.VenueOKX)
	tr.record("s", time.Minute, t0.Add(10*time.Second), models.VenueOKX)
	tr.record("s", time.Minute, t0.Add(50*time.Second), "")
	assert.Len(t, tr.history["s"], 1)
	_, ok := tr.sustained("s", 0.3)
	assert.False(t, ok, "last evaluation of the period wins")
}

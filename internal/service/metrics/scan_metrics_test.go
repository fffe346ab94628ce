package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	assert.NotPanics(t, func() {
		Register(reg)
		Register(reg)
	})

	WatchlistSize.Set(7)
	AlignmentScore.WithLabelValues("BTCUSDT").Set(80)
	assert.Equal(t, 7.0, testutil.ToFloat64(WatchlistSize))
	assert.Equal(t, 80.0, testutil.ToFloat64(AlignmentScore.WithLabelValues("BTCUSDT")))

	n, err := testutil.GatherAndCount(reg, "hunter_hologram_watchlist_size")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowPerKey(t *testing.T) {
	l := New(0.001, 2)
	assert.True(t, l.Allow("BTCUSDT"))
	assert.True(t, l.Allow("BTCUSDT"))
	assert.False(t, l.Allow("BTCUSDT"))
	assert.True(t, l.Allow("ETHUSDT"), "keys have separate buckets")
}

func TestDisabled(t *testing.T) {
	l := New(0, 0)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("x"))
	}
	assert.NoError(t, l.Wait(context.Background(), "x"))
}

func TestWaitHonoursContext(t *testing.T) {
	l := New(0.001, 1)
	assert.NoError(t, l.Wait(context.Background(), "api.binance.com"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx, "api.binance.com"))
}

func TestSetRate(t *testing.T) {
	l := New(0.001, 1)
	assert.True(t, l.Allow("k"))
	assert.False(t, l.Allow("k"))
	l.SetRate(1000, 10)
	assert.Eventually(t, func() bool { return l.Allow("k") }, time.Second, time.Millisecond)
}

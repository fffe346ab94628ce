package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"FlowHunter/internal/domain/models"
	domrepo "FlowHunter/internal/domain/repository"
	"FlowHunter/pkg/breaker"
	"FlowHunter/pkg/cache"
	applogger "FlowHunter/pkg/logger"
)

// MarketData reads candles through a TTL cache. Provider calls go through
// a circuit breaker so a failing upstream is not hammered by every scan.
type MarketData struct {
	provider domrepo.CandleProvider
	cache    cache.Service
	cb       *breaker.Breaker
	ttl      time.Duration
	l        *applogger.Logger
}

func NewMarketData(provider domrepo.CandleProvider, c cache.Service, cb *breaker.Breaker, ttl time.Duration, l *applogger.Logger) *MarketData {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &MarketData{provider: provider, cache: c, cb: cb, ttl: ttl, l: l}
}

// GetCandles implements repository.CandleProvider.
func (m *MarketData) GetCandles(ctx context.Context, symbol string, tf models.Timeframe, limit int) ([]models.Candle, error) {
	key := cache.Key("candles", symbol, string(tf), strconv.Itoa(limit))

	var cached []models.Candle
	err := m.cache.Get(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		m.l.Warn("candle cache read failed", applogger.String("key", key), applogger.Error(err))
	}

	candles, err := breaker.Do(m.cb, func() ([]models.Candle, error) {
		return m.provider.GetCandles(ctx, symbol, tf, limit)
	})
	if err != nil {
		return nil, fmt.Errorf("candles %s %s: %w", symbol, tf, err)
	}
	if len(candles) > 0 {
		if err := m.cache.Set(ctx, key, candles, m.ttl); err != nil {
			m.l.Warn("candle cache write failed", applogger.String("key", key), applogger.Error(err))
		}
	}
	return candles, nil
}

var _ domrepo.CandleProvider = (*MarketData)(nil)

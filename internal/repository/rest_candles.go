package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"FlowHunter/internal/domain/models"
	"FlowHunter/internal/service/ratelimit"
	xhttp "FlowHunter/pkg/http"
	applogger "FlowHunter/pkg/logger"

	"github.com/shopspring/decimal"
)

// RESTCandleProvider fetches klines from the Binance public REST API.
type RESTCandleProvider struct {
	client  *xhttp.Client
	baseURL string
	limiter *ratelimit.Limiter
	now     func() time.Time
	l       *applogger.Logger
}

func NewRESTCandleProvider(client *xhttp.Client, baseURL string, limiter *ratelimit.Limiter, l *applogger.Logger) *RESTCandleProvider {
	return &RESTCandleProvider{client: client, baseURL: baseURL, limiter: limiter, now: time.Now, l: l}
}

// GetCandles returns the latest limit closed bars in ascending time order.
// The bar still forming is dropped.
func (p *RESTCandleProvider) GetCandles(ctx context.Context, symbol string, tf models.Timeframe, limit int) ([]models.Candle, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}
	if err := p.limiter.Wait(ctx, "klines"); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", string(tf))
	q.Set("limit", strconv.Itoa(min(limit+1, 1000)))

	var rows [][]json.RawMessage
	if err := p.client.GetJSON(ctx, p.baseURL+"/api/v3/klines", q, &rows); err != nil {
		return nil, fmt.Errorf("get klines %s %s: %w", symbol, tf, err)
	}

	now := p.now()
	out := make([]models.Candle, 0, len(rows))
	for _, r := range rows {
		c, closeTime, err := parseKline(r)
		if err != nil {
			return nil, fmt.Errorf("parse kline %s: %w", symbol, err)
		}
		if !closeTime.Before(now) {
			continue
		}
		out = append(out, c)
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// parseKline decodes [openTime, open, high, low, close, volume, closeTime, ...].
func parseKline(r []json.RawMessage) (models.Candle, time.Time, error) {
	if len(r) < 7 {
		return models.Candle{}, time.Time{}, fmt.Errorf("kline has %d fields", len(r))
	}
	var openMs, closeMs int64
	if err := json.Unmarshal(r[0], &openMs); err != nil {
		return models.Candle{}, time.Time{}, fmt.Errorf("open time: %w", err)
	}
	if err := json.Unmarshal(r[6], &closeMs); err != nil {
		return models.Candle{}, time.Time{}, fmt.Errorf("close time: %w", err)
	}
	var vals [5]float64
	for i := range vals {
		var s string
		if err := json.Unmarshal(r[i+1], &s); err != nil {
			return models.Candle{}, time.Time{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return models.Candle{}, time.Time{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		vals[i] = d.InexactFloat64()
	}
	return models.Candle{
		Timestamp: time.UnixMilli(openMs).UTC(),
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vals[4],
	}, time.UnixMilli(closeMs).UTC(), nil
}

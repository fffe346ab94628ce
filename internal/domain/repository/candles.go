package repository

import (
	"context"

	"FlowHunter/internal/domain/models"
)

// CandleProvider returns the latest `limit` closed candles in ascending time order.
type CandleProvider interface {
	GetCandles(ctx context.Context, symbol string, tf models.Timeframe, limit int) ([]models.Candle, error)
}

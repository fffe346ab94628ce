package repository

import (
	"context"
	"fmt"
	"time"

	"FlowHunter/internal/domain/models"
	pkgch "FlowHunter/pkg/clickhouse"
	applogger "FlowHunter/pkg/logger"

	"github.com/jmoiron/sqlx"
)

// CandleSchema returns the DDL for the candle table.
func CandleSchema(table string) []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            symbol    LowCardinality(String),
            timeframe LowCardinality(String),
            bucket    DateTime64(3, 'UTC'),
            open      Float64,
            high      Float64,
            low       Float64,
            close     Float64,
            volume    Float64
        ) ENGINE = ReplacingMergeTree
        ORDER BY (symbol, timeframe, bucket)
    `, table)}
}

// CHCandleProvider reads OHLCV bars from ClickHouse.
type CHCandleProvider struct {
	db    *sqlx.DB
	table string
	l     *applogger.Logger
}

func NewCHCandleProvider(ch *pkgch.Client, table string, l *applogger.Logger) *CHCandleProvider {
	if table == "" {
		table = "candles"
	}
	return &CHCandleProvider{db: ch.DB(), table: table, l: l}
}

// GetCandles returns the latest limit bars in ascending time order.
func (s *CHCandleProvider) GetCandles(ctx context.Context, symbol string, tf models.Timeframe, limit int) ([]models.Candle, error) {
	start := time.Now()
	const qtpl = `
        SELECT bucket, open, high, low, close, volume
        FROM %s
        WHERE symbol = ? AND timeframe = ?
        ORDER BY bucket DESC
        LIMIT ?
    `
	var out []models.Candle
	if err := s.db.SelectContext(ctx, &out, fmt.Sprintf(qtpl, s.table), symbol, string(tf), limit); err != nil {
		s.l.Error("clickhouse get_candles query error",
			applogger.String("table", s.table),
			applogger.String("symbol", symbol),
			applogger.String("tf", string(tf)),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("get candles: %w", err)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	s.l.Debug("clickhouse get_candles ok",
		applogger.String("symbol", symbol),
		applogger.String("tf", string(tf)),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

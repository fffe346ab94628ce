package di

import (
	"context"

	"FlowHunter/internal/domain/models"
	"FlowHunter/internal/usecase"
	"FlowHunter/pkg/config"
	"FlowHunter/pkg/logger"
)

// logEvents writes telemetry to the log instead of a bus.
type logEvents struct{ log *logger.Logger }

func (e logEvents) PublishEvent(_ context.Context, ev models.TelemetryEvent) error {
	e.log.Debug("telemetry", logger.String("type", string(ev.Type)), logger.String("symbol", ev.Symbol))
	return nil
}

// NewOneShotScanner builds a scanner backed by the configured candle
// provider and an in-process cache, for single scans outside the app.
func NewOneShotScanner(cfg *config.Config, log *logger.Logger) (*usecase.HologramScanner, func(), error) {
	provider, cleanup, err := ProvideCandleProvider(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	c, cleanupCache := ProvideCache(cfg, nil)
	md := ProvideMarketData(cfg, provider, c, log)
	scanner := ProvideHologramScanner(cfg, md, &Bus{Telemetry: logEvents{log: log}}, log)
	return scanner, func() {
		cleanupCache()
		cleanup()
	}, nil
}

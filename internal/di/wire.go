//go:build wireinject
// +build wireinject

package di

import (
	"FlowHunter/pkg/config"
	"FlowHunter/pkg/logger"
	"FlowHunter/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
func InitializeApp(cfg *config.Config, store *config.Store, log *logger.Logger) (*server.App, func(), error) {
	wire.Build(
		// Infrastructure
		ProvideMetrics,
		ProvideRedisClient,
		ProvideKafkaProducer,
		ProvideBus,
		ProvideCache,
		ProvideCandleProvider,

		// Services
		ProvideMarketData,
		ProvideDetector,
		ProvideAggregator,
		ProvideStreams,
		ProvideTradeGate,
		ProvideHaltSwitch,
		ProvideSessionMonitor,

		// Use cases
		ProvideTradeCollector,
		ProvideHologramScanner,
		ProvideDispatcher,
		ProvideSignalPipeline,
		ProvideHaltConsumer,

		// Transport and app
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}

package di

import (
	"context"
	"time"

	"FlowHunter/internal/service/cvd"
	"FlowHunter/internal/service/exchange"
	"FlowHunter/internal/service/halt"
	"FlowHunter/internal/service/manipulation"
	"FlowHunter/internal/service/session"
	"FlowHunter/internal/usecase"
	"FlowHunter/pkg/config"
	xhttp "FlowHunter/pkg/http"
	pkgkafka "FlowHunter/pkg/kafka"
	"FlowHunter/pkg/logger"
	"FlowHunter/pkg/server"
)

// ProvideApp registers every long-lived component on the app, hooks hot
// reload and attaches the error-log collector.
func ProvideApp(
	cfg *config.Config,
	store *config.Store,
	log *logger.Logger,
	bus *Bus,
	streams []*exchange.StreamClient,
	agg *cvd.Aggregator,
	det *manipulation.Detector,
	collector *usecase.TradeCollector,
	scanner *usecase.HologramScanner,
	sessions *session.Monitor,
	sw *halt.Switch,
	pipeline *usecase.SignalPipeline,
	dispatcher *usecase.SignalDispatcher,
	consumer *pkgkafka.Consumer,
	srv *xhttp.Server,
) *server.App {
	app := server.New(log, cfg.Server.ShutdownTimeout)

	if cfg.Logging.Collect && bus.Logs != nil {
		log.AddCollector(&logger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.Topics.Logs,
			Publisher:      bus.Logs,
		})
	}

	store.OnChange(func(next *config.Config) {
		det.SetConfig(next.Manipulation)
		if err := agg.SetConfig(next.Aggregator); err != nil {
			log.Warn("aggregator config rejected", logger.Error(err))
		}
		scanner.SetConfig(next.Symbols, next.Hologram, next.Structure)
		pipeline.SetConfig(next.Pipeline, next.Hologram.ReferenceSymbol)
		if w, err := session.ParseWindows(next.Sessions); err == nil {
			sessions.SetWindows(w)
		} else {
			log.Warn("session windows rejected", logger.Error(err))
		}
		log.Info("config reloaded")
	})

	app.Go("aggregator", agg.Run)
	app.Go("trade-collector", collector.Run)
	app.Go("sessions", sessions.Run)
	app.Go("hologram-scanner", scanner.Run)
	app.Go("signal-pipeline", pipeline.Run)
	app.Go("http", func(ctx context.Context) error {
		if err := srv.Start(); err != nil {
			return err
		}
		<-ctx.Done()
		return nil
	})
	if consumer != nil {
		app.Go("halt-consumer", func(ctx context.Context) error {
			if err := consumer.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			return nil
		})
		app.OnStop("halt-consumer", consumer.Stop)
	}

	app.OnStop("dispatcher", func(context.Context) error { return dispatcher.Close() })
	app.OnStop("log-collector", func(context.Context) error {
		log.RemoveCollector()
		return nil
	})
	app.OnStop("http", srv.Stop)

	log.Info("flowhunter wired",
		logger.Int("venues", len(streams)),
		logger.Int("symbols", len(cfg.Symbols)),
		logger.String("bus", cfg.Bus.Type),
		logger.Bool("halted", sw.Status().Halted),
	)
	return app
}

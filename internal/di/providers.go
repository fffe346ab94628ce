package di

import (
	"context"
	"fmt"
	"time"

	"FlowHunter/internal/domain/models"
	"FlowHunter/internal/domain/repository"
	"FlowHunter/internal/handler/api"
	mid "FlowHunter/internal/middleware"
	internalrepo "FlowHunter/internal/repository"
	"FlowHunter/internal/service/cvd"
	"FlowHunter/internal/service/exchange"
	"FlowHunter/internal/service/halt"
	"FlowHunter/internal/service/hologram"
	"FlowHunter/internal/service/manipulation"
	scanmetrics "FlowHunter/internal/service/metrics"
	"FlowHunter/internal/service/ratelimit"
	"FlowHunter/internal/service/session"
	"FlowHunter/internal/usecase"
	"FlowHunter/pkg/breaker"
	"FlowHunter/pkg/cache"
	pkgch "FlowHunter/pkg/clickhouse"
	"FlowHunter/pkg/config"
	xhttp "FlowHunter/pkg/http"
	pkgkafka "FlowHunter/pkg/kafka"
	"FlowHunter/pkg/logger"
	"FlowHunter/pkg/metrics"
	"FlowHunter/pkg/queue"

	"github.com/redis/go-redis/v9"
)

// Bus groups the outbound transports chosen by bus.type.
type Bus struct {
	Signals   repository.SignalPublisher
	Telemetry repository.TelemetryPublisher
	Logs      logger.Publisher
}

// ProvideMetrics creates the Prometheus recorder and registers scan metrics.
func ProvideMetrics() repository.Metrics {
	scanmetrics.Register(nil)
	return metrics.New(nil)
}

// ProvideRedisClient dials Redis when enabled. A nil client means Redis is off.
func ProvideRedisClient(cfg *config.Config) (redis.UniversalClient, func(), error) {
	if !cfg.Redis.Enabled {
		return nil, func() {}, nil
	}
	client, _, err := cache.NewRedisClient(
		cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideKafkaProducer creates a Kafka producer when brokers are configured.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideBus picks Kafka or Redis for signals, telemetry and collected logs.
func ProvideBus(cfg *config.Config, producer *pkgkafka.Producer, rdb redis.UniversalClient) (*Bus, error) {
	switch cfg.Bus.Type {
	case "kafka":
		if producer == nil {
			return nil, fmt.Errorf("bus kafka: no brokers configured")
		}
		kp := internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topics.Signals, cfg.Kafka.Topics.Telemetry)
		return &Bus{Signals: kp, Telemetry: kp, Logs: kp}, nil
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("bus redis: redis is disabled")
		}
		q := queue.NewRedisQueue(rdb, queue.WithKeyPrefix(cache.Key(cfg.Redis.Prefix, "queue")))
		return &Bus{
			Signals:   internalrepo.NewRedisSignalPublisher(rdb, cfg.Bus.RedisStream),
			Telemetry: internalrepo.NewQueueTelemetryPublisher(q, cfg.Kafka.Topics.Telemetry),
			Logs:      q,
		}, nil
	}
	return nil, fmt.Errorf("unknown bus type %q", cfg.Bus.Type)
}

// ProvideCache builds the in-process cache, layered over Redis when enabled.
func ProvideCache(cfg *config.Config, rdb redis.UniversalClient) (cache.Service, func()) {
	mem := cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.MarketData.CacheSize))
	if rdb == nil {
		return mem, func() { _ = mem.Close() }
	}
	lc := cache.NewLayeredCache(mem, cache.NewRedisCache(rdb, cfg.Redis.Prefix), time.Minute)
	return lc, func() { _ = mem.Close() }
}

// ProvideCandleProvider returns the configured upstream candle source.
func ProvideCandleProvider(cfg *config.Config, log *logger.Logger) (repository.CandleProvider, func(), error) {
	md := cfg.MarketData
	if md.Provider == "clickhouse" {
		ch := cfg.ClickHouse
		client, err := pkgch.NewClient(
			pkgch.WithAddr(ch.Host, ch.Port),
			pkgch.WithDatabase(ch.Database),
			pkgch.WithCredentials(ch.User, ch.Password),
			pkgch.WithHTTP(ch.UseHTTP),
			pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout, ch.MaxExecutionTime),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("clickhouse client: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.InitSchema(ctx, internalrepo.CandleSchema(ch.CandleTable)); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		return internalrepo.NewCHCandleProvider(client, ch.CandleTable, log), func() { _ = client.Close() }, nil
	}
	client := xhttp.NewClient(xhttp.WithTimeout(md.Timeout))
	limiter := ratelimit.New(md.RatePerSec, md.RateBurst)
	return internalrepo.NewRESTCandleProvider(client, md.RESTBaseURL, limiter, log), func() {}, nil
}

// ProvideMarketData wraps the provider with the candle cache and a breaker.
func ProvideMarketData(cfg *config.Config, provider repository.CandleProvider, c cache.Service, log *logger.Logger) *usecase.MarketData {
	b := cfg.MarketData.Breaker
	cb := breaker.New("candles", breaker.Settings{
		ConsecutiveFailures: b.ConsecutiveFailures,
		FailureRatio:        b.FailureRatio,
		MinRequests:         b.MinRequests,
		Interval:            b.Interval,
		Timeout:             b.Timeout,
	}, log)
	return usecase.NewMarketData(provider, c, cb, cfg.MarketData.CacheTTL, log)
}

func ProvideDetector(cfg *config.Config, log *logger.Logger) *manipulation.Detector {
	return manipulation.NewDetector(cfg.Manipulation, log)
}

func ProvideAggregator(cfg *config.Config, m repository.Metrics, det *manipulation.Detector, log *logger.Logger) (*cvd.Aggregator, error) {
	venues := make([]models.Venue, 0, len(cfg.Venues))
	for _, v := range cfg.Venues {
		venues = append(venues, models.Venue(v.Name))
	}
	return cvd.NewAggregator(cfg.Aggregator, venues, log, cvd.WithMetrics(m), cvd.WithAnalyzer(det))
}

// ProvideStreams builds one client per configured venue.
func ProvideStreams(cfg *config.Config, m repository.Metrics, log *logger.Logger) ([]*exchange.StreamClient, error) {
	out := make([]*exchange.StreamClient, 0, len(cfg.Venues))
	st := cfg.Stream
	for _, v := range cfg.Venues {
		venue, product := models.Venue(v.Name), models.Product(v.Product)
		adapter, err := exchange.AdapterFor(venue, product)
		if err != nil {
			return nil, err
		}
		out = append(out, exchange.NewStreamClient(exchange.Config{
			Venue:                venue,
			Product:              product,
			URL:                  v.URL,
			Symbols:              cfg.Symbols,
			PingInterval:         st.PingInterval,
			MessageTimeout:       st.MessageTimeout,
			MaxReconnectAttempts: st.MaxReconnectAttempts,
			BaseDelay:            st.BaseDelay,
			MaxDelay:             st.MaxDelay,
			Jitter:               st.Jitter,
			BufferSize:           st.BufferSize,
			StaleAfter:           st.StaleAfter,
		}, adapter, log.With(logger.String("venue", v.Name)), exchange.WithMetrics(m)))
	}
	return out, nil
}

func ProvideTradeGate(cfg *config.Config, agg *cvd.Aggregator, m repository.Metrics) *mid.TradeGate {
	maxAge := time.Duration(0)
	for _, w := range cfg.Aggregator.Windows {
		maxAge = max(maxAge, w)
	}
	return mid.NewTradeGate(agg, m, mid.WithMaxAge(maxAge))
}

func ProvideTradeCollector(streams []*exchange.StreamClient, gate *mid.TradeGate, agg *cvd.Aggregator, bus *Bus, m repository.Metrics, log *logger.Logger) *usecase.TradeCollector {
	ts := make([]usecase.TradeStream, 0, len(streams))
	for _, s := range streams {
		ts = append(ts, s)
	}
	return usecase.NewTradeCollector(ts, gate, agg, bus.Telemetry, m, log)
}

func ProvideHologramScanner(cfg *config.Config, md *usecase.MarketData, bus *Bus, log *logger.Logger) *usecase.HologramScanner {
	engine := hologram.NewEngine(cfg.Hologram, cfg.Structure)
	return usecase.NewHologramScanner(md, engine, bus.Telemetry, cfg.Symbols, cfg.Hologram, cfg.Structure, log)
}

func ProvideHaltSwitch(log *logger.Logger) *halt.Switch {
	return halt.NewSwitch(log)
}

func ProvideSessionMonitor(cfg *config.Config, bus *Bus, log *logger.Logger) (*session.Monitor, error) {
	windows, err := session.ParseWindows(cfg.Sessions)
	if err != nil {
		return nil, err
	}
	return session.NewMonitor(windows, bus.Telemetry, log), nil
}

func ProvideDispatcher(cfg *config.Config, bus *Bus, log *logger.Logger) *usecase.SignalDispatcher {
	return usecase.NewSignalDispatcher(bus.Signals, cfg.Kafka.Producer.MaxAttempts, 200*time.Millisecond, log)
}

func ProvideSignalPipeline(
	cfg *config.Config,
	scanner *usecase.HologramScanner,
	agg *cvd.Aggregator,
	sessions *session.Monitor,
	sw *halt.Switch,
	disp *usecase.SignalDispatcher,
	c cache.Service,
	bus *Bus,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.SignalPipeline {
	return usecase.NewSignalPipeline(scanner, agg, sessions, sw, disp, c, bus.Telemetry, m, cfg.Pipeline, cfg.Hologram.ReferenceSymbol, log)
}

// ProvideHaltConsumer subscribes to the halt command topic. It is nil
// unless the bus is Kafka and the consumer is enabled.
func ProvideHaltConsumer(cfg *config.Config, sw *halt.Switch, log *logger.Logger) (*pkgkafka.Consumer, error) {
	if cfg.Bus.Type != "kafka" || !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	kc := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(log,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(kc.GroupID),
		pkgkafka.WithConsumerWorkers(kc.Workers, kc.BufferSize),
		pkgkafka.WithConsumerRetry(kc.RetryMax, kc.BackoffMin, kc.BackoffMax),
		pkgkafka.WithConsumerDLQ(kc.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.TraceHook{Log: log})
	consumer.RegisterHandler(usecase.NewHaltHandler(cfg.Kafka.Topics.Halt, sw, log))
	return consumer, nil
}

func ProvideHTTPServer(cfg *config.Config, streams []*exchange.StreamClient, agg *cvd.Aggregator, scanner *usecase.HologramScanner, sw *halt.Switch, log *logger.Logger) *xhttp.Server {
	hs := make([]api.StreamHealth, 0, len(streams))
	for _, s := range streams {
		hs = append(hs, s)
	}
	h := api.NewHunterEchoHandler(log, hs, agg, scanner, sw, ratelimit.New(20, 40))
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetricsPath(cfg.Metrics.Path))
	}
	return xhttp.NewServer(log, h, opts...)
}

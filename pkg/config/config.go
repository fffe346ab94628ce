package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"FlowHunter/pkg/logger"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string        `yaml:"environment" default:"development"`
	Logging     logger.Config `yaml:"logging"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Bus        struct {
		Type        string `yaml:"type" default:"kafka"`
		RedisStream string `yaml:"redis_stream" default:"hunter:signals"`
	} `yaml:"bus"`
	MarketData   MarketDataConfig   `yaml:"market_data"`
	Symbols      []string           `yaml:"symbols" default:"[\"BTCUSDT\",\"ETHUSDT\",\"SOLUSDT\"]"`
	Venues       []VenueConfig      `yaml:"venues" default:"[{\"name\":\"binance\",\"product\":\"perp\"},{\"name\":\"bybit\",\"product\":\"perp\"},{\"name\":\"okx\",\"product\":\"perp\"},{\"name\":\"coinbase\",\"product\":\"spot\"}]"`
	Stream       StreamConfig       `yaml:"stream"`
	Aggregator   AggregatorConfig   `yaml:"aggregator"`
	Manipulation ManipulationConfig `yaml:"manipulation"`
	Structure    StructureConfig    `yaml:"structure"`
	Hologram     HologramConfig     `yaml:"hologram"`
	Pipeline     PipelineConfig     `yaml:"pipeline"`
	Sessions     []SessionWindow    `yaml:"sessions" default:"[{\"name\":\"london\",\"start\":\"07:00\",\"end\":\"10:00\"},{\"name\":\"new_york\",\"start\":\"12:00\",\"end\":\"15:00\"}]"`
}

type KafkaConfig struct {
	Brokers      []string `yaml:"brokers"`
	RequiredAcks int      `yaml:"required_acks" default:"-1"`
	Compression  string   `yaml:"compression" default:"lz4"`
	Topics       struct {
		Signals   string `yaml:"signals" default:"hunter.evt.signal.v1"`
		Telemetry string `yaml:"telemetry" default:"hunter.evt.telemetry.v1"`
		Logs      string `yaml:"logs" default:"hunter.evt.logs.v1"`
		Halt      string `yaml:"halt" default:"hunter.cmd.sys.halt.v1"`
	} `yaml:"topics"`
	Producer struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"5"`
		Linger       time.Duration `yaml:"linger" default:"50ms"`
		BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
	} `yaml:"producer"`
	Consumer struct {
		Enabled    bool          `yaml:"enabled" default:"true"`
		GroupID    string        `yaml:"group_id" default:"flowhunter"`
		Workers    int           `yaml:"workers" default:"1"`
		BufferSize int           `yaml:"buffer_size" default:"16"`
		RetryMax   int           `yaml:"retry_max" default:"3"`
		BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
		BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
		DLQTopic   string        `yaml:"dlq_topic"`
	} `yaml:"consumer"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix" default:"hunter"`
}

type ClickHouseConfig struct {
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"market"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	CandleTable      string        `yaml:"candle_table" default:"candles"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
}

type MarketDataConfig struct {
	Provider    string        `yaml:"provider" default:"binance_rest"`
	RESTBaseURL string        `yaml:"rest_base_url" default:"https://api.binance.com"`
	Timeout     time.Duration `yaml:"timeout" default:"5s"`
	CacheTTL    time.Duration `yaml:"cache_ttl" default:"5m"`
	CacheSize   int           `yaml:"cache_size" default:"2000"`
	RatePerSec  float64       `yaml:"rate_per_sec" default:"10"`
	RateBurst   int           `yaml:"rate_burst" default:"20"`
	Breaker     struct {
		ConsecutiveFailures uint32        `yaml:"consecutive_failures" default:"3"`
		FailureRatio        float64       `yaml:"failure_ratio" default:"0.05"`
		MinRequests         uint32        `yaml:"min_requests" default:"20"`
		Interval            time.Duration `yaml:"interval" default:"60s"`
		Timeout             time.Duration `yaml:"timeout" default:"30s"`
	} `yaml:"breaker"`
}

type VenueConfig struct {
	Name    string `yaml:"name" json:"name"`
	Product string `yaml:"product" json:"product"`
	URL     string `yaml:"url" json:"url"`
}

type StreamConfig struct {
	PingInterval         time.Duration `yaml:"ping_interval" default:"15s"`
	MessageTimeout       time.Duration `yaml:"message_timeout" default:"30s"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts" default:"10"`
	BaseDelay            time.Duration `yaml:"base_delay" default:"1s"`
	MaxDelay             time.Duration `yaml:"max_delay" default:"60s"`
	Jitter               float64       `yaml:"jitter" default:"0.2"`
	BufferSize           int           `yaml:"buffer_size" default:"4096"`
	StaleAfter           time.Duration `yaml:"stale_after" default:"10s"`
}

type AggregatorConfig struct {
	WeightMode        string             `yaml:"weight_mode" default:"volume"`
	FixedWeights      map[string]float64 `yaml:"fixed_weights"`
	Windows           []time.Duration    `yaml:"windows" default:"[60000000000,300000000000,900000000000]"`
	EvalInterval      time.Duration      `yaml:"eval_interval" default:"1s"`
	BufferSize        int                `yaml:"buffer_size" default:"8192"`
	ReferenceNotional float64            `yaml:"reference_notional" default:"1000000"`
	DynamicAlpha      float64            `yaml:"dynamic_alpha" default:"0.2"`
}

type ManipulationConfig struct {
	DivergenceThreshold float64 `yaml:"divergence_threshold" default:"50"`
	LagRatio            float64 `yaml:"lag_ratio" default:"0.3"`
	OutlierSigma        float64 `yaml:"outlier_sigma" default:"2.5"`
	VolumeSpikeMultiple float64 `yaml:"volume_spike_multiple" default:"3"`
	SustainedWindows    int     `yaml:"sustained_windows" default:"10"`
	SustainedRatio      float64 `yaml:"sustained_ratio" default:"0.7"`
	VetoAt              float64 `yaml:"veto_at" default:"70"`
	CautionAt           float64 `yaml:"caution_at" default:"40"`
}

type StructureConfig struct {
	EquilibriumBand float64 `yaml:"equilibrium_band" default:"0.02"`
	FreshShiftBars  int     `yaml:"fresh_shift_bars" default:"5"`
	CandleLimit     int     `yaml:"candle_limit" default:"200"`
}

type HologramConfig struct {
	ScanInterval    time.Duration `yaml:"scan_interval" default:"5m"`
	WatchlistSize   int           `yaml:"watchlist_size" default:"20"`
	Workers         int           `yaml:"workers" default:"4"`
	ReferenceSymbol string        `yaml:"reference_symbol" default:"BTCUSDT"`
	RSLookback      int           `yaml:"rs_lookback" default:"16"`
	APlusAt         int           `yaml:"a_plus_at" default:"80"`
	BAt             int           `yaml:"b_at" default:"60"`
	ATRPeriod       int           `yaml:"atr_period" default:"14"`
	RiskVolatility  float64       `yaml:"risk_volatility" default:"1.5"`
}

type PipelineConfig struct {
	EvalInterval     time.Duration `yaml:"eval_interval" default:"30s"`
	CVDWindow        time.Duration `yaml:"cvd_window" default:"5m"`
	POITolerance     float64       `yaml:"poi_tolerance" default:"0.005"`
	CautionPenalty   float64       `yaml:"caution_penalty" default:"0.25"`
	StopBuffer       float64       `yaml:"stop_buffer" default:"0.002"`
	TargetRMultiples []float64     `yaml:"target_r_multiples" default:"[1.5,3]"`
	LeverageAPlus    int           `yaml:"leverage_a_plus" default:"5"`
	LeverageB        int           `yaml:"leverage_b" default:"3"`
	DedupTTL         time.Duration `yaml:"dedup_ttl" default:"1h"`
}

// SessionWindow is a daily UTC window, "HH:MM" bounds, end exclusive.
type SessionWindow struct {
	Name  string `yaml:"name" json:"name"`
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return errField("environment", "is required")
	}
	if len(c.Symbols) == 0 {
		return errField("symbols", "cannot be empty")
	}
	if len(c.Venues) == 0 {
		return errField("venues", "cannot be empty")
	}
	seen := make(map[string]bool, len(c.Venues))
	for i, v := range c.Venues {
		switch v.Name {
		case "binance", "bybit", "okx", "coinbase":
		default:
			return errField(fmt.Sprintf("venues[%d].name", i), "unsupported venue %q", v.Name)
		}
		if v.Product != "spot" && v.Product != "perp" {
			return errField(fmt.Sprintf("venues[%d].product", i), "must be 'spot' or 'perp', got %q", v.Product)
		}
		if seen[v.Name] {
			return errField(fmt.Sprintf("venues[%d].name", i), "duplicate venue %q", v.Name)
		}
		seen[v.Name] = true
	}
	switch c.Bus.Type {
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return errField("kafka.brokers", "required when bus.type is kafka")
		}
	case "redis":
		if !c.Redis.Enabled {
			return errField("redis.enabled", "must be true when bus.type is redis")
		}
	default:
		return errField("bus.type", "must be 'kafka' or 'redis', got %q", c.Bus.Type)
	}
	if c.MarketData.Provider != "binance_rest" && c.MarketData.Provider != "clickhouse" {
		return errField("market_data.provider", "must be 'binance_rest' or 'clickhouse', got %q", c.MarketData.Provider)
	}
	if c.MarketData.CacheTTL <= 0 {
		return errField("market_data.cache_ttl", "must be positive")
	}
	if err := c.validateTunables(); err != nil {
		return err
	}
	for i, s := range c.Sessions {
		if _, _, err := ParseSession(s); err != nil {
			return errField(fmt.Sprintf("sessions[%d]", i), "%v", err)
		}
	}
	return nil
}

// validateTunables covers the hot-reloadable sections.
func (c *Config) validateTunables() error {
	a := c.Aggregator
	switch a.WeightMode {
	case "volume", "dynamic":
	case "fixed":
		if len(a.FixedWeights) == 0 {
			return errField("aggregator.fixed_weights", "required when weight_mode is fixed")
		}
		for venue, w := range a.FixedWeights {
			if w < 0 {
				return errField("aggregator.fixed_weights."+venue, "must be >= 0")
			}
		}
	default:
		return errField("aggregator.weight_mode", "must be volume, fixed or dynamic, got %q", a.WeightMode)
	}
	if len(a.Windows) == 0 {
		return errField("aggregator.windows", "cannot be empty")
	}
	if a.DynamicAlpha <= 0 || a.DynamicAlpha > 1 {
		return errField("aggregator.dynamic_alpha", "must be in (0,1]")
	}
	m := c.Manipulation
	if m.OutlierSigma <= 0 {
		return errField("manipulation.outlier_sigma", "must be positive")
	}
	if m.SustainedRatio <= 0 || m.SustainedRatio > 1 {
		return errField("manipulation.sustained_ratio", "must be in (0,1]")
	}
	if m.CautionAt > m.VetoAt {
		return errField("manipulation.caution_at", "must not exceed veto_at")
	}
	h := c.Hologram
	if h.ScanInterval <= 0 {
		return errField("hologram.scan_interval", "must be positive")
	}
	if h.WatchlistSize <= 0 {
		return errField("hologram.watchlist_size", "must be positive")
	}
	if h.BAt > h.APlusAt {
		return errField("hologram.b_at", "must not exceed a_plus_at")
	}
	if c.Structure.EquilibriumBand < 0 || c.Structure.EquilibriumBand >= 0.5 {
		return errField("structure.equilibrium_band", "must be in [0,0.5)")
	}
	if c.Pipeline.POITolerance < 0 {
		return errField("pipeline.poi_tolerance", "must be >= 0")
	}
	return nil
}

// ParseSession converts "HH:MM" bounds into minutes after midnight UTC.
func ParseSession(s SessionWindow) (start, end int, err error) {
	start, err = parseClock(s.Start)
	if err != nil {
		return 0, 0, fmt.Errorf("start: %w", err)
	}
	end, err = parseClock(s.End)
	if err != nil {
		return 0, 0, fmt.Errorf("end: %w", err)
	}
	if start == end {
		return 0, 0, fmt.Errorf("empty window %s-%s", s.Start, s.End)
	}
	return start, end, nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

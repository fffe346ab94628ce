package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvOverrides are deployment settings that may come from the process
// environment or a .env file. Unset variables leave the YAML value alone.
type EnvOverrides struct {
	Environment        string   `envconfig:"HUNTER_ENV"`
	LogLevel           string   `envconfig:"HUNTER_LOG_LEVEL"`
	Symbols            []string `envconfig:"HUNTER_SYMBOLS"`
	BusType            string   `envconfig:"HUNTER_BUS"`
	KafkaBrokers       []string `envconfig:"KAFKA_BROKERS"`
	RedisHost          string   `envconfig:"REDIS_HOST"`
	RedisPassword      string   `envconfig:"REDIS_PASSWORD"`
	ClickHouseHost     string   `envconfig:"CLICKHOUSE_HOST"`
	ClickHousePassword string   `envconfig:"CLICKHOUSE_PASSWORD"`
	ServerPort         int      `envconfig:"HUNTER_PORT"`
}

// LoadWithEnv loads the YAML file, then applies environment overrides.
// dotenv may be empty; a missing dotenv file is not an error.
func LoadWithEnv(path, dotenv string) (*Config, error) {
	if dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", dotenv, err)
		}
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	var env EnvOverrides
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	env.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Apply copies every set override onto cfg.
func (e EnvOverrides) Apply(cfg *Config) {
	if e.Environment != "" {
		cfg.Environment = e.Environment
	}
	if e.LogLevel != "" {
		cfg.Logging.Level = e.LogLevel
	}
	if len(e.Symbols) > 0 {
		cfg.Symbols = e.Symbols
	}
	if e.BusType != "" {
		cfg.Bus.Type = e.BusType
	}
	if len(e.KafkaBrokers) > 0 {
		cfg.Kafka.Brokers = e.KafkaBrokers
	}
	if e.RedisHost != "" {
		cfg.Redis.Host = e.RedisHost
	}
	if e.RedisPassword != "" {
		cfg.Redis.Password = e.RedisPassword
	}
	if e.ClickHouseHost != "" {
		cfg.ClickHouse.Host = e.ClickHouseHost
	}
	if e.ClickHousePassword != "" {
		cfg.ClickHouse.Password = e.ClickHousePassword
	}
	if e.ServerPort != 0 {
		cfg.Server.Port = e.ServerPort
	}
}

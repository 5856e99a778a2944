package config

import (
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/marketforge/matching-engine/pkg/redis"
)

// KafkaConfig holds connection settings for one Kafka topic.
type KafkaConfig struct {
	Brokers []string `env:"BROKERS" envDefault:"localhost:9092"`
	Topic   string   `env:"TOPIC"`
}

// Config holds the engine service configuration, populated from the
// environment.
type Config struct {
	// Symbol is the single instrument this engine instance serves.
	Symbol string `env:"SYMBOL" envDefault:"BTC-USD"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	OrderStream KafkaConfig  `envPrefix:"ORDER_STREAM_"`
	TradeStream KafkaConfig  `envPrefix:"TRADE_STREAM_"`
	Redis       redis.Config `envPrefix:"REDIS_"`

	SnapshotInterval    time.Duration `env:"SNAPSHOT_INTERVAL" envDefault:"30s"`
	SnapshotOffsetDelta int64         `env:"SNAPSHOT_OFFSET_DELTA" envDefault:"1000"`
}

// Load parses the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if cfg.OrderStream.Topic == "" {
		cfg.OrderStream.Topic = "orders." + cfg.Symbol
	}
	if cfg.TradeStream.Topic == "" {
		cfg.TradeStream.Topic = "trades." + cfg.Symbol
	}

	return cfg, nil
}

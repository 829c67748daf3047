// Package config loads the gateway's YAML configuration [AMBIENT],
// grounded on the retrieval pack's gopkg.in/yaml.v3 usage
// (DimaJoyti-ai-agentic-crypto-browser's service configs,
// rishavpaul-system-design's rate-limiter/gateway config) rather than a
// hand-rolled flag set.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// QuoteSourceConfig configures one QuoteSource server instance.
type QuoteSourceConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// BrokerConfig configures one BrokerServer instance.
type BrokerConfig struct {
	ListenAddr    string `yaml:"listen_addr"`
	TradeSinkAddr string `yaml:"trade_sink_addr"`
}

// RedisConfig configures the optional refbroker position cache.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	DB      int    `yaml:"db"`
}

// MetricsConfig configures the Prometheus HTTP exporter.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	JSON  bool   `yaml:"json"`
}

// Config is the top-level gateway configuration document.
type Config struct {
	QuoteSource QuoteSourceConfig `yaml:"quotesource"`
	Broker      BrokerConfig      `yaml:"broker"`
	Redis       RedisConfig       `yaml:"redis"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Log         LogConfig         `yaml:"log"`

	// ShutdownGrace bounds how long goldmined waits for the metrics HTTP
	// server to shut down; the QuoteSource and broker servers' Stop calls
	// do not use it.
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`
}

// Default returns a Config with the gateway's baked-in defaults, used
// when no config file is supplied and as the base that Load merges a
// file's contents on top of.
func Default() Config {
	return Config{
		QuoteSource: QuoteSourceConfig{ListenAddr: "tcp://*:7890"},
		Broker:      BrokerConfig{ListenAddr: "tcp://*:7891"},
		Metrics:     MetricsConfig{ListenAddr: "127.0.0.1:9090"},
		Log:         LogConfig{Level: "info", JSON: true},
		ShutdownGrace: 5 * time.Second,
	}
}

// Load reads and parses a YAML config file at path, starting from
// Default() so an omitted section keeps its default value.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

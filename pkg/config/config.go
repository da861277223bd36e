// Package config loads the CLI configuration file. The streaming library
// itself is configured in code; this file format only drives the
// marketstream command.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root of the YAML configuration.
type Config struct {
	// Exchange selects the strategy, e.g. "binance" or "bybit".
	Exchange string `yaml:"exchange"`

	// Market selects the endpoint within the exchange: "spot", "linear",
	// "inverse".
	Market string `yaml:"market"`

	// Proxy is an optional SOCKS5 proxy URL.
	Proxy string `yaml:"proxy"`

	// Symbols to subscribe on startup.
	Symbols []string `yaml:"symbols"`

	// Channels to subscribe for each symbol: trade, orderbook,
	// orderbook_topk, bbo, ticker.
	Channels []string `yaml:"channels"`

	// CandlestickIntervals holds bar sizes in seconds subscribed for each
	// symbol, e.g. [60, 300].
	CandlestickIntervals []int `yaml:"candlestick_intervals"`

	// ListenKey optionally subscribes the private user-data stream.
	ListenKey string `yaml:"listen_key"`

	// MaxReconnectAttempts bounds consecutive reconnects before giving up.
	MaxReconnectAttempts int `yaml:"max_reconnect_attempts"`

	// SinkBuffer is the inbound message channel capacity.
	SinkBuffer int `yaml:"sink_buffer"`

	// MetricsListen is the address of the /metrics and /healthz HTTP
	// server; empty disables it.
	MetricsListen string `yaml:"metrics_listen"`

	// LogLevel: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// DialTimeoutSeconds bounds the WebSocket handshake.
	DialTimeoutSeconds int `yaml:"dial_timeout_seconds"`
}

// DialTimeout returns the handshake bound as a duration.
func (c *Config) DialTimeout() time.Duration {
	return time.Duration(c.DialTimeoutSeconds) * time.Second
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Exchange:             "binance",
		Market:               "spot",
		Channels:             []string{"trade"},
		MaxReconnectAttempts: 10,
		SinkBuffer:           1024,
		LogLevel:             "info",
		DialTimeoutSeconds:   10,
	}
}

// Load reads and validates a YAML configuration file. Missing fields keep
// their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields that cannot be defaulted sensibly.
func (c *Config) Validate() error {
	if c.Exchange == "" {
		return fmt.Errorf("exchange must be set")
	}
	if c.Market == "" {
		return fmt.Errorf("market must be set")
	}
	if c.MaxReconnectAttempts < 0 {
		return fmt.Errorf("max_reconnect_attempts must be non-negative")
	}
	if c.SinkBuffer <= 0 {
		return fmt.Errorf("sink_buffer must be positive")
	}
	for _, channel := range c.Channels {
		switch channel {
		case "trade", "orderbook", "orderbook_topk", "bbo", "ticker":
		default:
			return fmt.Errorf("unknown channel %q", channel)
		}
	}
	return nil
}

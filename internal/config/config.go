// Package config loads process configuration from the environment.
//
// A .env file in the working directory is loaded first when present (the
// deployment workflow writes the market API credential there), then the
// environment is parsed into the Config struct. The credential is injected
// into the quote service at construction; the protocol core never reads it.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full process configuration.
type Config struct {
	// HTTPAddr is the listen address for the HTTP transport.
	HTTPAddr string `env:"QUOTEWIRE_HTTP_ADDR" envDefault:":8000"`

	// MarketAPIKey authenticates against the upstream market-data API.
	MarketAPIKey string `env:"MARKET_API_KEY"`

	// MarketAPIBaseURL is the upstream market-data API root.
	MarketAPIBaseURL string `env:"MARKET_API_BASE_URL" envDefault:"https://api.marketdata.example"`

	// UpstreamTimeout bounds each upstream API request.
	UpstreamTimeout time.Duration `env:"QUOTEWIRE_UPSTREAM_TIMEOUT" envDefault:"10s"`

	// CallTimeout bounds each protocol call awaiting a response.
	CallTimeout time.Duration `env:"QUOTEWIRE_CALL_TIMEOUT" envDefault:"30s"`

	// RateLimit is the sustained upstream requests-per-second budget.
	RateLimit float64 `env:"QUOTEWIRE_RATE_LIMIT" envDefault:"5"`

	// RateBurst is the upstream request burst allowance.
	RateBurst int `env:"QUOTEWIRE_RATE_BURST" envDefault:"10"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"QUOTEWIRE_LOG_LEVEL" envDefault:"info"`
}

// Load reads the optional .env file and parses the environment.
func Load() (*Config, error) {
	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	return cfg, nil
}

// SlogLevel maps the configured level name to a slog.Level.
// Unknown names fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

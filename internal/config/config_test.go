package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":8000", cfg.HTTPAddr)
	require.Equal(t, "https://api.marketdata.example", cfg.MarketAPIBaseURL)
	require.Equal(t, 10*time.Second, cfg.UpstreamTimeout)
	require.Equal(t, 30*time.Second, cfg.CallTimeout)
	require.InDelta(t, 5.0, cfg.RateLimit, 0.001)
	require.Equal(t, 10, cfg.RateBurst)
	require.Equal(t, "info", cfg.LogLevel)
	require.Empty(t, cfg.MarketAPIKey)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("QUOTEWIRE_HTTP_ADDR", "127.0.0.1:9100")
	t.Setenv("MARKET_API_KEY", "sk-test-123")
	t.Setenv("QUOTEWIRE_CALL_TIMEOUT", "5s")
	t.Setenv("QUOTEWIRE_RATE_LIMIT", "2.5")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1:9100", cfg.HTTPAddr)
	require.Equal(t, "sk-test-123", cfg.MarketAPIKey)
	require.Equal(t, 5*time.Second, cfg.CallTimeout)
	require.InDelta(t, 2.5, cfg.RateLimit, 0.001)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("QUOTEWIRE_CALL_TIMEOUT", "not-a-duration")

	_, err := Load()
	require.Error(t, err)
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		name string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.name}
			require.Equal(t, tt.want, cfg.SlogLevel())
		})
	}
}

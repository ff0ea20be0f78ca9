package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "spreadscan", cfg.Database.DBName)
	assert.Equal(t, 6379, cfg.Redis.Port)

	assert.Equal(t, 10*time.Second, cfg.PriceTTL())
	assert.Equal(t, 60*time.Second, cfg.ScanInterval())
	assert.Equal(t, 30*time.Second, cfg.ValidityWindow())
	assert.Equal(t, 60*time.Second, cfg.HealthCheckInterval())

	assert.Equal(t, 0.1, cfg.Arbitrage.ReferenceVolume)
	assert.Equal(t, 20, cfg.Arbitrage.DepthLimit)
	assert.Equal(t, []string{"BTC/USDT", "ETH/USDT"}, cfg.Arbitrage.Pairs)
	assert.False(t, cfg.Arbitrage.UseOrderBook)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("CACHE_PRICE_TTL", "5s")
	t.Setenv("ENVIRONMENT", "Production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.PriceTTL())
	assert.Equal(t, "production", cfg.Environment, "environment is normalized to lower case")
}

func TestLoad_RejectsInvalidDuration(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("CACHE_PRICE_TTL", "not-a-duration")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.price_ttl")
}

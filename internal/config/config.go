package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Arbitrage   ArbitrageConfig `mapstructure:"arbitrage"`
	Health      HealthConfig    `mapstructure:"health"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CacheConfig struct {
	PriceTTL string `mapstructure:"price_ttl"`
}

type ArbitrageConfig struct {
	ScanInterval    string   `mapstructure:"scan_interval"`
	ValidityWindow  string   `mapstructure:"validity_window"`
	ReferenceVolume float64  `mapstructure:"reference_volume"`
	UseOrderBook    bool     `mapstructure:"use_order_book"`
	DepthLimit      int      `mapstructure:"depth_limit"`
	Pairs           []string `mapstructure:"pairs"`
}

type HealthConfig struct {
	CheckInterval string `mapstructure:"check_interval"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)

	for name, value := range map[string]string{
		"cache.price_ttl":           config.Cache.PriceTTL,
		"arbitrage.scan_interval":   config.Arbitrage.ScanInterval,
		"arbitrage.validity_window": config.Arbitrage.ValidityWindow,
		"health.check_interval":     config.Health.CheckInterval,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return nil, fmt.Errorf("invalid duration for %s: %w", name, err)
		}
	}

	return &config, nil
}

// PriceTTL returns the parsed quote cache TTL.
func (c *Config) PriceTTL() time.Duration {
	d, _ := time.ParseDuration(c.Cache.PriceTTL)
	return d
}

// ScanInterval returns the parsed detection loop interval.
func (c *Config) ScanInterval() time.Duration {
	d, _ := time.ParseDuration(c.Arbitrage.ScanInterval)
	return d
}

// ValidityWindow returns how long a detected opportunity stays valid.
func (c *Config) ValidityWindow() time.Duration {
	d, _ := time.ParseDuration(c.Arbitrage.ValidityWindow)
	return d
}

// HealthCheckInterval returns the parsed health probe interval.
func (c *Config) HealthCheckInterval() time.Duration {
	d, _ := time.ParseDuration(c.Health.CheckInterval)
	return d
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("server.port", 8080)

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "spreadscan")
	viper.SetDefault("database.sslmode", "disable")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("cache.price_ttl", "10s")

	// Validity window is a few multiples of the quote TTL: quotes go
	// stale at that rate.
	viper.SetDefault("arbitrage.scan_interval", "60s")
	viper.SetDefault("arbitrage.validity_window", "30s")
	viper.SetDefault("arbitrage.reference_volume", 0.1)
	viper.SetDefault("arbitrage.use_order_book", false)
	viper.SetDefault("arbitrage.depth_limit", 20)
	viper.SetDefault("arbitrage.pairs", []string{"BTC/USDT", "ETH/USDT"})

	viper.SetDefault("health.check_interval", "60s")
}

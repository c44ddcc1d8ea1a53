// Package config loads service configuration from environment variables,
// an optional .env file and an optional config.yaml.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the root configuration for the service
type Config struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`

	Server         ServerConfig         `mapstructure:"server"`
	Gateway        GatewayConfig        `mapstructure:"gateway"`
	Deposit        DepositConfig        `mapstructure:"deposit"`
	Ledger         LedgerConfig         `mapstructure:"ledger"`
	Reconciliation ReconciliationConfig `mapstructure:"reconciliation"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// GatewayConfig holds upstream payment gateway settings
type GatewayConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DepositConfig holds deposit lifecycle settings
type DepositConfig struct {
	// FeeMode selects the fee model: "flat" charges the fee on top of the
	// nominal (payer covers it, net == nominal); "method" deducts the
	// per-method fee from the credited amount.
	FeeMode        string `mapstructure:"fee_mode"`
	FlatFeePercent string `mapstructure:"flat_fee_percent"`
	// FlatMin and FlatMax bound accepted nominals in flat mode
	FlatMin       int64         `mapstructure:"flat_min"`
	FlatMax       int64         `mapstructure:"flat_max"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	CountdownTick time.Duration `mapstructure:"countdown_tick"`
	HistoryLimit  int           `mapstructure:"history_limit"`
}

// LedgerConfig holds transaction ledger storage settings
type LedgerConfig struct {
	// Driver is one of "badger", "redis", "memory"
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	RedisAddr string `mapstructure:"redis_addr"`
	RedisDB   int    `mapstructure:"redis_db"`
}

// ReconciliationConfig holds the stale-entry sweeper settings
type ReconciliationConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
	// MinAge keeps the sweeper away from entries the live controller is
	// still polling.
	MinAge time.Duration `mapstructure:"min_age"`
}

// Load reads configuration and validates it
func Load() (*Config, error) {
	// .env is optional; real env vars win either way
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("QRISGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15)
	v.SetDefault("server.write_timeout", 15)

	v.SetDefault("gateway.base_url", "https://khafatopup.my.id")
	v.SetDefault("gateway.timeout", 15*time.Second)

	v.SetDefault("deposit.fee_mode", "flat")
	v.SetDefault("deposit.flat_fee_percent", "2")
	v.SetDefault("deposit.flat_min", int64(10_000))
	v.SetDefault("deposit.flat_max", int64(5_000_000))
	v.SetDefault("deposit.poll_interval", 10*time.Second)
	v.SetDefault("deposit.countdown_tick", time.Second)
	v.SetDefault("deposit.history_limit", 10)

	v.SetDefault("ledger.driver", "badger")
	v.SetDefault("ledger.path", "data/ledger")
	v.SetDefault("ledger.redis_addr", "localhost:6379")
	v.SetDefault("ledger.redis_db", 0)

	v.SetDefault("reconciliation.enabled", true)
	v.SetDefault("reconciliation.schedule", "@every 1m")
	v.SetDefault("reconciliation.min_age", 2*time.Minute)
}

func (c *Config) validate() error {
	if c.Gateway.APIKey == "" && c.Environment == "production" {
		return fmt.Errorf("gateway.api_key is required in production")
	}
	switch c.Deposit.FeeMode {
	case "flat", "method":
	default:
		return fmt.Errorf("deposit.fee_mode must be \"flat\" or \"method\", got %q", c.Deposit.FeeMode)
	}
	if c.Deposit.FlatMin < 0 || c.Deposit.FlatMax < 0 {
		return fmt.Errorf("deposit.flat_min and deposit.flat_max must not be negative")
	}
	if c.Deposit.FlatMin > 0 && c.Deposit.FlatMax > 0 && c.Deposit.FlatMax < c.Deposit.FlatMin {
		return fmt.Errorf("deposit.flat_max must be at least deposit.flat_min")
	}
	switch c.Ledger.Driver {
	case "badger", "redis", "memory":
	default:
		return fmt.Errorf("ledger.driver must be one of badger, redis, memory, got %q", c.Ledger.Driver)
	}
	if c.Deposit.PollInterval <= 0 {
		return fmt.Errorf("deposit.poll_interval must be positive")
	}
	if c.Deposit.CountdownTick <= 0 {
		return fmt.Errorf("deposit.countdown_tick must be positive")
	}
	return nil
}

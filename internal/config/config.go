// Package config loads fundcore's runtime configuration via viper, with
// environment-variable overrides and a tolerant-of-missing-file read, the
// way the platform this core was distilled from has always done it.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds every section fundcore's components need. Validate does not
// check Fund.TotalCapital or Backtest.Capital; a zero value is passed
// through to the components that read them.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Backtest   BacktestConfig   `mapstructure:"backtest"`
	Paper      PaperConfig      `mapstructure:"paper"`
	Fund       FundConfig       `mapstructure:"fund"`
	WalkForward WalkForwardConfig `mapstructure:"walk_forward"`
	Decay      DecayConfig      `mapstructure:"decay"`
}

// AppConfig contains application-level settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// DatabaseConfig points at the Postgres pool backing the OHLCV cache and
// paper store.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	PoolSize int    `mapstructure:"pool_size"`
}

// RedisConfig points at the read-through cache in front of OHLCV adapters.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NATSConfig is optional; an empty URL disables event publishing entirely.
type NATSConfig struct {
	URL string `mapstructure:"url"`
}

// BacktestConfig mirrors spec.md §6's recognised backtest options.
type BacktestConfig struct {
	Capital        float64 `mapstructure:"capital"`
	CommissionRate float64 `mapstructure:"commission_rate"`
	SlippageBps    float64 `mapstructure:"slippage_bps"`
	Market         string  `mapstructure:"market"`
}

// PaperConfig mirrors spec.md §6's paper-engine options.
type PaperConfig struct {
	SlippageBps float64 `mapstructure:"slippage_bps"`
	Market      string  `mapstructure:"market"`
}

// FundConfig mirrors spec.md §6's fund options.
type FundConfig struct {
	TotalCapital          float64 `mapstructure:"total_capital"`
	CashReservePct        float64 `mapstructure:"cash_reserve_pct"`
	MaxSingleStrategyPct  float64 `mapstructure:"max_single_strategy_pct"`
	MaxTotalExposurePct   float64 `mapstructure:"max_total_exposure_pct"`
	RebalanceFrequency    string  `mapstructure:"rebalance_frequency"` // daily|weekly|monthly
}

// WalkForwardConfig mirrors spec.md §6's walk-forward defaults.
type WalkForwardConfig struct {
	Windows     int     `mapstructure:"windows"`
	InSamplePct float64 `mapstructure:"in_sample_pct"`
	Threshold   float64 `mapstructure:"threshold"`
}

// DecayConfig mirrors spec.md §4.5's decay-state minimum-history gate.
type DecayConfig struct {
	MinDays int `mapstructure:"min_days"`
}

// Load reads configPath (or ./configs/config.yaml, ./config.yaml) via viper,
// applies FUNDCORE_-prefixed environment overrides, fills defaults, and
// validates. A missing config file is tolerated — defaults and env vars
// carry the whole configuration in that case.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("FUNDCORE")

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

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "fundcore")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.database", "fundcore")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.pool_size", 10)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("nats.url", "")

	v.SetDefault("backtest.commission_rate", 0.001)
	v.SetDefault("backtest.slippage_bps", 5.0)

	v.SetDefault("paper.slippage_bps", 5.0)

	v.SetDefault("fund.cash_reserve_pct", 30.0)
	v.SetDefault("fund.max_single_strategy_pct", 30.0)
	v.SetDefault("fund.max_total_exposure_pct", 70.0)
	v.SetDefault("fund.rebalance_frequency", "daily")

	v.SetDefault("walk_forward.windows", 5)
	v.SetDefault("walk_forward.in_sample_pct", 0.7)
	v.SetDefault("walk_forward.threshold", 0.6)

	v.SetDefault("decay.min_days", 7)
}

// Validate applies the invariants spec.md §6 requires and a handful of
// sanity checks on range-bound fields.
func (c *Config) Validate() error {
	if c.Fund.CashReservePct < 0 || c.Fund.CashReservePct > 100 {
		return fmt.Errorf("fund.cash_reserve_pct must be in [0,100], got %f", c.Fund.CashReservePct)
	}
	if c.Fund.MaxSingleStrategyPct < 0 || c.Fund.MaxSingleStrategyPct > 100 {
		return fmt.Errorf("fund.max_single_strategy_pct must be in [0,100], got %f", c.Fund.MaxSingleStrategyPct)
	}
	if c.Fund.MaxTotalExposurePct < 0 || c.Fund.MaxTotalExposurePct > 100 {
		return fmt.Errorf("fund.max_total_exposure_pct must be in [0,100], got %f", c.Fund.MaxTotalExposurePct)
	}
	switch c.Fund.RebalanceFrequency {
	case "", "daily", "weekly", "monthly":
	default:
		return fmt.Errorf("fund.rebalance_frequency must be daily|weekly|monthly, got %q", c.Fund.RebalanceFrequency)
	}
	if c.WalkForward.Windows < 0 {
		return fmt.Errorf("walk_forward.windows must be >= 0")
	}
	if c.WalkForward.InSamplePct < 0 || c.WalkForward.InSamplePct > 1 {
		return fmt.Errorf("walk_forward.in_sample_pct must be in [0,1]")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// GetRedisAddr returns the Redis address.
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string         `mapstructure:"environment"`
	LogLevel    string         `mapstructure:"log_level"`
	Database    DatabaseConfig `mapstructure:"database"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Cache       CacheConfig    `mapstructure:"cache"`
	Analysis    AnalysisConfig `mapstructure:"analysis"`
	Backtest    BacktestConfig `mapstructure:"backtest"`
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
	PredictabilityTTL time.Duration `mapstructure:"predictability_ttl"`
	BacktestTTL       time.Duration `mapstructure:"backtest_ttl"`
	KeyPrefix         string        `mapstructure:"key_prefix"`
}

// AnalysisConfig tunes the categorization, correlation and scoring pipeline.
type AnalysisConfig struct {
	Tickers              []string `mapstructure:"tickers"`
	SecondaryThreshold   float64  `mapstructure:"secondary_threshold"`
	NegationWindow       int      `mapstructure:"negation_window"`
	MoveThresholdPct     float64  `mapstructure:"move_threshold_pct"`
	LagWindowDays        int      `mapstructure:"lag_window_days"`
	FullConfidenceSample int      `mapstructure:"full_confidence_sample"`
	MarketCloseHour      int      `mapstructure:"market_close_hour"`
	MarketTimezone       string   `mapstructure:"market_timezone"`
	RecentEventDays      int      `mapstructure:"recent_event_days"`
	HistoryDays          int      `mapstructure:"history_days"`
	Concurrency          int      `mapstructure:"concurrency"`
}

// BacktestConfig holds simulation defaults. Percent values are expressed in
// percent units (0.1 means 0.1%).
type BacktestConfig struct {
	InitialCapital     float64 `mapstructure:"initial_capital"`
	CommissionPct      float64 `mapstructure:"commission_pct"`
	SlippagePct        float64 `mapstructure:"slippage_pct"`
	TradingDaysPerYear int     `mapstructure:"trading_days_per_year"`
	MinTradesWarning   int     `mapstructure:"min_trades_warning"`
	MaxExposureWarning float64 `mapstructure:"max_exposure_warning"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set default values
	setDefaults(v)

	// Enable environment variable support
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)
	config.Analysis.Tickers = normalizeTickers(config.Analysis.Tickers)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks value ranges that would otherwise produce meaningless analysis.
func (c *Config) Validate() error {
	a := c.Analysis
	if a.SecondaryThreshold < 0 || a.SecondaryThreshold >= 1 {
		return fmt.Errorf("analysis.secondary_threshold must be in [0,1), got %v", a.SecondaryThreshold)
	}
	if a.NegationWindow < 0 {
		return fmt.Errorf("analysis.negation_window must not be negative, got %d", a.NegationWindow)
	}
	if a.MoveThresholdPct <= 0 {
		return fmt.Errorf("analysis.move_threshold_pct must be positive, got %v", a.MoveThresholdPct)
	}
	if a.LagWindowDays < 1 {
		return fmt.Errorf("analysis.lag_window_days must be at least 1, got %d", a.LagWindowDays)
	}
	if a.FullConfidenceSample < 1 {
		return fmt.Errorf("analysis.full_confidence_sample must be at least 1, got %d", a.FullConfidenceSample)
	}
	if a.MarketCloseHour < 1 || a.MarketCloseHour > 23 {
		return fmt.Errorf("analysis.market_close_hour must be in [1,23], got %d", a.MarketCloseHour)
	}
	if _, err := time.LoadLocation(a.MarketTimezone); err != nil {
		return fmt.Errorf("analysis.market_timezone %q is not a known zone: %w", a.MarketTimezone, err)
	}
	if a.Concurrency < 1 {
		return fmt.Errorf("analysis.concurrency must be at least 1, got %d", a.Concurrency)
	}

	b := c.Backtest
	if b.InitialCapital <= 0 {
		return fmt.Errorf("backtest.initial_capital must be positive, got %v", b.InitialCapital)
	}
	if b.CommissionPct < 0 || b.SlippagePct < 0 {
		return fmt.Errorf("backtest commission and slippage must not be negative")
	}
	if b.TradingDaysPerYear < 1 {
		return fmt.Errorf("backtest.trading_days_per_year must be at least 1, got %d", b.TradingDaysPerYear)
	}
	if b.MaxExposureWarning <= 0 || b.MaxExposureWarning > 1 {
		return fmt.Errorf("backtest.max_exposure_warning must be in (0,1], got %v", b.MaxExposureWarning)
	}

	return nil
}

// DSN returns the Postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

func normalizeTickers(tickers []string) []string {
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func setDefaults(v *viper.Viper) {
	// Environment
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	// Set database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "stock_predictor")
	v.SetDefault("database.sslmode", "disable")

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Cache
	v.SetDefault("cache.predictability_ttl", "30m")
	v.SetDefault("cache.backtest_ttl", "1h")
	v.SetDefault("cache.key_prefix", "")

	// Analysis
	v.SetDefault("analysis.tickers", []string{})
	v.SetDefault("analysis.secondary_threshold", 0.0)
	v.SetDefault("analysis.negation_window", 3)
	v.SetDefault("analysis.move_threshold_pct", 0.5)
	v.SetDefault("analysis.lag_window_days", 5)
	v.SetDefault("analysis.full_confidence_sample", 20)
	v.SetDefault("analysis.market_close_hour", 16)
	v.SetDefault("analysis.market_timezone", "America/New_York")
	v.SetDefault("analysis.recent_event_days", 30)
	v.SetDefault("analysis.history_days", 730)
	v.SetDefault("analysis.concurrency", 4)

	// Backtest
	v.SetDefault("backtest.initial_capital", 10000.0)
	v.SetDefault("backtest.commission_pct", 0.1)
	v.SetDefault("backtest.slippage_pct", 0.05)
	v.SetDefault("backtest.trading_days_per_year", 252)
	v.SetDefault("backtest.min_trades_warning", 10)
	v.SetDefault("backtest.max_exposure_warning", 0.5)
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"coinrates/internal/coinapi"
	"coinrates/internal/network"
)

// Config holds all configuration for the coinrates application.
type Config struct {
	// API keys. ExratesAPIKey falls back to CoinAPIKey.
	CoinAPIKey    string `mapstructure:"coinapi_key"`
	ExratesAPIKey string `mapstructure:"exrates_api_key"`

	// Base URLs for API endpoints (configurable for testing)
	CoinAPIBaseURL string `mapstructure:"coinapi_base_url"`
	ExratesBaseURL string `mapstructure:"exrates_base_url"`

	// Request policy shared by both endpoints
	RequestTimeoutSeconds int     `mapstructure:"request_timeout_seconds"`
	MaxRetries            int     `mapstructure:"max_retries"`
	RateLimitRPS          float64 `mapstructure:"rate_limit_rps"`

	// Pairs to fetch, "base/quote"
	RawPairs []string       `mapstructure:"pairs"`
	Pairs    []coinapi.Pair `mapstructure:"-"`

	// Redis is optional; an empty address disables it
	RedisAddr       string `mapstructure:"redis_addr"`
	RedisPassword   string `mapstructure:"redis_password"`
	RedisDB         int    `mapstructure:"redis_db"`
	RedisTTLSeconds int    `mapstructure:"redis_ttl_seconds"`

	MetricsAddr string `mapstructure:"metrics_addr"`
	LogLevel    string `mapstructure:"log_level"`
}

var envKeys = map[string]string{
	"coinapi_key":             "COINAPI_KEY",
	"exrates_api_key":         "EXRATES_API_KEY",
	"coinapi_base_url":        "COINAPI_BASE_URL",
	"exrates_base_url":        "EXRATES_BASE_URL",
	"request_timeout_seconds": "REQUEST_TIMEOUT_SECONDS",
	"max_retries":             "MAX_RETRIES",
	"rate_limit_rps":          "RATE_LIMIT_RPS",
	"pairs":                   "PAIRS",
	"redis_addr":              "REDIS_ADDR",
	"redis_password":          "REDIS_PASSWORD",
	"redis_db":                "REDIS_DB",
	"redis_ttl_seconds":       "REDIS_TTL_SECONDS",
	"metrics_addr":            "METRICS_ADDR",
	"log_level":               "LOG_LEVEL",
}

// Load reads configuration from environment variables, dotenv files and an
// optional config file. Environment variables take precedence over dotenv
// files, which take precedence over config file values. With no envFiles,
// a ".env" in the working directory is loaded if present.
//
// Expected environment variables:
//   - COINAPI_KEY
//   - EXRATES_API_KEY (optional, defaults to COINAPI_KEY)
//   - COINAPI_BASE_URL, EXRATES_BASE_URL (optional, defaults to production)
//   - REQUEST_TIMEOUT_SECONDS, MAX_RETRIES, RATE_LIMIT_RPS
//   - PAIRS (comma separated, e.g. "btc/usd,eth/usd")
//   - REDIS_ADDR, REDIS_PASSWORD, REDIS_DB, REDIS_TTL_SECONDS
//   - METRICS_ADDR, LOG_LEVEL
func Load(envFiles ...string) (*Config, error) {
	if err := loadDotenv(envFiles); err != nil {
		return nil, err
	}

	v := viper.New()

	v.SetDefault("coinapi_base_url", network.MarketDataEndpoint("").BaseURL)
	v.SetDefault("exrates_base_url", network.ExchangeRateEndpoint("").BaseURL)
	v.SetDefault("request_timeout_seconds", 10)
	v.SetDefault("max_retries", 3)
	v.SetDefault("rate_limit_rps", 4)
	v.SetDefault("pairs", []string{"btc/usd", "eth/usd"})
	v.SetDefault("redis_ttl_seconds", 300)
	v.SetDefault("log_level", "info")

	// Optionally read from config file if it exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.coinrates")
	_ = v.ReadInConfig()

	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.ExratesAPIKey == "" {
		config.ExratesAPIKey = config.CoinAPIKey
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func loadDotenv(files []string) error {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.CoinAPIKey == "" {
		return fmt.Errorf("missing required configuration: COINAPI_KEY")
	}

	var problems []string
	if c.RequestTimeoutSeconds <= 0 {
		problems = append(problems, "REQUEST_TIMEOUT_SECONDS must be positive")
	}
	if c.MaxRetries < 0 {
		problems = append(problems, "MAX_RETRIES must not be negative")
	}
	if c.RateLimitRPS < 0 {
		problems = append(problems, "RATE_LIMIT_RPS must not be negative")
	}
	if c.RedisTTLSeconds < 0 {
		problems = append(problems, "REDIS_TTL_SECONDS must not be negative")
	}
	if _, err := c.SlogLevel(); err != nil {
		problems = append(problems, err.Error())
	}

	c.Pairs = c.Pairs[:0]
	for _, raw := range c.RawPairs {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		pair, err := coinapi.ParsePair(raw)
		if err != nil {
			problems = append(problems, "PAIRS: "+err.Error())
			continue
		}
		c.Pairs = append(c.Pairs, pair)
	}

	for _, e := range []network.Endpoint{c.MarketDataEndpoint(), c.ExchangeRateEndpoint()} {
		if err := e.Validate(); err != nil {
			problems = append(problems, err.Error())
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// MarketDataEndpoint returns the REST market data endpoint
func (c *Config) MarketDataEndpoint() network.Endpoint {
	e := network.MarketDataEndpoint(c.CoinAPIKey)
	return c.apply(e, c.CoinAPIBaseURL)
}

// ExchangeRateEndpoint returns the realtime exchange rate endpoint
func (c *Config) ExchangeRateEndpoint() network.Endpoint {
	e := network.ExchangeRateEndpoint(c.ExratesAPIKey)
	return c.apply(e, c.ExratesBaseURL)
}

func (c *Config) apply(e network.Endpoint, baseURL string) network.Endpoint {
	if baseURL != "" {
		e.BaseURL = strings.TrimRight(baseURL, "/")
	}
	e.Timeout = time.Duration(c.RequestTimeoutSeconds) * time.Second
	e.MaxRetries = c.MaxRetries
	return e
}

// RedisTTL returns how long stored values live
func (c *Config) RedisTTL() time.Duration {
	return time.Duration(c.RedisTTLSeconds) * time.Second
}

// SlogLevel parses LogLevel ("debug", "info", "warn", "error")
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

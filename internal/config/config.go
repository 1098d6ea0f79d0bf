// Package config loads the marketd configuration from a YAML file with
// environment-variable overrides for deployment secrets.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bazarion/market_engine/pkg/logger"
)

// Duration is a time.Duration that unmarshals from "5s"-style YAML values.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(value.Value))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig controls persistence. An empty DSN selects the in-memory
// store.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	Migrate      bool   `yaml:"migrate"`
}

// OracleConfig controls the exchange-rate source. Mode is "fixed" or
// "http".
type OracleConfig struct {
	Mode            string   `yaml:"mode"`
	FixedRate       string   `yaml:"fixed_rate"`
	Endpoint        string   `yaml:"endpoint"`
	JSONPath        string   `yaml:"json_path"`
	APIKey          string   `yaml:"api_key"`
	Freshness       Duration `yaml:"freshness"`
	RefreshInterval Duration `yaml:"refresh_interval"`
}

// FeesConfig is the launch fee schedule in basis points plus the flat USD
// store-creation charge.
type FeesConfig struct {
	MarketFeeBps      int64  `yaml:"market_fee_bps"`
	StoreFeeBps       int64  `yaml:"store_fee_bps"`
	AuctionFeeBps     int64  `yaml:"auction_fee_bps"`
	CreateStoreFeeUSD string `yaml:"create_store_fee_usd"`
}

// RateLimitConfig throttles the HTTP API per account.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Config is the root marketd configuration.
type Config struct {
	Server    ServerConfig         `yaml:"server"`
	Database  DatabaseConfig       `yaml:"database"`
	Logging   logger.LoggingConfig `yaml:"logging"`
	Oracle    OracleConfig         `yaml:"oracle"`
	Fees      *FeesConfig          `yaml:"fees"`
	RateLimit RateLimitConfig      `yaml:"rate_limit"`
	Admin     string               `yaml:"admin"`
	Treasury  string               `yaml:"treasury"`
}

// Default returns the configuration marketd starts with when no file is
// given: memory storage, a fixed 1:1 rate, no fees collected.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Database: DatabaseConfig{
			MaxOpenConns: 10,
			Migrate:      true,
		},
		Logging: logger.LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Oracle: OracleConfig{
			Mode:      "fixed",
			FixedRate: "1",
			JSONPath:  "rate",
			Freshness: Duration(time.Minute),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
		},
	}
}

// Load reads the configuration from path, applying defaults first and
// environment overrides last. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv maps deployment secrets over the file values.
func applyEnv(cfg *Config) {
	if v := os.Getenv("MARKET_HTTP_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("MARKET_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("MARKET_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MARKET_ORACLE_ENDPOINT"); v != "" {
		cfg.Oracle.Endpoint = v
		cfg.Oracle.Mode = "http"
	}
	if v := os.Getenv("MARKET_ORACLE_API_KEY"); v != "" {
		cfg.Oracle.APIKey = v
	}
	if v := os.Getenv("MARKET_ADMIN_ADDRESS"); v != "" {
		cfg.Admin = v
	}
	if v := os.Getenv("MARKET_TREASURY_ADDRESS"); v != "" {
		cfg.Treasury = v
	}
	if v := os.Getenv("MARKET_RATE_LIMIT_RPS"); v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil && rps > 0 {
			cfg.RateLimit.RequestsPerSecond = rps
		}
	}
}

func (c Config) validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	switch c.Oracle.Mode {
	case "fixed":
		if c.Oracle.FixedRate == "" {
			return fmt.Errorf("oracle.fixed_rate is required in fixed mode")
		}
	case "http":
		if c.Oracle.Endpoint == "" {
			return fmt.Errorf("oracle.endpoint is required in http mode")
		}
		if c.Oracle.JSONPath == "" {
			return fmt.Errorf("oracle.json_path is required in http mode")
		}
	default:
		return fmt.Errorf("oracle.mode must be fixed or http, got %q", c.Oracle.Mode)
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate_limit values must be positive")
	}
	return nil
}

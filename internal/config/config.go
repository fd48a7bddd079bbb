// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	History  HistoryConfig  `mapstructure:"history"`
	Alerts   AlertsConfig   `mapstructure:"alerts"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Store    StoreConfig    `mapstructure:"store"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// HistoryConfig bounds the per-product reading series.
type HistoryConfig struct {
	MaxEntries        int     `mapstructure:"max_entries"`
	MinAppendInterval string  `mapstructure:"min_append_interval"`
	PriceEpsilon      float64 `mapstructure:"price_epsilon"`
}

// AlertsConfig tunes the alert evaluation rules.
type AlertsConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	NearMinPct float64 `mapstructure:"near_min_pct"`
	OverMinPct float64 `mapstructure:"over_min_pct"`
	OverAvgPct float64 `mapstructure:"over_avg_pct"`
	MaxLog     int     `mapstructure:"max_log"`
}

// ScanConfig governs the periodic wishlist scan.
type ScanConfig struct {
	Interval       string  `mapstructure:"interval"`
	Concurrency    int     `mapstructure:"concurrency"`
	PerHostRPS     float64 `mapstructure:"per_host_rps"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

// FetchConfig configures the static page fetcher.
type FetchConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// HeadlessConfig configures the headless rendering subsystem.
type HeadlessConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	MaxParallel     int  `mapstructure:"max_parallel"`
	NavTimeoutSec   int  `mapstructure:"nav_timeout_seconds"`
	PromotionThresh int  `mapstructure:"promotion_threshold"`
}

// ArchiveConfig selects where fetched page bodies are kept.
type ArchiveConfig struct {
	Backend   string `mapstructure:"backend"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
	DSN     string `mapstructure:"dsn"`
}

// NotifyConfig selects the alert delivery channel.
type NotifyConfig struct {
	Backend   string `mapstructure:"backend"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PRICEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("history.max_entries", 120)
	v.SetDefault("history.min_append_interval", "6h")
	v.SetDefault("history.price_epsilon", 1e-4)
	v.SetDefault("alerts.enabled", true)
	v.SetDefault("alerts.near_min_pct", 5.0)
	v.SetDefault("alerts.over_min_pct", 15.0)
	v.SetDefault("alerts.over_avg_pct", 10.0)
	v.SetDefault("alerts.max_log", 200)
	v.SetDefault("scan.interval", "6h")
	v.SetDefault("scan.concurrency", 4)
	v.SetDefault("scan.per_host_rps", 0.5)
	v.SetDefault("scan.timeout_seconds", 300)
	v.SetDefault("fetch.user_agent", "pricewatch-bot/0.1")
	v.SetDefault("fetch.timeout_seconds", 15)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("headless.promotion_threshold", 2048)
	v.SetDefault("archive.backend", "off")
	v.SetDefault("archive.base_dir", "./archive")
	v.SetDefault("archive.prefix", "pages")
	v.SetDefault("store.backend", "memory")
	v.SetDefault("notify.backend", "log")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.History.MaxEntries <= 0 {
		return fmt.Errorf("history.max_entries must be > 0")
	}
	if _, err := time.ParseDuration(c.History.MinAppendInterval); err != nil {
		return fmt.Errorf("history.min_append_interval is not a duration: %w", err)
	}
	if _, err := time.ParseDuration(c.Scan.Interval); err != nil {
		return fmt.Errorf("scan.interval is not a duration: %w", err)
	}
	if c.Scan.Concurrency <= 0 {
		return fmt.Errorf("scan.concurrency must be > 0")
	}
	if c.Alerts.OverMinPct < 0 || c.Alerts.OverAvgPct < 0 {
		return fmt.Errorf("alerts.over_min_pct and alerts.over_avg_pct must be >= 0")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Store.Backend {
	case "memory":
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn must be set for the postgres backend")
		}
	default:
		return fmt.Errorf("store.backend must be memory or postgres")
	}
	switch c.Archive.Backend {
	case "off", "local":
	case "gcs":
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket must be set for the gcs backend")
		}
	default:
		return fmt.Errorf("archive.backend must be off, local, or gcs")
	}
	switch c.Notify.Backend {
	case "log":
	case "pubsub":
		if c.Notify.ProjectID == "" || c.Notify.Topic == "" {
			return fmt.Errorf("notify.project_id and notify.topic must be set for the pubsub backend")
		}
	default:
		return fmt.Errorf("notify.backend must be log or pubsub")
	}
	return nil
}

// MinAppendInterval returns the parsed history append interval.
func (c Config) MinAppendInterval() time.Duration {
	d, err := time.ParseDuration(c.History.MinAppendInterval)
	if err != nil {
		return 6 * time.Hour
	}
	return d
}

// ScanInterval returns the parsed scan period.
func (c Config) ScanInterval() time.Duration {
	d, err := time.ParseDuration(c.Scan.Interval)
	if err != nil {
		return 6 * time.Hour
	}
	return d
}

// FetchTimeout returns the static fetch timeout.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// NavTimeout returns the headless navigation timeout.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Headless.NavTimeoutSec) * time.Second
}

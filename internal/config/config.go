// Package config defines the top-level configuration for the optionlab
// service and provides validation helpers.
package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by OPTIONLAB_* environment variables.
type Config struct {
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Solver   SolverConfig   `toml:"solver"`
	Rate     RateConfig     `toml:"rate"`
	Archive  ArchiveConfig  `toml:"archive"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. URL, when set, replaces
// addr, password, db and tls_enabled.
type RedisConfig struct {
	URL          string   `toml:"url"`
	Addr         string   `toml:"addr"`
	Password     string   `toml:"password"`
	DB           int      `toml:"db"`
	PoolSize     int      `toml:"pool_size"`
	MaxRetries   int      `toml:"max_retries"`
	TLSEnabled   bool     `toml:"tls_enabled"`
	QuoteTTL     duration `toml:"quote_ttl"`
	StreamMaxLen int64    `toml:"stream_max_len"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// SolverConfig tunes the implied volatility and implied spot searches.
type SolverConfig struct {
	Tolerance       float64 `toml:"tolerance"`
	MaxIterations   int     `toml:"max_iterations"`
	VolLower        float64 `toml:"vol_lower"`
	VolUpper        float64 `toml:"vol_upper"`
	InitialVol      float64 `toml:"initial_vol"`
	VegaFloor       float64 `toml:"vega_floor"`
	SpotLowerFactor float64 `toml:"spot_lower_factor"`
	SpotUpperFactor float64 `toml:"spot_upper_factor"`
	ExpansionFactor float64 `toml:"expansion_factor"`
	MaxExpansions   int     `toml:"max_expansions"`
}

// RateConfig controls where the risk-free rate comes from when a request
// does not carry one.
type RateConfig struct {
	// Default is used when the cache holds no rate, e.g. 0.05 for 5%.
	Default float64 `toml:"default"`
	// MaxAge discards cached rates older than this. Zero keeps them forever.
	MaxAge duration `toml:"max_age"`
}

// ArchiveConfig controls moving old scenarios to object storage.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	Interval      duration `toml:"interval"`
	RetentionDays int      `toml:"retention_days"`
	Prefix        string   `toml:"prefix"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey enables plaintext key auth; APIKeyHash takes a bcrypt hash instead.
	APIKey      string   `toml:"api_key"`
	APIKeyHash  string   `toml:"api_key_hash"`
	RateLimit   int      `toml:"rate_limit"`
	RateWindow  duration `toml:"rate_window"`

	// TrustedProxies lists addresses or CIDR prefixes whose X-Forwarded-For
	// header is believed when rate limiting.
	TrustedProxies []string `toml:"trusted_proxies"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "optionlab",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			DB:           0,
			PoolSize:     20,
			MaxRetries:   3,
			QuoteTTL:     duration{10 * time.Minute},
			StreamMaxLen: 10000,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "optionlab-archive",
			ForcePathStyle: true,
		},
		Solver: SolverConfig{
			Tolerance:       1e-6,
			MaxIterations:   100,
			VolLower:        1e-6,
			VolUpper:        5.0,
			InitialVol:      0.2,
			VegaFloor:       1e-8,
			SpotLowerFactor: 0.01,
			SpotUpperFactor: 100,
			ExpansionFactor: 10,
			MaxExpansions:   8,
		},
		Rate: RateConfig{
			Default: 0.05,
			MaxAge:  duration{24 * time.Hour},
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			Interval:      duration{24 * time.Hour},
			RetentionDays: 90,
			Prefix:        "archive/scenarios",
		},
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
			RateWindow:  duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"solver_failed", "archive_completed", "error"},
		},
		Mode:     "server",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"calc":    true,
	"server":  true,
	"archive": true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// NeedsPostgres reports whether the configured mode persists scenarios.
func (c *Config) NeedsPostgres() bool {
	m := strings.ToLower(c.Mode)
	return m == "server" || m == "archive" || m == "full"
}

// NeedsS3 reports whether the configured mode archives to object storage.
func (c *Config) NeedsS3() bool {
	m := strings.ToLower(c.Mode)
	return m == "archive" || (m == "full" && c.Archive.Enabled)
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: calc, server, archive, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Postgres
	if c.NeedsPostgres() {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Addr == "" && c.Redis.URL == "" {
		errs = append(errs, "redis: addr or url must be set")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}
	if c.Redis.QuoteTTL.Duration < 0 {
		errs = append(errs, "redis: quote_ttl must not be negative")
	}

	// S3
	if c.NeedsS3() {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
	}

	// Solver
	s := c.Solver
	if s.Tolerance <= 0 {
		errs = append(errs, "solver: tolerance must be > 0")
	}
	if s.MaxIterations < 1 {
		errs = append(errs, "solver: max_iterations must be >= 1")
	}
	if s.VolLower <= 0 || s.VolUpper <= s.VolLower {
		errs = append(errs, fmt.Sprintf("solver: need 0 < vol_lower < vol_upper, got %g and %g", s.VolLower, s.VolUpper))
	}
	if s.SpotLowerFactor <= 0 || s.SpotUpperFactor <= s.SpotLowerFactor {
		errs = append(errs, "solver: need 0 < spot_lower_factor < spot_upper_factor")
	}
	if s.ExpansionFactor <= 1 {
		errs = append(errs, "solver: expansion_factor must be > 1")
	}
	if s.MaxExpansions < 0 {
		errs = append(errs, "solver: max_expansions must be >= 0")
	}

	// Archive
	if c.Archive.Enabled || strings.ToLower(c.Mode) == "archive" {
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
		if c.Archive.Interval.Duration <= 0 {
			errs = append(errs, "archive: interval must be > 0")
		}
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.APIKey != "" && c.Server.APIKeyHash != "" {
		errs = append(errs, "server: set either api_key or api_key_hash, not both")
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, "server: rate_limit must be >= 0")
	}
	if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
		errs = append(errs, "server: rate_window must be > 0 when rate_limit is set")
	}
	for _, p := range c.Server.TrustedProxies {
		_, perr := netip.ParsePrefix(p)
		_, aerr := netip.ParseAddr(p)
		if perr != nil && aerr != nil {
			errs = append(errs, fmt.Sprintf("server: trusted_proxies entry %q is not an address or prefix", p))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

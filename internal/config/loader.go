package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies OPTIONLAB_* environment variable overrides, and
// returns the final Config. An empty path skips the file. The returned Config
// has NOT been validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known OPTIONLAB_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "OPTIONLAB_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "OPTIONLAB_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "OPTIONLAB_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "OPTIONLAB_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "OPTIONLAB_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "OPTIONLAB_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "OPTIONLAB_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "OPTIONLAB_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "OPTIONLAB_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "OPTIONLAB_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.URL, "OPTIONLAB_REDIS_URL")
	setStr(&cfg.Redis.Addr, "OPTIONLAB_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "OPTIONLAB_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "OPTIONLAB_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "OPTIONLAB_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "OPTIONLAB_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "OPTIONLAB_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.QuoteTTL, "OPTIONLAB_REDIS_QUOTE_TTL")
	setInt64(&cfg.Redis.StreamMaxLen, "OPTIONLAB_REDIS_STREAM_MAX_LEN")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "OPTIONLAB_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "OPTIONLAB_S3_REGION")
	setStr(&cfg.S3.Bucket, "OPTIONLAB_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "OPTIONLAB_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "OPTIONLAB_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "OPTIONLAB_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "OPTIONLAB_S3_FORCE_PATH_STYLE")

	// ── Solver ──
	setFloat64(&cfg.Solver.Tolerance, "OPTIONLAB_SOLVER_TOLERANCE")
	setInt(&cfg.Solver.MaxIterations, "OPTIONLAB_SOLVER_MAX_ITERATIONS")
	setFloat64(&cfg.Solver.VolLower, "OPTIONLAB_SOLVER_VOL_LOWER")
	setFloat64(&cfg.Solver.VolUpper, "OPTIONLAB_SOLVER_VOL_UPPER")
	setFloat64(&cfg.Solver.InitialVol, "OPTIONLAB_SOLVER_INITIAL_VOL")
	setFloat64(&cfg.Solver.VegaFloor, "OPTIONLAB_SOLVER_VEGA_FLOOR")
	setInt(&cfg.Solver.MaxExpansions, "OPTIONLAB_SOLVER_MAX_EXPANSIONS")

	// ── Rate ──
	setFloat64(&cfg.Rate.Default, "OPTIONLAB_RATE_DEFAULT")
	setDuration(&cfg.Rate.MaxAge, "OPTIONLAB_RATE_MAX_AGE")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "OPTIONLAB_ARCHIVE_ENABLED")
	setDuration(&cfg.Archive.Interval, "OPTIONLAB_ARCHIVE_INTERVAL")
	setInt(&cfg.Archive.RetentionDays, "OPTIONLAB_ARCHIVE_RETENTION_DAYS")
	setStr(&cfg.Archive.Prefix, "OPTIONLAB_ARCHIVE_PREFIX")

	// ── Server ──
	setInt(&cfg.Server.Port, "OPTIONLAB_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "OPTIONLAB_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "OPTIONLAB_SERVER_API_KEY")
	setStr(&cfg.Server.APIKeyHash, "OPTIONLAB_SERVER_API_KEY_HASH")
	setInt(&cfg.Server.RateLimit, "OPTIONLAB_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "OPTIONLAB_SERVER_RATE_WINDOW")
	setStringSlice(&cfg.Server.TrustedProxies, "OPTIONLAB_SERVER_TRUSTED_PROXIES")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "OPTIONLAB_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "OPTIONLAB_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "OPTIONLAB_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "OPTIONLAB_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "OPTIONLAB_MODE")
	setStr(&cfg.LogLevel, "OPTIONLAB_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}

package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/alanyoungcy/optionlab/internal/blob/s3"
	"github.com/alanyoungcy/optionlab/internal/cache/redis"
	"github.com/alanyoungcy/optionlab/internal/config"
	"github.com/alanyoungcy/optionlab/internal/domain"
	"github.com/alanyoungcy/optionlab/internal/notify"
	"github.com/alanyoungcy/optionlab/internal/pricing"
	"github.com/alanyoungcy/optionlab/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need. Fields stay nil when the mode does not use them.
type Dependencies struct {
	Solver *pricing.Solver

	// Stores
	ScenarioStore domain.ScenarioStore
	AuditStore    domain.AuditStore

	// Caches
	RateCache   domain.RateCache
	QuoteCache  domain.QuoteCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// Blob storage
	BlobReader domain.BlobReader
	Archiver   domain.Archiver

	// Notifications
	Notifier *notify.Notifier

	// Health probes keyed by dependency name.
	Checks map[string]func(ctx context.Context) error
}

// SolverConfig converts the solver section of cfg.
func SolverConfig(cfg config.SolverConfig) pricing.SolverConfig {
	return pricing.SolverConfig{
		Tolerance:       cfg.Tolerance,
		MaxIterations:   cfg.MaxIterations,
		VolLower:        cfg.VolLower,
		VolUpper:        cfg.VolUpper,
		InitialVol:      cfg.InitialVol,
		VegaFloor:       cfg.VegaFloor,
		SpotLowerFactor: cfg.SpotLowerFactor,
		SpotUpperFactor: cfg.SpotUpperFactor,
		ExpansionFactor: cfg.ExpansionFactor,
		MaxExpansions:   cfg.MaxExpansions,
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	solver, err := pricing.NewSolver(SolverConfig(cfg.Solver))
	if err != nil {
		return nil, nil, fmt.Errorf("wire: %w", err)
	}
	deps := &Dependencies{
		Solver: solver,
		Checks: make(map[string]func(ctx context.Context) error),
	}

	// --- PostgreSQL (only for modes that persist scenarios) ---
	if cfg.NeedsPostgres() {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.ScenarioStore = postgres.NewScenarioStore(pool)
		deps.AuditStore = postgres.NewAuditStore(pool)
		deps.Checks["postgres"] = pgClient.Health
	}

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		URL:        cfg.Redis.URL,
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.RateCache = redis.NewRateCache(redisClient)
	deps.QuoteCache = redis.NewQuoteCache(redisClient, cfg.Redis.QuoteTTL.Duration)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient, cfg.Redis.StreamMaxLen)
	deps.Checks["redis"] = redisClient.Ping

	// --- S3 blob storage (archiving needs Postgres as the source) ---
	if cfg.NeedsS3() {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		reader := s3blob.NewReader(s3Client)
		deps.BlobReader = reader
		deps.Checks["s3"] = s3Client.Health
		if deps.ScenarioStore != nil && deps.AuditStore != nil {
			deps.Archiver = s3blob.NewArchiver(
				s3blob.NewWriter(s3Client),
				reader,
				deps.ScenarioStore,
				deps.AuditStore,
				s3blob.ArchiverConfig{Prefix: archivePrefix(cfg)},
			)
		}
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

// archivePrefix is the object key prefix shared by the archiver and listings.
func archivePrefix(cfg *config.Config) string {
	return strings.Trim(cfg.Archive.Prefix, "/")
}

package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/galebot/galebot/internal/blob/s3"
	"github.com/galebot/galebot/internal/cache/redis"
	"github.com/galebot/galebot/internal/config"
	"github.com/galebot/galebot/internal/domain"
	"github.com/galebot/galebot/internal/forecast"
	"github.com/galebot/galebot/internal/forecast/gefs"
	"github.com/galebot/galebot/internal/notify"
	"github.com/galebot/galebot/internal/platform/polymarket"
	"github.com/galebot/galebot/internal/service"
	"github.com/galebot/galebot/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency the application modes
// need. Constructed by Wire and torn down by the returned cleanup function.
// Fields stay nil when the mode does not need them.
type Dependencies struct {
	// Stores
	MarketStore   domain.MarketStore
	SnapshotStore domain.SnapshotStore
	OutcomeStore  domain.OutcomeStore
	OrderStore    domain.OrderStore
	AuditStore    domain.AuditStore

	// Caches
	QuoteCache domain.QuoteCache

	// Blob storage
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   *s3blob.Archiver

	// Venue and forecast clients
	Gamma    *polymarket.GammaClient
	Forecast *service.ForecastService

	// Notifications
	Notifier *notify.Notifier
}

// needsPostgres reports whether a mode requires the database.
func needsPostgres(mode string) bool {
	switch mode {
	case "signal", "scan", "backtest", "outcome", "full":
		return true
	default:
		return false
	}
}

// needsRedis reports whether a mode requires the quote cache.
func needsRedis(mode string) bool {
	switch mode {
	case "signal", "monitor", "full":
		return true
	default:
		return false
	}
}

// needsS3 reports whether a mode can use object storage. Wiring still
// requires s3.enabled in the configuration; archival is optional everywhere.
func needsS3(mode string) bool {
	switch mode {
	case "backtest", "full":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations for the configured
// mode and returns them together with a cleanup function to be called on
// shutdown.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	if needsPostgres(cfg.Mode) {
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
		deps.MarketStore = postgres.NewMarketStore(pool)
		deps.SnapshotStore = postgres.NewSnapshotStore(pool)
		deps.OutcomeStore = postgres.NewOutcomeStore(pool)
		deps.OrderStore = postgres.NewOrderStore(pool)
		deps.AuditStore = postgres.NewAuditStore(pool)
	}

	if needsRedis(cfg.Mode) {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.QuoteCache = redis.NewQuoteCache(redisClient)
	}

	if needsS3(cfg.Mode) && cfg.S3.Enabled {
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
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.BlobReader = s3blob.NewReader(s3Client)
		// AuditStore may be nil in backtest-only wiring; the archiver then
		// skips the audit record.
		deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.AuditStore)
	}

	deps.Gamma = polymarket.NewGammaClient(cfg.Polymarket.GammaHost)
	deps.Forecast = service.NewForecastService(
		gefs.NewClient(cfg.GEFS.BaseURL),
		forecast.NewEstimator(),
		cfg.GEFS.LookbackDays,
		logger,
	)

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

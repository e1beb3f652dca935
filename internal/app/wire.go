package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/kalshibot/internal/blob/s3"
	"github.com/alanyoungcy/kalshibot/internal/cache/redis"
	"github.com/alanyoungcy/kalshibot/internal/classifier"
	"github.com/alanyoungcy/kalshibot/internal/config"
	"github.com/alanyoungcy/kalshibot/internal/crypto"
	"github.com/alanyoungcy/kalshibot/internal/domain"
	"github.com/alanyoungcy/kalshibot/internal/notify"
	"github.com/alanyoungcy/kalshibot/internal/platform/kalshi"
	"github.com/alanyoungcy/kalshibot/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Exchange
	Client  *kalshi.Client
	Gateway *kalshi.Gateway

	// Stores
	SnapshotStore *postgres.SnapshotStore
	BasketStore   *postgres.BasketStore

	// Caches (nil unless Redis is enabled)
	ClassificationCache domain.ClassificationCache
	PricingCache        domain.PricingCache
	LockManager         domain.LockManager

	// Blob storage (nil unless S3 is enabled)
	Archiver *s3blob.Archiver

	// Notifications
	Alerts *notify.Alerts
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

	deps := &Dependencies{}

	// --- Exchange client ---
	keyPEM, err := crypto.LoadKeyPEM(crypto.KeyConfig{
		KeyPath:          cfg.Kalshi.RsaPrivateKeyPath,
		EncryptedKeyPath: cfg.Kalshi.EncryptedKeyPath,
		KeyPassword:      cfg.Kalshi.KeyPassword,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: api key: %w", err)
	}
	signer, err := kalshi.NewRSASigner(cfg.Kalshi.ApiKeyID, keyPEM)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: request signer: %w", err)
	}
	deps.Client = kalshi.NewClient(cfg.Kalshi.BaseURL, signer)
	deps.Gateway = kalshi.NewGateway(deps.Client)

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.SnapshotStore = postgres.NewSnapshotStore(pool)
	deps.BasketStore = postgres.NewBasketStore(pool)

	// --- Redis (optional) ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
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

		deps.ClassificationCache = redis.NewClassificationCache(redisClient, cfg.Classifier.CacheTTL.Duration)
		deps.PricingCache = redis.NewPricingCache(redisClient, 0)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.Client.SetRateLimiter(redis.NewRateLimiter(redisClient))
	} else {
		deps.ClassificationCache = classifier.NewMemoryCache(cfg.Classifier.CacheTTL.Duration)
	}

	// --- S3 blob storage (optional) ---
	if cfg.S3.Enabled {
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

		deps.Archiver = s3blob.NewArchiver(
			s3blob.NewWriter(s3Client),
			deps.SnapshotStore,
			deps.BasketStore,
			cfg.S3.Prefix,
		)
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
	deps.Alerts = notify.NewAlerts(notify.NewNotifier(senders, cfg.Notify.Events, logger))

	return deps, cleanup, nil
}

package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/openpredict/wagerd/internal/blob/s3"
	"github.com/openpredict/wagerd/internal/cache/redis"
	"github.com/openpredict/wagerd/internal/chain"
	"github.com/openpredict/wagerd/internal/config"
	"github.com/openpredict/wagerd/internal/domain"
	"github.com/openpredict/wagerd/internal/keys"
	"github.com/openpredict/wagerd/internal/notify"
	"github.com/openpredict/wagerd/internal/service"
	"github.com/openpredict/wagerd/internal/store/postgres"
)

// Dependencies bundles everything the application modes need. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Contract boundary
	Reader domain.ContractReader
	Writer domain.ContractWriter
	Keys   *keys.Keyring

	// Redis
	MarketCache domain.MarketCache
	SignalBus   domain.SignalBus
	RateLimiter domain.RateLimiter

	// Postgres
	ActionStore domain.ActionStore

	// Settlement archive
	Archiver *s3blob.SettlementArchiver

	// Notifications
	Notifier *notify.Notifier

	// Services
	Snapshots *service.SnapshotService
	Positions *service.PositionService
	Actions   *service.ActionService
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them with a cleanup function for shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Chain client ---
	chainClient, err := chain.Dial(ctx, chain.ClientConfig{
		RPCURL:          cfg.Chain.RPCURL,
		ContractAddress: cfg.Chain.ContractAddress,
		CallTimeout:     cfg.Chain.CallTimeout.Duration,
		MineTimeout:     cfg.Chain.MineTimeout.Duration,
	}, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: chain: %w", err)
	}
	closers = append(closers, chainClient.Close)
	deps.Reader = chain.NewReader(chainClient)

	// --- Signing key (optional; without it the gateway is read-only) ---
	if cfg.Wallet.PrivateKey != "" || cfg.Wallet.EncryptedKeyPath != "" {
		kr, err := keys.Open(keys.Config{
			RawPrivateKey:    cfg.Wallet.PrivateKey,
			EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
			KeyPassword:      cfg.Wallet.KeyPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: wallet: %w", err)
		}
		deps.Keys = kr
		deps.Writer = chain.NewWriter(chainClient, kr.PrivateKey(), cfg.Chain.ChainID)
		logger.InfoContext(ctx, "wallet loaded",
			slog.String("address", kr.Address().Hex()),
		)
	} else {
		logger.InfoContext(ctx, "no wallet configured, actions disabled")
	}

	// --- Redis ---
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

	deps.MarketCache = redis.NewMarketCache(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)

	// --- Postgres audit store ---
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
	deps.ActionStore = postgres.NewActionStore(pgClient.Pool())

	// --- Settlement archive (optional) ---
	if cfg.Archive.Enabled {
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
		deps.Archiver = s3blob.NewSettlementArchiver(
			s3blob.NewWriter(s3Client), s3blob.NewReader(s3Client),
			cfg.Archive.Prefix, logger)
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

	// --- Services ---
	deps.Snapshots = service.NewSnapshotService(deps.Reader, deps.MarketCache, logger)
	deps.Snapshots.SetConcurrency(cfg.Refresh.Concurrency)
	deps.Positions = service.NewPositionService(deps.Reader, deps.Snapshots, logger)

	var signer service.Signer
	if deps.Keys != nil {
		signer = deps.Keys
	}
	var archiver service.Archiver
	if deps.Archiver != nil {
		archiver = deps.Archiver
	}
	deps.Actions = service.NewActionService(
		deps.Reader, deps.Writer, signer, cfg.Chain.OwnerAddress,
		deps.MarketCache, deps.SignalBus, deps.ActionStore,
		deps.Notifier, archiver, deps.Snapshots, logger,
	)

	return deps, cleanup, nil
}

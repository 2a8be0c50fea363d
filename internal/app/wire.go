package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/sequencetheory/sequence-backend/internal/blob/s3"
	"github.com/sequencetheory/sequence-backend/internal/cache/memory"
	"github.com/sequencetheory/sequence-backend/internal/cache/redis"
	"github.com/sequencetheory/sequence-backend/internal/config"
	"github.com/sequencetheory/sequence-backend/internal/domain"
	"github.com/sequencetheory/sequence-backend/internal/indices"
	"github.com/sequencetheory/sequence-backend/internal/notify"
	"github.com/sequencetheory/sequence-backend/internal/platform/coingecko"
	"github.com/sequencetheory/sequence-backend/internal/platform/turnkey"
	"github.com/sequencetheory/sequence-backend/internal/server/handler"
	"github.com/sequencetheory/sequence-backend/internal/server/ws"
	"github.com/sequencetheory/sequence-backend/internal/service"
	"github.com/sequencetheory/sequence-backend/internal/store/postgres"
)

// Dependencies bundles everything the server needs to run. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Indices *indices.Service
	Wallets *service.WalletService
	Hub     *ws.Hub
	Health  handler.HealthStatus
}

// Wire constructs all concrete dependencies from the configuration and
// returns them together with a cleanup function to call on shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Supabase.DSN,
		Host:     cfg.Supabase.Host,
		Port:     cfg.Supabase.Port,
		Database: cfg.Supabase.Database,
		User:     cfg.Supabase.User,
		Password: cfg.Supabase.Password,
		SSLMode:  cfg.Supabase.SSLMode,
		MaxConns: cfg.Supabase.PoolMaxConns,
		MinConns: cfg.Supabase.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Supabase.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	profileStore := postgres.NewProfileStore(pool)
	walletStore := postgres.NewWalletStore(pool)

	// --- Redis (optional shared snapshot cache) ---
	var snapshotCache domain.SnapshotCache
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
		snapshotCache = redis.NewSnapshotCache(redisClient)
	}

	// --- S3 (optional snapshot archive) ---
	var archiver indices.SnapshotArchiver
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
		archiver = s3blob.NewArchiver(s3Client)
	}

	// --- Notifications (optional) ---
	var notifier *notify.Notifier
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders := []notify.Sender{
			notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID),
		}
		notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)
	}

	// --- Index pipeline ---
	hub := ws.NewHub(logger)
	fetcher := coingecko.New(cfg.CoinGecko.BaseURL, cfg.CoinGecko.APIKey, logger)
	calculator := indices.NewCalculator(logger)
	cache := memory.New(logger)
	indexService := indices.NewService(fetcher, calculator, cache, snapshotCache, hub, archiver, logger)

	// --- Wallet custody ---
	var custody service.CustodyClient
	if cfg.Turnkey.Configured() {
		tkClient, err := turnkey.New(turnkey.Config{
			BaseURL:       cfg.Turnkey.BaseURL,
			PublicKeyHex:  cfg.Turnkey.APIPublicKey,
			PrivateKeyHex: cfg.Turnkey.APIPrivateKey,
			OrgID:         cfg.Turnkey.OrganizationID,
		}, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: turnkey: %w", err)
		}
		custody = tkClient
	} else {
		logger.Warn("turnkey credentials not set, wallet endpoints disabled")
		custody = unconfiguredCustody{}
	}

	var svcNotifier service.Notifier
	if notifier != nil {
		svcNotifier = notifier
	}
	walletService := service.NewWalletService(custody, profileStore, walletStore, svcNotifier, logger)

	deps := &Dependencies{
		Indices: indexService,
		Wallets: walletService,
		Hub:     hub,
		Health: handler.HealthStatus{
			TurnkeyConfigured:   cfg.Turnkey.Configured(),
			SupabaseConfigured:  true,
			CoinGeckoConfigured: cfg.CoinGecko.APIKey != "",
			RedisConfigured:     cfg.Redis.Enabled,
			S3Configured:        cfg.S3.Enabled,
		},
	}
	return deps, cleanup, nil
}

// unconfiguredCustody stands in for the Turnkey client when credentials
// are absent. Every operation fails with domain.ErrNotConfigured.
type unconfiguredCustody struct{}

func (unconfiguredCustody) CreateSubOrganization(context.Context, string, string) (turnkey.SubOrgWallet, error) {
	return turnkey.SubOrgWallet{}, domain.ErrNotConfigured
}

func (unconfiguredCustody) CreateWallet(context.Context, string, string) (string, string, error) {
	return "", "", domain.ErrNotConfigured
}

func (unconfiguredCustody) CreateOTPPolicy(context.Context, string) (string, error) {
	return "", domain.ErrNotConfigured
}

func (unconfiguredCustody) InitOTP(context.Context, string, string) (string, error) {
	return "", domain.ErrNotConfigured
}

func (unconfiguredCustody) VerifyOTP(context.Context, string, string, string) error {
	return domain.ErrNotConfigured
}

func (unconfiguredCustody) SignMessage(context.Context, string, string, string) (domain.SignatureParts, error) {
	return domain.SignatureParts{}, domain.ErrNotConfigured
}

func (unconfiguredCustody) SignTransaction(context.Context, string, string, string) (string, error) {
	return "", domain.ErrNotConfigured
}

// Compile-time interface check.
var _ service.CustodyClient = unconfiguredCustody{}

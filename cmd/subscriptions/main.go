// File: cmd/subscriptions/main.go
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"nova-payments/internal/config"
	"nova-payments/internal/domain/ports/repository"
	"nova-payments/internal/infra/api"
	"nova-payments/internal/infra/api/apiv1"
	"nova-payments/internal/infra/db/memory"
	pg "nova-payments/internal/infra/db/postgres"
	"nova-payments/internal/infra/logging"
	"nova-payments/internal/infra/metrics"
	red "nova-payments/internal/infra/redis"
	"nova-payments/internal/usecase"
)

// Set with -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := flag.String("config", "", "path to YAML config file (optional)")
	devMode := flag.Bool("dev", false, "enable developer mode")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		l := zerolog.New(os.Stderr).With().Timestamp().Logger()
		l.Fatal().Err(err).Msg("config")
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if err := cfg.Validate(config.ServiceSubscriptions); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	metrics.MustRegister()
	metrics.SetBuildInfo(config.ServiceSubscriptions, version, commit)
	if cfg.Subscriptions.FakeAllActive {
		logger.Warn().Msg("subscriptions.fake_all_active is set; every access check passes")
	}

	checks := map[string]api.HealthCheck{}

	// ---- Storage ----
	var (
		subRepo repository.SubscriptionRepository
		tm      repository.TransactionManager
	)
	if cfg.Database.Memory {
		logger.Warn().Msg("database.memory is set; subscriptions are not persisted")
		store := memory.NewStore()
		subRepo, tm = memory.NewSubscriptionRepo(store), memory.NewTxManager(store)
	} else {
		if cfg.Database.Migrate {
			if err := pg.Migrate(cfg.Database.URL, pg.SchemaSubscriptions); err != nil {
				logger.Fatal().Err(err).Msg("migrate")
			}
		}
		pool, err := pg.Connect(ctx, cfg.Database)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres")
		}
		defer pool.Close()
		go pg.ReportPoolStats(ctx, pool, 15*time.Second)
		checks["postgres"] = pool.Ping
		subRepo, tm = pg.NewSubscriptionRepo(pool), pg.NewTxManager(pool)
	}

	// ---- Redis access cache (optional) ----
	if cfg.Redis.URL != "" {
		rc, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer rc.Close()
		checks["redis"] = rc.Ping
		subRepo = pg.NewSubscriptionRepoCacheDecorator(subRepo, rc, cfg.Redis.TTL)
	}

	subUC := usecase.NewSubscriptionUseCase(subRepo, tm, cfg.Subscriptions.FakeAllActive, logger)

	router := api.NewRouter(cfg.HTTP, logger, checks)
	auth := api.NewJWTAuth(cfg.JWT.Secret, cfg.JWT.Issuer)
	apiv1.RegisterSubscriptions(router, apiv1.NewSubscriptionsHandler(subUC, logger), auth.Middleware, api.InternalKey(cfg.Internal.APIKey, logger))

	if err := api.NewServer(cfg.HTTP, router, logger).Run(ctx); err != nil {
		logger.Error().Err(err).Msg("http server stopped")
	}
	logger.Info().Msg("shutdown complete")
}

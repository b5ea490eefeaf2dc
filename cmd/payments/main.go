// File: cmd/payments/main.go
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
	"nova-payments/internal/domain/model"
	"nova-payments/internal/domain/ports/adapter"
	"nova-payments/internal/domain/ports/repository"
	"nova-payments/internal/infra/adapters/monero"
	"nova-payments/internal/infra/adapters/notify"
	"nova-payments/internal/infra/adapters/stripe"
	"nova-payments/internal/infra/adapters/subscriptions"
	"nova-payments/internal/infra/api"
	"nova-payments/internal/infra/api/apiv1"
	"nova-payments/internal/infra/db/memory"
	pg "nova-payments/internal/infra/db/postgres"
	"nova-payments/internal/infra/events"
	"nova-payments/internal/infra/logging"
	"nova-payments/internal/infra/metrics"
	red "nova-payments/internal/infra/redis"
	"nova-payments/internal/infra/sched"
	"nova-payments/internal/infra/worker"
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

	// ---- CLI flags ----
	cfgPath := flag.String("config", "", "path to YAML config file (optional)")
	rail := flag.String("rail", "", "payment rail to serve: fiat|crypto (overrides config)")
	devMode := flag.Bool("dev", false, "enable developer mode (verbose logs, unredacted ids)")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		bootLogger().Fatal().Err(err).Msg("config")
	}
	if *rail != "" {
		cfg.Payments.Rail = *rail
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if err := cfg.Validate(config.ServicePayments); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	service := "payments-" + cfg.Payments.Rail
	metrics.MustRegister()
	metrics.SetBuildInfo(service, version, commit)
	logger.Info().Str("service", service).Bool("dev", cfg.Runtime.Dev).Msg("starting")

	checks := map[string]api.HealthCheck{}

	// ---- Storage ----
	var (
		payRepo repository.PaymentRepository
		tm      repository.TransactionManager
	)
	if cfg.Database.Memory {
		logger.Warn().Msg("database.memory is set; payments are not persisted")
		store := memory.NewStore()
		payRepo, tm = memory.NewPaymentRepo(store), memory.NewTxManager(store)
	} else {
		if cfg.Database.Migrate {
			if err := pg.Migrate(cfg.Database.URL, pg.SchemaPayments); err != nil {
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
		payRepo, tm = pg.NewPaymentRepo(pool, model.Rail(cfg.Payments.Rail)), pg.NewTxManager(pool)
	}

	// ---- Redis (optional) ----
	var (
		locker     sched.Locker
		dedupe     apiv1.EventDeduper
		createRate api.Middleware
	)
	if cfg.Redis.URL != "" {
		rc, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer rc.Close()
		checks["redis"] = rc.Ping
		locker = red.NewLocker(rc)
		dedupe = red.NewEventDeduper(rc, "stripe", cfg.Stripe.DedupeTTL)
		createRate = api.RateLimit(red.NewRateLimiter(rc), cfg.Payments.CreateRateLimit, cfg.Payments.CreateRateWindow, red.CheckoutKey, logger)
	} else {
		logger.Warn().Msg("redis.url is empty; webhook dedupe, monitor leader lock and checkout rate limit are off")
	}

	// ---- Workers and events ----
	pool := worker.NewPool(cfg.Workers.Count, cfg.Workers.Queue, logger)
	pool.Start(context.WithoutCancel(ctx))
	defer pool.Stop()
	bus := events.NewBus(pool, logger)

	// ---- Outbound adapters ----
	var (
		checkout adapter.CheckoutProvider
		wallet   *monero.WalletRPC
		verifier apiv1.WebhookVerifier
	)
	switch model.Rail(cfg.Payments.Rail) {
	case model.RailFiat:
		checkout = stripe.NewCheckoutProvider(cfg.Stripe.SecretKey, 10*time.Second, logger)
		verifier = stripe.NewVerifier(cfg.Stripe.WebhookSecret, cfg.Stripe.Tolerance)
		if cfg.Stripe.WebhookSecret == "" {
			logger.Warn().Msg("stripe.webhook_secret is empty; webhooks will be rejected")
		}
	case model.RailCrypto:
		if cfg.Payments.FakeMode {
			logger.Warn().Msg("payments.fake_mode is set; issuing simulated addresses")
			checkout = monero.NewSimulatedCheckoutProvider()
			break
		}
		wallet, err = monero.NewWalletRPC(cfg.Monero, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("monero wallet rpc")
		}
		checkout = monero.NewCheckoutProvider(wallet, cfg.Monero.AccountIndex)
	}

	subsClient, err := subscriptions.NewHTTPClient(cfg.Subscriptions.Client, cfg.Internal.APIKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("subscriptions client")
	}
	notifier, closeNotifier, err := notify.New(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("notifier")
	}
	// Activation jobs still in the queue use the notifier.
	pool.OnStop(closeNotifier)

	// ---- Use cases ----
	retry := cfg.Subscriptions.Retry
	payUC := usecase.NewPaymentUseCase(payRepo, checkout, bus, tm, cfg.Payments.CheckoutTTL, logger)
	actUC := usecase.NewActivationUseCase(subsClient, notifier, payRepo, tm, usecase.RetryPolicy{
		MaxAttempts:    retry.MaxAttempts,
		InitialBackoff: retry.InitialBackoff,
		Multiplier:     retry.Multiplier,
		MaxBackoff:     retry.MaxBackoff,
	}, logger)
	bus.Subscribe(model.EventPaymentConfirmed, actUC.HandlePaymentConfirmed)

	// ---- Payment monitor ----
	if wallet != nil && cfg.Payments.MonitorEnabled {
		monitor := sched.NewPaymentMonitor(payUC, wallet, locker, sched.MonitorOptions{
			Interval: cfg.Payments.MonitorInterval,
			Batch:    cfg.Payments.MonitorBatch,
			LockTTL:  cfg.Payments.MonitorLockTTL,
		}, logger)
		go func() { _ = monitor.Run(ctx) }()
	}

	// ---- HTTP ----
	router := api.NewRouter(cfg.HTTP, logger, checks)
	auth := api.NewJWTAuth(cfg.JWT.Secret, cfg.JWT.Issuer)
	handler := apiv1.NewPaymentsHandler(model.Rail(cfg.Payments.Rail), payUC, verifier, dedupe, cfg.Runtime.Dev, logger)
	apiv1.RegisterPayments(router, handler, apiv1.PaymentMiddleware{
		Auth:        auth.Middleware,
		Internal:    api.InternalKey(cfg.Internal.APIKey, logger),
		CreateLimit: createRate,
	})

	if err := api.NewServer(cfg.HTTP, router, logger).Run(ctx); err != nil {
		logger.Error().Err(err).Msg("http server stopped")
	}
	logger.Info().Msg("shutdown complete")
}

func bootLogger() *zerolog.Logger {
	l := zerolog.New(os.Stderr).With().Timestamp().Logger()
	return &l
}

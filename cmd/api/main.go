// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/tonymphomilanzi/microbid/internal/admin"
	"github.com/tonymphomilanzi/microbid/internal/auth"
	"github.com/tonymphomilanzi/microbid/internal/config"
	"github.com/tonymphomilanzi/microbid/internal/core"
	"github.com/tonymphomilanzi/microbid/internal/escrow"
	"github.com/tonymphomilanzi/microbid/internal/events"
	"github.com/tonymphomilanzi/microbid/internal/fee"
	"github.com/tonymphomilanzi/microbid/internal/health"
	"github.com/tonymphomilanzi/microbid/internal/listing"
	"github.com/tonymphomilanzi/microbid/internal/metrics"
	"github.com/tonymphomilanzi/microbid/internal/middleware"
	"github.com/tonymphomilanzi/microbid/internal/migrations"
	"github.com/tonymphomilanzi/microbid/internal/quota"
	"github.com/tonymphomilanzi/microbid/internal/server"
	"github.com/tonymphomilanzi/microbid/internal/subscription"
	"github.com/tonymphomilanzi/microbid/internal/user"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not load .env file", "error", err)
	}

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) {
		configPath = ""
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	if cfg.Database.AutoMigrate {
		if err := migrations.Apply(ctx, db.DB); err != nil {
			return err
		}
	}

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT verifier initialized",
		"algorithm", "ES256",
		"issuer", cfg.JWT.Issuer,
	)

	publisher := events.NewLogPublisher(logger)
	var brokerCheck []health.Dependency
	if cfg.RabbitMQ.Enabled {
		mq, mqErr := events.NewRabbitPublisher(cfg.RabbitMQ)
		if mqErr != nil {
			logger.Warn("rabbitmq unavailable, events will only be logged", "error", mqErr)
		} else {
			publisher = mq
			if checker, ok := mq.(health.Checker); ok {
				brokerCheck = append(brokerCheck, health.Dependency{
					Name:     "rabbitmq",
					Checker:  checker,
					Optional: true,
				})
			}
			logger.Info("rabbitmq publisher ready", "exchange", cfg.RabbitMQ.Exchange)
		}
	}

	policy := fee.PolicyFromConfig(cfg.Fee)
	if err := policy.Validate(); err != nil {
		return err
	}

	// validated by config.Load
	location, _ := time.LoadLocation(cfg.Quota.Timezone) //nolint:errcheck

	userRepo := user.NewRepository(db.DB)
	userSvc := user.NewService(userRepo)
	userHandler := user.NewHandler(userSvc)

	subscriptionSvc := subscription.NewService(
		subscription.Stores{
			Plans:    subscription.NewPlanRepository(db.DB),
			Payments: subscription.NewPaymentRepository(db.DB),
			Users:    userRepo,
		},
		subscription.NewUnitOfWork(db.DB),
		subscription.WithPublisher(publisher),
	)
	subscriptionHandler := subscription.NewHandler(subscriptionSvc)

	quotaOpts := []quota.Option{quota.WithLocation(location)}
	var quotaStore quota.Store
	switch cfg.Quota.Store {
	case config.QuotaStoreRedis:
		quotaStore = quota.NewRedisStore(redis.Universal())
	default:
		quotaStore = quota.NewPostgresStore(db.DB)
		quotaOpts = append(quotaOpts, quota.WithTxStore(quota.NewPostgresStore))
	}
	quotaSvc := quota.NewService(quotaStore, subscriptionSvc, quotaOpts...)
	quotaHandler := quota.NewHandler(quotaSvc)
	logger.Info("quota store selected",
		"store", cfg.Quota.Store,
		"timezone", cfg.Quota.Timezone,
	)

	listingRepo := listing.NewRepository(db.DB)
	listingSvc := listing.NewService(listingRepo, listing.NewUnitOfWork(db.DB), quotaSvc)
	listingHandler := listing.NewHandler(listingSvc)

	escrowSvc := escrow.NewService(
		escrow.Stores{
			Escrows:   escrow.NewRepository(db.DB),
			Purchases: escrow.NewPurchaseRepository(db.DB),
			Listings:  listingRepo,
			Users:     userRepo,
		},
		escrow.NewUnitOfWork(db.DB),
		policy,
		escrow.WithPublisher(publisher),
	)
	escrowHandler := escrow.NewHandler(escrowSvc)

	feeHandler := fee.NewHandler(policy)

	healthHandler := health.NewHandler(db, redis, brokerCheck...)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DBStats:    db.Stats,
		RedisStats: redis.PoolStats,
		DBPing:     db.Ping,
		RedisPing:  redis.Ping,
		Escrows:    escrowSvc,
		Payments:   subscriptionSvc,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	if cfg.Metrics.Enabled {
		router.Use(metrics.Instrument)
	}
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			FailOpen: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	if cfg.Metrics.Enabled {
		router.Method(http.MethodGet, cfg.Metrics.Path, metrics.Handler())
	}

	tiered := middleware.TieredRateLimiter(redis.Client, middleware.TiersFromConfig(cfg.RateLimit.Tiers))
	verify := middleware.Authenticator(jwtManager)
	authenticator := func(next http.Handler) http.Handler {
		return verify(tiered(next))
	}
	adminOnly := middleware.RequireAdmin

	router.Route("/v1", func(r chi.Router) {
		feeHandler.RegisterRoutes(r)

		userHandler.RegisterRoutes(r, authenticator)
		userHandler.RegisterAdminRoutes(r, authenticator, adminOnly)

		quotaHandler.RegisterRoutes(r, authenticator)
		listingHandler.RegisterRoutes(r, authenticator)

		escrowHandler.RegisterRoutes(r, authenticator)
		escrowHandler.RegisterAdminRoutes(r, authenticator, adminOnly)

		subscriptionHandler.RegisterRoutes(r, authenticator)
		subscriptionHandler.RegisterAdminRoutes(r, authenticator, adminOnly)

		adminHandler.RegisterRoutes(r, authenticator, adminOnly)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if err := publisher.Close(); err != nil {
		logger.Error("event publisher close error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

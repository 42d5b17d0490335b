package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"needthisdone-payments/config"
	"needthisdone-payments/controllers"
	"needthisdone-payments/database"
	"needthisdone-payments/dedup"
	"needthisdone-payments/logging"
	"needthisdone-payments/middlewares"
	"needthisdone-payments/payments"
	"needthisdone-payments/routes"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- Stores
	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal("database connect failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal("database migrate failed", zap.Error(err))
	}
	rdb, err := database.ConnectRedis(ctx, cfg)
	if err != nil {
		logger.Fatal("redis connect failed", zap.Error(err))
	}
	defer func() { _ = rdb.Close() }()

	// ---- Domain
	guard := dedup.NewGuard(dedup.NewRedisStore(rdb),
		dedup.WithTTL(cfg.DedupTTL),
		dedup.WithTimeout(cfg.DedupTimeout),
		dedup.WithLogger(logger.Named("dedup")),
	)
	ledger := payments.NewLedger(payments.NewGormAttemptRepository(db), cfg.StoreTimeout, logger.Named("ledger"))
	svc := payments.NewService(ledger, payments.NewGormOrderRepository(db), cfg.StoreTimeout, logger.Named("payments"))

	auth, err := middlewares.NewAuth(cfg.JWTSecret)
	if err != nil {
		logger.Fatal("auth setup failed", zap.Error(err))
	}

	ctrl := controllers.New(controllers.Options{
		DB:                   db,
		Auth:                 auth,
		Payments:             svc,
		Guard:                guard,
		AdminRegistrationKey: cfg.AdminRegistrationKey,
		WebhookSecret:        cfg.WebhookSecret,
		Health:               healthCheck(db, rdb),
		Log:                  logger,
	})

	app := routes.NewApp(cfg, routes.Deps{
		Controller: ctrl,
		Auth:       auth,
		Guard:      guard,
		Log:        logger,
	})

	// ---- Start
	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("API server starting", zap.String("port", cfg.Port), zap.Bool("dedup_fail_open", cfg.DedupFailOpen))
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Fatal("listen failed", zap.Error(err))
	}
}

func healthCheck(db *gorm.DB, rdb redis.UniversalClient) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return database.Ping(ctx, db, rdb)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/urbankart/storefront-backend/internal/cron"
	"github.com/urbankart/storefront-backend/internal/orders"
	"github.com/urbankart/storefront-backend/pkg/config"
	"github.com/urbankart/storefront-backend/pkg/db"
	"github.com/urbankart/storefront-backend/pkg/logger"
	"github.com/urbankart/storefront-backend/pkg/metrics"
	"github.com/urbankart/storefront-backend/pkg/migrate"
	"github.com/urbankart/storefront-backend/pkg/outbox"
	"github.com/urbankart/storefront-backend/pkg/redis"
)

const lockKeyFormat = "uk:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	fatal := func(msg string, err error) {
		logg.Error(context.Background(), msg, err)
		os.Exit(1)
	}

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		fatal("failed to bootstrap database", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		fatal("failed to run dev migrations", err)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		fatal("failed to bootstrap redis", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gormDB := dbClient.DB()
	outboxRepo := outbox.NewRepository(gormDB)
	outboxSvc := outbox.NewService(outboxRepo, logg)

	ordersService, err := orders.NewService(
		dbClient,
		orders.NewRepository(gormDB),
		outboxSvc,
		time.Duration(cfg.Checkout.ReturnWindowDays)*24*time.Hour,
	)
	if err != nil {
		fatal("failed to create orders service", err)
	}

	reaperJob, err := cron.NewPaymentReaperJob(cron.PaymentReaperJobParams{
		Logger: logg,
		Orders: ordersService,
		TTL:    cfg.Checkout.PendingOrderTTL,
		Batch:  cfg.Cron.ReaperBatch,
	})
	if err != nil {
		fatal("failed to create payment reaper job", err)
	}

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
	})
	if err != nil {
		fatal("failed to create outbox retention job", err)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		fatal("failed to create cron lock", err)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(reaperJob, retentionJob),
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.TickInterval,
	})
	if err != nil {
		fatal("failed to create cron service", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}

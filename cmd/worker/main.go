package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rinhapay/payment-router/internal/consumer"
	"github.com/rinhapay/payment-router/internal/health"
	"github.com/rinhapay/payment-router/internal/payments"
	"github.com/rinhapay/payment-router/internal/processors"
	"github.com/rinhapay/payment-router/internal/queue"
	"github.com/rinhapay/payment-router/internal/router"
	"github.com/rinhapay/payment-router/pkg/config"
	"github.com/rinhapay/payment-router/pkg/db"
	"github.com/rinhapay/payment-router/pkg/instance"
	"github.com/rinhapay/payment-router/pkg/logger"
	"github.com/rinhapay/payment-router/pkg/metrics"
	"github.com/rinhapay/payment-router/pkg/migrate"
	"github.com/rinhapay/payment-router/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
		Fields:      map[string]any{"instance": instance.GetID()},
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	gateway, err := processors.NewClient(cfg.Processors, nil)
	if err != nil {
		logg.Error(context.Background(), "failed to create processor gateway", err)
		os.Exit(1)
	}

	healthCache, err := health.NewCache(health.CacheParams{
		Store:        redisClient,
		Checker:      gateway,
		Logger:       logg,
		TTL:          cfg.Health.TTL,
		FetchTimeout: cfg.Health.Timeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create health cache", err)
		os.Exit(1)
	}

	paymentRouter, err := router.New(router.Params{
		Health:            healthCache,
		Gateway:           gateway,
		MaxResponseTimeMs: cfg.Router.MaxResponseTimeMs,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment router", err)
		os.Exit(1)
	}

	stream, err := queue.NewStream(redisClient, cfg.Stream.Name, cfg.Stream.Group)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments stream", err)
		os.Exit(1)
	}

	consumerService, err := consumer.NewService(consumer.ServiceParams{
		Config:     cfg.Consumer,
		Logger:     logg,
		Queue:      stream,
		Router:     paymentRouter,
		Recorder:   payments.NewRepository(dbClient.DB()),
		Metrics:    metrics.NewConsumerMetrics(prometheus.DefaultRegisterer),
		InstanceID: instance.GetID(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments consumer", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Config:         cfg,
		Logger:         logg,
		DB:             dbClient,
		Redis:          redisClient,
		Consumer:       consumerService,
		MetricsHandler: promhttp.Handler(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create worker service", err)
		os.Exit(1)
	}
	defer func() {
		if err := service.Close(); err != nil {
			logg.Error(context.Background(), "error closing worker dependencies", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "worker",
		"consumers":   len(consumerService.Consumers()),
	})
	logg.Info(ctx, "starting payments worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		stop()
		os.Exit(1)
	}
	logg.Info(ctx, "worker shutting down gracefully")
}

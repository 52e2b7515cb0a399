package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rinhapay/payment-router/api/routes"
	"github.com/rinhapay/payment-router/internal/payments"
	"github.com/rinhapay/payment-router/internal/producer"
	"github.com/rinhapay/payment-router/internal/queue"
	"github.com/rinhapay/payment-router/pkg/config"
	"github.com/rinhapay/payment-router/pkg/db"
	"github.com/rinhapay/payment-router/pkg/instance"
	"github.com/rinhapay/payment-router/pkg/logger"
	"github.com/rinhapay/payment-router/pkg/migrate"
	"github.com/rinhapay/payment-router/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stream, err := queue.NewStream(redisClient, cfg.Stream.Name, cfg.Stream.Group)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments stream", err)
		os.Exit(1)
	}
	if err := stream.EnsureGroup(context.Background()); err != nil {
		logg.Error(context.Background(), "failed to ensure consumer group", err)
		os.Exit(1)
	}
	if _, err := stream.AppendMarker(context.Background()); err != nil {
		logg.Error(context.Background(), "failed to append stream marker", err)
		os.Exit(1)
	}

	paymentsProducer, err := producer.New(producer.Params{
		Sink:          stream,
		Logger:        logg,
		BufferSize:    cfg.Producer.BufferSize,
		BatchSize:     cfg.Producer.BatchSize,
		FlushInterval: cfg.Producer.FlushInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments producer", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Repository: payments.NewRepository(dbClient.DB()),
		Queue:      paymentsProducer,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	signalCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	producerCtx, stopProducer := context.WithCancel(ctx)
	producerDone := make(chan error, 1)
	go func() {
		producerDone <- paymentsProducer.Run(producerCtx)
	}()

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, paymentsService, nil),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serverErr <- server.ListenAndServe()
	}()

	exitCode := 0
	select {
	case <-signalCtx.Done():
		logg.Info(ctx, "api shutting down gracefully")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			exitCode = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "api server shutdown failed", err)
	}

	stopProducer()
	if err := <-producerDone; err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "payments producer stopped with error", err)
	}
	logg.Info(logg.WithField(ctx, "buffered", paymentsProducer.Buffered()), "api stopped")

	if exitCode != 0 {
		stop()
		os.Exit(exitCode)
	}
}

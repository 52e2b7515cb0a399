package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/multierr"

	"github.com/rinhapay/payment-router/api/controllers"
	"github.com/rinhapay/payment-router/pkg/config"
	"github.com/rinhapay/payment-router/pkg/db"
	"github.com/rinhapay/payment-router/pkg/logger"
	"github.com/rinhapay/payment-router/pkg/redis"
)

const metricsShutdownTimeout = 5 * time.Second

// Runner is the long-lived loop the worker hosts.
type Runner interface {
	Run(ctx context.Context) error
}

type ServiceParams struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             db.Pinger
	Redis          redis.Pinger
	Consumer       Runner
	MetricsHandler http.Handler
}

type Service struct {
	cfg      *config.Config
	logg     *logger.Logger
	db       db.Pinger
	redis    redis.Pinger
	consumer Runner
	metrics  http.Handler
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Redis == nil {
		return nil, errors.New("redis client is required")
	}
	if params.Consumer == nil {
		return nil, errors.New("payments consumer is required")
	}

	return &Service{
		cfg:      params.Config,
		logg:     params.Logger,
		db:       params.DB,
		redis:    params.Redis,
		consumer: params.Consumer,
		metrics:  params.MetricsHandler,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := pingDependency(ctx, s.logg, "database", s.db.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "redis", s.redis.Ping); err != nil {
		return err
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

// Run pings dependencies, starts the optional metrics listener and blocks on the consumer.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	if srv := s.metricsServer(); srv != nil {
		go func() {
			s.logg.Info(s.logg.WithField(ctx, "addr", srv.Addr), "worker metrics listener started")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logg.Error(ctx, "worker metrics listener stopped", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				s.logg.Error(ctx, "worker metrics listener shutdown failed", err)
			}
		}()
	}

	err := s.consumer.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logg.Error(ctx, "consumer stopped unexpectedly", err)
		return err
	}
	s.logg.Info(ctx, "worker context canceled")
	return err
}

// Close releases every dependency that holds connections, reporting all failures.
func (s *Service) Close() error {
	return multierr.Combine(
		closeDependency("database", s.db),
		closeDependency("redis", s.redis),
	)
}

func closeDependency(name string, dep any) error {
	closer, ok := dep.(io.Closer)
	if !ok {
		return nil
	}
	if err := closer.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	return nil
}

func (s *Service) metricsServer() *http.Server {
	if s.cfg.Service.MetricsPort == "" || s.metrics == nil {
		return nil
	}
	return &http.Server{
		Addr:              ":" + s.cfg.Service.MetricsPort,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (s *Service) routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/health/live", controllers.HealthLive(s.cfg))
	r.Get("/health/ready", controllers.HealthReady(s.cfg, s.logg, map[string]controllers.Pinger{
		"db":    s.db,
		"redis": s.redis,
	}))
	r.Method(http.MethodGet, "/metrics", s.metrics)
	return r
}

package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rinhapay/payment-router/api/controllers"
	"github.com/rinhapay/payment-router/api/middleware"
	"github.com/rinhapay/payment-router/internal/payments"
	"github.com/rinhapay/payment-router/pkg/config"
	"github.com/rinhapay/payment-router/pkg/db"
	"github.com/rinhapay/payment-router/pkg/logger"
	"github.com/rinhapay/payment-router/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	paymentsService payments.Service,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    dbP,
			"redis": redisP,
		}))
	})

	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Post("/payments", controllers.CreatePayment(paymentsService, logg))
	r.Get("/payments-summary", controllers.PaymentsSummary(paymentsService, logg))
	if cfg.FeatureFlags.AllowPurge {
		r.Post("/purge-payments", controllers.PurgePayments(paymentsService, logg))
	}

	return r
}

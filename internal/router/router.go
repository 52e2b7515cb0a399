package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/rinhapay/payment-router/internal/health"
	"github.com/rinhapay/payment-router/internal/payments"
	"github.com/rinhapay/payment-router/pkg/enums"
)

// HealthSource reports the default processor's cached health.
type HealthSource interface {
	PrimaryHealth(ctx context.Context) health.State
}

// Gateway submits a payment to the processor behind a strategy.
type Gateway interface {
	Pay(ctx context.Context, strategy enums.PaymentStrategy, req payments.PaymentRequest) error
}

// Params wires the router.
type Params struct {
	Health  HealthSource
	Gateway Gateway
	// MaxResponseTimeMs sends traffic to the fallback once the default's minimum
	// response time exceeds it. Zero or less disables the latency check.
	MaxResponseTimeMs int
}

// Router picks a processor per payment and submits it.
type Router struct {
	health    HealthSource
	gateway   Gateway
	threshold int
}

func New(params Params) (*Router, error) {
	if params.Health == nil {
		return nil, errors.New("health source is required")
	}
	if params.Gateway == nil {
		return nil, errors.New("processor gateway is required")
	}
	return &Router{
		health:    params.Health,
		gateway:   params.Gateway,
		threshold: params.MaxResponseTimeMs,
	}, nil
}

// Choose maps a health state onto a strategy.
func (r *Router) Choose(state health.State) enums.PaymentStrategy {
	if state.Failing {
		return enums.PaymentStrategyFallback
	}
	if r.threshold > 0 && state.MinResponseTimeMs > r.threshold {
		return enums.PaymentStrategyFallback
	}
	return enums.PaymentStrategyDefault
}

// Route sets req.Strategy from the default processor's health and submits the
// payment to that processor only. Errors are returned with the chosen strategy.
func (r *Router) Route(ctx context.Context, req *payments.PaymentRequest) (enums.PaymentStrategy, error) {
	if req == nil {
		return enums.PaymentStrategyUnset, errors.New("payment request is required")
	}
	strategy := r.Choose(r.health.PrimaryHealth(ctx))
	req.Strategy = strategy
	if err := r.gateway.Pay(ctx, strategy, *req); err != nil {
		return strategy, fmt.Errorf("route %s via %s: %w", req.CorrelationID, strategy, err)
	}
	return strategy, nil
}

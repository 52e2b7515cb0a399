package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rinhapay/payment-router/internal/processors"
	"github.com/rinhapay/payment-router/pkg/enums"
	"github.com/rinhapay/payment-router/pkg/logger"
	"github.com/rinhapay/payment-router/pkg/redis"
)

const (
	defaultTTL          = 5 * time.Second
	defaultFetchTimeout = 2 * time.Second
)

// State is the cached view of the default processor's health.
type State struct {
	Failing           bool `json:"failing"`
	MinResponseTimeMs int  `json:"minResponseTime"`
}

// Unknown is assumed when the health endpoint cannot be reached.
var Unknown = State{Failing: true, MinResponseTimeMs: 1}

// Checker fetches live health from the default processor.
type Checker interface {
	ServiceHealth(ctx context.Context) (processors.ServiceHealth, error)
}

// CacheParams wires the health cache.
type CacheParams struct {
	Store        redis.StateStore
	Checker      Checker
	Logger       *logger.Logger
	TTL          time.Duration
	FetchTimeout time.Duration
}

// Cache serves the default processor's health from Redis, refreshing on miss.
type Cache struct {
	store        redis.StateStore
	checker      Checker
	logg         *logger.Logger
	key          string
	ttl          time.Duration
	fetchTimeout time.Duration
}

// NewCache validates dependencies and resolves the state key.
func NewCache(params CacheParams) (*Cache, error) {
	if params.Store == nil {
		return nil, errors.New("state store is required")
	}
	if params.Checker == nil {
		return nil, errors.New("health checker is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	key, err := enums.ParseStateKey(enums.StateKeyDefaultProcessorStatus.String())
	if err != nil {
		return nil, err
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	fetchTimeout := params.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}
	return &Cache{
		store:        params.Store,
		checker:      params.Checker,
		logg:         params.Logger,
		key:          params.Store.StateKey(key.String()),
		ttl:          ttl,
		fetchTimeout: fetchTimeout,
	}, nil
}

// PrimaryHealth returns the cached state, fetching and caching it on a miss.
// A failed fetch yields Unknown, which is not cached.
func (c *Cache) PrimaryHealth(ctx context.Context) State {
	if state, ok := c.cached(ctx); ok {
		return state
	}

	fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	live, err := c.checker.ServiceHealth(fetchCtx)
	if err != nil {
		c.logg.Warn(ctx, fmt.Sprintf("default processor health check failed: %v", err))
		return Unknown
	}

	state := State{Failing: live.Failing, MinResponseTimeMs: live.MinResponseTime}
	raw, err := json.Marshal(state)
	if err == nil {
		err = c.store.Set(ctx, c.key, string(raw), c.ttl)
	}
	if err != nil {
		c.logg.Warn(ctx, fmt.Sprintf("caching processor health failed: %v", err))
	}
	return state
}

func (c *Cache) cached(ctx context.Context) (State, bool) {
	raw, err := c.store.Get(ctx, c.key)
	if err != nil {
		if !redis.IsNil(err) {
			c.logg.Warn(ctx, fmt.Sprintf("reading cached processor health failed: %v", err))
		}
		return State{}, false
	}
	var state State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		c.logg.Warn(ctx, "discarding unreadable cached processor health")
		return State{}, false
	}
	return state, true
}

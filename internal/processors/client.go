package processors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rinhapay/payment-router/internal/payments"
	"github.com/rinhapay/payment-router/pkg/config"
	"github.com/rinhapay/payment-router/pkg/enums"
)

const (
	paymentsPath      = "/payments"
	serviceHealthPath = "/payments/service-health"
	defaultTimeout    = 5 * time.Second
	maxErrorBody      = 512
)

// ServiceHealth is the primary processor's self-reported health.
type ServiceHealth struct {
	Failing         bool `json:"failing"`
	MinResponseTime int  `json:"minResponseTime"`
}

// StatusError reports a non-2xx processor response.
type StatusError struct {
	Processor  enums.PaymentStrategy
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s processor responded %d: %s", e.Processor, e.StatusCode, e.Body)
}

type paymentBody struct {
	CorrelationID string          `json:"correlationId"`
	Amount        decimal.Decimal `json:"amount"`
	RequestedAt   time.Time       `json:"requestedAt"`
}

// Client talks to the default and fallback payment processors.
type Client struct {
	http    *http.Client
	urls    map[enums.PaymentStrategy]string
	timeout time.Duration
}

// NewClient builds a processor gateway. A nil httpClient gets a pooled default.
func NewClient(cfg config.ProcessorsConfig, httpClient *http.Client) (*Client, error) {
	defaultURL := strings.TrimRight(strings.TrimSpace(cfg.DefaultURL), "/")
	fallbackURL := strings.TrimRight(strings.TrimSpace(cfg.FallbackURL), "/")
	if defaultURL == "" || fallbackURL == "" {
		return nil, errors.New("default and fallback processor urls are required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        200,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &Client{
		http: httpClient,
		urls: map[enums.PaymentStrategy]string{
			enums.PaymentStrategyDefault:  defaultURL,
			enums.PaymentStrategyFallback: fallbackURL,
		},
		timeout: timeout,
	}, nil
}

// Pay submits the payment to the processor selected by strategy. Any 2xx is success.
func (c *Client) Pay(ctx context.Context, strategy enums.PaymentStrategy, req payments.PaymentRequest) error {
	base, ok := c.urls[strategy]
	if !ok {
		return fmt.Errorf("no processor for strategy %q", strategy)
	}

	body, err := json.Marshal(paymentBody{
		CorrelationID: req.CorrelationID,
		Amount:        req.Amount,
		RequestedAt:   req.RequestedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode payment: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, base+paymentsPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build payment request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s processor: %w", strategy, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Processor: strategy, StatusCode: resp.StatusCode, Body: readSnippet(resp.Body)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// ServiceHealth queries the default processor's health endpoint.
func (c *Client) ServiceHealth(ctx context.Context) (ServiceHealth, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.urls[enums.PaymentStrategyDefault]+serviceHealthPath, nil)
	if err != nil {
		return ServiceHealth{}, fmt.Errorf("build health request: %w", err)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return ServiceHealth{}, fmt.Errorf("default processor health: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ServiceHealth{}, &StatusError{Processor: enums.PaymentStrategyDefault, StatusCode: resp.StatusCode, Body: readSnippet(resp.Body)}
	}

	var health ServiceHealth
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return ServiceHealth{}, fmt.Errorf("decode health response: %w", err)
	}
	return health, nil
}

func readSnippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return strings.TrimSpace(string(b))
}

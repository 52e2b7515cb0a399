package payments

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rinhapay/payment-router/pkg/db/models"
	"github.com/rinhapay/payment-router/pkg/enums"
	pkgerrors "github.com/rinhapay/payment-router/pkg/errors"
)

// amounts are stored as NUMERIC(12,2)
const amountScale = 2

var maxAmount = decimal.New(1, 10)

func init() {
	// processors and clients expect amounts as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

// PaymentRequest is a single payment travelling from ingestion to the outcome store.
type PaymentRequest struct {
	CorrelationID string                `json:"correlationId"`
	Amount        decimal.Decimal       `json:"amount"`
	RequestedAt   time.Time             `json:"requestedAt"`
	Strategy      enums.PaymentStrategy `json:"strategy,omitempty"`
}

// Validate checks the fields every payment must carry before it is queued or processed.
func (p PaymentRequest) Validate() error {
	if strings.TrimSpace(p.CorrelationID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "correlationId is required")
	}
	if !p.Amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !p.Amount.Equal(p.Amount.Truncate(amountScale)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must have at most 2 decimal places")
	}
	if p.Amount.GreaterThanOrEqual(maxAmount) {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be below "+maxAmount.String())
	}
	if p.RequestedAt.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "requestedAt is required")
	}
	return nil
}

// ToModel maps the request onto the persisted row.
func (p PaymentRequest) ToModel() models.Payment {
	return models.Payment{
		CorrelationID: p.CorrelationID,
		Amount:        p.Amount,
		RequestedAt:   p.RequestedAt.UTC(),
		Strategy:      p.Strategy,
	}
}

// StrategySummary aggregates the payments handled by one processor.
type StrategySummary struct {
	TotalRequests int64           `json:"totalRequests"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
}

// Summary is the per-processor aggregate returned by the summary endpoint.
type Summary struct {
	Default  StrategySummary `json:"default"`
	Fallback StrategySummary `json:"fallback"`
}

// Summarize groups rows by strategy. Strategies without rows report zero totals.
func Summarize(rows []models.Payment) Summary {
	buckets := make(map[enums.PaymentStrategy]*StrategySummary)
	for _, strategy := range enums.PaymentStrategies() {
		buckets[strategy] = &StrategySummary{TotalAmount: decimal.Zero}
	}
	for _, row := range rows {
		bucket, ok := buckets[row.Strategy]
		if !ok {
			continue
		}
		bucket.TotalRequests++
		bucket.TotalAmount = bucket.TotalAmount.Add(row.Amount)
	}
	return Summary{
		Default:  *buckets[enums.PaymentStrategyDefault],
		Fallback: *buckets[enums.PaymentStrategyFallback],
	}
}

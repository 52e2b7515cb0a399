package payments

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rinhapay/payment-router/pkg/db/models"
	"github.com/rinhapay/payment-router/pkg/enums"
	pkgerrors "github.com/rinhapay/payment-router/pkg/errors"
)

func TestSummarizeGroupsByStrategy(t *testing.T) {
	rows := []models.Payment{
		{CorrelationID: "a", Amount: decimal.RequireFromString("19.90"), Strategy: enums.PaymentStrategyDefault},
		{CorrelationID: "b", Amount: decimal.RequireFromString("0.10"), Strategy: enums.PaymentStrategyDefault},
		{CorrelationID: "c", Amount: decimal.RequireFromString("5.00"), Strategy: enums.PaymentStrategyFallback},
	}

	summary := Summarize(rows)
	assert.Equal(t, int64(2), summary.Default.TotalRequests)
	assert.True(t, summary.Default.TotalAmount.Equal(decimal.RequireFromString("20.00")))
	assert.Equal(t, int64(1), summary.Fallback.TotalRequests)
	assert.True(t, summary.Fallback.TotalAmount.Equal(decimal.RequireFromString("5")))
}

func TestSummarizeEmptyReportsZeroGroups(t *testing.T) {
	body, err := json.Marshal(Summarize(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"default":{"totalRequests":0,"totalAmount":0},"fallback":{"totalRequests":0,"totalAmount":0}}`, string(body))
}

func TestPaymentRequestJSONUsesNumericAmount(t *testing.T) {
	req := PaymentRequest{
		CorrelationID: "a1",
		Amount:        decimal.RequireFromString("19.90"),
		RequestedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	body, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"correlationId":"a1","amount":19.9,"requestedAt":"2026-03-01T12:00:00Z"}`, string(body))

	var decoded PaymentRequest
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "a1", decoded.CorrelationID)
	assert.True(t, decoded.Amount.Equal(req.Amount))
	assert.True(t, decoded.RequestedAt.Equal(req.RequestedAt))
}

func TestPaymentRequestValidate(t *testing.T) {
	at := time.Now()
	cases := map[string]PaymentRequest{
		"missing id":      {Amount: decimal.NewFromInt(1), RequestedAt: at},
		"zero amount":     {CorrelationID: "a", Amount: decimal.Zero, RequestedAt: at},
		"negative amount": {CorrelationID: "a", Amount: decimal.NewFromInt(-1), RequestedAt: at},
		"missing time":    {CorrelationID: "a", Amount: decimal.NewFromInt(1)},
		"sub-cent amount": {CorrelationID: "a", Amount: decimal.RequireFromString("0.004"), RequestedAt: at},
		"three decimals":  {CorrelationID: "a", Amount: decimal.RequireFromString("19.999"), RequestedAt: at},
		"too many digits": {CorrelationID: "a", Amount: decimal.RequireFromString("1e11"), RequestedAt: at},
		"at column limit": {CorrelationID: "a", Amount: decimal.RequireFromString("10000000000"), RequestedAt: at},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			err := req.Validate()
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
		})
	}

	for _, amount := range []string{"1", "0.01", "19.90", "19.900", "9999999999.99"} {
		req := PaymentRequest{CorrelationID: "a", Amount: decimal.RequireFromString(amount), RequestedAt: at}
		assert.NoError(t, req.Validate(), amount)
	}
}

func TestSummarizeIgnoresUnroutedRows(t *testing.T) {
	rows := []models.Payment{
		{CorrelationID: "a", Amount: decimal.RequireFromString("1.00"), Strategy: enums.PaymentStrategyUnset},
		{CorrelationID: "b", Amount: decimal.RequireFromString("2.50"), Strategy: enums.PaymentStrategyFallback},
	}

	summary := Summarize(rows)
	assert.Zero(t, summary.Default.TotalRequests)
	assert.True(t, summary.Default.TotalAmount.IsZero())
	assert.Equal(t, int64(1), summary.Fallback.TotalRequests)
	assert.True(t, summary.Fallback.TotalAmount.Equal(decimal.RequireFromString("2.5")))
}

package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rinhapay/payment-router/internal/payments"
)

// Stream entry field names.
const (
	FieldPayload       = "payload"
	FieldCorrelationID = "correlationId"
	FieldAmount        = "amount"
	FieldRequestedAt   = "requestedAt"
	// FieldMarker flags control entries that carry no payment.
	FieldMarker = "init"
)

// ErrMalformedEntry marks entries that can never be decoded into a payment.
var ErrMalformedEntry = errors.New("malformed stream entry")

// Entry is one immutable stream record.
type Entry struct {
	ID     string
	Values map[string]any
}

// IsMarker reports whether the entry is a control marker.
func (e Entry) IsMarker() bool {
	_, ok := e.Values[FieldMarker]
	return ok
}

// Partition splits entries into control markers and business entries, keeping order.
func Partition(entries []Entry) (markers, business []Entry) {
	for _, entry := range entries {
		if entry.IsMarker() {
			markers = append(markers, entry)
			continue
		}
		business = append(business, entry)
	}
	return markers, business
}

// IDs returns the ids of entries in order.
func IDs(entries []Entry) []string {
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.ID)
	}
	return ids
}

// Encode builds the stream fields for a payment: the JSON payload plus mirrored plain fields.
func Encode(req payments.PaymentRequest) (map[string]any, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode payment: %w", err)
	}
	return map[string]any{
		FieldPayload:       string(payload),
		FieldCorrelationID: req.CorrelationID,
		FieldAmount:        req.Amount.String(),
		FieldRequestedAt:   req.RequestedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

// Decode rebuilds the payment from an entry. It prefers the JSON payload and falls
// back to the mirrored fields. Failures wrap ErrMalformedEntry.
func Decode(entry Entry) (payments.PaymentRequest, error) {
	var req payments.PaymentRequest

	if raw, ok := stringField(entry.Values, FieldPayload); ok {
		if err := json.Unmarshal([]byte(raw), &req); err != nil {
			return payments.PaymentRequest{}, fmt.Errorf("%w %s: payload: %v", ErrMalformedEntry, entry.ID, err)
		}
	} else {
		id, _ := stringField(entry.Values, FieldCorrelationID)
		rawAmount, _ := stringField(entry.Values, FieldAmount)
		rawAt, _ := stringField(entry.Values, FieldRequestedAt)

		amount, err := decimal.NewFromString(rawAmount)
		if err != nil {
			return payments.PaymentRequest{}, fmt.Errorf("%w %s: amount: %v", ErrMalformedEntry, entry.ID, err)
		}
		at, err := time.Parse(time.RFC3339Nano, rawAt)
		if err != nil {
			return payments.PaymentRequest{}, fmt.Errorf("%w %s: requestedAt: %v", ErrMalformedEntry, entry.ID, err)
		}
		req = payments.PaymentRequest{CorrelationID: id, Amount: amount, RequestedAt: at}
	}

	if err := req.Validate(); err != nil {
		return payments.PaymentRequest{}, fmt.Errorf("%w %s: %v", ErrMalformedEntry, entry.ID, err)
	}
	return req, nil
}

func stringField(values map[string]any, key string) (string, bool) {
	v, ok := values[key]
	if !ok {
		return "", false
	}
	switch typed := v.(type) {
	case string:
		return typed, true
	case []byte:
		return string(typed), true
	default:
		return fmt.Sprint(typed), true
	}
}

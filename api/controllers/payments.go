package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/rinhapay/payment-router/api/responses"
	"github.com/rinhapay/payment-router/api/validators"
	"github.com/rinhapay/payment-router/internal/payments"
	"github.com/rinhapay/payment-router/pkg/logger"
)

type createPaymentRequest struct {
	CorrelationID string           `json:"correlationId" validate:"required,max=128"`
	Amount        *decimal.Decimal `json:"amount" validate:"required"`
}

// CreatePayment accepts a payment for asynchronous routing and answers 202 once it is buffered.
func CreatePayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createPaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithCorrelationID(ctx, body.CorrelationID)
		}

		if err := svc.Enqueue(ctx, payments.EnqueueInput{
			CorrelationID: body.CorrelationID,
			Amount:        *body.Amount,
		}); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

// PaymentsSummary reports per-strategy totals for the optional [from, to] window.
func PaymentsSummary(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, err := validators.ParseQueryTime(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryTime(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.GetSummary(r.Context(), from, to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteJSON(w, http.StatusOK, summary)
	}
}

func PurgePayments(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deleted, err := svc.Purge(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithField(r.Context(), "deleted", deleted), "payments.purged")
		}
		responses.WriteSuccess(w, map[string]int64{"deleted": deleted})
	}
}

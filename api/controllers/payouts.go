package controllers

import (
	"net/http"

	"github.com/BilMam/soccer-spot-reserve-sub002/api/responses"
	"github.com/BilMam/soccer-spot-reserve-sub002/api/validators"
	"github.com/BilMam/soccer-spot-reserve-sub002/internal/payments"
	"github.com/BilMam/soccer-spot-reserve-sub002/internal/payouts"
	pkgerrors "github.com/BilMam/soccer-spot-reserve-sub002/pkg/errors"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/logger"
)

// RetryPayout puts a failed payout back on the sweep queue.
func RetryPayout(svc *payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}

		id, err := validators.URLParamUUID(r, "payoutId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Retry(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "scheduled"})
	}
}

// ListPaymentAnomalies returns the most recent reconciliation anomalies for
// operator review.
func ListPaymentAnomalies(svc *payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListAnomalies(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rows)
	}
}

package webhooks

import (
	"io"
	"net/http"

	"github.com/BilMam/soccer-spot-reserve-sub002/api/responses"
	"github.com/BilMam/soccer-spot-reserve-sub002/internal/payments"
	pkgerrors "github.com/BilMam/soccer-spot-reserve-sub002/pkg/errors"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/logger"
)

const maxNotificationBytes = 1 << 20

// CinetPayWebhook ingests payment notifications. Deliveries are acknowledged
// with 200 whenever the payload reached the reconciler, whatever the booking
// outcome was; the provider retries anything else.
func CinetPayWebhook(svc *payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxNotificationBytes))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable notification body"))
			return
		}

		result, err := svc.HandleNotification(r.Context(), r.Header.Get("Content-Type"), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithFields(r.Context(), map[string]any{
			"event":          "webhook.cinetpay",
			"outcome":        result.Outcome,
			"transaction_id": result.TransactionID,
		})
		logg.Info(ctx, "payment notification processed")

		responses.WriteSuccess(w, result)
	}
}

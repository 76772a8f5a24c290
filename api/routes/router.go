package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/BilMam/soccer-spot-reserve-sub002/api/controllers"
	webhookcontrollers "github.com/BilMam/soccer-spot-reserve-sub002/api/controllers/webhooks"
	"github.com/BilMam/soccer-spot-reserve-sub002/api/middleware"
	"github.com/BilMam/soccer-spot-reserve-sub002/internal/availability"
	"github.com/BilMam/soccer-spot-reserve-sub002/internal/bookings"
	"github.com/BilMam/soccer-spot-reserve-sub002/internal/patterns"
	"github.com/BilMam/soccer-spot-reserve-sub002/internal/payments"
	"github.com/BilMam/soccer-spot-reserve-sub002/internal/payouts"
	"github.com/BilMam/soccer-spot-reserve-sub002/internal/slots"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/config"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/db"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP db.Pinger,
	availabilityService *availability.Service,
	slotService *slots.Service,
	patternService *patterns.Service,
	bookingService *bookings.Service,
	paymentService *payments.Service,
	payoutService *payouts.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/cinetpay", webhookcontrollers.CinetPayWebhook(paymentService, logg))
	})

	r.Route("/api/v1/fields/{fieldId}", func(r chi.Router) {
		r.Route("/availability", func(r chi.Router) {
			r.Get("/resolve", controllers.ResolveAvailability(availabilityService, logg))
			r.Get("/admissible", controllers.CheckAdmissible(availabilityService, logg))
		})

		r.Route("/slots", func(r chi.Router) {
			r.Get("/", controllers.ListSlots(slotService, logg))
			r.Post("/generate", controllers.GenerateSlots(slotService, logg))
			r.Post("/block", controllers.BlockSlots(slotService, logg))
			r.Post("/unblock", controllers.UnblockSlots(slotService, logg))
			r.Post("/hold", controllers.PlaceHold(slotService, logg))
			r.Post("/release", controllers.ReleaseHold(slotService, logg))
		})

		r.Route("/patterns", func(r chi.Router) {
			r.Get("/", controllers.ListPatterns(patternService, logg))
			r.Post("/", controllers.CreatePattern(patternService, logg))
		})
	})

	r.Route("/api/v1/patterns/{patternId}", func(r chi.Router) {
		r.Post("/project", controllers.ProjectPattern(patternService, logg))
		r.Post("/deactivate", controllers.DeactivatePattern(patternService, logg))
	})

	r.Route("/api/v1/bookings", func(r chi.Router) {
		r.Post("/", controllers.CreateBooking(bookingService, logg))
		r.Route("/{bookingId}", func(r chi.Router) {
			r.Get("/", controllers.GetBooking(bookingService, logg))
			r.Post("/cancel", controllers.CancelBooking(bookingService, logg))
			r.Post("/owner-confirm", controllers.OwnerConfirmBooking(bookingService, logg))
			r.Get("/payout", controllers.GetBookingPayout(payoutService, logg))
		})
	})

	r.Route("/api/v1/payouts", func(r chi.Router) {
		r.Post("/{payoutId}/retry", controllers.RetryPayout(payoutService, logg))
	})

	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Get("/anomalies", controllers.ListPaymentAnomalies(paymentService, logg))
	})

	return r
}

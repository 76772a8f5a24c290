package payments

import (
	"context"

	"github.com/google/uuid"

	"github.com/BilMam/soccer-spot-reserve-sub002/internal/bookings"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/cinetpay"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/db/models"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/enums"
	pkgerrors "github.com/BilMam/soccer-spot-reserve-sub002/pkg/errors"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/logger"
)

// Repository persists payment anomalies.
type Repository interface {
	CreateAnomaly(ctx context.Context, anomaly *models.PaymentAnomaly) error
	ListAnomalies(ctx context.Context, limit int) ([]models.PaymentAnomaly, error)
}

// BookingStore is the booking surface the reconciler needs.
type BookingStore interface {
	FindByPaymentReference(ctx context.Context, reference string) (*models.Booking, error)
	ConfirmPaid(ctx context.Context, booking *models.Booking) (bookings.SettleOutcome, error)
	ApplyPaymentOutcome(ctx context.Context, id uuid.UUID, payment enums.PaymentStatus, status enums.BookingStatus, cancelReason *string) (bool, error)
}

// Verifier re-checks a transaction against the provider's own status endpoint.
type Verifier interface {
	CheckTransaction(ctx context.Context, transactionID string) (cinetpay.Status, error)
}

// PayoutScheduler is triggered once per booking when payment lands.
type PayoutScheduler interface {
	ScheduleOrRun(ctx context.Context, booking *models.Booking) error
}

// Outcome labels what a webhook delivery amounted to.
type Outcome string

const (
	OutcomeApplied            Outcome = "applied"
	OutcomeDuplicate          Outcome = "duplicate"
	OutcomeLostRace           Outcome = "lost_race"
	OutcomeUnmatched          Outcome = "unmatched"
	OutcomeStillPending       Outcome = "still_pending"
	OutcomeUnparseable        Outcome = "unparseable"
	OutcomeVerificationFailed Outcome = "verification_failed"
)

// Result reports how a notification was resolved. Every result is acked to
// the provider with a success response; Outcome is for logs and metrics.
type Result struct {
	Outcome       Outcome    `json:"outcome"`
	TransactionID string     `json:"transaction_id,omitempty"`
	BookingID     *uuid.UUID `json:"booking_id,omitempty"`
	PayoutQueued  bool       `json:"payout_queued,omitempty"`
}

// ServiceParams configure the webhook reconciler.
type ServiceParams struct {
	Logger   *logger.Logger
	Repo     Repository
	Bookings BookingStore
	Verifier Verifier
	Payouts  PayoutScheduler
}

// Service resolves at-least-once, possibly duplicated and reordered payment
// notifications into authoritative booking state.
type Service struct {
	logg     *logger.Logger
	repo     Repository
	bookings BookingStore
	verifier Verifier
	payouts  PayoutScheduler
}

// NewService builds the reconciler.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "anomaly repo required")
	}
	if params.Bookings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "booking store required")
	}
	if params.Verifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment verifier required")
	}
	if params.Payouts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payout scheduler required")
	}
	return &Service{
		logg:     params.Logger,
		repo:     params.Repo,
		bookings: params.Bookings,
		verifier: params.Verifier,
		payouts:  params.Payouts,
	}, nil
}

// HandleNotification processes one webhook delivery end to end. It never
// propagates provider-facing failures: payloads the engine cannot process are
// recorded as anomalies and still acknowledged, so the provider does not
// retry forever. The returned error is reserved for store failures writing
// the anomaly itself.
func (s *Service) HandleNotification(ctx context.Context, contentType string, body []byte) (Result, error) {
	note, err := ParseNotification(contentType, body)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "event", "payments.unparseable"), "webhook payload could not be parsed")
		return Result{Outcome: OutcomeUnparseable}, s.recordAnomaly(ctx, nil, "unparseable payload: "+err.Error(), body)
	}

	logCtx := s.logg.WithTransactionID(ctx, note.TransactionID)

	// The webhook body is a hint. Only the provider's check endpoint decides.
	verified, err := s.verifier.CheckTransaction(ctx, note.TransactionID)
	if err != nil {
		s.logg.Error(logCtx, "provider verification failed", err)
		return Result{Outcome: OutcomeVerificationFailed, TransactionID: note.TransactionID},
			s.recordAnomaly(ctx, &note.TransactionID, "verification failed: "+err.Error(), body)
	}

	payment, status, cancelReason := mapOutcome(verified)
	if !payment.IsFinal() {
		s.logg.Info(logCtx, "transaction still pending at provider, nothing to apply")
		return Result{Outcome: OutcomeStillPending, TransactionID: note.TransactionID}, nil
	}

	booking, err := s.bookings.FindByPaymentReference(ctx, note.TransactionID)
	if err != nil {
		s.logg.Error(logCtx, "booking lookup failed", err)
		return Result{Outcome: OutcomeVerificationFailed, TransactionID: note.TransactionID},
			s.recordAnomaly(ctx, &note.TransactionID, "booking lookup failed: "+err.Error(), body)
	}
	if booking == nil {
		s.logg.Warn(logCtx, "no booking matches transaction")
		return Result{Outcome: OutcomeUnmatched, TransactionID: note.TransactionID},
			s.recordAnomaly(ctx, &note.TransactionID, "no booking for transaction", body)
	}

	logCtx = s.logg.WithBookingID(logCtx, booking.ID.String())

	if payment == enums.PaymentStatusPaid {
		return s.settlePaid(logCtx, note, booking, body)
	}

	applied, err := s.bookings.ApplyPaymentOutcome(ctx, booking.ID, payment, status, cancelReason)
	if err != nil {
		s.logg.Error(logCtx, "payment outcome write failed", err)
		return Result{Outcome: OutcomeVerificationFailed, TransactionID: note.TransactionID, BookingID: &booking.ID},
			s.recordAnomaly(ctx, &note.TransactionID, "outcome write failed: "+err.Error(), body)
	}
	if !applied {
		s.logg.Info(logCtx, "duplicate delivery, outcome already final")
		return Result{Outcome: OutcomeDuplicate, TransactionID: note.TransactionID, BookingID: &booking.ID}, nil
	}

	s.logg.Info(logCtx, "payment refusal applied")
	return Result{Outcome: OutcomeApplied, TransactionID: note.TransactionID, BookingID: &booking.ID}, nil
}

// settlePaid lands a verified successful payment. Only the first delivery to
// win the guarded write confirms the booking; the loser of a same-window
// double-payment race stays pending for manual refund.
func (s *Service) settlePaid(ctx context.Context, note Notification, booking *models.Booking, body []byte) (Result, error) {
	settled, err := s.bookings.ConfirmPaid(ctx, booking)
	if err != nil {
		s.logg.Error(ctx, "paid settlement failed", err)
		return Result{Outcome: OutcomeVerificationFailed, TransactionID: note.TransactionID, BookingID: &booking.ID},
			s.recordAnomaly(ctx, &note.TransactionID, "paid settlement failed: "+err.Error(), body)
	}

	switch settled {
	case bookings.SettleDuplicate:
		s.logg.Info(ctx, "duplicate delivery, outcome already final")
		return Result{Outcome: OutcomeDuplicate, TransactionID: note.TransactionID, BookingID: &booking.ID}, nil
	case bookings.SettleLostRace:
		s.logg.Warn(ctx, "payment received for an already-confirmed window")
		return Result{Outcome: OutcomeLostRace, TransactionID: note.TransactionID, BookingID: &booking.ID},
			s.recordAnomaly(ctx, &note.TransactionID, "double payment for already-confirmed window, manual refund required", body)
	}

	result := Result{Outcome: OutcomeApplied, TransactionID: note.TransactionID, BookingID: &booking.ID}

	// Payout scheduling is gated on this delivery being the one that landed
	// the outcome, not on the outcome value alone, so duplicate deliveries
	// never double-schedule.
	if err := s.payouts.ScheduleOrRun(ctx, booking); err != nil {
		s.logg.Error(ctx, "payout scheduling failed", err)
		if recordErr := s.recordAnomaly(ctx, &note.TransactionID, "payout scheduling failed: "+err.Error(), body); recordErr != nil {
			return result, recordErr
		}
		return result, nil
	}
	result.PayoutQueued = true

	s.logg.Info(ctx, "payment notification applied")
	return result, nil
}

// mapOutcome is the closed provider-to-engine status mapping.
func mapOutcome(verified cinetpay.Status) (enums.PaymentStatus, enums.BookingStatus, *string) {
	switch verified {
	case cinetpay.StatusAccepted:
		return enums.PaymentStatusPaid, enums.BookingStatusConfirmed, nil
	case cinetpay.StatusRefused:
		reason := "payment refused by provider"
		return enums.PaymentStatusFailed, enums.BookingStatusCancelled, &reason
	default:
		return enums.PaymentStatusPending, enums.BookingStatusPending, nil
	}
}

func (s *Service) recordAnomaly(ctx context.Context, transactionID *string, reason string, body []byte) error {
	anomaly := &models.PaymentAnomaly{
		TransactionID: transactionID,
		Reason:        reason,
		Payload:       string(body),
	}
	if err := s.repo.CreateAnomaly(ctx, anomaly); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment anomaly")
	}
	return nil
}

// ListAnomalies exposes recent anomalies for operator reconciliation.
func (s *Service) ListAnomalies(ctx context.Context, limit int) ([]models.PaymentAnomaly, error) {
	anomalies, err := s.repo.ListAnomalies(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list anomalies")
	}
	return anomalies, nil
}

package payouts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/cinetpay"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/db"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/db/models"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/enums"
	pkgerrors "github.com/BilMam/soccer-spot-reserve-sub002/pkg/errors"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/logger"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/timeslot"
)

// Repository is the payout persistence surface.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payout *models.Payout) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payout, error)
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.Payout, error)
	FindField(ctx context.Context, fieldID uuid.UUID) (*models.Field, error)
	FindDue(ctx context.Context, now time.Time, limit int) ([]models.Payout, error)
	ClaimForProcessing(ctx context.Context, id uuid.UUID) (int64, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, transferID string) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
	Reschedule(ctx context.Context, id uuid.UUID) (int64, error)
}

// Transferer executes mobile-money transfers.
type Transferer interface {
	Transfer(ctx context.Context, req cinetpay.TransferRequest) (cinetpay.TransferResult, error)
}

// BookingMarker flags a booking once its payout went out.
type BookingMarker interface {
	MarkPayoutSent(ctx context.Context, id uuid.UUID) error
}

// ServiceParams configure the payout scheduler.
type ServiceParams struct {
	Logger    *logger.Logger
	Repo      Repository
	Transfer  Transferer
	Bookings  BookingMarker
	BatchSize int
	Now       func() time.Time
}

// Service schedules and executes owner payouts. A payout row exists at most
// once per booking; all retry and mutual-exclusion state lives on the row.
type Service struct {
	logg      *logger.Logger
	repo      Repository
	transfer  Transferer
	bookings  BookingMarker
	batchSize int
	now       func() time.Time
}

// NewService builds the payout scheduler.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payout repo required")
	}
	if params.Transfer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transfer client required")
	}
	if params.Bookings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "booking marker required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = 25
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		logg:      params.Logger,
		repo:      params.Repo,
		transfer:  params.Transfer,
		bookings:  params.Bookings,
		batchSize: batchSize,
		now:       now,
	}, nil
}

// ScheduleOrRun ensures a payout exists for the booking and attempts it
// immediately when already due. Scheduled time is the booking's start: owners
// are paid when the service is rendered, not when the payment lands. A repeat
// trigger for the same booking is a no-op.
func (s *Service) ScheduleOrRun(ctx context.Context, booking *models.Booking) error {
	existing, err := s.repo.FindByBookingID(ctx, booking.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout")
	}
	if existing != nil {
		// Completed, scheduled, processing or failed: the row already owns
		// the lifecycle, a second trigger never creates competing work.
		return nil
	}

	field, err := s.repo.FindField(ctx, booking.FieldID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load field")
	}
	if field == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "field not found")
	}
	if field.PayoutPhone == nil || *field.PayoutPhone == "" {
		// Hard precondition: never create a money-moving row without a
		// destination.
		return pkgerrors.New(pkgerrors.CodePrecondition, "field has no payout contact").
			WithDetails(map[string]any{"field_id": field.ID, "booking_id": booking.ID})
	}

	scheduledAt, err := timeslot.CombineUTC(booking.Date, booking.StartTime)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "derive payout schedule")
	}

	payout := &models.Payout{
		BookingID:   booking.ID,
		OwnerID:     field.OwnerID,
		PayoutPhone: *field.PayoutPhone,
		Amount:      booking.AmountOwner,
		Currency:    booking.Currency,
		Status:      enums.PayoutStatusScheduled,
		ScheduledAt: scheduledAt,
	}
	if err := s.repo.Create(ctx, payout); err != nil {
		if db.IsUniqueViolation(err, "booking_id") {
			// Lost the creation race against a concurrent trigger.
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payout")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"event":        "payouts.scheduled",
		"payout_id":    payout.ID,
		"booking_id":   booking.ID,
		"amount":       payout.Amount,
		"scheduled_at": scheduledAt,
	})
	s.logg.Info(logCtx, "payout scheduled")

	if !scheduledAt.After(s.now().UTC()) {
		s.attempt(ctx, payout)
	}
	return nil
}

// SweepStats reports one sweep invocation's health counts.
type SweepStats struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// RunDue executes due scheduled payouts, oldest first, bounded by the batch
// size. Transfer failures are absorbed into the payout rows; the stats are
// the only surface they are reported on.
func (s *Service) RunDue(ctx context.Context) (SweepStats, error) {
	due, err := s.repo.FindDue(ctx, s.now().UTC(), s.batchSize)
	if err != nil {
		return SweepStats{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find due payouts")
	}

	var stats SweepStats
	for i := range due {
		claimed, succeeded := s.attempt(ctx, &due[i])
		if !claimed {
			continue
		}
		stats.Processed++
		if succeeded {
			stats.Succeeded++
		} else {
			stats.Failed++
		}
	}

	if stats.Processed > 0 {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"event":     "payouts.sweep",
			"processed": stats.Processed,
			"succeeded": stats.Succeeded,
			"failed":    stats.Failed,
		})
		s.logg.Info(logCtx, "payout sweep finished")
	}
	return stats, nil
}

// attempt claims and executes one transfer. The scheduled-to-processing guard
// is the mutual exclusion between concurrent sweeps; a caller that fails the
// claim walks away.
func (s *Service) attempt(ctx context.Context, payout *models.Payout) (claimed, succeeded bool) {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"payout_id":  payout.ID,
		"booking_id": payout.BookingID,
	})

	won, err := s.repo.ClaimForProcessing(ctx, payout.ID)
	if err != nil {
		s.logg.Error(logCtx, "payout claim failed", err)
		return false, false
	}
	if won == 0 {
		return false, false
	}

	result, err := s.transfer.Transfer(ctx, cinetpay.TransferRequest{
		Phone:               payout.PayoutPhone,
		Amount:              payout.Amount,
		Currency:            payout.Currency,
		ClientTransactionID: "PAYOUT-" + payout.ID.String(),
		Description:         "field booking payout",
	})
	if err != nil {
		s.logg.Error(logCtx, "payout transfer failed", err)
		if markErr := s.repo.MarkFailed(ctx, payout.ID, err.Error()); markErr != nil {
			s.logg.Error(logCtx, "recording payout failure failed", markErr)
		}
		return true, false
	}

	if err := s.repo.MarkCompleted(ctx, payout.ID, result.TransferID); err != nil {
		s.logg.Error(logCtx, "recording payout completion failed", err)
		return true, false
	}
	if err := s.bookings.MarkPayoutSent(ctx, payout.BookingID); err != nil {
		s.logg.Error(logCtx, "marking booking payout_sent failed", err)
	}

	s.logg.Info(s.logg.WithField(logCtx, "transfer_id", result.TransferID), "payout completed")
	return true, true
}

// Retry returns a failed payout to the scheduled state. Retries are an
// operator action, not automatic backoff.
func (s *Service) Retry(ctx context.Context, payoutID uuid.UUID) error {
	moved, err := s.repo.Reschedule(ctx, payoutID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reschedule payout")
	}
	if moved == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payout is not failed")
	}
	return nil
}

// GetByBookingID returns the payout for a booking, if any.
func (s *Service) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.Payout, error) {
	payout, err := s.repo.FindByBookingID(ctx, bookingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout")
	}
	return payout, nil
}

package bookings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/BilMam/soccer-spot-reserve-sub002/internal/availability"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/db/models"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/enums"
	pkgerrors "github.com/BilMam/soccer-spot-reserve-sub002/pkg/errors"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/logger"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/timeslot"
)

// Repository is the booking persistence surface.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, booking *models.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	FindByPaymentIntentID(ctx context.Context, intentID string) (*models.Booking, error)
	FindField(ctx context.Context, fieldID uuid.UUID) (*models.Field, error)
	CountOverlappingConfirmed(ctx context.Context, fieldID uuid.UUID, date, startTime, endTime string, exceptID uuid.UUID) (int64, error)
	ApplyPaymentOutcome(ctx context.Context, id uuid.UUID, payment enums.PaymentStatus, status enums.BookingStatus, cancelReason *string) (int64, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.BookingStatus, cancelReason *string) (int64, error)
	CompleteElapsed(ctx context.Context, nowDate, nowTime string) (int64, error)
	MarkPayoutSent(ctx context.Context, id uuid.UUID) (int64, error)
}

// TxRunner executes fn inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams configure the booking service.
type ServiceParams struct {
	Logger       *logger.Logger
	Repo         Repository
	Availability *availability.Service
	Tx           TxRunner
	FeePercent   string
	Currency     string
	Now          func() time.Time
}

// Service drives the booking lifecycle from admission through settlement.
type Service struct {
	logg         *logger.Logger
	repo         Repository
	availability *availability.Service
	tx           TxRunner
	feePercent   decimal.Decimal
	currency     string
	now          func() time.Time
}

// NewService builds the booking service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "booking repo required")
	}
	if params.Availability == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "availability service required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tx runner required")
	}
	feePercent, err := decimal.NewFromString(strings.TrimSpace(params.FeePercent))
	if err != nil || feePercent.IsNegative() || feePercent.GreaterThan(decimal.NewFromInt(100)) {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "platform fee percent must be between 0 and 100")
	}
	currency := params.Currency
	if currency == "" {
		currency = "XOF"
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		logg:         params.Logger,
		repo:         params.Repo,
		availability: params.Availability,
		tx:           params.Tx,
		feePercent:   feePercent,
		currency:     currency,
		now:          now,
	}, nil
}

// CreateRequest asks for a new pending booking over a field time range.
type CreateRequest struct {
	FieldID   uuid.UUID
	UserID    uuid.UUID
	Date      string
	StartTime string
	EndTime   string
}

// Create admits and inserts a pending booking. The admission check and the
// insert run inside one transaction so the window between check and insert is
// as small as the store allows. The returned booking carries the payment
// reference the checkout hands to the payment provider.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Booking, error) {
	if _, err := timeslot.ParseDate(req.Date); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid booking date")
	}

	var booking *models.Booking
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		field, err := repo.FindField(ctx, req.FieldID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load field")
		}
		if field == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "field not found")
		}
		if !field.Active {
			return pkgerrors.New(pkgerrors.CodePrecondition, "field is not accepting bookings")
		}

		admission, err := s.availability.WithTx(tx).CheckAdmissible(ctx, req.FieldID, req.Date, req.StartTime, req.EndTime)
		if err != nil {
			return err
		}
		if !admission.Admissible {
			return pkgerrors.New(pkgerrors.CodeConflict, "range is not available").
				WithDetails(map[string]any{
					"failed_status": admission.FailedStatus,
					"failed_window": admission.FailedWindow,
				})
		}

		gross, owner, fee, err := s.splitAmounts(field.PricePerHour, req.StartTime, req.EndTime)
		if err != nil {
			return err
		}

		intentID := newPaymentReference()
		booking = &models.Booking{
			FieldID:         req.FieldID,
			UserID:          req.UserID,
			Date:            req.Date,
			StartTime:       req.StartTime,
			EndTime:         req.EndTime,
			AmountGross:     gross,
			AmountOwner:     owner,
			AmountFee:       fee,
			Currency:        s.currency,
			Status:          enums.BookingStatusPending,
			PaymentStatus:   enums.PaymentStatusPending,
			PaymentIntentID: &intentID,
		}
		if err := repo.Create(ctx, booking); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert booking")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"event":        "bookings.created",
		"booking_id":   booking.ID,
		"field_id":     booking.FieldID,
		"date":         booking.Date,
		"window":       booking.StartTime + "-" + booking.EndTime,
		"amount_gross": booking.AmountGross,
	})
	s.logg.Info(logCtx, "booking created")
	return booking, nil
}

// splitAmounts prices the window and splits gross into owner net and platform
// fee, in whole currency units.
func (s *Service) splitAmounts(pricePerHour int64, startTime, endTime string) (gross, owner, fee int64, err error) {
	startMin, err := timeslot.MinutesOf(startTime)
	if err != nil {
		return 0, 0, 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid start time")
	}
	endMin, err := timeslot.MinutesOf(endTime)
	if err != nil {
		return 0, 0, 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid end time")
	}
	if endMin <= startMin {
		return 0, 0, 0, pkgerrors.New(pkgerrors.CodeValidation, "end time must be after start time")
	}

	minutes := decimal.NewFromInt(int64(endMin - startMin))
	grossDec := decimal.NewFromInt(pricePerHour).Mul(minutes).Div(decimal.NewFromInt(60)).Round(0)
	feeDec := grossDec.Mul(s.feePercent).Div(decimal.NewFromInt(100)).Round(0)
	ownerDec := grossDec.Sub(feeDec)

	return grossDec.IntPart(), ownerDec.IntPart(), feeDec.IntPart(), nil
}

func newPaymentReference() string {
	return "SSR-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// GetByID returns the booking or a not-found error.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	if booking == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
	}
	return booking, nil
}

// FindByPaymentReference locates the booking a payment notification refers to.
// A nil result without error means no booking carries the reference.
func (s *Service) FindByPaymentReference(ctx context.Context, reference string) (*models.Booking, error) {
	booking, err := s.repo.FindByPaymentIntentID(ctx, reference)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking by payment reference")
	}
	return booking, nil
}

// ApplyPaymentOutcome finalizes the payment outcome on a booking. The write
// only lands while payment_status is still pending; the returned flag reports
// whether this call was the one that decided the outcome.
func (s *Service) ApplyPaymentOutcome(ctx context.Context, id uuid.UUID, payment enums.PaymentStatus, status enums.BookingStatus, cancelReason *string) (bool, error) {
	applied, err := s.repo.ApplyPaymentOutcome(ctx, id, payment, status, cancelReason)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply payment outcome")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"event":          "bookings.payment_outcome",
		"booking_id":     id,
		"payment_status": payment,
		"status":         status,
		"applied":        applied > 0,
	})
	s.logg.Info(logCtx, "payment outcome processed")
	return applied > 0, nil
}

// SettleOutcome reports how a paid confirmation landed.
type SettleOutcome string

const (
	SettleApplied   SettleOutcome = "applied"
	SettleDuplicate SettleOutcome = "duplicate"
	// SettleLostRace marks the loser of a same-window double-payment race.
	// The booking stays pending and is resolved by manual refund; the engine
	// never confirms a second booking over an already-confirmed window.
	SettleLostRace SettleOutcome = "lost_race"
)

// ConfirmPaid settles a successful payment on the booking. The conditional
// write only lands while payment_status is pending, and only when no other
// confirmed booking already holds an overlapping window.
func (s *Service) ConfirmPaid(ctx context.Context, booking *models.Booking) (SettleOutcome, error) {
	var outcome SettleOutcome
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		winners, err := repo.CountOverlappingConfirmed(ctx, booking.FieldID, booking.Date, booking.StartTime, booking.EndTime, booking.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check confirmed overlap")
		}
		if winners > 0 {
			outcome = SettleLostRace
			return nil
		}

		applied, err := repo.ApplyPaymentOutcome(ctx, booking.ID, enums.PaymentStatusPaid, enums.BookingStatusConfirmed, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm paid booking")
		}
		if applied == 0 {
			outcome = SettleDuplicate
			return nil
		}
		outcome = SettleApplied
		return nil
	})
	if err != nil {
		return "", err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"event":      "bookings.paid_settlement",
		"booking_id": booking.ID,
		"outcome":    outcome,
	})
	s.logg.Info(logCtx, "paid settlement resolved")
	return outcome, nil
}

// transition applies one lifecycle move. The move is checked against the
// lifecycle table on the booking's current status, then landed as a guarded
// update keyed on that same status, so a concurrent transition makes the
// write a no-op instead of a blind overwrite.
func (s *Service) transition(ctx context.Context, id uuid.UUID, to enums.BookingStatus, cancelReason *string) error {
	if !to.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown booking status %q", to))
	}

	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !booking.Status.CanTransitionTo(to) {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("booking is %s and cannot move to %s", booking.Status, to))
	}

	moved, err := s.repo.TransitionStatus(ctx, id, booking.Status, to, cancelReason)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition booking")
	}
	if moved == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "booking changed state concurrently")
	}
	return nil
}

// Cancel moves a pending booking to cancelled. Any other current status is a
// state conflict.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) error {
	if err := s.transition(ctx, id, enums.BookingStatusCancelled, &reason); err != nil {
		return err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"event":      "bookings.cancelled",
		"booking_id": id,
		"reason":     reason,
	})
	s.logg.Info(logCtx, "booking cancelled")
	return nil
}

// OwnerConfirm records the field owner's acknowledgement of a paid booking.
func (s *Service) OwnerConfirm(ctx context.Context, id uuid.UUID) error {
	if err := s.transition(ctx, id, enums.BookingStatusOwnerConfirmed, nil); err != nil {
		return err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"event":      "bookings.owner_confirmed",
		"booking_id": id,
	})
	s.logg.Info(logCtx, "booking confirmed by owner")
	return nil
}

// CompleteElapsed promotes confirmed bookings whose window has fully elapsed
// to completed. This is bookkeeping run by the sweep; it returns how many
// bookings were promoted.
func (s *Service) CompleteElapsed(ctx context.Context) (int64, error) {
	now := s.now().UTC()
	nowDate := now.Format(timeslot.DateLayout)
	nowTime := now.Format(timeslot.TimeLayout)

	promoted, err := s.repo.CompleteElapsed(ctx, nowDate, nowTime)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete elapsed bookings")
	}
	if promoted > 0 {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"event":    "bookings.completed",
			"promoted": promoted,
		})
		s.logg.Info(logCtx, "elapsed bookings completed")
	}
	return promoted, nil
}

// MarkPayoutSent flags the booking once its payout transfer has gone out.
func (s *Service) MarkPayoutSent(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.MarkPayoutSent(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payout sent")
	}
	return nil
}

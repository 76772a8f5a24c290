package bookings

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/db/models"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a booking repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, booking *models.Booking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&booking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *repository) FindByPaymentIntentID(ctx context.Context, intentID string) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).Where("payment_intent_id = ?", intentID).First(&booking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *repository) FindField(ctx context.Context, fieldID uuid.UUID) (*models.Field, error) {
	var field models.Field
	err := r.db.WithContext(ctx).Where("id = ?", fieldID).First(&field).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &field, nil
}

// CountOverlappingConfirmed counts confirmed bookings other than exceptID that
// overlap the window. Used to detect a lost double-payment race.
func (r *repository) CountOverlappingConfirmed(ctx context.Context, fieldID uuid.UUID, date, startTime, endTime string, exceptID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("field_id = ? AND date = ? AND start_time < ? AND end_time > ?", fieldID, date, endTime, startTime).
		Where("id <> ? AND status IN ?", exceptID,
			[]enums.BookingStatus{enums.BookingStatusConfirmed, enums.BookingStatusOwnerConfirmed}).
		Count(&count).Error
	return count, err
}

// ApplyPaymentOutcome writes the settlement outcome, guarded on the payment
// still being undecided. Returns the number of rows written: zero means the
// outcome was already final and the caller must treat the call as a no-op.
func (r *repository) ApplyPaymentOutcome(ctx context.Context, id uuid.UUID, payment enums.PaymentStatus, status enums.BookingStatus, cancelReason *string) (int64, error) {
	updates := map[string]any{
		"payment_status": payment,
		"status":         status,
	}
	if cancelReason != nil {
		updates["cancel_reason"] = *cancelReason
	}
	result := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND payment_status = ?", id, enums.PaymentStatusPending).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// TransitionStatus moves the booking from one lifecycle status to another as a
// guarded update.
func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.BookingStatus, cancelReason *string) (int64, error) {
	updates := map[string]any{"status": to}
	if cancelReason != nil {
		updates["cancel_reason"] = *cancelReason
	}
	result := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// CompleteElapsed promotes confirmed bookings whose end time has passed.
func (r *repository) CompleteElapsed(ctx context.Context, nowDate, nowTime string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("status IN ?", []enums.BookingStatus{enums.BookingStatusConfirmed, enums.BookingStatusOwnerConfirmed}).
		Where("date < ? OR (date = ? AND end_time <= ?)", nowDate, nowDate, nowTime).
		Update("status", enums.BookingStatusCompleted)
	return result.RowsAffected, result.Error
}

// MarkPayoutSent flags the booking's payout as dispatched, once.
func (r *repository) MarkPayoutSent(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND payout_sent = ?", id, false).
		Update("payout_sent", true)
	return result.RowsAffected, result.Error
}

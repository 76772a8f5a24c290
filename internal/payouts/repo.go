package payouts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/db/models"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payout repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payout *models.Payout) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&payout).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	err := r.db.WithContext(ctx).Where("booking_id = ?", bookingID).First(&payout).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payout, nil
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

// FindDue returns scheduled payouts whose time has come, oldest first, bounded
// by limit.
func (r *repository) FindDue(ctx context.Context, now time.Time, limit int) ([]models.Payout, error) {
	var payouts []models.Payout
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_at <= ?", enums.PayoutStatusScheduled, now).
		Order("scheduled_at ASC").
		Limit(limit).
		Find(&payouts).Error
	if err != nil {
		return nil, err
	}
	return payouts, nil
}

// ClaimForProcessing moves the payout from scheduled to processing. The guard
// on the current status is the mutual exclusion between concurrent sweeps: at
// most one caller sees a row written.
func (r *repository) ClaimForProcessing(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("id = ? AND status = ?", id, enums.PayoutStatusScheduled).
		Update("status", enums.PayoutStatusProcessing)
	return result.RowsAffected, result.Error
}

func (r *repository) MarkCompleted(ctx context.Context, id uuid.UUID, transferID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        enums.PayoutStatusCompleted,
			"transfer_id":   transferID,
			"last_error":    nil,
			"attempt_count": gorm.Expr("attempt_count + 1"),
		}).Error
}

// MarkFailed records the failure and returns the row to a retryable state.
func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	return r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        enums.PayoutStatusFailed,
			"last_error":    lastError,
			"attempt_count": gorm.Expr("attempt_count + 1"),
		}).Error
}

// Reschedule returns a failed payout to the scheduled state for a retry.
func (r *repository) Reschedule(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("id = ? AND status = ?", id, enums.PayoutStatusFailed).
		Update("status", enums.PayoutStatusScheduled)
	return result.RowsAffected, result.Error
}

package slots

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/db/models"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a slot repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListSlots(ctx context.Context, fieldID uuid.UUID, fromDate, toDate string) ([]models.AvailabilitySlot, error) {
	var slots []models.AvailabilitySlot
	err := r.db.WithContext(ctx).
		Where("field_id = ? AND date >= ? AND date <= ?", fieldID, fromDate, toDate).
		Order("date ASC, start_time ASC").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

// CreateIgnoreExisting inserts slot rows, skipping windows that already exist.
// Bulk generation stays idempotent through the (field, date, window) unique key.
func (r *repository) CreateIgnoreExisting(ctx context.Context, slots []models.AvailabilitySlot) (int64, error) {
	if len(slots) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&slots)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repository) CountOverlappingOccupying(ctx context.Context, fieldID uuid.UUID, date, startTime, endTime string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("field_id = ? AND date = ? AND start_time < ? AND end_time > ? AND status IN ?",
			fieldID, date, endTime, startTime, enums.OccupyingBookingStatuses).
		Count(&count).Error
	return count, err
}

func (r *repository) UpdateIntersecting(ctx context.Context, fieldID uuid.UUID, date, startTime, endTime string, updates map[string]any) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.AvailabilitySlot{}).
		Where("field_id = ? AND date = ? AND start_time < ? AND end_time > ?", fieldID, date, endTime, startTime).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// PlaceHold claims every free slot in the range for ownerRef. The write is
// guarded on the slot being available and not already held, so two concurrent
// checkouts cannot both claim the same window.
func (r *repository) PlaceHold(ctx context.Context, fieldID uuid.UUID, date, startTime, endTime, ownerRef string, until, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.AvailabilitySlot{}).
		Where("field_id = ? AND date = ? AND start_time < ? AND end_time > ?", fieldID, date, endTime, startTime).
		Where("is_available = ?", true).
		Where("hold_until IS NULL OR hold_until < ? OR hold_owner_ref = ?", now, ownerRef).
		Updates(map[string]any{"hold_until": until, "hold_owner_ref": ownerRef})
	return result.RowsAffected, result.Error
}

// ReleaseHold clears holds owned by ownerRef in the range.
func (r *repository) ReleaseHold(ctx context.Context, fieldID uuid.UUID, date, startTime, endTime, ownerRef string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.AvailabilitySlot{}).
		Where("field_id = ? AND date = ? AND start_time < ? AND end_time > ? AND hold_owner_ref = ?",
			fieldID, date, endTime, startTime, ownerRef).
		Updates(map[string]any{"hold_until": nil, "hold_owner_ref": nil})
	return result.RowsAffected, result.Error
}

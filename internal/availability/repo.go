package availability

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/db/models"
	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an availability repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindIntersectingSlots returns the slot rows whose window overlaps
// [startTime, endTime) on the given date, ordered by start time.
func (r *repository) FindIntersectingSlots(ctx context.Context, fieldID uuid.UUID, date, startTime, endTime string) ([]models.AvailabilitySlot, error) {
	var slots []models.AvailabilitySlot
	err := r.db.WithContext(ctx).
		Where("field_id = ? AND date = ? AND start_time < ? AND end_time > ?", fieldID, date, endTime, startTime).
		Order("start_time ASC").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

// FindOverlappingOccupying returns occupying bookings whose window overlaps
// [startTime, endTime) on the given date, under general interval overlap.
func (r *repository) FindOverlappingOccupying(ctx context.Context, fieldID uuid.UUID, date, startTime, endTime string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Where("field_id = ? AND date = ? AND start_time < ? AND end_time > ? AND status IN ?",
			fieldID, date, endTime, startTime, enums.OccupyingBookingStatuses).
		Order("start_time ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

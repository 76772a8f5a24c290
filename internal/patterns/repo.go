package patterns

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a pattern repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, pattern *models.RecurringPattern) error {
	return r.db.WithContext(ctx).Create(pattern).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.RecurringPattern, error) {
	var pattern models.RecurringPattern
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&pattern).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pattern, nil
}

func (r *repository) ListByField(ctx context.Context, fieldID uuid.UUID, activeOnly bool) ([]models.RecurringPattern, error) {
	query := r.db.WithContext(ctx).Where("field_id = ?", fieldID)
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var patterns []models.RecurringPattern
	if err := query.Order("day_of_week ASC, start_time ASC").Find(&patterns).Error; err != nil {
		return nil, err
	}
	return patterns, nil
}

func (r *repository) SetActive(ctx context.Context, id uuid.UUID, active bool) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.RecurringPattern{}).
		Where("id = ?", id).
		Update("active", active)
	return result.RowsAffected, result.Error
}

// ClearDerived reopens slots the pattern previously blocked inside the date
// range. Manual blocks carry no source_pattern_id and are never touched.
func (r *repository) ClearDerived(ctx context.Context, patternID uuid.UUID, fromDate, toDate string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.AvailabilitySlot{}).
		Where("source_pattern_id = ? AND date >= ? AND date <= ?", patternID, fromDate, toDate).
		Updates(map[string]any{
			"is_available":          true,
			"unavailability_reason": nil,
			"source_pattern_id":     nil,
		})
	return result.RowsAffected, result.Error
}

// ClearDerivedAll reopens every slot the pattern ever blocked.
func (r *repository) ClearDerivedAll(ctx context.Context, patternID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.AvailabilitySlot{}).
		Where("source_pattern_id = ?", patternID).
		Updates(map[string]any{
			"is_available":          true,
			"unavailability_reason": nil,
			"source_pattern_id":     nil,
		})
	return result.RowsAffected, result.Error
}

// MarkDerived blocks the slots intersecting the pattern window on one date.
// Only open slots (or slots already derived from this pattern) are written, so
// a projection never overwrites a manual block.
func (r *repository) MarkDerived(ctx context.Context, patternID, fieldID uuid.UUID, date, startTime, endTime, label string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.AvailabilitySlot{}).
		Where("field_id = ? AND date = ? AND start_time < ? AND end_time > ?", fieldID, date, endTime, startTime).
		Where("is_available = ? OR source_pattern_id = ?", true, patternID).
		Updates(map[string]any{
			"is_available":          false,
			"unavailability_reason": label,
			"source_pattern_id":     patternID,
		})
	return result.RowsAffected, result.Error
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AvailabilitySlot is one administratively defined bookable time unit for a
// field on a given date. Dates are ISO (2006-01-02) and times are HH:MM, both
// in the field's local zone. At most one row exists per
// (field_id, date, start_time, end_time).
type AvailabilitySlot struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	FieldID   uuid.UUID `gorm:"column:field_id;type:uuid;not null;uniqueIndex:ux_slots_field_window,priority:1"`
	Date      string    `gorm:"column:date;not null;uniqueIndex:ux_slots_field_window,priority:2"`
	StartTime string    `gorm:"column:start_time;not null;uniqueIndex:ux_slots_field_window,priority:3"`
	EndTime   string    `gorm:"column:end_time;not null;uniqueIndex:ux_slots_field_window,priority:4"`

	IsAvailable          bool    `gorm:"column:is_available;not null;default:true"`
	UnavailabilityReason *string `gorm:"column:unavailability_reason"`
	IsMaintenance        bool    `gorm:"column:is_maintenance;not null;default:false"`

	// SourcePatternID tags slots blocked by a recurring pattern projection so
	// they can be removed without touching manual blocks.
	SourcePatternID *uuid.UUID `gorm:"column:source_pattern_id;type:uuid;index"`

	// HoldUntil, while in the future, grants HoldOwnerRef an exclusive claim
	// on the slot ahead of payment confirmation.
	HoldUntil    *time.Time `gorm:"column:hold_until"`
	HoldOwnerRef *string    `gorm:"column:hold_owner_ref"`

	Notes     *string   `gorm:"column:notes"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *AvailabilitySlot) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// HeldAt reports whether the slot carries an active hold at the given instant.
func (s AvailabilitySlot) HeldAt(now time.Time) bool {
	return s.HoldUntil != nil && s.HoldUntil.After(now)
}

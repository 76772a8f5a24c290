package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecurringPattern defines a weekly blackout window for a field. The pattern is
// the source of truth; derived AvailabilitySlot rows are a materialized cache
// re-derivable from the definition alone.
type RecurringPattern struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	FieldID   uuid.UUID `gorm:"column:field_id;type:uuid;not null;index"`
	DayOfWeek int       `gorm:"column:day_of_week;not null"` // 0=Sunday .. 6=Saturday
	StartTime string    `gorm:"column:start_time;not null"`
	EndTime   string    `gorm:"column:end_time;not null"`
	StartDate string    `gorm:"column:start_date;not null"`
	EndDate   *string   `gorm:"column:end_date"`
	Active    bool      `gorm:"column:active;not null;default:true"`
	Label     string    `gorm:"column:label;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *RecurringPattern) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// AppliesTo reports whether the pattern covers the given ISO date falling on
// the given weekday.
func (p RecurringPattern) AppliesTo(date string, weekday int) bool {
	if weekday != p.DayOfWeek {
		return false
	}
	if date < p.StartDate {
		return false
	}
	if p.EndDate != nil && date > *p.EndDate {
		return false
	}
	return true
}

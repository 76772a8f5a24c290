package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Field is a bookable sports field published by an owner.
type Field struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID      uuid.UUID `gorm:"column:owner_id;type:uuid;not null;index"`
	Name         string    `gorm:"column:name;not null"`
	City         *string   `gorm:"column:city"`
	PricePerHour int64     `gorm:"column:price_per_hour;not null;default:0"`
	// PayoutPhone is the mobile-money contact transfers are sent to. A field
	// without one cannot receive payouts.
	PayoutPhone *string   `gorm:"column:payout_phone"`
	Active      bool      `gorm:"column:active;not null;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (f *Field) BeforeCreate(*gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

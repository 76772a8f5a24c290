package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/enums"
)

// Payout is the transfer of a field owner's net earnings for one paid booking.
// BookingID is unique: retries re-use the same row and bump AttemptCount.
type Payout struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	BookingID uuid.UUID `gorm:"column:booking_id;type:uuid;not null;uniqueIndex"`
	OwnerID   uuid.UUID `gorm:"column:owner_id;type:uuid;not null;index"`

	PayoutPhone string `gorm:"column:payout_phone;not null"`
	Amount      int64  `gorm:"column:amount;not null"`
	Currency    string `gorm:"column:currency;not null;default:'XOF'"`

	Status enums.PayoutStatus `gorm:"column:status;type:text;not null;default:'scheduled'"`

	// ScheduledAt is the booking start time: payouts are tied to when the
	// service is rendered, not to payment time.
	ScheduledAt time.Time `gorm:"column:scheduled_at;not null;index"`

	AttemptCount int     `gorm:"column:attempt_count;not null;default:0"`
	LastError    *string `gorm:"column:last_error"`
	TransferID   *string `gorm:"column:transfer_id"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Payout) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

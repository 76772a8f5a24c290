package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/enums"
)

// Booking reserves a field time window for a player. It occupies its window
// only while Status is one of the occupying statuses; cancelled bookings never
// block a slot.
type Booking struct {
	ID      uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	FieldID uuid.UUID `gorm:"column:field_id;type:uuid;not null;index:ix_bookings_field_date,priority:1"`
	UserID  uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`

	Date      string `gorm:"column:date;not null;index:ix_bookings_field_date,priority:2"`
	StartTime string `gorm:"column:start_time;not null"`
	EndTime   string `gorm:"column:end_time;not null"`

	// Monetary breakdown in whole currency units (XOF has no minor unit).
	AmountGross int64  `gorm:"column:amount_gross;not null"`
	AmountOwner int64  `gorm:"column:amount_owner;not null"`
	AmountFee   int64  `gorm:"column:amount_fee;not null"`
	Currency    string `gorm:"column:currency;not null;default:'XOF'"`

	Status        enums.BookingStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`

	// PaymentIntentID is set once at checkout initiation and is the
	// idempotency key webhook notifications are matched on.
	PaymentIntentID *string `gorm:"column:payment_intent_id;uniqueIndex"`

	PayoutSent bool `gorm:"column:payout_sent;not null;default:false"`

	CancelReason *string   `gorm:"column:cancel_reason"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (b *Booking) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

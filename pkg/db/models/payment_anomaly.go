package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentAnomaly is an append-only record of webhook payloads that could not
// be matched to a booking or that errored during processing. It never drives
// business logic; it exists for operator reconciliation.
type PaymentAnomaly struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	TransactionID *string   `gorm:"column:transaction_id;index"`
	Reason        string    `gorm:"column:reason;not null"`
	Payload       string    `gorm:"column:payload;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (a *PaymentAnomaly) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

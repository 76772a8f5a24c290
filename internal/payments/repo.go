package payments

import (
	"context"

	"gorm.io/gorm"

	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an anomaly repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateAnomaly(ctx context.Context, anomaly *models.PaymentAnomaly) error {
	return r.db.WithContext(ctx).Create(anomaly).Error
}

func (r *repository) ListAnomalies(ctx context.Context, limit int) ([]models.PaymentAnomaly, error) {
	if limit <= 0 {
		limit = 50
	}
	var anomalies []models.PaymentAnomaly
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&anomalies).Error
	if err != nil {
		return nil, err
	}
	return anomalies, nil
}

package repositories

import (
	"context"

	"gorm.io/gorm"

	"modeh/internal/models/db_models"
)

type SettlementRepositoryInterface interface {
	// ExistsForCheckoutID is the distributor's idempotency guard: when
	// records already exist for a checkout id, a re-run skips
	// distribution entirely.
	ExistsForCheckoutID(tx *gorm.DB, checkoutID string) (bool, error)
	CreateAll(tx *gorm.DB, records []db_models.SettlementRecord) error
	ListByCheckoutID(ctx context.Context, checkoutID string) ([]db_models.SettlementRecord, error)
}

func NewSettlementRepository(db *gorm.DB) SettlementRepositoryInterface {
	return &SettlementRepository{db: db}
}

type SettlementRepository struct {
	db *gorm.DB
}

func (r *SettlementRepository) ExistsForCheckoutID(tx *gorm.DB, checkoutID string) (bool, error) {
	var count int64
	err := tx.Model(&db_models.SettlementRecord{}).
		Where("checkout_request_id = ?", checkoutID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *SettlementRepository) CreateAll(tx *gorm.DB, records []db_models.SettlementRecord) error {
	if len(records) == 0 {
		return nil
	}
	return tx.Create(&records).Error
}

func (r *SettlementRepository) ListByCheckoutID(ctx context.Context, checkoutID string) ([]db_models.SettlementRecord, error) {
	var records []db_models.SettlementRecord
	err := r.db.WithContext(ctx).
		Where("checkout_request_id = ?", checkoutID).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

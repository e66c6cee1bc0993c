package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"modeh/internal/models/db_models"
	"modeh/pkg/utils"
)

type TransactionRepositoryInterface interface {
	Create(ctx context.Context, txn *db_models.PaymentTransaction) error
	FindByCheckoutID(ctx context.Context, checkoutID string) (*db_models.PaymentTransaction, error)
	// LockByCheckoutID loads the row FOR UPDATE inside the given gorm
	// transaction. Concurrent reconciliations of the same checkout id
	// serialize here; the loser observes the winner's terminal state.
	LockByCheckoutID(tx *gorm.DB, checkoutID string) (*db_models.PaymentTransaction, error)
	// ReceiptInUse reports whether the receipt is already attached to a
	// successful transaction other than the given checkout id.
	ReceiptInUse(tx *gorm.DB, receiptID, excludeCheckoutID string) (bool, error)
	DueForRetry(ctx context.Context, now int64, limit int) ([]db_models.PaymentTransaction, error)
}

func NewTransactionRepository(db *gorm.DB) TransactionRepositoryInterface {
	return &TransactionRepository{db: db}
}

type TransactionRepository struct {
	db *gorm.DB
}

func (r *TransactionRepository) Create(ctx context.Context, txn *db_models.PaymentTransaction) error {
	if err := r.db.WithContext(ctx).Create(txn).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.ErrDuplicateCorrelationID
		}
		return err
	}
	return nil
}

func (r *TransactionRepository) FindByCheckoutID(ctx context.Context, checkoutID string) (*db_models.PaymentTransaction, error) {
	var txn db_models.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("checkout_request_id = ?", checkoutID).
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrTransactionNotFound
		}
		return nil, err
	}
	return &txn, nil
}

func (r *TransactionRepository) LockByCheckoutID(tx *gorm.DB, checkoutID string) (*db_models.PaymentTransaction, error) {
	var txn db_models.PaymentTransaction
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("checkout_request_id = ?", checkoutID).
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrTransactionNotFound
		}
		return nil, err
	}
	return &txn, nil
}

func (r *TransactionRepository) ReceiptInUse(tx *gorm.DB, receiptID, excludeCheckoutID string) (bool, error) {
	var count int64
	err := tx.Model(&db_models.PaymentTransaction{}).
		Where("receipt_id = ? AND status = ? AND checkout_request_id <> ?",
			receiptID, db_models.TxnStatusSuccess, excludeCheckoutID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *TransactionRepository) DueForRetry(ctx context.Context, now int64, limit int) ([]db_models.PaymentTransaction, error) {
	var txns []db_models.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?",
			db_models.TxnStatusPending, now).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

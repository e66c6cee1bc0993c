package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"modeh/internal/models/db_models"
)

type WalletRepositoryInterface interface {
	// CreditPending adds amount to the owner's pending bucket and
	// lifetime counter under a FOR UPDATE lock on the wallet row,
	// creating a zero wallet first when absent. Composes into a caller
	// transaction so settlement records and credits commit together.
	CreditPending(tx *gorm.DB, ownerID uuid.UUID, amount decimal.Decimal) (*db_models.Wallet, error)
	// Credit is the standalone variant: one credit in its own
	// transaction.
	Credit(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal) (*db_models.Wallet, error)
	// SettlePending moves up to amount (all pending when nil) from
	// pending to available, clamped at the current pending balance.
	// Returns the wallet and the amount actually moved.
	SettlePending(ctx context.Context, ownerID uuid.UUID, amount *decimal.Decimal) (*db_models.Wallet, decimal.Decimal, error)
	GetByOwnerID(ctx context.Context, ownerID uuid.UUID) (*db_models.Wallet, error)
}

func NewWalletRepository(db *gorm.DB) WalletRepositoryInterface {
	return &WalletRepository{db: db}
}

type WalletRepository struct {
	db *gorm.DB
}

// lockWallet loads the owner's wallet FOR UPDATE, creating it when
// absent. Lock scope is the single wallet row; credits to different
// owners proceed in parallel.
func lockWallet(tx *gorm.DB, ownerID uuid.UUID) (*db_models.Wallet, error) {
	var wallet db_models.Wallet
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("owner_id = ?", ownerID).
		First(&wallet).Error
	if err == nil {
		return &wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	wallet = db_models.Wallet{
		OwnerID:        ownerID,
		Pending:        decimal.Zero,
		Available:      decimal.Zero,
		LifetimeEarned: decimal.Zero,
	}
	if err := tx.Create(&wallet).Error; err != nil {
		// Lost the creation race; lock the row the winner inserted.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("owner_id = ?", ownerID).
				First(&wallet).Error
			if err != nil {
				return nil, err
			}
			return &wallet, nil
		}
		return nil, err
	}
	return &wallet, nil
}

func (r *WalletRepository) CreditPending(tx *gorm.DB, ownerID uuid.UUID, amount decimal.Decimal) (*db_models.Wallet, error) {
	wallet, err := lockWallet(tx, ownerID)
	if err != nil {
		return nil, err
	}

	wallet.Pending = wallet.Pending.Add(amount)
	wallet.LifetimeEarned = wallet.LifetimeEarned.Add(amount)

	err = tx.Model(wallet).Updates(map[string]interface{}{
		"pending":         wallet.Pending,
		"lifetime_earned": wallet.LifetimeEarned,
	}).Error
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

func (r *WalletRepository) Credit(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal) (*db_models.Wallet, error) {
	var wallet *db_models.Wallet
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w, err := r.CreditPending(tx, ownerID, amount)
		if err != nil {
			return err
		}
		wallet = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

func (r *WalletRepository) SettlePending(ctx context.Context, ownerID uuid.UUID, amount *decimal.Decimal) (*db_models.Wallet, decimal.Decimal, error) {
	var (
		wallet *db_models.Wallet
		moved  decimal.Decimal
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w, err := lockWallet(tx, ownerID)
		if err != nil {
			return err
		}

		moved = w.Pending
		if amount != nil && amount.LessThan(moved) {
			moved = *amount
		}
		if moved.IsNegative() {
			moved = decimal.Zero
		}

		w.Pending = w.Pending.Sub(moved)
		w.Available = w.Available.Add(moved)

		if err := tx.Model(w).Updates(map[string]interface{}{
			"pending":   w.Pending,
			"available": w.Available,
		}).Error; err != nil {
			return err
		}
		wallet = w
		return nil
	})
	if err != nil {
		return nil, decimal.Zero, err
	}
	return wallet, moved, nil
}

func (r *WalletRepository) GetByOwnerID(ctx context.Context, ownerID uuid.UUID) (*db_models.Wallet, error) {
	var wallet db_models.Wallet
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &wallet, nil
}

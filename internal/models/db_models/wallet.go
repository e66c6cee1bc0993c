package db_models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet holds a content owner's earnings in two buckets: pending
// (accrued, not yet withdrawable) and available (withdrawable).
// LifetimeEarned only ever increases, by exactly the settlement amounts
// credited to the owner. Created lazily on first credit, never deleted.
type Wallet struct {
	BaseModel
	OwnerID uuid.UUID `gorm:"uniqueIndex"`

	Pending        decimal.Decimal `gorm:"type:decimal(14,2);default:0"`
	Available      decimal.Decimal `gorm:"type:decimal(14,2);default:0"`
	LifetimeEarned decimal.Decimal `gorm:"type:decimal(14,2);default:0"`
}

func (Wallet) TableName() string {
	return "wallets"
}

package db_models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending"
	PurchaseStatusConfirmed PurchaseStatus = "confirmed"
	PurchaseStatusCancelled PurchaseStatus = "cancelled"
)

type ItemType string

const (
	ItemQuiz       ItemType = "quiz"
	ItemBattle     ItemType = "battle"
	ItemTournament ItemType = "tournament"
	ItemPackage    ItemType = "package"
	// ItemSubscription is used on settlement records funded by a plan
	// subscription rather than a one-off purchase.
	ItemSubscription ItemType = "subscription"
)

// Purchase is a one-off billable: a single quiz, battle or tournament
// entry, or a question package. Confirmed by a successful payment.
type Purchase struct {
	BaseModel
	AccountID uuid.UUID `gorm:"index"`

	ItemType ItemType  `gorm:"size:20;index:idx_purchase_item"`
	ItemID   uuid.UUID `gorm:"index:idx_purchase_item"`

	Amount decimal.Decimal `gorm:"type:decimal(12,2)"`
	Status PurchaseStatus  `gorm:"size:20;index;default:'pending'"`
}

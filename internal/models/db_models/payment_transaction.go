package db_models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type TransactionStatus string

const (
	TxnStatusPending   TransactionStatus = "pending"
	TxnStatusSuccess   TransactionStatus = "success"
	TxnStatusFailed    TransactionStatus = "failed"
	TxnStatusCancelled TransactionStatus = "cancelled"
)

// IsTerminal reports whether the status permits no further transitions.
func (s TransactionStatus) IsTerminal() bool {
	return s == TxnStatusSuccess || s == TxnStatusFailed || s == TxnStatusCancelled
}

type BillableType string

const (
	BillableSubscription BillableType = "subscription"
	BillablePurchase     BillableType = "purchase"
)

// PaymentTransaction is one row per gateway checkout request. The
// CheckoutRequestID issued by the gateway is the idempotency key for
// everything downstream: reconciliation, settlement and wallet credits.
type PaymentTransaction struct {
	BaseModel
	AccountID uuid.UUID `gorm:"index"`

	// Gateway correlation ids
	CheckoutRequestID string `gorm:"uniqueIndex;size:100"`
	MerchantRequestID string `gorm:"index;size:100"`

	Amount decimal.Decimal   `gorm:"type:decimal(12,2)"`
	Phone  string            `gorm:"size:15"`
	Status TransactionStatus `gorm:"size:20;index;default:'pending'"`

	// Set only when the gateway confirms success. Unique across all rows:
	// one receipt settles at most one transaction.
	ReceiptID         *string `gorm:"uniqueIndex;size:50"`
	ResultCode        string  `gorm:"size:20"`
	ResultDescription string  `gorm:"size:255"`

	// What this payment funds
	BillableType BillableType `gorm:"size:20;index:idx_txn_billable"`
	BillableID   uuid.UUID    `gorm:"index:idx_txn_billable"`

	RetryCount   int    `gorm:"default:0"`
	NextRetryAt  *int64 `gorm:"index"`
	ReconciledAt *int64

	// Raw gateway payload snapshot for audit
	RawCallback datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
}

func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}

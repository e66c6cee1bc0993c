package db_models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettlementRecord is one stakeholder's cut of a successful payment.
// Rows for a checkout request id are created at most once; for a single
// checkout id the stakeholder shares plus the platform share always sum
// to the gross amount exactly.
type SettlementRecord struct {
	BaseModel
	CheckoutRequestID string    `gorm:"index;size:100"`
	PayerID           uuid.UUID `gorm:"index"`

	// Nil stakeholder means a platform-only record (no content owner).
	StakeholderID *uuid.UUID `gorm:"index"`

	ItemType ItemType `gorm:"size:20"`
	ItemID   uuid.UUID

	GrossAmount      decimal.Decimal `gorm:"type:decimal(12,2)"`
	StakeholderShare decimal.Decimal `gorm:"type:decimal(12,2)"`
	PlatformShare    decimal.Decimal `gorm:"type:decimal(12,2)"`
}

func (SettlementRecord) TableName() string {
	return "settlement_records"
}

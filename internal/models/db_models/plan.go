package db_models

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type BillingPeriod string

const (
	PeriodMonth BillingPeriod = "month"
	PeriodYear  BillingPeriod = "year"
)

type Plan struct {
	BaseModel
	Code        string `gorm:"uniqueIndex"` // e.g., "basic", "pro_monthly", "pro_yearly"
	Name        string
	Description *string
	Period      BillingPeriod   `gorm:"size:10"` // "month" | "year"
	Price       decimal.Decimal `gorm:"type:decimal(12,2)"`
	IsActive    bool            `gorm:"default:true"`
	Features    datatypes.JSON  `gorm:"type:jsonb;default:'{}'"`
}

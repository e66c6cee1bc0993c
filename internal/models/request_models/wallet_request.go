package request_models

import "github.com/shopspring/decimal"

type SettlePendingRequest struct {
	// Nil releases the whole pending balance.
	Amount *decimal.Decimal `json:"amount"`
}

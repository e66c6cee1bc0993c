package request_models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InitiateSubscriptionPaymentRequest struct {
	PlanCode string `json:"plan_code" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
}

type InitiatePurchasePaymentRequest struct {
	ItemType string          `json:"item_type" binding:"required,oneof=quiz battle tournament package"`
	ItemID   uuid.UUID       `json:"item_id" binding:"required"`
	Amount   decimal.Decimal `json:"amount" binding:"required"`
	Phone    string          `json:"phone" binding:"required"`
}

type ReconcileRequest struct {
	CheckoutRequestID string `json:"checkout_request_id" binding:"required"`
}

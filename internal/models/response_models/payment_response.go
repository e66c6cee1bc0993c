package response_models

import (
	"github.com/shopspring/decimal"

	"modeh/internal/models/db_models"
	"modeh/pkg/utils"
)

type TransactionResponse struct {
	CheckoutRequestID string          `json:"checkout_request_id"`
	MerchantRequestID string          `json:"merchant_request_id,omitempty"`
	Status            string          `json:"status"`
	Amount            decimal.Decimal `json:"amount"`
	Phone             string          `json:"phone"`
	ReceiptID         *string         `json:"receipt_id,omitempty"`
	ResultCode        string          `json:"result_code,omitempty"`
	ResultDescription string          `json:"result_description,omitempty"`
	RetryCount        int             `json:"retry_count"`
	NextRetryAt       string          `json:"next_retry_at,omitempty"`
	ReconciledAt      string          `json:"reconciled_at,omitempty"`
}

type ReconcileResponse struct {
	TransactionResponse
	Settlement      string `json:"settlement,omitempty"`
	SettlementError string `json:"settlement_error,omitempty"`
}

type SettlementResponse struct {
	CheckoutRequestID string          `json:"checkout_request_id"`
	StakeholderID     string          `json:"stakeholder_id,omitempty"`
	ItemType          string          `json:"item_type"`
	ItemID            string          `json:"item_id"`
	GrossAmount       decimal.Decimal `json:"gross_amount"`
	StakeholderShare  decimal.Decimal `json:"stakeholder_share"`
	PlatformShare     decimal.Decimal `json:"platform_share"`
}

func ToSettlementResponses(records []db_models.SettlementRecord) []SettlementResponse {
	out := make([]SettlementResponse, 0, len(records))
	for _, rec := range records {
		resp := SettlementResponse{
			CheckoutRequestID: rec.CheckoutRequestID,
			ItemType:          string(rec.ItemType),
			ItemID:            rec.ItemID.String(),
			GrossAmount:       rec.GrossAmount,
			StakeholderShare:  rec.StakeholderShare,
			PlatformShare:     rec.PlatformShare,
		}
		if rec.StakeholderID != nil {
			resp.StakeholderID = rec.StakeholderID.String()
		}
		out = append(out, resp)
	}
	return out
}

func ToTransactionResponse(txn *db_models.PaymentTransaction) TransactionResponse {
	resp := TransactionResponse{
		CheckoutRequestID: txn.CheckoutRequestID,
		MerchantRequestID: txn.MerchantRequestID,
		Status:            string(txn.Status),
		Amount:            txn.Amount,
		Phone:             txn.Phone,
		ReceiptID:         txn.ReceiptID,
		ResultCode:        txn.ResultCode,
		ResultDescription: txn.ResultDescription,
		RetryCount:        txn.RetryCount,
	}
	if txn.NextRetryAt != nil {
		resp.NextRetryAt = utils.FormatRFC3339(*txn.NextRetryAt)
	}
	if txn.ReconciledAt != nil {
		resp.ReconciledAt = utils.FormatRFC3339(*txn.ReconciledAt)
	}
	return resp
}

package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// stkCallback mirrors the provider's webhook envelope just long enough
// to normalize it. Nothing outside this package sees these shapes.
type stkCallbackEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        *int   `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string      `json:"Name"`
					Value interface{} `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// ParseCallback normalizes a raw STK webhook body. Result code 0 maps to
// success, 1032 to user cancellation, anything else to failure.
func ParseCallback(raw []byte) (*CallbackResult, error) {
	var env stkCallbackEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("parse stk callback: %w", err)
	}

	cb := env.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		return nil, fmt.Errorf("parse stk callback: missing CheckoutRequestID")
	}
	// A body without a result code is truncated or forged; treating it as
	// code 0 would finalize the payment as success.
	if cb.ResultCode == nil {
		return nil, fmt.Errorf("parse stk callback: missing ResultCode for %s", cb.CheckoutRequestID)
	}

	code := fmt.Sprintf("%d", *cb.ResultCode)
	res := &CallbackResult{
		CheckoutRequestID: cb.CheckoutRequestID,
		MerchantRequestID: cb.MerchantRequestID,
		QueryResult: QueryResult{
			Status:            statusFromResultCode(code),
			ResultCode:        code,
			ResultDescription: cb.ResultDesc,
			Raw:               raw,
		},
	}

	for _, item := range cb.CallbackMetadata.Item {
		switch item.Name {
		case "MpesaReceiptNumber":
			if s, ok := item.Value.(string); ok {
				res.ReceiptID = s
			}
		case "Amount":
			switch v := item.Value.(type) {
			case float64:
				d := decimal.NewFromFloat(v)
				res.Amount = &d
			case string:
				if d, err := decimal.NewFromString(v); err == nil {
					res.Amount = &d
				}
			}
		}
	}

	return res, nil
}

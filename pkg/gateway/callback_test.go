package gateway

import (
	"testing"

	"github.com/shopspring/decimal"
)

const successCallback = `{
  "Body": {
    "stkCallback": {
      "MerchantRequestID": "29115-34620561-1",
      "CheckoutRequestID": "ws_CO_191220191020363925",
      "ResultCode": 0,
      "ResultDesc": "The service request is processed successfully.",
      "CallbackMetadata": {
        "Item": [
          {"Name": "Amount", "Value": 100.00},
          {"Name": "MpesaReceiptNumber", "Value": "NLJ7RT61SV"},
          {"Name": "TransactionDate", "Value": 20191219102115},
          {"Name": "PhoneNumber", "Value": 254708374149}
        ]
      }
    }
  }
}`

const cancelledCallback = `{
  "Body": {
    "stkCallback": {
      "MerchantRequestID": "29115-34620561-1",
      "CheckoutRequestID": "ws_CO_191220191020363925",
      "ResultCode": 1032,
      "ResultDesc": "Request cancelled by user"
    }
  }
}`

func TestParseCallback_Success(t *testing.T) {
	res, err := ParseCallback([]byte(successCallback))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.CheckoutRequestID != "ws_CO_191220191020363925" {
		t.Fatalf("checkout id: got %q", res.CheckoutRequestID)
	}
	if res.Status != StatusSuccess {
		t.Fatalf("expected success, got %s", res.Status)
	}
	if res.ReceiptID != "NLJ7RT61SV" {
		t.Fatalf("receipt: got %q", res.ReceiptID)
	}
	if res.Amount == nil || !res.Amount.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("amount: got %v", res.Amount)
	}
	if res.ResultCode != "0" {
		t.Fatalf("result code: got %q", res.ResultCode)
	}
}

func TestParseCallback_Cancelled(t *testing.T) {
	res, err := ParseCallback([]byte(cancelledCallback))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", res.Status)
	}
	if res.ReceiptID != "" {
		t.Fatalf("cancelled callback must carry no receipt, got %q", res.ReceiptID)
	}
	if res.Amount != nil {
		t.Fatalf("cancelled callback must carry no amount, got %s", res.Amount)
	}
}

func TestParseCallback_FailureCodeMapsToFailed(t *testing.T) {
	body := `{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_1","ResultCode":1,"ResultDesc":"The balance is insufficient for the transaction"}}}`

	res, err := ParseCallback([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", res.Status)
	}
}

func TestParseCallback_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"Body":`},
		{"missing checkout id", `{"Body":{"stkCallback":{"ResultCode":0}}}`},
		{"missing result code", `{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_1","ResultDesc":"no result code present"}}}`},
		{"empty object", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCallback([]byte(tt.body)); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestParseCallback_StringAmount(t *testing.T) {
	body := `{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_1","ResultCode":0,"ResultDesc":"ok","CallbackMetadata":{"Item":[{"Name":"Amount","Value":"49.99"}]}}}}`

	res, err := ParseCallback([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Amount == nil || !res.Amount.Equal(decimal.RequireFromString("49.99")) {
		t.Fatalf("amount: got %v", res.Amount)
	}
}

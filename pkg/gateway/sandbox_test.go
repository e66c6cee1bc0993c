package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSandboxInitiateAndQuery(t *testing.T) {
	client := NewSandboxClient()
	ctx := context.Background()
	amount := decimal.RequireFromString("250.00")

	init, err := client.InitiateSTKPush(ctx, "254712345678", amount, "sub-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if init.CheckoutRequestID != "ws_CO_SANDBOX_000001" {
		t.Fatalf("checkout id: got %q", init.CheckoutRequestID)
	}
	if init.ResponseCode != "0" {
		t.Fatalf("response code: got %q", init.ResponseCode)
	}

	res, err := client.QueryStatus(ctx, init.CheckoutRequestID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusSuccess {
		t.Fatalf("expected success, got %s", res.Status)
	}
	if res.Amount == nil || !res.Amount.Equal(amount) {
		t.Fatalf("amount: got %v, want %s", res.Amount, amount)
	}
	if res.ReceiptID == "" {
		t.Fatal("expected a simulated receipt")
	}
}

func TestSandboxCheckoutIDsAreSequential(t *testing.T) {
	client := NewSandboxClient()
	ctx := context.Background()

	first, _ := client.InitiateSTKPush(ctx, "254712345678", decimal.NewFromInt(10), "a")
	second, _ := client.InitiateSTKPush(ctx, "254712345678", decimal.NewFromInt(10), "b")

	if first.CheckoutRequestID == second.CheckoutRequestID {
		t.Fatal("checkout ids must be unique per initiation")
	}
	if second.CheckoutRequestID != "ws_CO_SANDBOX_000002" {
		t.Fatalf("second checkout id: got %q", second.CheckoutRequestID)
	}
}

func TestSandboxQueryUnknownCheckout(t *testing.T) {
	client := NewSandboxClient()

	_, err := client.QueryStatus(context.Background(), "ws_CO_NOPE")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestSandboxScriptedOutcomes(t *testing.T) {
	tests := []struct {
		name       string
		outcome    Status
		resultCode string
	}{
		{"cancelled", StatusCancelled, "1032"},
		{"pending", StatusPending, pendingErrorCode},
		{"failed", StatusFailed, "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewSandboxClient()
			client.Outcome = tt.outcome
			ctx := context.Background()

			init, err := client.InitiateSTKPush(ctx, "254712345678", decimal.NewFromInt(50), "x")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			res, err := client.QueryStatus(ctx, init.CheckoutRequestID)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Status != tt.outcome {
				t.Fatalf("expected %s, got %s", tt.outcome, res.Status)
			}
			if res.ResultCode != tt.resultCode {
				t.Fatalf("result code: expected %q, got %q", tt.resultCode, res.ResultCode)
			}
		})
	}
}

package gateway

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"
)

// SandboxClient simulates the provider for local development and demos.
// It is a separate implementation so the real client never carries
// simulation branches. Initiations are remembered in memory; queries
// replay the scripted outcome.
type SandboxClient struct {
	// Outcome every simulated payment resolves to. Defaults to success.
	Outcome Status

	seq      atomic.Int64
	mu       sync.Mutex
	payments map[string]sandboxPayment
}

type sandboxPayment struct {
	phone  string
	amount decimal.Decimal
}

func NewSandboxClient() *SandboxClient {
	return &SandboxClient{
		Outcome:  StatusSuccess,
		payments: make(map[string]sandboxPayment),
	}
}

func (s *SandboxClient) InitiateSTKPush(ctx context.Context, phone string, amount decimal.Decimal, reference string) (*InitiateResult, error) {
	n := s.seq.Add(1)
	checkout := fmt.Sprintf("ws_CO_SANDBOX_%06d", n)

	s.mu.Lock()
	s.payments[checkout] = sandboxPayment{phone: phone, amount: amount}
	s.mu.Unlock()

	return &InitiateResult{
		CheckoutRequestID:   checkout,
		MerchantRequestID:   fmt.Sprintf("sbx-merchant-%06d", n),
		ResponseCode:        "0",
		ResponseDescription: "Success. Request accepted for processing",
		CustomerMessage:     "Success. Request accepted for processing",
	}, nil
}

func (s *SandboxClient) QueryStatus(ctx context.Context, checkoutRequestID string) (*QueryResult, error) {
	s.mu.Lock()
	p, ok := s.payments[checkoutRequestID]
	s.mu.Unlock()
	if !ok {
		return &QueryResult{Status: StatusUnknown}, fmt.Errorf("%w: unknown sandbox checkout %s", ErrUnavailable, checkoutRequestID)
	}

	switch s.Outcome {
	case StatusSuccess:
		amount := p.amount
		return &QueryResult{
			Status:            StatusSuccess,
			ReceiptID:         "SBX" + checkoutRequestID[len(checkoutRequestID)-6:],
			Amount:            &amount,
			ResultCode:        "0",
			ResultDescription: "The service request is processed successfully.",
		}, nil
	case StatusCancelled:
		return &QueryResult{
			Status:            StatusCancelled,
			ResultCode:        "1032",
			ResultDescription: "Request cancelled by user",
		}, nil
	case StatusPending:
		return &QueryResult{
			Status:            StatusPending,
			ResultCode:        pendingErrorCode,
			ResultDescription: "The transaction is being processed",
		}, nil
	default:
		return &QueryResult{
			Status:            StatusFailed,
			ResultCode:        "1",
			ResultDescription: "The balance is insufficient for the transaction",
		}, nil
	}
}

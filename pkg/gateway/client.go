package gateway

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Status is the normalized lifecycle status a gateway can report for a
// push payment. Core logic only ever sees these values; provider field
// names never leave this package.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	// StatusUnknown covers gateway errors and ambiguous answers. It must
	// never drive a transaction to a terminal state.
	StatusUnknown Status = "unknown"
)

var (
	// ErrUnavailable is returned when the provider cannot be reached or
	// answers ambiguously. Callers schedule a retry instead of failing.
	ErrUnavailable = errors.New("payment gateway unavailable")
	// ErrRejected is returned when the provider refuses an initiation
	// outright (bad credentials, malformed request).
	ErrRejected = errors.New("payment gateway rejected request")
)

// InitiateResult is the normalized outcome of an STK push initiation.
type InitiateResult struct {
	CheckoutRequestID   string
	MerchantRequestID   string
	ResponseCode        string
	ResponseDescription string
	CustomerMessage     string
}

// QueryResult is the normalized outcome of a status query or callback.
// ReceiptID and Amount are optional: the provider's query API omits
// them, callbacks carry them on success.
type QueryResult struct {
	Status            Status
	ReceiptID         string
	Amount            *decimal.Decimal
	ResultCode        string
	ResultDescription string
	Raw               []byte
}

// CallbackResult is a parsed webhook payload.
type CallbackResult struct {
	CheckoutRequestID string
	MerchantRequestID string
	QueryResult
}

// Client initiates push payments and queries their status by checkout
// request id. Implementations: DarajaClient (real provider) and
// SandboxClient (simulation).
type Client interface {
	InitiateSTKPush(ctx context.Context, phone string, amount decimal.Decimal, reference string) (*InitiateResult, error)
	QueryStatus(ctx context.Context, checkoutRequestID string) (*QueryResult, error)
}

package utils

import "errors"

var (
	ErrTransactionNotFound      = errors.New("transaction not found")
	ErrBillableNotFound         = errors.New("billable not found")
	ErrDuplicateCorrelationID   = errors.New("duplicate correlation id")
	ErrInvalidStateTransition   = errors.New("invalid state transition")
	ErrGatewayUnavailable       = errors.New("gateway unavailable")
	ErrSettlementAlreadyApplied = errors.New("settlement already applied")
	ErrInvalidPhone             = errors.New("invalid phone number")
	ErrDatabaseError            = errors.New("database error")
)

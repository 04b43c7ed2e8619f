package swap

import (
	"errors"
	"fmt"
)

// The taxonomy mirrors the failure classes callers must handle: fix the
// precondition and resubmit; nothing is retried internally.
var (
	// Validation failures, rejected before any custody movement.
	ErrInvalidAmount = errors.New("swap: amount must be positive")
	ErrInvalidAsset  = errors.New("swap: invalid asset identifier")
	ErrSelfSwap      = errors.New("swap: counterparty must differ from initiator")
	ErrZeroAddress   = errors.New("swap: zero address")

	// State and authorization failures, no side effects.
	ErrNotFound     = errors.New("swap: request not found")
	ErrNotPending   = errors.New("swap: request is not pending")
	ErrUnauthorized = errors.New("swap: unauthorized caller")

	// Store failures.
	ErrDuplicateRequest = errors.New("swap: request id already exists")

	// Native custody failures, surfaced wrapped in a CustodyError.
	ErrInsufficientFunds = errors.New("swap: insufficient balance")

	// Admin configuration failures.
	ErrZeroTreasury   = errors.New("swap: treasury must not be the zero address")
	ErrFeeRateRange   = errors.New("swap: fee rate out of range for policy")
	ErrNilTreasury    = errors.New("swap: fee treasury not configured")
	ErrNotInitialized = errors.New("swap: ledger not initialized")

	errNilState = errors.New("swap: state not configured")
)

// CustodyError wraps an asset transfer failure. The enclosing operation
// is rolled back in full, so no partial debit or credit survives it.
type CustodyError struct {
	Op    string
	Asset Asset
	Err   error
}

func (e *CustodyError) Error() string {
	return fmt.Sprintf("swap: custody %s %s: %v", e.Op, e.Asset, e.Err)
}

func (e *CustodyError) Unwrap() error { return e.Err }

package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors matched with errors.Is throughout the codebase.
var (
	ErrNotFound        = errors.New("not found")
	ErrNotOwner        = errors.New("caller is not the contract owner")
	ErrMarketClosed    = errors.New("market is no longer accepting bets")
	ErrMarketOpen      = errors.New("market has not reached its end time")
	ErrAlreadyResolved = errors.New("market is already resolved")
	ErrNotEligible     = errors.New("caller is not eligible to claim")
	ErrNoWallet        = errors.New("no wallet configured")
	ErrMalformedMarket = errors.New("malformed market data")
	ErrContextDone     = errors.New("context cancelled")
)

// ValidationError reports a local precondition failure. It is raised before
// any chain call is attempted and never reaches the contract.
type ValidationError struct {
	Field  string // input or precondition that failed, e.g. "amount", "owner"
	Reason string
	Err    error // optional sentinel for errors.Is matching
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
	}
	return "validation failed: " + e.Reason
}

func (e *ValidationError) Unwrap() error { return e.Err }

// FetchError reports that a single market or position read failed. During a
// batch listing it is logged and the item skipped; it never voids the batch.
type FetchError struct {
	MarketID uint64
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch market %d: %v", e.MarketID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SubmissionError reports that an action request to the contract failed or
// was rejected. Input state is preserved by callers so the user can retry.
type SubmissionError struct {
	Action   string
	MarketID uint64
	Err      error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit %s for market %d: %v", e.Action, e.MarketID, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

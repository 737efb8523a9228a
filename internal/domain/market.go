// Package domain holds the core types shared across wagerd: market and
// position snapshots read from the contract, the error taxonomy, and the
// interfaces the service layer depends on.
package domain

import (
	"math/big"
	"time"
)

// Outcome is the resolution state a market carries on chain.
// The zero value means the market has not been resolved yet.
type Outcome uint8

const (
	OutcomeUnresolved Outcome = 0
	OutcomeOptionA    Outcome = 1
	OutcomeOptionB    Outcome = 2
)

// String returns the lowercase wire name of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeOptionA:
		return "option_a"
	case OutcomeOptionB:
		return "option_b"
	default:
		return "unresolved"
	}
}

// Valid reports whether o is one of the three known outcome values.
func (o Outcome) Valid() bool {
	return o <= OutcomeOptionB
}

// Market is an immutable snapshot of one binary prediction market as read
// from the contract. Share totals are wei-scaled (base 10^18) and stay
// *big.Int end to end; they are never converted to floating point.
type Market struct {
	ID                 uint64
	Question           string
	OptionA            string
	OptionB            string
	EndTime            int64 // unix seconds; betting closes strictly before this
	Outcome            Outcome
	TotalOptionAShares *big.Int
	TotalOptionBShares *big.Int
	Resolved           bool
}

// EndsAt returns the market's betting deadline as a time.Time.
func (m Market) EndsAt() time.Time {
	return time.Unix(m.EndTime, 0).UTC()
}

// WinningOption returns the label of the winning option. The second return
// is false while the market is unresolved.
func (m Market) WinningOption() (string, bool) {
	switch m.Outcome {
	case OutcomeOptionA:
		return m.OptionA, true
	case OutcomeOptionB:
		return m.OptionB, true
	default:
		return "", false
	}
}

// WellFormed checks the invariants the contract guarantees for any market it
// hands out: resolved markets carry a winning outcome, unresolved markets
// carry none, and share totals are present and non-negative.
func (m Market) WellFormed() error {
	switch {
	case m.TotalOptionAShares == nil || m.TotalOptionBShares == nil:
		return ErrMalformedMarket
	case m.TotalOptionAShares.Sign() < 0 || m.TotalOptionBShares.Sign() < 0:
		return ErrMalformedMarket
	case m.Resolved && m.Outcome == OutcomeUnresolved:
		return ErrMalformedMarket
	case !m.Resolved && m.Outcome != OutcomeUnresolved:
		return ErrMalformedMarket
	}
	return nil
}

package domain

import "math/big"

// Position is one address's share holdings in one market. Amounts are
// wei-scaled *big.Int, matching Market share totals. A user may hold shares
// in both options at once.
type Position struct {
	OptionAShares *big.Int
	OptionBShares *big.Int
}

// ZeroPosition returns an empty position. It is what the position reader
// hands back when no wallet address is available.
func ZeroPosition() Position {
	return Position{
		OptionAShares: new(big.Int),
		OptionBShares: new(big.Int),
	}
}

// HasShares reports whether the position holds anything in either option.
func (p Position) HasShares() bool {
	return (p.OptionAShares != nil && p.OptionAShares.Sign() > 0) ||
		(p.OptionBShares != nil && p.OptionBShares.Sign() > 0)
}

// SharesFor returns the holdings for one option of the market.
func (p Position) SharesFor(o Outcome) *big.Int {
	switch o {
	case OutcomeOptionA:
		return p.OptionAShares
	case OutcomeOptionB:
		return p.OptionBShares
	default:
		return new(big.Int)
	}
}

package engine

import (
	"fmt"
	"math/big"

	"github.com/openpredict/wagerd/internal/domain"
)

// Percent is a pool share expressed in basis points (0..10000). Integer
// math throughout avoids the rounding drift floating point would pick up on
// wei-scaled amounts.
type Percent int64

// Bps returns the raw basis points.
func (p Percent) Bps() int64 { return int64(p) }

// String renders the percentage with one decimal place, e.g. "30.0%".
func (p Percent) String() string {
	return fmt.Sprintf("%d.%d%%", p/100, (p%100)/10)
}

// SettlementView is everything a presentation layer needs to render one
// market for one user: pool totals and split, the user's holdings, and
// whether a claim is currently valid.
type SettlementView struct {
	TotalPool      *big.Int
	OptionAPercent Percent
	OptionBPercent Percent

	UserOptionAShares *big.Int
	UserOptionBShares *big.Int
	HasBet            bool

	// ClaimEligible is true only for a resolved market in which the user
	// holds shares on the winning option.
	ClaimEligible bool

	// Payout is the amount a claim would transfer: the user's winning
	// shares plus their proportional cut of the losing pool. Nil unless
	// ClaimEligible.
	Payout *big.Int
}

// Settle derives the settlement view for one market and one position. Pure:
// neither input is mutated.
func Settle(m domain.Market, pos domain.Position) SettlementView {
	poolA := orZero(m.TotalOptionAShares)
	poolB := orZero(m.TotalOptionBShares)
	userA := orZero(pos.OptionAShares)
	userB := orZero(pos.OptionBShares)

	total := new(big.Int).Add(poolA, poolB)

	v := SettlementView{
		TotalPool:         total,
		OptionAPercent:    poolShare(poolA, total),
		UserOptionAShares: userA,
		UserOptionBShares: userB,
		HasBet:            userA.Sign() > 0 || userB.Sign() > 0,
	}
	// B is the complement so the two always sum to exactly 100%.
	v.OptionBPercent = Percent(10000) - v.OptionAPercent

	if !m.Resolved || !v.HasBet {
		return v
	}

	var winShares, winPool, losePool *big.Int
	switch m.Outcome {
	case domain.OutcomeOptionA:
		winShares, winPool, losePool = userA, poolA, poolB
	case domain.OutcomeOptionB:
		winShares, winPool, losePool = userB, poolB, poolA
	default:
		return v
	}

	// Holding shares only on the losing option never qualifies.
	if winShares.Sign() <= 0 {
		return v
	}

	v.ClaimEligible = true
	v.Payout = payout(winShares, winPool, losePool)
	return v
}

// poolShare computes side/total in basis points with an empty pool reading
// as an even 50/50 split ("no signal yet", not a skew).
func poolShare(side, total *big.Int) Percent {
	if total.Sign() == 0 {
		return Percent(5000)
	}
	bps := new(big.Int).Mul(side, big.NewInt(10000))
	bps.Quo(bps, total)
	return Percent(bps.Int64())
}

// payout mirrors the contract's proportional distribution: the winner gets
// their stake back plus stake*losingPool/winningPool, truncating division.
// A malformed market can report winning shares over an empty winning pool;
// the stake is all there is to return then.
func payout(winShares, winPool, losePool *big.Int) *big.Int {
	if winPool.Sign() == 0 {
		return new(big.Int).Set(winShares)
	}
	out := new(big.Int).Mul(winShares, losePool)
	out.Quo(out, winPool)
	return out.Add(out, winShares)
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

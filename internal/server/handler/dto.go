package handler

import (
	"math/big"
	"time"

	"github.com/openpredict/wagerd/internal/domain"
	"github.com/openpredict/wagerd/internal/engine"
	"github.com/openpredict/wagerd/internal/service"
)

// marketPayload is the wire shape of one market. Wei amounts are decimal
// strings so callers never lose precision to JSON numbers.
type marketPayload struct {
	ID                 uint64 `json:"id"`
	Question           string `json:"question"`
	OptionA            string `json:"option_a"`
	OptionB            string `json:"option_b"`
	EndTime            int64  `json:"end_time"`
	State              string `json:"state"`
	TimeLeft           string `json:"time_left"`
	Resolved           bool   `json:"resolved"`
	Outcome            string `json:"outcome"`
	WinningOption      string `json:"winning_option,omitempty"`
	TotalOptionAShares string `json:"total_option_a_shares"`
	TotalOptionBShares string `json:"total_option_b_shares"`
	OptionAPercent     string `json:"option_a_percent"`
	OptionBPercent     string `json:"option_b_percent"`
}

// positionPayload is the wire shape of a viewer's holdings in one market.
type positionPayload struct {
	OptionAShares string `json:"option_a_shares"`
	OptionBShares string `json:"option_b_shares"`
	HasBet        bool   `json:"has_bet"`
	ClaimEligible bool   `json:"claim_eligible"`
	Payout        string `json:"payout,omitempty"`
}

// receiptPayload confirms a mined transaction.
type receiptPayload struct {
	TxHash      string `json:"tx_hash"`
	BlockNumber uint64 `json:"block_number"`
	GasUsed     uint64 `json:"gas_used"`
}

// actionPayload is one audit-trail row.
type actionPayload struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	MarketID  uint64         `json:"market_id"`
	Caller    string         `json:"caller"`
	TxHash    string         `json:"tx_hash,omitempty"`
	Status    string         `json:"status"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func toMarketPayload(v service.MarketView) marketPayload {
	settled := engine.Settle(v.Market, domain.ZeroPosition())
	winner, _ := v.Market.WinningOption()
	return marketPayload{
		ID:                 v.Market.ID,
		Question:           v.Market.Question,
		OptionA:            v.Market.OptionA,
		OptionB:            v.Market.OptionB,
		EndTime:            v.Market.EndTime,
		State:              string(v.State),
		TimeLeft:           v.TimeLeft,
		Resolved:           v.Market.Resolved,
		Outcome:            v.Market.Outcome.String(),
		WinningOption:      winner,
		TotalOptionAShares: weiString(v.Market.TotalOptionAShares),
		TotalOptionBShares: weiString(v.Market.TotalOptionBShares),
		OptionAPercent:     settled.OptionAPercent.String(),
		OptionBPercent:     settled.OptionBPercent.String(),
	}
}

func toPositionPayload(pos domain.Position, hasBet, eligible bool, payout *big.Int) positionPayload {
	p := positionPayload{
		OptionAShares: weiString(pos.OptionAShares),
		OptionBShares: weiString(pos.OptionBShares),
		HasBet:        hasBet,
		ClaimEligible: eligible,
	}
	if payout != nil && payout.Sign() > 0 {
		p.Payout = payout.String()
	}
	return p
}

func toReceiptPayload(r domain.TxReceipt) receiptPayload {
	return receiptPayload{
		TxHash:      r.Hash,
		BlockNumber: r.BlockNumber,
		GasUsed:     r.GasUsed,
	}
}

func toActionPayload(rec domain.ActionRecord) actionPayload {
	return actionPayload{
		ID:        rec.ID,
		Kind:      string(rec.Kind),
		MarketID:  rec.MarketID,
		Caller:    rec.Caller,
		TxHash:    rec.TxHash,
		Status:    string(rec.Status),
		Detail:    rec.Detail,
		CreatedAt: rec.CreatedAt,
	}
}

func weiString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openpredict/wagerd/internal/domain"
)

// Reader implements domain.ContractReader against the bound contract.
type Reader struct {
	c *Client
}

// NewReader creates a Reader over the shared client.
func NewReader(c *Client) *Reader {
	return &Reader{c: c}
}

// MarketCount returns the number of markets the contract has created.
func (r *Reader) MarketCount(ctx context.Context) (uint64, error) {
	out, err := r.c.call(ctx, "marketCount")
	if err != nil {
		return 0, err
	}
	count, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("chain: marketCount: unexpected output %T", out[0])
	}
	return count.Uint64(), nil
}

// MarketInfo fetches and normalizes one market snapshot. Failures surface as
// *domain.FetchError so batch callers can skip the item and continue.
func (r *Reader) MarketInfo(ctx context.Context, id uint64) (domain.Market, error) {
	out, err := r.c.call(ctx, "getMarketInfo", new(big.Int).SetUint64(id))
	if err != nil {
		return domain.Market{}, &domain.FetchError{MarketID: id, Err: err}
	}
	if len(out) != 8 {
		return domain.Market{}, &domain.FetchError{MarketID: id, Err: domain.ErrMalformedMarket}
	}

	m := domain.Market{
		ID:                 id,
		Question:           out[0].(string),
		OptionA:            out[1].(string),
		OptionB:            out[2].(string),
		EndTime:            out[3].(*big.Int).Int64(),
		Outcome:            domain.Outcome(out[4].(uint8)),
		TotalOptionAShares: out[5].(*big.Int),
		TotalOptionBShares: out[6].(*big.Int),
		Resolved:           out[7].(bool),
	}

	if err := m.WellFormed(); err != nil {
		return domain.Market{}, &domain.FetchError{MarketID: id, Err: err}
	}
	return m, nil
}

// SharesBalance fetches the holdings of address in market id. An empty
// address yields a zero position without touching the chain; betting and
// claiming are simply unavailable downstream.
func (r *Reader) SharesBalance(ctx context.Context, id uint64, address string) (domain.Position, error) {
	if address == "" {
		return domain.ZeroPosition(), nil
	}
	if !common.IsHexAddress(address) {
		return domain.Position{}, &domain.FetchError{
			MarketID: id,
			Err:      fmt.Errorf("invalid address %q", address),
		}
	}

	out, err := r.c.call(ctx, "getSharesBalance", new(big.Int).SetUint64(id), common.HexToAddress(address))
	if err != nil {
		return domain.Position{}, &domain.FetchError{MarketID: id, Err: err}
	}
	if len(out) != 2 {
		return domain.Position{}, &domain.FetchError{MarketID: id, Err: domain.ErrMalformedMarket}
	}

	return domain.Position{
		OptionAShares: out[0].(*big.Int),
		OptionBShares: out[1].(*big.Int),
	}, nil
}

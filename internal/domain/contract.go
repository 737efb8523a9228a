package domain

import (
	"context"
	"math/big"
	"time"
)

// TxReceipt is the minimal confirmation the gateway reports back after a
// transaction has been mined.
type TxReceipt struct {
	Hash        string
	BlockNumber uint64
	GasUsed     uint64
}

// ContractReader is the read side of the deployed wagers contract.
type ContractReader interface {
	// MarketCount returns the number of markets ever created. Market ids
	// are dense: 0 <= id < MarketCount.
	MarketCount(ctx context.Context) (uint64, error)

	// MarketInfo fetches one market snapshot. Out-of-range ids and RPC
	// failures surface as *FetchError.
	MarketInfo(ctx context.Context, id uint64) (Market, error)

	// SharesBalance fetches the share holdings of address in market id.
	SharesBalance(ctx context.Context, id uint64, address string) (Position, error)
}

// ContractWriter is the write side of the deployed wagers contract. Every
// call submits a transaction and blocks until it is mined or ctx ends.
type ContractWriter interface {
	CreateMarket(ctx context.Context, question, optionA, optionB string, duration time.Duration) (TxReceipt, error)
	BuyShares(ctx context.Context, id uint64, isOptionA bool, amount *big.Int) (TxReceipt, error)
	ResolveMarket(ctx context.Context, id uint64, outcome Outcome) (TxReceipt, error)
	ClaimWinnings(ctx context.Context, id uint64) (TxReceipt, error)
}

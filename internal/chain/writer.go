package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/openpredict/wagerd/internal/domain"
)

// Writer implements domain.ContractWriter. Every method submits a signed
// transaction and blocks until it is mined or the mine timeout elapses.
type Writer struct {
	c       *Client
	priv    *ecdsa.PrivateKey
	chainID *big.Int
	logger  *slog.Logger
}

// NewWriter creates a Writer that signs with the given key for the given
// chain ID.
func NewWriter(c *Client, priv *ecdsa.PrivateKey, chainID int64) *Writer {
	return &Writer{
		c:       c,
		priv:    priv,
		chainID: big.NewInt(chainID),
		logger:  c.logger.With(slog.String("component", "chain.writer")),
	}
}

// CreateMarket submits a market creation transaction. The contract computes
// endTime = block.timestamp + duration.
func (w *Writer) CreateMarket(ctx context.Context, question, optionA, optionB string, duration time.Duration) (domain.TxReceipt, error) {
	seconds := new(big.Int).SetInt64(int64(duration / time.Second))
	return w.transact(ctx, "createMarket", 0, nil, question, optionA, optionB, seconds)
}

// BuyShares submits a bet of amount wei on one option of the market. The
// stake travels as transaction value.
func (w *Writer) BuyShares(ctx context.Context, id uint64, isOptionA bool, amount *big.Int) (domain.TxReceipt, error) {
	return w.transact(ctx, "buyShares", id, amount, new(big.Int).SetUint64(id), isOptionA)
}

// ResolveMarket submits the resolution transaction fixing the winning
// outcome.
func (w *Writer) ResolveMarket(ctx context.Context, id uint64, outcome domain.Outcome) (domain.TxReceipt, error) {
	return w.transact(ctx, "resolveMarket", id, nil, new(big.Int).SetUint64(id), uint8(outcome))
}

// ClaimWinnings submits the claim transaction. Repeat claims are rejected by
// the contract, so a double payout cannot occur even if the gateway's local
// eligibility snapshot was stale.
func (w *Writer) ClaimWinnings(ctx context.Context, id uint64) (domain.TxReceipt, error) {
	return w.transact(ctx, "claimWinnings", id, nil, new(big.Int).SetUint64(id))
}

// transact signs, submits, and waits out one contract transaction, mapping
// every failure to *domain.SubmissionError.
func (w *Writer) transact(ctx context.Context, method string, marketID uint64, value *big.Int, args ...any) (domain.TxReceipt, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(w.priv, w.chainID)
	if err != nil {
		return domain.TxReceipt{}, &domain.SubmissionError{Action: method, MarketID: marketID, Err: err}
	}
	opts.Context = ctx
	opts.Value = value

	tx, err := w.c.contract.Transact(opts, method, args...)
	if err != nil {
		return domain.TxReceipt{}, &domain.SubmissionError{Action: method, MarketID: marketID, Err: err}
	}

	w.logger.InfoContext(ctx, "transaction submitted",
		slog.String("method", method),
		slog.Uint64("market_id", marketID),
		slog.String("tx", tx.Hash().Hex()),
	)

	mineCtx, cancel := context.WithTimeout(ctx, w.c.mineTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(mineCtx, w.c.eth, tx)
	if err != nil {
		return domain.TxReceipt{}, &domain.SubmissionError{Action: method, MarketID: marketID, Err: err}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return domain.TxReceipt{}, &domain.SubmissionError{
			Action:   method,
			MarketID: marketID,
			Err:      fmt.Errorf("transaction %s reverted", tx.Hash().Hex()),
		}
	}

	return domain.TxReceipt{
		Hash:        tx.Hash().Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasUsed:     receipt.GasUsed,
	}, nil
}

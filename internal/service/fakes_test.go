package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openpredict/wagerd/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func wei(n int64) *big.Int { return big.NewInt(n) }

func addrKey(addr common.Address) string { return strings.ToLower(addr.Hex()) }

// fakeReader serves markets from a map and fails reads listed in failIDs.
type fakeReader struct {
	mu        sync.Mutex
	count     uint64
	markets   map[uint64]domain.Market
	positions      map[string]domain.Position // key "<id>:<lowercase addr>"
	failIDs        map[uint64]bool
	failBalanceIDs map[uint64]bool

	countGate chan struct{} // when set, MarketCount blocks until closed
	infoCalls int
}

func (f *fakeReader) MarketCount(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	gate := f.countGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count, nil
}

func (f *fakeReader) MarketInfo(ctx context.Context, id uint64) (domain.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.infoCalls++
	if f.failIDs[id] {
		return domain.Market{}, &domain.FetchError{MarketID: id, Err: fmt.Errorf("rpc timeout")}
	}
	m, ok := f.markets[id]
	if !ok {
		return domain.Market{}, &domain.FetchError{MarketID: id, Err: domain.ErrNotFound}
	}
	return m, nil
}

func (f *fakeReader) SharesBalance(ctx context.Context, id uint64, address string) (domain.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIDs[id] || f.failBalanceIDs[id] {
		return domain.Position{}, &domain.FetchError{MarketID: id, Err: fmt.Errorf("rpc timeout")}
	}
	pos, ok := f.positions[fmt.Sprintf("%d:%s", id, strings.ToLower(address))]
	if !ok {
		return domain.ZeroPosition(), nil
	}
	return pos, nil
}

// fakeWriter records every submission.
type fakeWriter struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeWriter) record(call string) (domain.TxReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	if f.err != nil {
		return domain.TxReceipt{}, f.err
	}
	return domain.TxReceipt{Hash: "0xabc", BlockNumber: 42, GasUsed: 21000}, nil
}

func (f *fakeWriter) CreateMarket(ctx context.Context, q, a, b string, d time.Duration) (domain.TxReceipt, error) {
	return f.record("create")
}

func (f *fakeWriter) BuyShares(ctx context.Context, id uint64, isOptionA bool, amount *big.Int) (domain.TxReceipt, error) {
	return f.record("buy")
}

func (f *fakeWriter) ResolveMarket(ctx context.Context, id uint64, outcome domain.Outcome) (domain.TxReceipt, error) {
	return f.record("resolve")
}

func (f *fakeWriter) ClaimWinnings(ctx context.Context, id uint64) (domain.TxReceipt, error) {
	return f.record("claim")
}

func (f *fakeWriter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeSigner compares its address to the configured owner the way the
// keyring does.
type fakeSigner struct {
	addr common.Address
}

func (f *fakeSigner) Address() common.Address { return f.addr }

func (f *fakeSigner) IsOwner(owner string) bool {
	if owner == "" {
		return false
	}
	return strings.EqualFold(f.addr.Hex(), owner)
}

// fakeStore captures audit records in memory.
type fakeStore struct {
	mu   sync.Mutex
	recs []domain.ActionRecord
}

func (f *fakeStore) Record(ctx context.Context, rec domain.ActionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs = append(f.recs, rec)
	return nil
}

func (f *fakeStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.ActionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ActionRecord(nil), f.recs...), nil
}

func (f *fakeStore) ListByMarket(ctx context.Context, marketID uint64, opts domain.ListOpts) ([]domain.ActionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ActionRecord
	for _, r := range f.recs {
		if r.MarketID == marketID {
			out = append(out, r)
		}
	}
	return out, nil
}

// fakeCache tracks invalidations.
type fakeCache struct {
	mu          sync.Mutex
	entries     map[uint64]domain.Market
	invalidated []uint64
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[uint64]domain.Market)}
}

func (f *fakeCache) Set(ctx context.Context, m domain.Market) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[m.ID] = m
	return nil
}

func (f *fakeCache) Get(ctx context.Context, id uint64) (domain.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.entries[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (f *fakeCache) Invalidate(ctx context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, id)
	f.invalidated = append(f.invalidated, id)
	return nil
}

func activeMarket(id uint64, endsIn time.Duration) domain.Market {
	return domain.Market{
		ID:                 id,
		Question:           fmt.Sprintf("Question %d?", id),
		OptionA:            "Yes",
		OptionB:            "No",
		EndTime:            time.Now().Add(endsIn).Unix(),
		TotalOptionAShares: wei(0),
		TotalOptionBShares: wei(0),
	}
}

func resolvedMarket(id uint64, outcome domain.Outcome, poolA, poolB int64) domain.Market {
	return domain.Market{
		ID:                 id,
		Question:           fmt.Sprintf("Question %d?", id),
		OptionA:            "Yes",
		OptionB:            "No",
		EndTime:            time.Now().Add(-time.Hour).Unix(),
		Outcome:            outcome,
		TotalOptionAShares: wei(poolA),
		TotalOptionBShares: wei(poolB),
		Resolved:           true,
	}
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openpredict/wagerd/internal/domain"
)

var (
	ownerAddr    = common.HexToAddress("0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf")
	strangerAddr = common.HexToAddress("0x2B5AD5c4795c026514f8317c7a215E218DcCD6cF")
)

func newActionService(reader *fakeReader, writer *fakeWriter, signer Signer, store *fakeStore, cache *fakeCache) *ActionService {
	// Pass nil interfaces (not typed-nil fake pointers) so the service's
	// nil checks for optional dependencies behave as in production.
	var cacheIface domain.MarketCache
	if cache != nil {
		cacheIface = cache
	}
	var storeIface domain.ActionStore
	if store != nil {
		storeIface = store
	}
	return NewActionService(reader, writer, signer, ownerAddr.Hex(),
		cacheIface, nil, storeIface, nil, nil, nil, testLogger())
}

func TestCreateMarketValidation(t *testing.T) {
	writer := &fakeWriter{}
	svc := newActionService(&fakeReader{}, writer, &fakeSigner{addr: ownerAddr}, nil, nil)

	tests := []struct {
		name  string
		in    CreateMarketInput
		field string
	}{
		{"empty question", CreateMarketInput{OptionA: "Yes", OptionB: "No", DurationDays: 7}, "question"},
		{"blank option a", CreateMarketInput{Question: "Q?", OptionA: "  ", OptionB: "No", DurationDays: 7}, "option_a"},
		{"empty option b", CreateMarketInput{Question: "Q?", OptionA: "Yes", DurationDays: 7}, "option_b"},
		{"zero duration", CreateMarketInput{Question: "Q?", OptionA: "Yes", OptionB: "No"}, "duration_days"},
		{"negative duration", CreateMarketInput{Question: "Q?", OptionA: "Yes", OptionB: "No", DurationDays: -3}, "duration_days"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateMarket(context.Background(), tt.in)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("got %v, want ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("field %q, want %q", ve.Field, tt.field)
			}
		})
	}
	if writer.callCount() != 0 {
		t.Errorf("validation failures reached the contract: %v", writer.calls)
	}
}

func TestCreateMarketNonOwnerRejected(t *testing.T) {
	writer := &fakeWriter{}
	svc := newActionService(&fakeReader{}, writer, &fakeSigner{addr: strangerAddr}, nil, nil)

	_, err := svc.CreateMarket(context.Background(), CreateMarketInput{
		Question: "Q?", OptionA: "Yes", OptionB: "No", DurationDays: 7,
	})
	if !errors.Is(err, domain.ErrNotOwner) {
		t.Fatalf("got %v, want ErrNotOwner", err)
	}
	if writer.callCount() != 0 {
		t.Errorf("non-owner create reached the contract")
	}
}

func TestCreateMarketOwnerCaseInsensitive(t *testing.T) {
	writer := &fakeWriter{}
	store := &fakeStore{}
	svc := NewActionService(&fakeReader{}, writer, &fakeSigner{addr: ownerAddr},
		"0X7E5F4552091A69125D5DFCB7B8C2659029395BDF",
		nil, nil, store, nil, nil, nil, testLogger())

	if _, err := svc.CreateMarket(context.Background(), CreateMarketInput{
		Question: "Q?", OptionA: "Yes", OptionB: "No", DurationDays: 1,
	}); err != nil {
		t.Fatalf("CreateMarket: %v", err)
	}
	if writer.callCount() != 1 {
		t.Fatalf("writer calls = %d, want 1", writer.callCount())
	}
	if len(store.recs) != 1 || store.recs[0].Status != domain.ActionConfirmed {
		t.Errorf("audit trail = %+v, want one confirmed record", store.recs)
	}
}

func TestBuySharesRejectsEndedMarket(t *testing.T) {
	reader := &fakeReader{
		count:   1,
		markets: map[uint64]domain.Market{0: activeMarket(0, -time.Hour)},
	}
	writer := &fakeWriter{}
	svc := newActionService(reader, writer, &fakeSigner{addr: strangerAddr}, nil, nil)

	// The amount is valid; the lifecycle gate alone must reject the bet.
	_, err := svc.BuyShares(context.Background(), 0, true, wei(1_000_000))
	if !errors.Is(err, domain.ErrMarketClosed) {
		t.Fatalf("got %v, want ErrMarketClosed", err)
	}
	if writer.callCount() != 0 {
		t.Errorf("bet on ended market reached the contract")
	}
}

func TestBuySharesAmountValidation(t *testing.T) {
	reader := &fakeReader{
		count:   1,
		markets: map[uint64]domain.Market{0: activeMarket(0, time.Hour)},
	}
	writer := &fakeWriter{}
	svc := newActionService(reader, writer, &fakeSigner{addr: strangerAddr}, nil, nil)

	for _, amount := range []int64{0, -5} {
		_, err := svc.BuyShares(context.Background(), 0, true, wei(amount))
		if !domain.IsValidation(err) {
			t.Errorf("amount %d: got %v, want ValidationError", amount, err)
		}
	}
	if _, err := svc.BuyShares(context.Background(), 0, false, nil); !domain.IsValidation(err) {
		t.Errorf("nil amount: got %v, want ValidationError", err)
	}
	if writer.callCount() != 0 {
		t.Errorf("invalid amounts reached the contract")
	}
}

func TestBuySharesConfirmedInvalidatesCache(t *testing.T) {
	reader := &fakeReader{
		count:   1,
		markets: map[uint64]domain.Market{0: activeMarket(0, time.Hour)},
	}
	writer := &fakeWriter{}
	store := &fakeStore{}
	cache := newFakeCache()
	svc := newActionService(reader, writer, &fakeSigner{addr: strangerAddr}, store, cache)

	if _, err := svc.BuyShares(context.Background(), 0, true, wei(1_000)); err != nil {
		t.Fatalf("BuyShares: %v", err)
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != 0 {
		t.Errorf("cache invalidations = %v, want [0]", cache.invalidated)
	}
	if len(store.recs) != 1 || store.recs[0].Kind != domain.ActionBuyShares {
		t.Fatalf("audit trail = %+v", store.recs)
	}
	if store.recs[0].TxHash == "" {
		t.Errorf("confirmed record missing tx hash")
	}
}

func TestResolveMarketNonOwnerRejectedLocally(t *testing.T) {
	reader := &fakeReader{
		count:   1,
		markets: map[uint64]domain.Market{0: activeMarket(0, -time.Hour)},
	}
	writer := &fakeWriter{}
	svc := newActionService(reader, writer, &fakeSigner{addr: strangerAddr}, nil, nil)

	_, err := svc.ResolveMarket(context.Background(), 0, domain.OutcomeOptionA)
	if !errors.Is(err, domain.ErrNotOwner) {
		t.Fatalf("got %v, want ErrNotOwner", err)
	}
	if writer.callCount() != 0 {
		t.Errorf("non-owner resolve reached the contract")
	}
}

func TestResolveMarketNoWallet(t *testing.T) {
	writer := &fakeWriter{}
	svc := newActionService(&fakeReader{}, writer, nil, nil, nil)

	_, err := svc.ResolveMarket(context.Background(), 0, domain.OutcomeOptionA)
	if !errors.Is(err, domain.ErrNoWallet) {
		t.Fatalf("got %v, want ErrNoWallet", err)
	}
}

func TestResolveMarketLifecycleGates(t *testing.T) {
	reader := &fakeReader{
		count: 2,
		markets: map[uint64]domain.Market{
			0: activeMarket(0, time.Hour),
			1: resolvedMarket(1, domain.OutcomeOptionA, 10, 10),
		},
	}
	writer := &fakeWriter{}
	svc := newActionService(reader, writer, &fakeSigner{addr: ownerAddr}, nil, nil)

	if _, err := svc.ResolveMarket(context.Background(), 0, domain.OutcomeOptionA); !errors.Is(err, domain.ErrMarketOpen) {
		t.Errorf("active market: got %v, want ErrMarketOpen", err)
	}
	if _, err := svc.ResolveMarket(context.Background(), 1, domain.OutcomeOptionB); !errors.Is(err, domain.ErrAlreadyResolved) {
		t.Errorf("resolved market: got %v, want ErrAlreadyResolved", err)
	}
	if _, err := svc.ResolveMarket(context.Background(), 0, domain.OutcomeUnresolved); !domain.IsValidation(err) {
		t.Errorf("unresolved outcome: got %v, want ValidationError", err)
	}
	if writer.callCount() != 0 {
		t.Errorf("gated resolves reached the contract: %v", writer.calls)
	}
}

func TestResolveMarketSuccess(t *testing.T) {
	reader := &fakeReader{
		count:   1,
		markets: map[uint64]domain.Market{0: activeMarket(0, -time.Hour)},
	}
	writer := &fakeWriter{}
	store := &fakeStore{}
	svc := newActionService(reader, writer, &fakeSigner{addr: ownerAddr}, store, nil)

	if _, err := svc.ResolveMarket(context.Background(), 0, domain.OutcomeOptionA); err != nil {
		t.Fatalf("ResolveMarket: %v", err)
	}
	if writer.callCount() != 1 {
		t.Fatalf("writer calls = %d, want 1", writer.callCount())
	}
	if len(store.recs) != 1 || store.recs[0].Detail["outcome"] != "option_a" {
		t.Errorf("audit trail = %+v", store.recs)
	}
}

func TestClaimWinningsEligibilityGate(t *testing.T) {
	addr := strangerAddr
	reader := &fakeReader{
		count: 3,
		markets: map[uint64]domain.Market{
			0: activeMarket(0, time.Hour),
			1: resolvedMarket(1, domain.OutcomeOptionA, 100, 200),
			2: resolvedMarket(2, domain.OutcomeOptionA, 100, 200),
		},
		positions: map[string]domain.Position{
			// Losing side only in market 1.
			"1:" + addrKey(addr): {OptionAShares: wei(0), OptionBShares: wei(50)},
			// Winning side in market 2.
			"2:" + addrKey(addr): {OptionAShares: wei(40), OptionBShares: wei(0)},
		},
	}
	writer := &fakeWriter{}
	svc := newActionService(reader, writer, &fakeSigner{addr: addr}, nil, nil)

	// Unresolved market.
	if _, err := svc.ClaimWinnings(context.Background(), 0); !errors.Is(err, domain.ErrNotEligible) {
		t.Errorf("unresolved: got %v, want ErrNotEligible", err)
	}
	// Losing-side-only holdings.
	if _, err := svc.ClaimWinnings(context.Background(), 1); !errors.Is(err, domain.ErrNotEligible) {
		t.Errorf("losing side: got %v, want ErrNotEligible", err)
	}
	if writer.callCount() != 0 {
		t.Fatalf("ineligible claims reached the contract")
	}

	// Winning-side holdings go through.
	if _, err := svc.ClaimWinnings(context.Background(), 2); err != nil {
		t.Fatalf("eligible claim: %v", err)
	}
	if writer.callCount() != 1 {
		t.Errorf("writer calls = %d, want 1", writer.callCount())
	}
}

func TestFailedSubmissionAudited(t *testing.T) {
	reader := &fakeReader{
		count:   1,
		markets: map[uint64]domain.Market{0: activeMarket(0, time.Hour)},
	}
	writer := &fakeWriter{err: &domain.SubmissionError{Action: "buy_shares", MarketID: 0, Err: errors.New("reverted")}}
	store := &fakeStore{}
	cache := newFakeCache()
	svc := newActionService(reader, writer, &fakeSigner{addr: strangerAddr}, store, cache)

	_, err := svc.BuyShares(context.Background(), 0, true, wei(1_000))
	var se *domain.SubmissionError
	if !errors.As(err, &se) {
		t.Fatalf("got %v, want SubmissionError", err)
	}
	if len(store.recs) != 1 || store.recs[0].Status != domain.ActionFailed {
		t.Fatalf("audit trail = %+v, want one failed record", store.recs)
	}
	if len(cache.invalidated) != 0 {
		t.Errorf("failed submission invalidated the cache")
	}
}

func TestActionsByMarketFiltersAuditTrail(t *testing.T) {
	store := &fakeStore{recs: []domain.ActionRecord{
		{ID: "a", Kind: domain.ActionCreateMarket, MarketID: 1, Status: domain.ActionConfirmed},
		{ID: "b", Kind: domain.ActionBuyShares, MarketID: 2, Status: domain.ActionConfirmed},
		{ID: "c", Kind: domain.ActionResolveMarket, MarketID: 2, Status: domain.ActionConfirmed},
	}}
	svc := newActionService(&fakeReader{}, &fakeWriter{}, nil, store, nil)

	recs, err := svc.ActionsByMarket(context.Background(), 2, domain.ListOpts{Limit: 50})
	if err != nil {
		t.Fatalf("ActionsByMarket: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	for _, rec := range recs {
		if rec.MarketID != 2 {
			t.Errorf("record %s has market %d, want 2", rec.ID, rec.MarketID)
		}
	}

	all, err := svc.Actions(context.Background(), domain.ListOpts{Limit: 50})
	if err != nil {
		t.Fatalf("Actions: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("unfiltered list has %d records, want 3", len(all))
	}
}

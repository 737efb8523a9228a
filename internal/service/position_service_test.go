package service

import (
	"context"
	"testing"
	"time"

	"github.com/openpredict/wagerd/internal/domain"
)

func TestPositionEmptyAddressIsZero(t *testing.T) {
	svc := NewPositionService(&fakeReader{}, nil, testLogger())

	pos, err := svc.Position(context.Background(), 0, "")
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	if pos.HasShares() {
		t.Errorf("empty address returned holdings: %+v", pos)
	}
}

func TestPositionRejectsBadAddress(t *testing.T) {
	svc := NewPositionService(&fakeReader{}, nil, testLogger())

	if _, err := svc.Position(context.Background(), 0, "not-an-address"); !domain.IsValidation(err) {
		t.Errorf("got %v, want ValidationError", err)
	}
}

func TestMyBetsJoinsAndSkips(t *testing.T) {
	addr := strangerAddr
	reader := &fakeReader{
		count: 4,
		markets: map[uint64]domain.Market{
			0: activeMarket(0, time.Hour),
			1: resolvedMarket(1, domain.OutcomeOptionA, 100, 200),
			2: activeMarket(2, 2*time.Hour),
			3: activeMarket(3, 3*time.Hour),
		},
		positions: map[string]domain.Position{
			"0:" + addrKey(addr): {OptionAShares: wei(10), OptionBShares: wei(0)},
			"1:" + addrKey(addr): {OptionAShares: wei(25), OptionBShares: wei(5)},
			// Market 2: no holdings. Market 3: balance read fails.
			"3:" + addrKey(addr): {OptionAShares: wei(7), OptionBShares: wei(0)},
		},
		failBalanceIDs: map[uint64]bool{3: true},
	}
	snapshots := NewSnapshotService(reader, nil, testLogger())
	svc := NewPositionService(reader, snapshots, testLogger())

	bets, err := svc.MyBets(context.Background(), addr.Hex())
	if err != nil {
		t.Fatalf("MyBets: %v", err)
	}
	if len(bets) != 2 {
		t.Fatalf("got %d bets, want 2 (markets 1 and 0)", len(bets))
	}
	// Newest first.
	if bets[0].Market.Market.ID != 1 || bets[1].Market.Market.ID != 0 {
		t.Errorf("order = [%d %d], want [1 0]", bets[0].Market.Market.ID, bets[1].Market.Market.ID)
	}
	// The resolved market's view carries the settlement join.
	if !bets[0].Settlement.ClaimEligible {
		t.Errorf("winning holder in resolved market not claim-eligible")
	}
	if bets[0].Settlement.Payout == nil || bets[0].Settlement.Payout.Int64() != 75 {
		t.Errorf("payout = %v, want 75 (25 + 25*200/100)", bets[0].Settlement.Payout)
	}
}

func TestMyBetsRequiresAddress(t *testing.T) {
	svc := NewPositionService(&fakeReader{}, NewSnapshotService(&fakeReader{}, nil, testLogger()), testLogger())

	if _, err := svc.MyBets(context.Background(), ""); !domain.IsValidation(err) {
		t.Errorf("got %v, want ValidationError", err)
	}
}

func TestDetailWithoutViewer(t *testing.T) {
	reader := &fakeReader{
		count:   1,
		markets: map[uint64]domain.Market{0: resolvedMarket(0, domain.OutcomeOptionB, 300, 100)},
	}
	snapshots := NewSnapshotService(reader, nil, testLogger())
	svc := NewPositionService(reader, snapshots, testLogger())

	d, err := svc.Detail(context.Background(), 0, "")
	if err != nil {
		t.Fatalf("Detail: %v", err)
	}
	if d.Settlement.ClaimEligible {
		t.Errorf("anonymous viewer marked claim-eligible")
	}
	// Pool split is still computed: 300/400 = 75.0% on option A.
	if got := d.Settlement.OptionAPercent.Bps(); got != 7500 {
		t.Errorf("option A share = %d bps, want 7500", got)
	}
}

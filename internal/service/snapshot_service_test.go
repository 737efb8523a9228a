package service

import (
	"context"
	"testing"
	"time"

	"github.com/openpredict/wagerd/internal/domain"
	"github.com/openpredict/wagerd/internal/engine"
)

func TestRefreshSkipsFailedMarkets(t *testing.T) {
	reader := &fakeReader{
		count: 5,
		markets: map[uint64]domain.Market{
			0: activeMarket(0, time.Hour),
			1: activeMarket(1, 2*time.Hour),
			2: activeMarket(2, 3*time.Hour),
			3: resolvedMarket(3, domain.OutcomeOptionA, 100, 200),
			4: activeMarket(4, -time.Hour),
		},
		failIDs: map[uint64]bool{2: true},
	}
	svc := NewSnapshotService(reader, nil, testLogger())

	listing, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := len(listing.Markets); got != 4 {
		t.Fatalf("got %d markets, want 4", got)
	}
	if listing.Failed != 1 {
		t.Errorf("Failed = %d, want 1", listing.Failed)
	}
	for _, v := range listing.Markets {
		if v.Market.ID == 2 {
			t.Errorf("failing market 2 present in listing")
		}
	}
}

func TestRefreshClassifiesAgainstSingleInstant(t *testing.T) {
	reader := &fakeReader{
		count: 3,
		markets: map[uint64]domain.Market{
			0: activeMarket(0, time.Hour),
			1: activeMarket(1, -time.Minute),
			2: resolvedMarket(2, domain.OutcomeOptionB, 10, 20),
		},
	}
	svc := NewSnapshotService(reader, nil, testLogger())

	listing, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	want := map[uint64]engine.State{
		0: engine.StateActive,
		1: engine.StatePendingResolution,
		2: engine.StateResolved,
	}
	for _, v := range listing.Markets {
		if v.State != want[v.Market.ID] {
			t.Errorf("market %d: state %q, want %q", v.Market.ID, v.State, want[v.Market.ID])
		}
		// Every view must be derived against the shared pass instant.
		if got := engine.Classify(v.Market, listing.FetchedAt); got != v.State {
			t.Errorf("market %d: state %q inconsistent with FetchedAt classification %q", v.Market.ID, v.State, got)
		}
	}
}

func TestStaleRefreshDiscarded(t *testing.T) {
	gate := make(chan struct{})
	reader := &fakeReader{
		count:     1,
		markets:   map[uint64]domain.Market{0: activeMarket(0, time.Hour)},
		countGate: gate,
	}
	svc := NewSnapshotService(reader, nil, testLogger())

	// The slow pass starts first and takes the lower generation.
	slowDone := make(chan Listing, 1)
	go func() {
		l, err := svc.Refresh(context.Background())
		if err != nil {
			t.Errorf("slow Refresh: %v", err)
		}
		slowDone <- l
	}()

	// Give the slow pass time to claim its generation, then let a fast pass
	// run to completion.
	time.Sleep(20 * time.Millisecond)
	reader.mu.Lock()
	reader.countGate = nil
	reader.mu.Unlock()

	if _, err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("fast Refresh: %v", err)
	}

	// The slow pass finishes last and sees different data; its result must
	// not replace the newer listing.
	reader.mu.Lock()
	reader.markets[0] = resolvedMarket(0, domain.OutcomeOptionA, 5, 5)
	reader.mu.Unlock()
	close(gate)
	<-slowDone

	latest, ok := svc.Latest()
	if !ok {
		t.Fatal("no latest listing")
	}
	if len(latest.Markets) != 1 || latest.Markets[0].State != engine.StateActive {
		t.Errorf("latest listing reflects the stale pass: %+v", latest.Markets)
	}
}

func TestListMarketsStateFilter(t *testing.T) {
	reader := &fakeReader{
		count: 4,
		markets: map[uint64]domain.Market{
			0: activeMarket(0, time.Hour),
			1: activeMarket(1, -time.Minute),
			2: activeMarket(2, -2*time.Hour),
			3: resolvedMarket(3, domain.OutcomeOptionA, 1, 1),
		},
	}
	svc := NewSnapshotService(reader, nil, testLogger())

	tests := []struct {
		state engine.State
		want  int
	}{
		{"", 4},
		{engine.StateActive, 1},
		{engine.StatePendingResolution, 2},
		{engine.StateResolved, 1},
	}
	for _, tt := range tests {
		got, err := svc.ListMarkets(context.Background(), tt.state)
		if err != nil {
			t.Fatalf("ListMarkets(%q): %v", tt.state, err)
		}
		if len(got) != tt.want {
			t.Errorf("ListMarkets(%q) = %d markets, want %d", tt.state, len(got), tt.want)
		}
	}
}

func TestGetMarketUsesCache(t *testing.T) {
	reader := &fakeReader{
		count:   1,
		markets: map[uint64]domain.Market{0: activeMarket(0, time.Hour)},
	}
	cache := newFakeCache()
	svc := NewSnapshotService(reader, cache, testLogger())

	if _, err := svc.GetMarket(context.Background(), 0); err != nil {
		t.Fatalf("GetMarket: %v", err)
	}
	first := reader.infoCalls

	// Second read must be served from the back-filled cache.
	if _, err := svc.GetMarket(context.Background(), 0); err != nil {
		t.Fatalf("GetMarket (cached): %v", err)
	}
	if reader.infoCalls != first {
		t.Errorf("cached read hit the contract: %d -> %d calls", first, reader.infoCalls)
	}
}

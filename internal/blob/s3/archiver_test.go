package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/openpredict/wagerd/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory object store implementing both blob interfaces.
type memStore struct {
	objects map[string][]byte
	puts    int
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (s *memStore) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.objects[path] = b
	s.puts++
	return nil
}

func (s *memStore) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	b, ok := s.objects[path]
	if !ok {
		return nil, fmt.Errorf("memstore: get %s: %w", path, domain.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *memStore) Exists(ctx context.Context, path string) (bool, error) {
	_, ok := s.objects[path]
	return ok, nil
}

func resolvedMarket() domain.Market {
	return domain.Market{
		ID:                 7,
		Question:           "Will it rain tomorrow?",
		OptionA:            "Yes",
		OptionB:            "No",
		EndTime:            1700000000,
		Outcome:            domain.OutcomeOptionA,
		TotalOptionAShares: big.NewInt(300),
		TotalOptionBShares: big.NewInt(700),
		Resolved:           true,
	}
}

func TestArchiveRejectsUnresolvedMarket(t *testing.T) {
	store := newMemStore()
	a := NewSettlementArchiver(store, store, "settlements", testLogger())

	m := resolvedMarket()
	m.Resolved = false
	m.Outcome = domain.OutcomeUnresolved

	if err := a.Archive(context.Background(), m, "0xabc"); err == nil {
		t.Fatal("expected error for unresolved market")
	}
	if store.puts != 0 {
		t.Errorf("puts = %d, want 0", store.puts)
	}
}

func TestArchiveWritesSettlementRecord(t *testing.T) {
	store := newMemStore()
	a := NewSettlementArchiver(store, store, "settlements", testLogger())

	if err := a.Archive(context.Background(), resolvedMarket(), "0xabc"); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	raw, ok := store.objects["settlements/market-7.json"]
	if !ok {
		t.Fatalf("record not stored under expected key; have %v", keysOf(store))
	}

	var rec map[string]any
	if err := json.Unmarshal(raw, &rec); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	if rec["winning_option"] != "Yes" {
		t.Errorf("winning_option = %v, want Yes", rec["winning_option"])
	}
	if rec["option_a_percent"] != "30.0%" {
		t.Errorf("option_a_percent = %v, want 30.0%%", rec["option_a_percent"])
	}
	if rec["total_pool"] != "1000" {
		t.Errorf("total_pool = %v, want 1000", rec["total_pool"])
	}
	if rec["resolution_tx"] != "0xabc" {
		t.Errorf("resolution_tx = %v, want 0xabc", rec["resolution_tx"])
	}
}

func TestArchiveSkipsExistingRecord(t *testing.T) {
	store := newMemStore()
	a := NewSettlementArchiver(store, store, "settlements", testLogger())

	m := resolvedMarket()
	if err := a.Archive(context.Background(), m, "0xabc"); err != nil {
		t.Fatalf("first Archive: %v", err)
	}
	if err := a.Archive(context.Background(), m, "0xdef"); err != nil {
		t.Fatalf("second Archive: %v", err)
	}

	if store.puts != 1 {
		t.Errorf("puts = %d, want 1 (re-archive must be skipped)", store.puts)
	}
	var rec map[string]any
	if err := json.Unmarshal(store.objects["settlements/market-7.json"], &rec); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	if rec["resolution_tx"] != "0xabc" {
		t.Errorf("resolution_tx = %v, want original 0xabc", rec["resolution_tx"])
	}
}

func TestOpenRoundTripsArchivedRecord(t *testing.T) {
	store := newMemStore()
	a := NewSettlementArchiver(store, store, "", testLogger())

	if err := a.Archive(context.Background(), resolvedMarket(), "0xabc"); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	rc, err := a.Open(context.Background(), 7)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	var rec map[string]any
	if err := json.NewDecoder(rc).Decode(&rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if rec["market_id"] != float64(7) {
		t.Errorf("market_id = %v, want 7", rec["market_id"])
	}
}

func TestOpenMissingRecord(t *testing.T) {
	store := newMemStore()
	a := NewSettlementArchiver(store, store, "settlements", testLogger())

	_, err := a.Open(context.Background(), 99)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func keysOf(s *memStore) []string {
	out := make([]string, 0, len(s.objects))
	for k := range s.objects {
		out = append(out, k)
	}
	return out
}

// Package service implements the application's use cases on top of the
// contract boundary: listing market snapshots, reading positions, and
// dispatching the four mutating actions.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openpredict/wagerd/internal/domain"
	"github.com/openpredict/wagerd/internal/engine"
)

// defaultFetchConcurrency bounds parallel per-market reads in one pass.
const defaultFetchConcurrency = 8

// MarketView pairs a market snapshot with the state derived at fetch time.
// All views in one Listing share the same reference instant.
type MarketView struct {
	Market   domain.Market
	State    engine.State
	TimeLeft string
}

// Listing is one complete refresh pass over every market on the contract.
type Listing struct {
	Markets   []MarketView
	FetchedAt time.Time
	// Failed counts markets skipped in this pass because their read failed.
	Failed int

	generation uint64
}

// SnapshotService reads market snapshots from the contract and maintains the
// latest in-memory listing. Refreshes may overlap; completions apply
// last-write-wins, so a slow pass never overwrites a newer one.
type SnapshotService struct {
	reader      domain.ContractReader
	cache       domain.MarketCache
	logger      *slog.Logger
	concurrency int

	mu      sync.Mutex
	nextGen uint64
	latest  *Listing
}

// NewSnapshotService creates a SnapshotService. cache may be nil.
func NewSnapshotService(reader domain.ContractReader, cache domain.MarketCache, logger *slog.Logger) *SnapshotService {
	return &SnapshotService{
		reader:      reader,
		cache:       cache,
		logger:      logger.With(slog.String("component", "snapshot_service")),
		concurrency: defaultFetchConcurrency,
	}
}

// SetConcurrency overrides the per-pass fetch parallelism.
func (s *SnapshotService) SetConcurrency(n int) {
	if n > 0 {
		s.concurrency = n
	}
}

// Refresh performs one full listing pass and installs the result as the
// latest listing unless a newer pass has already completed. It returns the
// listing it built regardless.
func (s *SnapshotService) Refresh(ctx context.Context) (Listing, error) {
	s.mu.Lock()
	s.nextGen++
	gen := s.nextGen
	s.mu.Unlock()

	listing, err := s.fetchAll(ctx)
	if err != nil {
		return Listing{}, err
	}
	listing.generation = gen

	s.mu.Lock()
	if s.latest == nil || listing.generation > s.latest.generation {
		s.latest = &listing
	} else {
		s.logger.DebugContext(ctx, "stale refresh discarded",
			slog.Uint64("generation", listing.generation),
			slog.Uint64("latest", s.latest.generation),
		)
	}
	s.mu.Unlock()

	return listing, nil
}

// Latest returns the most recent installed listing. The second return is
// false before the first successful refresh.
func (s *SnapshotService) Latest() (Listing, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return Listing{}, false
	}
	return *s.latest, true
}

// ListMarkets returns the latest listing filtered to the given state. An
// empty state returns everything. The first call triggers a refresh if no
// listing exists yet.
func (s *SnapshotService) ListMarkets(ctx context.Context, state engine.State) ([]MarketView, error) {
	listing, ok := s.Latest()
	if !ok {
		var err error
		listing, err = s.Refresh(ctx)
		if err != nil {
			return nil, err
		}
	}

	if state == "" {
		return listing.Markets, nil
	}
	out := make([]MarketView, 0, len(listing.Markets))
	for _, v := range listing.Markets {
		if v.State == state {
			out = append(out, v)
		}
	}
	return out, nil
}

// GetMarket fetches one market, serving from the advisory cache when the
// entry is fresh. State is derived against the current clock.
func (s *SnapshotService) GetMarket(ctx context.Context, id uint64) (MarketView, error) {
	now := time.Now()

	if s.cache != nil {
		if m, err := s.cache.Get(ctx, id); err == nil {
			return s.view(m, now), nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "cache get failed",
				slog.Uint64("market_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	m, err := s.reader.MarketInfo(ctx, id)
	if err != nil {
		return MarketView{}, fmt.Errorf("snapshot_service: get market %d: %w", id, err)
	}

	if s.cache != nil {
		if cacheErr := s.cache.Set(ctx, m); cacheErr != nil {
			s.logger.WarnContext(ctx, "cache set failed",
				slog.Uint64("market_id", id),
				slog.String("error", cacheErr.Error()),
			)
		}
	}

	return s.view(m, now), nil
}

// fetchAll reads marketCount and every market snapshot under a bounded
// errgroup. One failing read is logged and skipped; it never voids the pass.
// The reference instant is sampled once and shared by every view, so a pass
// that straddles an end time still classifies all markets consistently.
func (s *SnapshotService) fetchAll(ctx context.Context) (Listing, error) {
	count, err := s.reader.MarketCount(ctx)
	if err != nil {
		return Listing{}, fmt.Errorf("snapshot_service: market count: %w", err)
	}

	now := time.Now()
	results := make([]*domain.Market, count)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for id := uint64(0); id < count; id++ {
		g.Go(func() error {
			m, err := s.reader.MarketInfo(gctx, id)
			if err != nil {
				// Fetch failures are isolated per market. Only a dead
				// context aborts the whole pass.
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.WarnContext(gctx, "market fetch failed, skipping",
					slog.Uint64("market_id", id),
					slog.String("error", err.Error()),
				)
				return nil
			}
			results[id] = &m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Listing{}, fmt.Errorf("snapshot_service: listing pass: %w", err)
	}

	listing := Listing{FetchedAt: now}
	for _, m := range results {
		if m == nil {
			listing.Failed++
			continue
		}
		listing.Markets = append(listing.Markets, s.view(*m, now))
		if s.cache != nil {
			if cacheErr := s.cache.Set(ctx, *m); cacheErr != nil {
				s.logger.DebugContext(ctx, "cache set failed",
					slog.Uint64("market_id", m.ID),
					slog.String("error", cacheErr.Error()),
				)
			}
		}
	}
	// Newest markets first, matching contract id order.
	sort.Slice(listing.Markets, func(i, j int) bool {
		return listing.Markets[i].Market.ID > listing.Markets[j].Market.ID
	})

	s.logger.InfoContext(ctx, "listing refreshed",
		slog.Int("markets", len(listing.Markets)),
		slog.Int("failed", listing.Failed),
	)
	return listing, nil
}

func (s *SnapshotService) view(m domain.Market, now time.Time) MarketView {
	return MarketView{
		Market:   m,
		State:    engine.Classify(m, now),
		TimeLeft: engine.TimeLeft(m, now),
	}
}

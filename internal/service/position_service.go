package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openpredict/wagerd/internal/domain"
	"github.com/openpredict/wagerd/internal/engine"
)

// BetView is one market the address holds shares in, joined with the
// settlement math for that holding.
type BetView struct {
	Market     MarketView
	Position   domain.Position
	Settlement engine.SettlementView
}

// MarketDetail is a single market joined with the settlement view for an
// optional viewer address.
type MarketDetail struct {
	Market     MarketView
	Position   domain.Position
	Settlement engine.SettlementView
}

// PositionService reads share balances and joins them with market snapshots.
type PositionService struct {
	reader      domain.ContractReader
	snapshots   *SnapshotService
	logger      *slog.Logger
	concurrency int
}

// NewPositionService creates a PositionService.
func NewPositionService(reader domain.ContractReader, snapshots *SnapshotService, logger *slog.Logger) *PositionService {
	return &PositionService{
		reader:      reader,
		snapshots:   snapshots,
		logger:      logger.With(slog.String("component", "position_service")),
		concurrency: defaultFetchConcurrency,
	}
}

// Position returns the holdings of address in market id. An empty address is
// the not-connected case and yields a zero position, not an error.
func (s *PositionService) Position(ctx context.Context, id uint64, address string) (domain.Position, error) {
	if address == "" {
		return domain.ZeroPosition(), nil
	}
	if !common.IsHexAddress(address) {
		return domain.Position{}, &domain.ValidationError{Field: "address", Reason: "not a hex address"}
	}
	pos, err := s.reader.SharesBalance(ctx, id, address)
	if err != nil {
		return domain.Position{}, fmt.Errorf("position_service: shares balance: %w", err)
	}
	return pos, nil
}

// Detail joins one market snapshot with the settlement view for address.
// Settlement is computed for a zero position when address is empty.
func (s *PositionService) Detail(ctx context.Context, id uint64, address string) (MarketDetail, error) {
	mv, err := s.snapshots.GetMarket(ctx, id)
	if err != nil {
		return MarketDetail{}, err
	}
	pos, err := s.Position(ctx, id, address)
	if err != nil {
		return MarketDetail{}, err
	}
	return MarketDetail{
		Market:     mv,
		Position:   pos,
		Settlement: engine.Settle(mv.Market, pos),
	}, nil
}

// MyBets returns every market where address holds shares, newest first.
// Markets whose balance read fails are skipped, same policy as the listing
// pass. Markets with no holdings are omitted entirely.
func (s *PositionService) MyBets(ctx context.Context, address string) ([]BetView, error) {
	if address == "" {
		return nil, &domain.ValidationError{Field: "address", Reason: "address is required"}
	}
	if !common.IsHexAddress(address) {
		return nil, &domain.ValidationError{Field: "address", Reason: "not a hex address"}
	}

	markets, err := s.snapshots.ListMarkets(ctx, "")
	if err != nil {
		return nil, err
	}

	var (
		mu   sync.Mutex
		bets []BetView
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, mv := range markets {
		g.Go(func() error {
			pos, err := s.reader.SharesBalance(gctx, mv.Market.ID, address)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.WarnContext(gctx, "balance fetch failed, skipping",
					slog.Uint64("market_id", mv.Market.ID),
					slog.String("error", err.Error()),
				)
				return nil
			}
			if !pos.HasShares() {
				return nil
			}
			mu.Lock()
			bets = append(bets, BetView{
				Market:     mv,
				Position:   pos,
				Settlement: engine.Settle(mv.Market, pos),
			})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("position_service: my bets: %w", err)
	}

	sort.Slice(bets, func(i, j int) bool {
		return bets[i].Market.Market.ID > bets[j].Market.Market.ID
	})
	return bets, nil
}

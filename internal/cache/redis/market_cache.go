package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openpredict/wagerd/internal/domain"
)

// marketTTL bounds how stale an advisory cache entry can get before the
// contract is consulted again regardless of invalidation.
const marketTTL = 30 * time.Second

// MarketCache implements domain.MarketCache using JSON-serialized snapshots
// keyed by market id. The cache is advisory: the contract stays the source
// of truth, and every confirmed action invalidates the touched market.
type MarketCache struct {
	rdb *redis.Client
}

// NewMarketCache creates a MarketCache backed by the given Client.
func NewMarketCache(c *Client) *MarketCache {
	return &MarketCache{rdb: c.Underlying()}
}

func marketKey(id uint64) string { return "market:" + strconv.FormatUint(id, 10) }

// cachedMarket is the JSON wire form of a market snapshot. Share totals are
// decimal strings so wei amounts survive the round trip without precision
// loss.
type cachedMarket struct {
	ID       uint64 `json:"id"`
	Question string `json:"question"`
	OptionA  string `json:"option_a"`
	OptionB  string `json:"option_b"`
	EndTime  int64  `json:"end_time"`
	Outcome  uint8  `json:"outcome"`
	SharesA  string `json:"total_option_a_shares"`
	SharesB  string `json:"total_option_b_shares"`
	Resolved bool   `json:"resolved"`
}

// Set stores a market snapshot with the advisory TTL.
func (mc *MarketCache) Set(ctx context.Context, m domain.Market) error {
	data, err := json.Marshal(cachedMarket{
		ID:       m.ID,
		Question: m.Question,
		OptionA:  m.OptionA,
		OptionB:  m.OptionB,
		EndTime:  m.EndTime,
		Outcome:  uint8(m.Outcome),
		SharesA:  m.TotalOptionAShares.String(),
		SharesB:  m.TotalOptionBShares.String(),
		Resolved: m.Resolved,
	})
	if err != nil {
		return fmt.Errorf("redis: marshal market %d: %w", m.ID, err)
	}

	if err := mc.rdb.Set(ctx, marketKey(m.ID), data, marketTTL).Err(); err != nil {
		return fmt.Errorf("redis: set market %d: %w", m.ID, err)
	}
	return nil
}

// Get retrieves a market snapshot by id. It returns domain.ErrNotFound when
// the entry does not exist or has expired.
func (mc *MarketCache) Get(ctx context.Context, id uint64) (domain.Market, error) {
	data, err := mc.rdb.Get(ctx, marketKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("redis: get market %d: %w", id, err)
	}

	var c cachedMarket
	if err := json.Unmarshal(data, &c); err != nil {
		return domain.Market{}, fmt.Errorf("redis: unmarshal market %d: %w", id, err)
	}

	sharesA, ok := new(big.Int).SetString(c.SharesA, 10)
	if !ok {
		return domain.Market{}, fmt.Errorf("redis: market %d: bad share total %q", id, c.SharesA)
	}
	sharesB, ok := new(big.Int).SetString(c.SharesB, 10)
	if !ok {
		return domain.Market{}, fmt.Errorf("redis: market %d: bad share total %q", id, c.SharesB)
	}

	return domain.Market{
		ID:                 c.ID,
		Question:           c.Question,
		OptionA:            c.OptionA,
		OptionB:            c.OptionB,
		EndTime:            c.EndTime,
		Outcome:            domain.Outcome(c.Outcome),
		TotalOptionAShares: sharesA,
		TotalOptionBShares: sharesB,
		Resolved:           c.Resolved,
	}, nil
}

// Invalidate removes a market snapshot so the next read hits the contract.
func (mc *MarketCache) Invalidate(ctx context.Context, id uint64) error {
	if err := mc.rdb.Del(ctx, marketKey(id)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate market %d: %w", id, err)
	}
	return nil
}

package domain

import (
	"context"
	"time"
)

// MarketCache is an advisory read-through cache for market snapshots. The
// contract remains the source of truth; entries are invalidated by an
// explicit re-fetch after every confirmed action and expire on their own
// otherwise. Cache failures are never fatal to callers.
type MarketCache interface {
	Set(ctx context.Context, market Market) error
	Get(ctx context.Context, id uint64) (Market, error)
	Invalidate(ctx context.Context, id uint64) error
}

// SignalBus is a lightweight pub/sub fabric used to push market-update
// events to connected UI clients.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe returns a channel of raw payloads. It is closed when ctx
	// is cancelled.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// RateLimiter throttles requests per key. Allow counts the request and
// reports whether it fits inside the window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

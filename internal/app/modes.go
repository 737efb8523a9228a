package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openpredict/wagerd/internal/engine"
	"github.com/openpredict/wagerd/internal/notify"
	"github.com/openpredict/wagerd/internal/server"
	"github.com/openpredict/wagerd/internal/server/handler"
	"github.com/openpredict/wagerd/internal/server/ws"
	"github.com/openpredict/wagerd/internal/service"
)

// ServeMode runs the HTTP + WebSocket API with a background refresh loop.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode",
		slog.Int("port", a.cfg.Server.Port),
	)

	g, ctx := errgroup.WithContext(ctx)

	// Prime the listing before accepting traffic; a failure here is logged
	// and retried by the refresh loop rather than aborting startup.
	if _, err := deps.Snapshots.Refresh(ctx); err != nil {
		a.logger.WarnContext(ctx, "initial refresh failed",
			slog.String("error", err.Error()),
		)
	}

	g.Go(func() error {
		return a.refreshLoop(ctx, deps)
	})

	hub := ws.NewHub(deps.SignalBus, []string{service.MarketEventsChannel}, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, server.Handlers{
		Health:    handler.NewHealthHandler(),
		Markets:   handler.NewMarketHandler(deps.Snapshots, deps.Positions, settlementSource(deps), a.logger),
		Positions: handler.NewPositionHandler(deps.Positions, a.logger),
		Actions:   handler.NewActionHandler(deps.Actions, a.logger),
	}, hub, deps.RateLimiter, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	return g.Wait()
}

// MonitorMode runs the refresh loop and notifications without serving HTTP.
// Markets crossing into pending resolution are surfaced to operators.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode",
		slog.Duration("interval", a.cfg.Refresh.Interval.Duration),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.refreshLoop(ctx, deps)
	})
	return g.Wait()
}

// OnceMode performs a single listing pass and writes it to stdout as JSON.
// Useful for checking connectivity and contract wiring from the CLI.
func (a *App) OnceMode(ctx context.Context, deps *Dependencies) error {
	listing, err := deps.Snapshots.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("once mode: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	out := make([]map[string]any, 0, len(listing.Markets))
	for _, v := range listing.Markets {
		out = append(out, map[string]any{
			"id":        v.Market.ID,
			"question":  v.Market.Question,
			"state":     string(v.State),
			"time_left": v.TimeLeft,
			"pool_a":    v.Market.TotalOptionAShares.String(),
			"pool_b":    v.Market.TotalOptionBShares.String(),
		})
	}
	return enc.Encode(map[string]any{
		"fetched_at": listing.FetchedAt,
		"failed":     listing.Failed,
		"markets":    out,
	})
}

// settlementSource exposes the archiver to the settlement endpoint without
// handing the handler a typed-nil interface when archiving is disabled.
func settlementSource(deps *Dependencies) handler.SettlementSource {
	if deps.Archiver == nil {
		return nil
	}
	return deps.Archiver
}

// refreshLoop re-fetches the listing on the configured interval and notifies
// when a market transitions into pending resolution.
func (a *App) refreshLoop(ctx context.Context, deps *Dependencies) error {
	interval := a.cfg.Refresh.Interval.Duration
	if interval <= 0 {
		interval = time.Minute
	}

	pending := make(map[uint64]bool)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			listing, err := deps.Snapshots.Refresh(ctx)
			if err != nil {
				a.logger.ErrorContext(ctx, "refresh failed",
					slog.String("error", err.Error()),
				)
				if nerr := deps.Notifier.Notify(ctx, notify.EventError, "wagerd: refresh failed", err.Error()); nerr != nil {
					a.logger.WarnContext(ctx, "notification failed",
						slog.String("error", nerr.Error()),
					)
				}
				continue
			}

			for _, v := range listing.Markets {
				id := v.Market.ID
				switch {
				case v.State == engine.StatePendingResolution && !pending[id]:
					pending[id] = true
					msg := fmt.Sprintf("Market %d awaits resolution: %s", id, v.Market.Question)
					if err := deps.Notifier.Notify(ctx, notify.EventMarketPending, "wagerd: market ended", msg); err != nil {
						a.logger.WarnContext(ctx, "notification failed",
							slog.String("error", err.Error()),
						)
					}
				case v.State != engine.StatePendingResolution:
					delete(pending, id)
				}
			}
		}
	}
}

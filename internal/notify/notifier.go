// Package notify delivers operator alerts for market lifecycle events over
// Telegram and Discord webhooks. Delivery is best effort: the gateway and
// the refresh loop treat a failed alert as a log line, never as a failed
// operation.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/openpredict/wagerd/internal/domain"
)

// Event names an alertable occurrence. Gateway actions alert under their
// action kind; the refresh loop adds the two operational events below.
type Event string

const (
	EventMarketCreated  = Event(domain.ActionCreateMarket)
	EventSharesBought   = Event(domain.ActionBuyShares)
	EventMarketResolved = Event(domain.ActionResolveMarket)
	EventClaimed        = Event(domain.ActionClaimWinnings)

	// EventMarketPending fires once when a market crosses its end time
	// and starts waiting on an owner resolution.
	EventMarketPending Event = "market_pending"

	// EventError covers refresh and infrastructure failures.
	EventError Event = "error"
)

// Sender delivers one rendered alert over a single channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Notifier fans alerts out to the configured senders, filtered by event.
type Notifier struct {
	senders []Sender
	allowed map[Event]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders. events
// holds the event names to forward; an empty list forwards everything.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[Event]bool, len(events))
	for _, e := range events {
		allowed[Event(strings.TrimSpace(e))] = true
	}
	return &Notifier{
		senders: senders,
		allowed: allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify sends one alert to every sender unless the event is filtered out.
// Sender failures are joined into the returned error so one dead webhook
// does not silence the remaining channels.
func (n *Notifier) Notify(ctx context.Context, event Event, title, message string) error {
	if len(n.allowed) > 0 && !n.allowed[event] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", string(event)),
		)
		return nil
	}

	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "alert delivered",
			slog.String("sender", s.Name()),
			slog.String("event", string(event)),
		)
	}
	return errors.Join(errs...)
}

// postJSON submits a webhook payload and normalises non-2xx responses into
// errors carrying a truncated response body.
func postJSON(ctx context.Context, client *http.Client, name, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: marshal payload: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: create request: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: send request: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s: unexpected status %d: %s", name, resp.StatusCode, string(detail))
	}
	return nil
}

package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/openpredict/wagerd/internal/engine"
	"github.com/openpredict/wagerd/internal/service"
)

// MarketLister defines what the market handler requires from the service
// layer. Declared locally so the handler package does not depend on the
// concrete service implementation.
type MarketLister interface {
	ListMarkets(ctx context.Context, state engine.State) ([]service.MarketView, error)
	Refresh(ctx context.Context) (service.Listing, error)
}

// MarketDetailer joins one market with the settlement view for a viewer.
type MarketDetailer interface {
	Detail(ctx context.Context, id uint64, address string) (service.MarketDetail, error)
}

// SettlementSource streams archived settlement records. Missing records
// surface as domain.ErrNotFound.
type SettlementSource interface {
	Open(ctx context.Context, marketID uint64) (io.ReadCloser, error)
}

// MarketHandler serves market listing and detail endpoints.
type MarketHandler struct {
	markets MarketLister
	details MarketDetailer
	archive SettlementSource // nil when archiving is disabled
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(markets MarketLister, details MarketDetailer, archive SettlementSource, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		details: details,
		archive: archive,
		logger:  logger,
	}
}

// listMarketsResponse wraps the list endpoint output with metadata.
type listMarketsResponse struct {
	Markets []marketPayload `json:"markets"`
	Total   int             `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// ListMarkets returns markets, optionally filtered by lifecycle state.
// GET /api/markets?state=active|pending|resolved&limit=50&offset=0
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	var state engine.State
	if raw := r.URL.Query().Get("state"); raw != "" {
		parsed, ok := engine.ParseState(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown state filter")
			return
		}
		state = parsed
	}
	opts := parseListOpts(r)

	views, err := h.markets.ListMarkets(r.Context(), state)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list markets failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list markets")
		return
	}

	total := len(views)
	views = paginate(views, opts.Limit, opts.Offset)
	payload := make([]marketPayload, 0, len(views))
	for _, v := range views {
		payload = append(payload, toMarketPayload(v))
	}

	writeJSON(w, http.StatusOK, listMarketsResponse{
		Markets: payload,
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
}

// marketDetailResponse joins the market with the viewer's settlement view.
type marketDetailResponse struct {
	Market   marketPayload   `json:"market"`
	Position positionPayload `json:"position"`
}

// GetMarket returns one market with the settlement view for the optional
// viewer address.
// GET /api/markets/{id}?address=0x...
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id, err := marketIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := h.details.Detail(r.Context(), id, r.URL.Query().Get("address"))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: get market failed",
			slog.Uint64("market_id", id),
			slog.String("error", err.Error()),
		)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, marketDetailResponse{
		Market: toMarketPayload(d.Market),
		Position: toPositionPayload(d.Position,
			d.Settlement.HasBet, d.Settlement.ClaimEligible, d.Settlement.Payout),
	})
}

// GetSettlement streams the archived settlement record for a resolved
// market.
// GET /api/markets/{id}/settlement
func (h *MarketHandler) GetSettlement(w http.ResponseWriter, r *http.Request) {
	id, err := marketIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.archive == nil {
		writeError(w, http.StatusNotFound, "settlement archive disabled")
		return
	}

	rc, err := h.archive.Open(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: open settlement failed",
			slog.Uint64("market_id", id),
			slog.String("error", err.Error()),
		)
		writeServiceError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.WarnContext(r.Context(), "handler: settlement stream interrupted",
			slog.Uint64("market_id", id),
			slog.String("error", err.Error()),
		)
	}
}

// RefreshMarkets forces a full listing pass against the contract.
// POST /api/markets/refresh
func (h *MarketHandler) RefreshMarkets(w http.ResponseWriter, r *http.Request) {
	listing, err := h.markets.Refresh(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: refresh failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"markets":    len(listing.Markets),
		"failed":     listing.Failed,
		"fetched_at": listing.FetchedAt,
	})
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

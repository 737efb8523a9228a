package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/openpredict/wagerd/internal/service"
)

// BetLister defines what the position handler requires from the service layer.
type BetLister interface {
	MyBets(ctx context.Context, address string) ([]service.BetView, error)
}

// PositionHandler serves the my-bets endpoint.
type PositionHandler struct {
	bets   BetLister
	logger *slog.Logger
}

// NewPositionHandler creates a PositionHandler.
func NewPositionHandler(bets BetLister, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{
		bets:   bets,
		logger: logger,
	}
}

// betPayload is one market the address has bet on.
type betPayload struct {
	Market   marketPayload   `json:"market"`
	Position positionPayload `json:"position"`
}

// ListPositions returns every market where the address holds shares.
// GET /api/positions?address=0x...
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")

	bets, err := h.bets.MyBets(r.Context(), address)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list positions failed",
			slog.String("address", address),
			slog.String("error", err.Error()),
		)
		writeServiceError(w, err)
		return
	}

	payload := make([]betPayload, 0, len(bets))
	for _, b := range bets {
		payload = append(payload, betPayload{
			Market: toMarketPayload(b.Market),
			Position: toPositionPayload(b.Position,
				b.Settlement.HasBet, b.Settlement.ClaimEligible, b.Settlement.Payout),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"address":   address,
		"positions": payload,
	})
}

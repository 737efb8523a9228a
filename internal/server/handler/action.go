package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"

	"github.com/openpredict/wagerd/internal/domain"
	"github.com/openpredict/wagerd/internal/service"
)

// ActionDispatcher defines what the action handler requires from the gateway.
type ActionDispatcher interface {
	CreateMarket(ctx context.Context, in service.CreateMarketInput) (domain.TxReceipt, error)
	BuyShares(ctx context.Context, id uint64, isOptionA bool, amount *big.Int) (domain.TxReceipt, error)
	ResolveMarket(ctx context.Context, id uint64, outcome domain.Outcome) (domain.TxReceipt, error)
	ClaimWinnings(ctx context.Context, id uint64) (domain.TxReceipt, error)
	Actions(ctx context.Context, opts domain.ListOpts) ([]domain.ActionRecord, error)
	ActionsByMarket(ctx context.Context, marketID uint64, opts domain.ListOpts) ([]domain.ActionRecord, error)
}

// ActionHandler serves the mutating endpoints and the audit trail.
type ActionHandler struct {
	actions ActionDispatcher
	logger  *slog.Logger
}

// NewActionHandler creates an ActionHandler.
func NewActionHandler(actions ActionDispatcher, logger *slog.Logger) *ActionHandler {
	return &ActionHandler{
		actions: actions,
		logger:  logger,
	}
}

type createMarketRequest struct {
	Question     string `json:"question"`
	OptionA      string `json:"option_a"`
	OptionB      string `json:"option_b"`
	DurationDays int64  `json:"duration_days"`
}

// CreateMarket creates a new market. Owner only.
// POST /api/markets
func (h *ActionHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	var req createMarketRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	receipt, err := h.actions.CreateMarket(r.Context(), service.CreateMarketInput{
		Question:     req.Question,
		OptionA:      req.OptionA,
		OptionB:      req.OptionB,
		DurationDays: req.DurationDays,
	})
	if err != nil {
		h.logFailure(r, "create market", 0, err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toReceiptPayload(receipt))
}

type betRequest struct {
	IsOptionA bool   `json:"is_option_a"`
	AmountWei string `json:"amount_wei"`
}

// PlaceBet buys shares on one side of an active market.
// POST /api/markets/{id}/bets
func (h *ActionHandler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	id, err := marketIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req betRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount, ok := new(big.Int).SetString(req.AmountWei, 10)
	if !ok {
		writeError(w, http.StatusBadRequest, "amount_wei must be a decimal integer string")
		return
	}

	receipt, err := h.actions.BuyShares(r.Context(), id, req.IsOptionA, amount)
	if err != nil {
		h.logFailure(r, "place bet", id, err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toReceiptPayload(receipt))
}

type resolveRequest struct {
	Outcome string `json:"outcome"` // "option_a" or "option_b"
}

// ResolveMarket records the winning outcome. Owner only.
// POST /api/markets/{id}/resolve
func (h *ActionHandler) ResolveMarket(w http.ResponseWriter, r *http.Request) {
	id, err := marketIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req resolveRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var outcome domain.Outcome
	switch req.Outcome {
	case "option_a":
		outcome = domain.OutcomeOptionA
	case "option_b":
		outcome = domain.OutcomeOptionB
	default:
		writeError(w, http.StatusBadRequest, `outcome must be "option_a" or "option_b"`)
		return
	}

	receipt, err := h.actions.ResolveMarket(r.Context(), id, outcome)
	if err != nil {
		h.logFailure(r, "resolve market", id, err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toReceiptPayload(receipt))
}

// ClaimWinnings claims the configured wallet's payout from a resolved market.
// POST /api/markets/{id}/claims
func (h *ActionHandler) ClaimWinnings(w http.ResponseWriter, r *http.Request) {
	id, err := marketIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	receipt, err := h.actions.ClaimWinnings(r.Context(), id)
	if err != nil {
		h.logFailure(r, "claim winnings", id, err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toReceiptPayload(receipt))
}

// ListActions returns the audit trail, newest first, optionally narrowed to
// one market.
// GET /api/actions?market_id=7&limit=50&offset=0
func (h *ActionHandler) ListActions(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	var recs []domain.ActionRecord
	var err error
	if raw := r.URL.Query().Get("market_id"); raw != "" {
		id, perr := strconv.ParseUint(raw, 10, 64)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "market_id must be a non-negative integer")
			return
		}
		recs, err = h.actions.ActionsByMarket(r.Context(), id, opts)
	} else {
		recs, err = h.actions.Actions(r.Context(), opts)
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list actions failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list actions")
		return
	}

	payload := make([]actionPayload, 0, len(recs))
	for _, rec := range recs {
		payload = append(payload, toActionPayload(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"actions": payload})
}

func (h *ActionHandler) logFailure(r *http.Request, op string, marketID uint64, err error) {
	// Validation rejections are routine; only chain and internal failures
	// are worth an error-level line.
	if domain.IsValidation(err) {
		h.logger.DebugContext(r.Context(), "handler: "+op+" rejected",
			slog.Uint64("market_id", marketID),
			slog.String("reason", err.Error()),
		)
		return
	}
	h.logger.ErrorContext(r.Context(), "handler: "+op+" failed",
		slog.Uint64("market_id", marketID),
		slog.String("error", err.Error()),
	)
}

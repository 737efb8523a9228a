package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/openpredict/wagerd/internal/domain"
	"github.com/openpredict/wagerd/internal/engine"
	"github.com/openpredict/wagerd/internal/notify"
)

// MarketEventsChannel carries market-update events from confirmed actions to
// the WebSocket hub.
const MarketEventsChannel = "ch:markets"

// Signer exposes the local wallet identity used for owner gating.
type Signer interface {
	Address() common.Address
	IsOwner(owner string) bool
}

// Notifier delivers operator notifications. Satisfied by notify.Notifier.
type Notifier interface {
	Notify(ctx context.Context, event notify.Event, title, message string) error
}

// Archiver persists final settlement snapshots for resolved markets.
type Archiver interface {
	Archive(ctx context.Context, m domain.Market, resolutionTx string) error
}

// CreateMarketInput is the create_market request.
type CreateMarketInput struct {
	Question     string
	OptionA      string
	OptionB      string
	DurationDays int64
}

// ActionService validates and submits the four mutating contract operations.
// Every precondition is checked locally before a transaction is attempted;
// a ValidationError means the chain was never touched and the caller can fix
// the input and retry. Confirmed and failed submissions both land in the
// audit trail.
type ActionService struct {
	reader    domain.ContractReader
	writer    domain.ContractWriter
	signer    Signer
	owner     string
	cache     domain.MarketCache
	bus       domain.SignalBus
	store     domain.ActionStore
	notifier  Notifier
	archiver  Archiver
	snapshots *SnapshotService
	logger    *slog.Logger
}

// NewActionService creates an ActionService. cache, bus, store, notifier and
// archiver may each be nil; the corresponding side effect is then skipped.
func NewActionService(
	reader domain.ContractReader,
	writer domain.ContractWriter,
	signer Signer,
	owner string,
	cache domain.MarketCache,
	bus domain.SignalBus,
	store domain.ActionStore,
	notifier Notifier,
	archiver Archiver,
	snapshots *SnapshotService,
	logger *slog.Logger,
) *ActionService {
	return &ActionService{
		reader:    reader,
		writer:    writer,
		signer:    signer,
		owner:     owner,
		cache:     cache,
		bus:       bus,
		store:     store,
		notifier:  notifier,
		archiver:  archiver,
		snapshots: snapshots,
		logger:    logger.With(slog.String("component", "action_service")),
	}
}

// CreateMarket creates a new market ending DurationDays from now. Owner only.
func (s *ActionService) CreateMarket(ctx context.Context, in CreateMarketInput) (domain.TxReceipt, error) {
	if err := s.requireOwner(); err != nil {
		return domain.TxReceipt{}, err
	}
	in.Question = strings.TrimSpace(in.Question)
	in.OptionA = strings.TrimSpace(in.OptionA)
	in.OptionB = strings.TrimSpace(in.OptionB)
	switch {
	case in.Question == "":
		return domain.TxReceipt{}, &domain.ValidationError{Field: "question", Reason: "question is required"}
	case in.OptionA == "":
		return domain.TxReceipt{}, &domain.ValidationError{Field: "option_a", Reason: "option A label is required"}
	case in.OptionB == "":
		return domain.TxReceipt{}, &domain.ValidationError{Field: "option_b", Reason: "option B label is required"}
	case in.DurationDays < 1:
		return domain.TxReceipt{}, &domain.ValidationError{Field: "duration_days", Reason: "duration must be at least 1 day"}
	}

	duration := time.Duration(in.DurationDays) * 24 * time.Hour
	receipt, err := s.writer.CreateMarket(ctx, in.Question, in.OptionA, in.OptionB, duration)
	s.audit(ctx, domain.ActionCreateMarket, 0, receipt, err, map[string]any{
		"question":      in.Question,
		"option_a":      in.OptionA,
		"option_b":      in.OptionB,
		"duration_days": in.DurationDays,
	})
	if err != nil {
		return domain.TxReceipt{}, err
	}

	s.afterConfirm(ctx, domain.ActionCreateMarket, 0, receipt,
		fmt.Sprintf("Market created: %s", in.Question))
	return receipt, nil
}

// BuyShares places a bet of amount wei on one side of an active market.
func (s *ActionService) BuyShares(ctx context.Context, id uint64, isOptionA bool, amount *big.Int) (domain.TxReceipt, error) {
	if s.signer == nil {
		return domain.TxReceipt{}, &domain.ValidationError{
			Field:  "wallet",
			Reason: "no wallet configured",
			Err:    domain.ErrNoWallet,
		}
	}
	if amount == nil || amount.Sign() <= 0 {
		return domain.TxReceipt{}, &domain.ValidationError{Field: "amount", Reason: "amount must be positive"}
	}

	m, err := s.freshMarket(ctx, id)
	if err != nil {
		return domain.TxReceipt{}, err
	}
	if engine.Classify(m, time.Now()) != engine.StateActive {
		return domain.TxReceipt{}, &domain.ValidationError{
			Field:  "market",
			Reason: "betting has closed",
			Err:    domain.ErrMarketClosed,
		}
	}

	receipt, err := s.writer.BuyShares(ctx, id, isOptionA, amount)
	s.audit(ctx, domain.ActionBuyShares, id, receipt, err, map[string]any{
		"is_option_a": isOptionA,
		"amount_wei":  amount.String(),
	})
	if err != nil {
		return domain.TxReceipt{}, err
	}

	side := m.OptionB
	if isOptionA {
		side = m.OptionA
	}
	s.afterConfirm(ctx, domain.ActionBuyShares, id, receipt,
		fmt.Sprintf("Bet placed on %q in market %d", side, id))
	return receipt, nil
}

// ResolveMarket records the winning outcome for a market past its end time.
// Owner only.
func (s *ActionService) ResolveMarket(ctx context.Context, id uint64, outcome domain.Outcome) (domain.TxReceipt, error) {
	if err := s.requireOwner(); err != nil {
		return domain.TxReceipt{}, err
	}
	if outcome != domain.OutcomeOptionA && outcome != domain.OutcomeOptionB {
		return domain.TxReceipt{}, &domain.ValidationError{Field: "outcome", Reason: "outcome must be option A or option B"}
	}

	m, err := s.freshMarket(ctx, id)
	if err != nil {
		return domain.TxReceipt{}, err
	}
	switch engine.Classify(m, time.Now()) {
	case engine.StateResolved:
		return domain.TxReceipt{}, &domain.ValidationError{
			Field:  "market",
			Reason: "market is already resolved",
			Err:    domain.ErrAlreadyResolved,
		}
	case engine.StateActive:
		return domain.TxReceipt{}, &domain.ValidationError{
			Field:  "market",
			Reason: "market has not ended yet",
			Err:    domain.ErrMarketOpen,
		}
	}

	receipt, err := s.writer.ResolveMarket(ctx, id, outcome)
	s.audit(ctx, domain.ActionResolveMarket, id, receipt, err, map[string]any{
		"outcome": outcome.String(),
	})
	if err != nil {
		return domain.TxReceipt{}, err
	}

	s.afterConfirm(ctx, domain.ActionResolveMarket, id, receipt,
		fmt.Sprintf("Market %d resolved: %s", id, outcome))

	if s.archiver != nil {
		// Archive the post-resolution snapshot. Failure is logged only;
		// the resolution itself is already confirmed on chain.
		if resolved, ferr := s.reader.MarketInfo(ctx, id); ferr == nil && resolved.Resolved {
			if aerr := s.archiver.Archive(ctx, resolved, receipt.Hash); aerr != nil {
				s.logger.ErrorContext(ctx, "settlement archive failed",
					slog.Uint64("market_id", id),
					slog.String("error", aerr.Error()),
				)
			}
		}
	}
	return receipt, nil
}

// ClaimWinnings claims the signer's payout from a resolved market. The
// position is re-read immediately before submitting so stale UI state can
// never push an ineligible claim to the contract.
func (s *ActionService) ClaimWinnings(ctx context.Context, id uint64) (domain.TxReceipt, error) {
	if s.signer == nil {
		return domain.TxReceipt{}, &domain.ValidationError{
			Field:  "wallet",
			Reason: "no wallet configured",
			Err:    domain.ErrNoWallet,
		}
	}

	m, err := s.freshMarket(ctx, id)
	if err != nil {
		return domain.TxReceipt{}, err
	}
	pos, err := s.reader.SharesBalance(ctx, id, s.signer.Address().Hex())
	if err != nil {
		return domain.TxReceipt{}, fmt.Errorf("action_service: refresh position: %w", err)
	}

	view := engine.Settle(m, pos)
	if !view.ClaimEligible {
		return domain.TxReceipt{}, &domain.ValidationError{
			Field:  "eligibility",
			Reason: "no winnings to claim",
			Err:    domain.ErrNotEligible,
		}
	}

	receipt, err := s.writer.ClaimWinnings(ctx, id)
	s.audit(ctx, domain.ActionClaimWinnings, id, receipt, err, map[string]any{
		"payout_wei": view.Payout.String(),
	})
	if err != nil {
		return domain.TxReceipt{}, err
	}

	s.afterConfirm(ctx, domain.ActionClaimWinnings, id, receipt,
		fmt.Sprintf("Winnings claimed from market %d", id))
	return receipt, nil
}

// Actions lists the audit trail, newest first.
func (s *ActionService) Actions(ctx context.Context, opts domain.ListOpts) ([]domain.ActionRecord, error) {
	if s.store == nil {
		return nil, nil
	}
	recs, err := s.store.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("action_service: list actions: %w", err)
	}
	return recs, nil
}

// ActionsByMarket returns the audit trail for one market, newest first.
func (s *ActionService) ActionsByMarket(ctx context.Context, marketID uint64, opts domain.ListOpts) ([]domain.ActionRecord, error) {
	if s.store == nil {
		return nil, nil
	}
	recs, err := s.store.ListByMarket(ctx, marketID, opts)
	if err != nil {
		return nil, fmt.Errorf("action_service: list actions for market %d: %w", marketID, err)
	}
	return recs, nil
}

func (s *ActionService) requireOwner() error {
	if s.signer == nil {
		return &domain.ValidationError{
			Field:  "wallet",
			Reason: "no wallet configured",
			Err:    domain.ErrNoWallet,
		}
	}
	if !s.signer.IsOwner(s.owner) {
		return &domain.ValidationError{
			Field:  "owner",
			Reason: "caller is not the contract owner",
			Err:    domain.ErrNotOwner,
		}
	}
	return nil
}

// freshMarket bypasses the advisory cache so preconditions are checked
// against the contract's current state.
func (s *ActionService) freshMarket(ctx context.Context, id uint64) (domain.Market, error) {
	m, err := s.reader.MarketInfo(ctx, id)
	if err != nil {
		return domain.Market{}, fmt.Errorf("action_service: fetch market %d: %w", id, err)
	}
	return m, nil
}

// audit records the outcome of one submission attempt. Audit failures are
// logged, never surfaced; the trail is documentary.
func (s *ActionService) audit(ctx context.Context, kind domain.ActionKind, marketID uint64, receipt domain.TxReceipt, submitErr error, detail map[string]any) {
	if s.store == nil {
		return
	}

	status := domain.ActionConfirmed
	if submitErr != nil {
		status = domain.ActionFailed
		if detail == nil {
			detail = map[string]any{}
		}
		detail["error"] = submitErr.Error()
	}

	var caller string
	if s.signer != nil {
		caller = s.signer.Address().Hex()
	}

	rec := domain.ActionRecord{
		ID:        uuid.NewString(),
		Kind:      kind,
		MarketID:  marketID,
		Caller:    caller,
		TxHash:    receipt.Hash,
		Status:    status,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Record(ctx, rec); err != nil {
		s.logger.ErrorContext(ctx, "audit record failed",
			slog.String("kind", string(kind)),
			slog.Uint64("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}
}

// afterConfirm runs the post-confirmation side effects: cache invalidation,
// pub/sub event, operator notification. Each failure is logged and the rest
// still run.
func (s *ActionService) afterConfirm(ctx context.Context, kind domain.ActionKind, marketID uint64, receipt domain.TxReceipt, summary string) {
	s.logger.InfoContext(ctx, "action confirmed",
		slog.String("kind", string(kind)),
		slog.Uint64("market_id", marketID),
		slog.String("tx", receipt.Hash),
	)

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, marketID); err != nil {
			s.logger.WarnContext(ctx, "cache invalidate failed",
				slog.Uint64("market_id", marketID),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.bus != nil {
		payload, err := json.Marshal(map[string]any{
			"event":     string(kind),
			"market_id": marketID,
			"tx_hash":   receipt.Hash,
		})
		if err == nil {
			if err := s.bus.Publish(ctx, MarketEventsChannel, payload); err != nil {
				s.logger.WarnContext(ctx, "bus publish failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, notify.Event(kind), "wagerd: "+string(kind), summary); err != nil {
			s.logger.WarnContext(ctx, "notification failed",
				slog.String("error", err.Error()),
			)
		}
	}

	if s.snapshots != nil {
		if _, err := s.snapshots.Refresh(ctx); err != nil {
			s.logger.WarnContext(ctx, "post-action refresh failed",
				slog.String("error", err.Error()),
			)
		}
	}
}

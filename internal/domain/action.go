package domain

import "time"

// ActionKind names the four mutating operations the gateway dispatches.
type ActionKind string

const (
	ActionCreateMarket  ActionKind = "create_market"
	ActionBuyShares     ActionKind = "buy_shares"
	ActionResolveMarket ActionKind = "resolve_market"
	ActionClaimWinnings ActionKind = "claim_winnings"
)

// ActionStatus tracks the fate of a submitted action.
type ActionStatus string

const (
	ActionConfirmed ActionStatus = "confirmed"
	ActionFailed    ActionStatus = "failed"
)

// ActionRecord is one audit-trail row for a gateway action. Records exist
// for operator visibility only; the contract is the source of truth.
type ActionRecord struct {
	ID        string
	Kind      ActionKind
	MarketID  uint64
	Caller    string
	TxHash    string
	Status    ActionStatus
	Detail    map[string]any
	CreatedAt time.Time
}

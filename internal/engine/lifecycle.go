// Package engine derives view state from raw market and position snapshots:
// lifecycle classification, pool splits, claim eligibility, payouts, and
// time-left rendering. Everything in this package is pure; callers sample
// "now" once per listing pass and thread it through so every market in a
// pass is classified against the same instant.
package engine

import (
	"time"

	"github.com/openpredict/wagerd/internal/domain"
)

// State is the derived lifecycle state of a market. Exactly one state holds
// for any well-formed market at any reference time.
type State string

const (
	StateActive            State = "active"
	StatePendingResolution State = "pending_resolution"
	StateResolved          State = "resolved"
)

// Classify partitions a market into one of the three lifecycle states
// against the given reference time.
func Classify(m domain.Market, now time.Time) State {
	if m.Resolved {
		return StateResolved
	}
	if now.Unix() < m.EndTime {
		return StateActive
	}
	return StatePendingResolution
}

// ParseState maps the wire names used in API filters back to a State. The
// short form "pending" is accepted as an alias.
func ParseState(s string) (State, bool) {
	switch s {
	case "active":
		return StateActive, true
	case "pending", "pending_resolution":
		return StatePendingResolution, true
	case "resolved":
		return StateResolved, true
	default:
		return "", false
	}
}

package engine

import (
	"math/big"
	"testing"
	"time"

	"github.com/openpredict/wagerd/internal/domain"
)

func mkMarket(endOffset int64, resolved bool, outcome domain.Outcome) domain.Market {
	return domain.Market{
		ID:                 1,
		Question:           "Will it rain tomorrow?",
		OptionA:            "Yes",
		OptionB:            "No",
		EndTime:            baseTime.Unix() + endOffset,
		Outcome:            outcome,
		TotalOptionAShares: big.NewInt(0),
		TotalOptionBShares: big.NewInt(0),
		Resolved:           resolved,
	}
}

var baseTime = time.Unix(1_700_000_000, 0).UTC()

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		market domain.Market
		want   State
	}{
		{"unresolved before end time", mkMarket(3600, false, domain.OutcomeUnresolved), StateActive},
		{"unresolved one second before end", mkMarket(1, false, domain.OutcomeUnresolved), StateActive},
		{"unresolved exactly at end time", mkMarket(0, false, domain.OutcomeUnresolved), StatePendingResolution},
		{"unresolved past end time", mkMarket(-3600, false, domain.OutcomeUnresolved), StatePendingResolution},
		{"resolved before end time", mkMarket(3600, true, domain.OutcomeOptionA), StateResolved},
		{"resolved past end time", mkMarket(-3600, true, domain.OutcomeOptionB), StateResolved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.market, baseTime); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

// The three states partition every market: exactly one holds at any time.
func TestClassifyPartitionIsTotal(t *testing.T) {
	markets := []domain.Market{
		mkMarket(3600, false, domain.OutcomeUnresolved),
		mkMarket(0, false, domain.OutcomeUnresolved),
		mkMarket(-1, false, domain.OutcomeUnresolved),
		mkMarket(3600, true, domain.OutcomeOptionA),
		mkMarket(-3600, true, domain.OutcomeOptionB),
	}
	states := map[State]bool{StateActive: true, StatePendingResolution: true, StateResolved: true}

	for _, m := range markets {
		got := Classify(m, baseTime)
		if !states[got] {
			t.Errorf("market %d: Classify returned unknown state %q", m.ID, got)
		}
	}
}

func TestParseState(t *testing.T) {
	tests := []struct {
		in   string
		want State
		ok   bool
	}{
		{"active", StateActive, true},
		{"pending", StatePendingResolution, true},
		{"pending_resolution", StatePendingResolution, true},
		{"resolved", StateResolved, true},
		{"", "", false},
		{"settled", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseState(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseState(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

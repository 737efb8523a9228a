package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openpredict/wagerd/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", domain.ErrNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("read: %w", domain.ErrNotFound), http.StatusNotFound},
		{"not owner", domain.ErrNotOwner, http.StatusForbidden},
		{"validation", &domain.ValidationError{Field: "amount", Reason: "must be positive"}, http.StatusBadRequest},
		{"submission", &domain.SubmissionError{Action: "buy_shares", MarketID: 1, Err: errors.New("reverted")}, http.StatusBadGateway},
		{"fetch", &domain.FetchError{MarketID: 99, Err: errors.New("execution reverted")}, http.StatusBadGateway},
		{"fetch wrapping not found", &domain.FetchError{MarketID: 99, Err: domain.ErrNotFound}, http.StatusNotFound},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeServiceError(w, tt.err)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

// stubSettlements serves canned settlement documents.
type stubSettlements struct {
	records map[uint64]string
}

func (s *stubSettlements) Open(ctx context.Context, marketID uint64) (io.ReadCloser, error) {
	doc, ok := s.records[marketID]
	if !ok {
		return nil, fmt.Errorf("open settlement %d: %w", marketID, domain.ErrNotFound)
	}
	return io.NopCloser(strings.NewReader(doc)), nil
}

func TestGetSettlement(t *testing.T) {
	h := NewMarketHandler(nil, nil, &stubSettlements{
		records: map[uint64]string{7: `{"market_id":7,"winning_option":"Yes"}`},
	}, testLogger())

	t.Run("streams archived record", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/markets/7/settlement", nil)
		r.SetPathValue("id", "7")
		w := httptest.NewRecorder()
		h.GetSettlement(w, r)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if !strings.Contains(w.Body.String(), `"winning_option":"Yes"`) {
			t.Errorf("body = %q, missing settlement fields", w.Body.String())
		}
	})

	t.Run("missing record is 404", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/markets/9/settlement", nil)
		r.SetPathValue("id", "9")
		w := httptest.NewRecorder()
		h.GetSettlement(w, r)

		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})

	t.Run("archive disabled is 404", func(t *testing.T) {
		disabled := NewMarketHandler(nil, nil, nil, testLogger())
		r := httptest.NewRequest(http.MethodGet, "/api/markets/7/settlement", nil)
		r.SetPathValue("id", "7")
		w := httptest.NewRecorder()
		disabled.GetSettlement(w, r)

		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})
}

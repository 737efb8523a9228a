package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/openpredict/wagerd/internal/domain"
	"github.com/openpredict/wagerd/internal/engine"
)

// SettlementArchiver writes a JSON snapshot of a market's final state to
// object storage once its resolution is confirmed, and serves those
// snapshots back to the API. Archives are documentary; the contract remains
// the source of truth and a failed archive never fails the resolution
// itself.
type SettlementArchiver struct {
	writer domain.BlobWriter
	reader domain.BlobReader
	prefix string
	logger *slog.Logger
}

// NewSettlementArchiver creates an archiver storing records under the given
// key prefix, e.g. "settlements".
func NewSettlementArchiver(writer domain.BlobWriter, reader domain.BlobReader, prefix string, logger *slog.Logger) *SettlementArchiver {
	if prefix == "" {
		prefix = "settlements"
	}
	return &SettlementArchiver{
		writer: writer,
		reader: reader,
		prefix: prefix,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// settlementRecord is the archived JSON document. Amounts are decimal
// strings to keep wei precision.
type settlementRecord struct {
	MarketID       uint64    `json:"market_id"`
	Question       string    `json:"question"`
	OptionA        string    `json:"option_a"`
	OptionB        string    `json:"option_b"`
	EndTime        int64     `json:"end_time"`
	Outcome        string    `json:"outcome"`
	WinningOption  string    `json:"winning_option"`
	TotalPool      string    `json:"total_pool"`
	OptionAShares  string    `json:"total_option_a_shares"`
	OptionBShares  string    `json:"total_option_b_shares"`
	OptionAPercent string    `json:"option_a_percent"`
	OptionBPercent string    `json:"option_b_percent"`
	ResolutionTx   string    `json:"resolution_tx"`
	ArchivedAt     time.Time `json:"archived_at"`
}

// Archive uploads the final settlement snapshot for a resolved market. A
// market that already has an archived record is skipped; the first record
// carries the resolution tx, and settlement state never changes afterwards.
func (a *SettlementArchiver) Archive(ctx context.Context, m domain.Market, resolutionTx string) error {
	if !m.Resolved {
		return fmt.Errorf("s3blob: market %d is not resolved", m.ID)
	}

	key := a.key(m.ID)
	exists, err := a.reader.Exists(ctx, key)
	if err != nil {
		a.logger.WarnContext(ctx, "archive existence check failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	} else if exists {
		a.logger.DebugContext(ctx, "settlement already archived",
			slog.Uint64("market_id", m.ID),
			slog.String("key", key),
		)
		return nil
	}

	view := engine.Settle(m, domain.ZeroPosition())
	winner, _ := m.WinningOption()

	rec := settlementRecord{
		MarketID:       m.ID,
		Question:       m.Question,
		OptionA:        m.OptionA,
		OptionB:        m.OptionB,
		EndTime:        m.EndTime,
		Outcome:        m.Outcome.String(),
		WinningOption:  winner,
		TotalPool:      view.TotalPool.String(),
		OptionAShares:  m.TotalOptionAShares.String(),
		OptionBShares:  m.TotalOptionBShares.String(),
		OptionAPercent: view.OptionAPercent.String(),
		OptionBPercent: view.OptionBPercent.String(),
		ResolutionTx:   resolutionTx,
		ArchivedAt:     time.Now().UTC(),
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("s3blob: marshal settlement %d: %w", m.ID, err)
	}

	if err := a.writer.Put(ctx, key, bytes.NewReader(data), "application/json"); err != nil {
		return err
	}

	a.logger.InfoContext(ctx, "settlement archived",
		slog.Uint64("market_id", m.ID),
		slog.String("key", key),
	)
	return nil
}

// Open streams a previously archived settlement record. Missing records
// surface as domain.ErrNotFound.
func (a *SettlementArchiver) Open(ctx context.Context, marketID uint64) (io.ReadCloser, error) {
	return a.reader.Get(ctx, a.key(marketID))
}

func (a *SettlementArchiver) key(id uint64) string {
	return fmt.Sprintf("%s/market-%d.json", a.prefix, id)
}

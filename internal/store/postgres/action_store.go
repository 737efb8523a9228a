package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openpredict/wagerd/internal/domain"
)

// ActionStore implements domain.ActionStore using PostgreSQL.
type ActionStore struct {
	pool *pgxpool.Pool
}

// NewActionStore creates a new ActionStore backed by the given pool.
func NewActionStore(pool *pgxpool.Pool) *ActionStore {
	return &ActionStore{pool: pool}
}

// Record appends one audit row for a gateway action. The detail map is
// stored as JSONB.
func (s *ActionStore) Record(ctx context.Context, rec domain.ActionRecord) error {
	detailJSON, err := json.Marshal(rec.Detail)
	if err != nil {
		return fmt.Errorf("postgres: marshal action detail: %w", err)
	}

	const query = `
		INSERT INTO actions (id, kind, market_id, caller, tx_hash, status, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = s.pool.Exec(ctx, query,
		rec.ID, string(rec.Kind), int64(rec.MarketID), rec.Caller,
		rec.TxHash, string(rec.Status), detailJSON, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: record action %s: %w", rec.Kind, err)
	}
	return nil
}

// List returns audit rows newest first with pagination and optional time
// filtering.
func (s *ActionStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.ActionRecord, error) {
	query, args := buildListQuery("WHERE 1=1", nil, opts)
	return s.queryActions(ctx, query, args)
}

// ListByMarket returns audit rows for one market, newest first.
func (s *ActionStore) ListByMarket(ctx context.Context, marketID uint64, opts domain.ListOpts) ([]domain.ActionRecord, error) {
	query, args := buildListQuery("WHERE market_id = $1", []any{int64(marketID)}, opts)
	return s.queryActions(ctx, query, args)
}

func buildListQuery(where string, args []any, opts domain.ListOpts) (string, []any) {
	query := `SELECT id, kind, market_id, caller, tx_hash, status, detail, created_at FROM actions ` + where
	idx := len(args) + 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", idx)
		args = append(args, *opts.Since)
		idx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", idx)
		args = append(args, *opts.Until)
		idx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", idx)
		args = append(args, opts.Limit)
		idx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", idx)
		args = append(args, opts.Offset)
	}

	return query, args
}

func (s *ActionStore) queryActions(ctx context.Context, query string, args []any) ([]domain.ActionRecord, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list actions: %w", err)
	}
	defer rows.Close()

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ActionRecord, error) {
		var (
			rec        domain.ActionRecord
			kind       string
			marketID   int64
			status     string
			detailJSON []byte
		)
		if err := row.Scan(&rec.ID, &kind, &marketID, &rec.Caller, &rec.TxHash, &status, &detailJSON, &rec.CreatedAt); err != nil {
			return domain.ActionRecord{}, err
		}
		rec.Kind = domain.ActionKind(kind)
		rec.MarketID = uint64(marketID)
		rec.Status = domain.ActionStatus(status)
		if detailJSON != nil {
			if err := json.Unmarshal(detailJSON, &rec.Detail); err != nil {
				return domain.ActionRecord{}, err
			}
		}
		return rec, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scan actions: %w", err)
	}
	return records, nil
}

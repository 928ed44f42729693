package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/galebot/galebot/internal/domain"
)

// SnapshotStore implements domain.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *pgxpool.Pool
}

// NewSnapshotStore creates a new SnapshotStore backed by the given pool.
func NewSnapshotStore(pool *pgxpool.Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

var _ domain.SnapshotStore = (*SnapshotStore)(nil)

// Insert appends one snapshot row. Snapshots are immutable; there is no
// update path.
func (s *SnapshotStore) Insert(ctx context.Context, snap domain.SnapshotRecord) error {
	const query = `
		INSERT INTO forecast_snapshots (
			id, event_id, contract_ticker, forecast_probability,
			market_probability, member_count, model, captured_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.pool.Exec(ctx, query,
		snap.ID, snap.EventID, snap.ContractTicker, snap.ForecastProbability,
		snap.MarketProbability, snap.MemberCount, snap.Model, snap.CapturedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert snapshot for %s: %w", snap.EventID, err)
	}
	return nil
}

// ListByEvent returns snapshots for one event, newest first.
func (s *SnapshotStore) ListByEvent(ctx context.Context, eventID string, opts domain.ListOpts) ([]domain.SnapshotRecord, error) {
	query := `
		SELECT id, event_id, contract_ticker, forecast_probability,
		       market_probability, member_count, model, captured_at
		FROM forecast_snapshots
		WHERE event_id = $1
		ORDER BY captured_at DESC`
	args := []any{eventID}
	query, args = paginate(query, args, opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list snapshots for %s: %w", eventID, err)
	}
	defer rows.Close()

	var out []domain.SnapshotRecord
	for rows.Next() {
		var r domain.SnapshotRecord
		if err := rows.Scan(
			&r.ID, &r.EventID, &r.ContractTicker, &r.ForecastProbability,
			&r.MarketProbability, &r.MemberCount, &r.Model, &r.CapturedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan snapshot: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list snapshots rows: %w", err)
	}
	return out, nil
}

// ListJoined joins snapshots against resolved outcomes over a capture window
// and returns replayable rows ordered by capture time. Only the latest
// snapshot per event is used, so one event settles at most once per replay.
func (s *SnapshotStore) ListJoined(ctx context.Context, from, to time.Time) ([]domain.BacktestRow, error) {
	const query = `
		SELECT DISTINCT ON (f.event_id)
		       f.event_id, f.contract_ticker, f.forecast_probability,
		       f.market_probability, o.result, f.captured_at
		FROM forecast_snapshots f
		JOIN outcomes o ON o.event_id = f.event_id
		WHERE f.captured_at >= $1 AND f.captured_at <= $2
		ORDER BY f.event_id, f.captured_at DESC`

	rows, err := s.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("postgres: join snapshots with outcomes: %w", err)
	}
	defer rows.Close()

	var out []domain.BacktestRow
	for rows.Next() {
		var r domain.BacktestRow
		var ts time.Time
		if err := rows.Scan(
			&r.EventID, &r.ContractTicker, &r.ForecastProbability,
			&r.MarketProbability, &r.Outcome, &ts,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan joined row: %w", err)
		}
		r.Timestamp = &ts
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: join rows: %w", err)
	}

	// DISTINCT ON leaves rows ordered by event; the replay contract wants
	// capture order.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(*out[j].Timestamp)
	})
	return out, nil
}

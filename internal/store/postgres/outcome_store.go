package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/galebot/galebot/internal/domain"
)

// OutcomeStore implements domain.OutcomeStore using PostgreSQL.
type OutcomeStore struct {
	pool *pgxpool.Pool
}

// NewOutcomeStore creates a new OutcomeStore backed by the given pool.
func NewOutcomeStore(pool *pgxpool.Pool) *OutcomeStore {
	return &OutcomeStore{pool: pool}
}

var _ domain.OutcomeStore = (*OutcomeStore)(nil)

// Upsert records the resolved result for an event. Re-resolution overwrites,
// which covers venues correcting a settlement.
func (s *OutcomeStore) Upsert(ctx context.Context, o domain.Outcome) error {
	const query = `
		INSERT INTO outcomes (event_id, contract_ticker, result, resolved_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id) DO UPDATE SET
			result = EXCLUDED.result,
			resolved_at = EXCLUDED.resolved_at`

	_, err := s.pool.Exec(ctx, query, o.EventID, o.ContractTicker, o.Result, o.ResolvedAt)
	if err != nil {
		return fmt.Errorf("postgres: upsert outcome %s: %w", o.EventID, err)
	}
	return nil
}

// GetByEvent returns the outcome for one event.
func (s *OutcomeStore) GetByEvent(ctx context.Context, eventID string) (domain.Outcome, error) {
	const query = `SELECT event_id, contract_ticker, result, resolved_at FROM outcomes WHERE event_id = $1`

	var o domain.Outcome
	err := s.pool.QueryRow(ctx, query, eventID).Scan(
		&o.EventID, &o.ContractTicker, &o.Result, &o.ResolvedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Outcome{}, fmt.Errorf("postgres: outcome %s: %w", eventID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("postgres: get outcome %s: %w", eventID, err)
	}
	return o, nil
}

// ListUnresolvedEvents returns event IDs that have snapshots captured before
// the given time but no recorded outcome yet.
func (s *OutcomeStore) ListUnresolvedEvents(ctx context.Context, before time.Time) ([]string, error) {
	const query = `
		SELECT DISTINCT f.event_id
		FROM forecast_snapshots f
		LEFT JOIN outcomes o ON o.event_id = f.event_id
		WHERE o.event_id IS NULL AND f.captured_at < $1
		ORDER BY f.event_id`

	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list unresolved events: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: scan unresolved event: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: unresolved events rows: %w", err)
	}
	return out, nil
}

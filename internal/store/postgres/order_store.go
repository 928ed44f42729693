package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/galebot/galebot/internal/domain"
)

// OrderStore implements domain.OrderStore using PostgreSQL.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore creates a new OrderStore backed by the given connection pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

var _ domain.OrderStore = (*OrderStore)(nil)

// Insert records a paper order. The embedded signal is flattened into the
// row so the ledger reads without joins.
func (s *OrderStore) Insert(ctx context.Context, o domain.PaperOrder) error {
	const query = `
		INSERT INTO paper_orders (
			id, signal_id, event_id, contract_ticker, side,
			forecast_probability, market_probability, edge, expected_value,
			fraction, notional, cap_applied, sizing_rejected, placed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := s.pool.Exec(ctx, query,
		o.ID, o.Signal.ID, o.Signal.EventID, o.Signal.ContractTicker, string(o.Side),
		o.Signal.ForecastProbability, o.Signal.MarketProbability,
		o.Signal.Edge, o.Signal.ExpectedValue,
		o.Fraction, o.Notional, o.CapApplied, o.SizingRejected, o.PlacedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert paper order %s: %w", o.ID, err)
	}
	return nil
}

// GetByID returns a single paper order.
func (s *OrderStore) GetByID(ctx context.Context, id string) (domain.PaperOrder, error) {
	query := `SELECT ` + orderSelectCols + ` FROM paper_orders WHERE id = $1`

	o, err := scanOrderFromRow(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PaperOrder{}, fmt.Errorf("postgres: paper order %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.PaperOrder{}, fmt.Errorf("postgres: get paper order %s: %w", id, err)
	}
	return o, nil
}

// ListByEvent returns paper orders for one event, newest first.
func (s *OrderStore) ListByEvent(ctx context.Context, eventID string, opts domain.ListOpts) ([]domain.PaperOrder, error) {
	query := `SELECT ` + orderSelectCols + ` FROM paper_orders WHERE event_id = $1 ORDER BY placed_at DESC`
	args := []any{eventID}
	query, args = paginate(query, args, opts)

	return s.listOrders(ctx, query, args)
}

// ListRecent returns the most recently placed paper orders.
func (s *OrderStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.PaperOrder, error) {
	query := `SELECT ` + orderSelectCols + ` FROM paper_orders ORDER BY placed_at DESC`
	query, args := paginate(query, nil, opts)

	return s.listOrders(ctx, query, args)
}

const orderSelectCols = `id, signal_id, event_id, contract_ticker, side,
	forecast_probability, market_probability, edge, expected_value,
	fraction, notional, cap_applied, sizing_rejected, placed_at`

func (s *OrderStore) listOrders(ctx context.Context, query string, args []any) ([]domain.PaperOrder, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list paper orders: %w", err)
	}
	defer rows.Close()

	var out []domain.PaperOrder
	for rows.Next() {
		o, err := scanOrderFromRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan paper order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list paper orders rows: %w", err)
	}
	return out, nil
}

func scanOrderFromRow(scanner interface{ Scan(dest ...any) error }) (domain.PaperOrder, error) {
	var o domain.PaperOrder
	var side string

	err := scanner.Scan(
		&o.ID, &o.Signal.ID, &o.Signal.EventID, &o.Signal.ContractTicker, &side,
		&o.Signal.ForecastProbability, &o.Signal.MarketProbability,
		&o.Signal.Edge, &o.Signal.ExpectedValue,
		&o.Fraction, &o.Notional, &o.CapApplied, &o.SizingRejected, &o.PlacedAt,
	)
	if err != nil {
		return domain.PaperOrder{}, err
	}
	o.Side = domain.Decision(side)
	o.Signal.Decision = o.Side
	return o, nil
}

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

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

var _ domain.MarketStore = (*MarketStore)(nil)

// Upsert inserts the market or refreshes its mutable fields by slug.
func (s *MarketStore) Upsert(ctx context.Context, m domain.WeatherMarket) error {
	const query = `
		INSERT INTO weather_markets (
			slug, condition_id, question, event_title, variable, city_label,
			event_date, threshold_value, threshold_unit, yes_label,
			volume, liquidity, last_seen_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (slug) DO UPDATE SET
			question = EXCLUDED.question,
			event_title = EXCLUDED.event_title,
			volume = EXCLUDED.volume,
			liquidity = EXCLUDED.liquidity,
			last_seen_at = EXCLUDED.last_seen_at`

	_, err := s.pool.Exec(ctx, query,
		m.Slug, m.ConditionID, m.Question, m.EventTitle, string(m.Variable),
		m.CityLabel, m.EventDate, m.ThresholdValue, m.ThresholdUnit, m.YesLabel,
		m.Volume, m.Liquidity, m.LastSeenAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert market %s: %w", m.Slug, err)
	}
	return nil
}

// GetBySlug returns a single market by its slug.
func (s *MarketStore) GetBySlug(ctx context.Context, slug string) (domain.WeatherMarket, error) {
	query := `SELECT ` + marketSelectCols + ` FROM weather_markets WHERE slug = $1`

	m, err := scanMarketFromRow(s.pool.QueryRow(ctx, query, slug))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.WeatherMarket{}, fmt.Errorf("postgres: market %s: %w", slug, domain.ErrNotFound)
	}
	if err != nil {
		return domain.WeatherMarket{}, fmt.Errorf("postgres: get market %s: %w", slug, err)
	}
	return m, nil
}

// ListByEventDate returns markets whose event falls on the given date.
func (s *MarketStore) ListByEventDate(ctx context.Context, date time.Time, opts domain.ListOpts) ([]domain.WeatherMarket, error) {
	query := `SELECT ` + marketSelectCols + ` FROM weather_markets WHERE event_date = $1 ORDER BY slug`
	args := []any{date}
	query, args = paginate(query, args, opts)

	return s.listMarkets(ctx, query, args)
}

// ListActive returns markets seen by a universe scan since the given time.
func (s *MarketStore) ListActive(ctx context.Context, since time.Time, opts domain.ListOpts) ([]domain.WeatherMarket, error) {
	query := `SELECT ` + marketSelectCols + ` FROM weather_markets WHERE last_seen_at >= $1 ORDER BY event_date, slug`
	args := []any{since}
	query, args = paginate(query, args, opts)

	return s.listMarkets(ctx, query, args)
}

const marketSelectCols = `slug, condition_id, question, event_title, variable, city_label,
	event_date, threshold_value, threshold_unit, yes_label, volume, liquidity, last_seen_at`

func (s *MarketStore) listMarkets(ctx context.Context, query string, args []any) ([]domain.WeatherMarket, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()

	var out []domain.WeatherMarket
	for rows.Next() {
		m, err := scanMarketFromRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list markets rows: %w", err)
	}
	return out, nil
}

func scanMarketFromRow(scanner interface{ Scan(dest ...any) error }) (domain.WeatherMarket, error) {
	var m domain.WeatherMarket
	var variable string

	err := scanner.Scan(
		&m.Slug, &m.ConditionID, &m.Question, &m.EventTitle, &variable,
		&m.CityLabel, &m.EventDate, &m.ThresholdValue, &m.ThresholdUnit,
		&m.YesLabel, &m.Volume, &m.Liquidity, &m.LastSeenAt,
	)
	if err != nil {
		return domain.WeatherMarket{}, err
	}
	m.Variable = domain.Variable(variable)
	return m, nil
}

// paginate appends LIMIT/OFFSET clauses for the shared list options.
func paginate(query string, args []any, opts domain.ListOpts) (string, []any) {
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}

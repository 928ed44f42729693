package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galebot/galebot/internal/domain"
	"github.com/galebot/galebot/internal/market"
	"github.com/galebot/galebot/internal/platform/polymarket"
	"github.com/galebot/galebot/internal/risk"
	"github.com/galebot/galebot/internal/strategy"
	"github.com/galebot/galebot/internal/universe"
)

// ---------------------------------------------------------------------------
// In-memory fakes shared by the service tests.
// ---------------------------------------------------------------------------

type memMarketStore struct {
	markets map[string]domain.WeatherMarket
}

func newMemMarketStore() *memMarketStore {
	return &memMarketStore{markets: make(map[string]domain.WeatherMarket)}
}

func (m *memMarketStore) Upsert(ctx context.Context, wm domain.WeatherMarket) error {
	m.markets[wm.Slug] = wm
	return nil
}

func (m *memMarketStore) GetBySlug(ctx context.Context, slug string) (domain.WeatherMarket, error) {
	wm, ok := m.markets[slug]
	if !ok {
		return domain.WeatherMarket{}, domain.ErrNotFound
	}
	return wm, nil
}

func (m *memMarketStore) ListByEventDate(ctx context.Context, date time.Time, opts domain.ListOpts) ([]domain.WeatherMarket, error) {
	var out []domain.WeatherMarket
	for _, wm := range m.markets {
		if wm.EventDate.Equal(date) {
			out = append(out, wm)
		}
	}
	return out, nil
}

func (m *memMarketStore) ListActive(ctx context.Context, since time.Time, opts domain.ListOpts) ([]domain.WeatherMarket, error) {
	var out []domain.WeatherMarket
	for _, wm := range m.markets {
		if !wm.LastSeenAt.Before(since) {
			out = append(out, wm)
		}
	}
	return out, nil
}

type memSnapshotStore struct {
	records []domain.SnapshotRecord
}

func (m *memSnapshotStore) Insert(ctx context.Context, s domain.SnapshotRecord) error {
	m.records = append(m.records, s)
	return nil
}

func (m *memSnapshotStore) ListByEvent(ctx context.Context, eventID string, opts domain.ListOpts) ([]domain.SnapshotRecord, error) {
	var out []domain.SnapshotRecord
	for _, r := range m.records {
		if r.EventID == eventID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memSnapshotStore) ListJoined(ctx context.Context, from, to time.Time) ([]domain.BacktestRow, error) {
	return nil, nil
}

type memOrderStore struct {
	orders []domain.PaperOrder
}

func (m *memOrderStore) Insert(ctx context.Context, o domain.PaperOrder) error {
	m.orders = append(m.orders, o)
	return nil
}

func (m *memOrderStore) GetByID(ctx context.Context, id string) (domain.PaperOrder, error) {
	for _, o := range m.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return domain.PaperOrder{}, domain.ErrNotFound
}

func (m *memOrderStore) ListByEvent(ctx context.Context, eventID string, opts domain.ListOpts) ([]domain.PaperOrder, error) {
	return m.orders, nil
}

func (m *memOrderStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.PaperOrder, error) {
	return m.orders, nil
}

type memAuditStore struct {
	entries []domain.AuditEntry
}

func (m *memAuditStore) Append(ctx context.Context, e domain.AuditEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *memAuditStore) ListByEvent(ctx context.Context, eventID string, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	return m.entries, nil
}

func (m *memAuditStore) stages() []string {
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Stage)
	}
	return out
}

type memQuoteCache struct {
	quotes  map[string]domain.MarketQuote
	deletes int
}

func newMemQuoteCache() *memQuoteCache {
	return &memQuoteCache{quotes: make(map[string]domain.MarketQuote)}
}

func (m *memQuoteCache) SetQuote(ctx context.Context, q domain.MarketQuote, ttl time.Duration) error {
	m.quotes[q.Venue+":"+q.ContractTicker] = q
	return nil
}

func (m *memQuoteCache) GetQuote(ctx context.Context, venue, ticker string) (domain.MarketQuote, error) {
	q, ok := m.quotes[venue+":"+ticker]
	if !ok {
		return domain.MarketQuote{}, domain.ErrNotFound
	}
	return q, nil
}

func (m *memQuoteCache) DeleteQuote(ctx context.Context, venue, ticker string) error {
	delete(m.quotes, venue+":"+ticker)
	m.deletes++
	return nil
}

type fakeQuoter struct {
	quote domain.MarketQuote
	err   error
	calls int
}

func (f *fakeQuoter) Quote(ctx context.Context, slug, yesLabel string) (domain.MarketQuote, error) {
	f.calls++
	if f.err != nil {
		return domain.MarketQuote{}, f.err
	}
	return f.quote, nil
}

type fakeForecaster struct {
	probability float64
	members     int
	err         error
}

func (f *fakeForecaster) Forecast(ctx context.Context, spec domain.EventSpec) (domain.ForecastSnapshot, error) {
	if f.err != nil {
		return domain.ForecastSnapshot{}, f.err
	}
	return domain.ForecastSnapshot{
		EventID:     spec.ID(),
		Model:       "NOAA_GEFS",
		Probability: f.probability,
		MemberCount: f.members,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func nycCity() universe.City {
	return universe.City{
		Label:    "NYC",
		Name:     "New York",
		Aliases:  []string{"New York City"},
		Lat:      40.7128,
		Lon:      -74.006,
		Timezone: "America/New_York",
	}
}

func testWeatherMarket() domain.WeatherMarket {
	return domain.WeatherMarket{
		Slug:           "highest-temperature-in-nyc-august-28",
		ConditionID:    "0xabc",
		Question:       "Will the highest temperature in NYC on August 28 be 95°F or higher?",
		Variable:       domain.VariableTempMax,
		CityLabel:      "NYC",
		EventDate:      time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
		ThresholdValue: 95,
		ThresholdUnit:  "F",
		YesLabel:       "Yes",
		Volume:         12_000,
		LastSeenAt:     time.Now().UTC(),
	}
}

func newTestSignalService(quoter Quoter, forecaster Forecaster) (*SignalService, *memSnapshotStore, *memOrderStore, *memAuditStore, *memQuoteCache) {
	snaps := &memSnapshotStore{}
	orders := &memOrderStore{}
	audit := &memAuditStore{}
	cache := newMemQuoteCache()
	session, err := risk.NewBankrollSession(10_000)
	if err != nil {
		panic(err)
	}

	svc := NewSignalService(SignalServiceConfig{
		Markets:    newMemMarketStore(),
		Snapshots:  snaps,
		Orders:     orders,
		Audit:      audit,
		Quotes:     cache,
		Venue:      quoter,
		Forecaster: forecaster,
		Normalizer: market.NewNormalizer(10 * time.Minute),
		Strategy:   strategy.NewEngine(strategy.Config{MinEdge: 0.10, MinEV: 0.0}),
		Session:    session,
		Risk:       risk.NewEngine(risk.Config{KellyFraction: 0.25, PerContractCap: 0.02}),
		Cities:     []universe.City{nycCity()},
		Staleness:  10 * time.Minute,
		Logger:     testLogger(),
	})
	return svc, snaps, orders, audit, cache
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestEvaluateMarketBuyYesEndToEnd(t *testing.T) {
	wm := testWeatherMarket()
	quoter := &fakeQuoter{quote: domain.MarketQuote{
		Venue:          polymarket.Venue,
		ContractTicker: wm.Slug,
		Price:          0.60,
		FetchedAt:      time.Now().UTC(),
	}}
	svc, snaps, orders, audit, _ := newTestSignalService(quoter, &fakeForecaster{probability: 0.84, members: 50})

	sig, order, err := svc.EvaluateMarket(context.Background(), wm)
	require.NoError(t, err)

	assert.Equal(t, domain.DecisionBuyYes, sig.Decision)
	assert.InDelta(t, 0.24, sig.Edge, 1e-12)

	require.NotNil(t, order)
	assert.InDelta(t, 200.0, order.Notional, 1e-9)
	assert.True(t, order.CapApplied)
	assert.False(t, order.SizingRejected)

	require.Len(t, snaps.records, 1)
	assert.Equal(t, 0.84, snaps.records[0].ForecastProbability)
	assert.Equal(t, 0.60, snaps.records[0].MarketProbability)

	require.Len(t, orders.orders, 1)
	assert.Contains(t, audit.stages(), "signal")
	assert.Contains(t, audit.stages(), "size")
}

func TestEvaluateMarketNoTradeProducesNoOrder(t *testing.T) {
	wm := testWeatherMarket()
	quoter := &fakeQuoter{quote: domain.MarketQuote{
		Venue:          polymarket.Venue,
		ContractTicker: wm.Slug,
		Price:          0.45,
		FetchedAt:      time.Now().UTC(),
	}}
	svc, snaps, orders, audit, _ := newTestSignalService(quoter, &fakeForecaster{probability: 0.50, members: 50})

	sig, order, err := svc.EvaluateMarket(context.Background(), wm)
	require.NoError(t, err)

	assert.Equal(t, domain.DecisionNoTrade, sig.Decision)
	assert.Equal(t, strategy.RationaleEdgeBelowMinimum, sig.Rationale)
	assert.Nil(t, order)
	assert.Empty(t, orders.orders)
	// The snapshot and the audit row are still written for a NO_TRADE.
	assert.Len(t, snaps.records, 1)
	assert.Contains(t, audit.stages(), "signal")
}

func TestEvaluateMarketRejectsStaleQuote(t *testing.T) {
	wm := testWeatherMarket()
	quoter := &fakeQuoter{quote: domain.MarketQuote{
		Venue:          polymarket.Venue,
		ContractTicker: wm.Slug,
		Price:          0.60,
		FetchedAt:      time.Now().UTC().Add(-time.Hour),
	}}
	svc, snaps, orders, audit, cache := newTestSignalService(quoter, &fakeForecaster{probability: 0.84, members: 50})

	_, _, err := svc.EvaluateMarket(context.Background(), wm)
	require.ErrorIs(t, err, domain.ErrStaleQuote)

	assert.Empty(t, snaps.records)
	assert.Empty(t, orders.orders)
	assert.Contains(t, audit.stages(), "normalize")
	assert.Equal(t, 1, cache.deletes)
}

func TestEvaluateMarketUsesCachedQuote(t *testing.T) {
	wm := testWeatherMarket()
	quoter := &fakeQuoter{quote: domain.MarketQuote{
		Venue:          polymarket.Venue,
		ContractTicker: wm.Slug,
		Price:          0.60,
		FetchedAt:      time.Now().UTC(),
	}}
	svc, _, _, _, _ := newTestSignalService(quoter, &fakeForecaster{probability: 0.84, members: 50})

	_, _, err := svc.EvaluateMarket(context.Background(), wm)
	require.NoError(t, err)
	_, _, err = svc.EvaluateMarket(context.Background(), wm)
	require.NoError(t, err)

	assert.Equal(t, 1, quoter.calls)
}

func TestEvaluateMarketUnknownCity(t *testing.T) {
	wm := testWeatherMarket()
	wm.CityLabel = "ATLANTIS"
	svc, _, _, _, _ := newTestSignalService(&fakeQuoter{}, &fakeForecaster{})

	_, _, err := svc.EvaluateMarket(context.Background(), wm)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown city")
}

func TestRunOnceCountsTradable(t *testing.T) {
	wm := testWeatherMarket()
	quoter := &fakeQuoter{quote: domain.MarketQuote{
		Venue:          polymarket.Venue,
		ContractTicker: wm.Slug,
		Price:          0.60,
		FetchedAt:      time.Now().UTC(),
	}}
	svc, _, _, _, _ := newTestSignalService(quoter, &fakeForecaster{probability: 0.84, members: 50})
	require.NoError(t, svc.markets.Upsert(context.Background(), wm))

	tradable, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, tradable)
}

package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galebot/galebot/internal/domain"
)

func fixedNormalizer(staleness time.Duration, now time.Time) *Normalizer {
	n := NewNormalizer(staleness)
	n.now = func() time.Time { return now }
	return n
}

func f64(v float64) *float64 { return &v }

func TestNormalizeLastPrice(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	n := fixedNormalizer(10*time.Minute, now)

	p, err := n.Normalize(domain.MarketQuote{
		Venue: "polymarket", ContractTicker: "nyc-85f", Price: 0.62,
		FetchedAt: now.Add(-time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, 0.62, p)
}

func TestNormalizeMidpoint(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	n := fixedNormalizer(10*time.Minute, now)

	p, err := n.Normalize(domain.MarketQuote{
		Venue: "kalshi", ContractTicker: "HIGHNY-26AUG26-T85", Price: 0.99,
		YesBid: f64(0.58), YesAsk: f64(0.62),
		FetchedAt: now.Add(-time.Minute),
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.60, p, 1e-12)
}

func TestNormalizeStaleQuote(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	n := fixedNormalizer(10*time.Minute, now)

	_, err := n.Normalize(domain.MarketQuote{
		Venue: "kalshi", ContractTicker: "HIGHNY-26AUG26-T85", Price: 0.60,
		FetchedAt: now.Add(-11 * time.Minute),
	})
	assert.ErrorIs(t, err, domain.ErrStaleQuote)
}

func TestNormalizeExactlyAtWindowIsFresh(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	n := fixedNormalizer(10*time.Minute, now)

	_, err := n.Normalize(domain.MarketQuote{
		Venue: "kalshi", ContractTicker: "T", Price: 0.5,
		FetchedAt: now.Add(-10 * time.Minute),
	})
	assert.NoError(t, err)
}

func TestNormalizeInvalidPrice(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	n := fixedNormalizer(10*time.Minute, now)

	for _, price := range []float64{-0.01, 1.01, 60.0} {
		_, err := n.Normalize(domain.MarketQuote{
			Venue: "kalshi", ContractTicker: "T", Price: price,
			FetchedAt: now,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidPrice, "price %v", price)
	}
}

func TestNormalizeBoundaryPricesValid(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	n := fixedNormalizer(10*time.Minute, now)

	for _, price := range []float64{0.0, 1.0} {
		p, err := n.Normalize(domain.MarketQuote{
			Venue: "polymarket", ContractTicker: "T", Price: price,
			FetchedAt: now,
		})
		require.NoError(t, err)
		assert.Equal(t, price, p)
	}
}

func TestNormalizeStalenessCheckedBeforePrice(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	n := fixedNormalizer(10*time.Minute, now)

	_, err := n.Normalize(domain.MarketQuote{
		Venue: "kalshi", ContractTicker: "T", Price: 2.0,
		FetchedAt: now.Add(-time.Hour),
	})
	assert.ErrorIs(t, err, domain.ErrStaleQuote)
}

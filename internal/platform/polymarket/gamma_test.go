package polymarket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galebot/galebot/internal/domain"
)

const marketJSON = `[{
  "id": "501234",
  "slug": "nyc-high-temp-above-85-on-august-26",
  "conditionId": "0xabc123",
  "question": "Will the high temperature in NYC exceed 85F on August 26?",
  "outcomes": "[\"Yes\", \"No\"]",
  "outcomePrices": "[\"0.62\", \"0.38\"]",
  "volume": "15432.10",
  "liquidity": "8000.55",
  "endDate": "2026-08-27T00:00:00Z",
  "active": true,
  "closed": false
}]`

func TestQuoteFromOutcomePrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "nyc-high-temp-above-85-on-august-26", r.URL.Query().Get("slug"))
		w.Write([]byte(marketJSON))
	}))
	defer srv.Close()

	g := NewGammaClient(srv.URL)
	g.now = func() time.Time { return time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC) }

	q, err := g.Quote(context.Background(), "nyc-high-temp-above-85-on-august-26", "")
	require.NoError(t, err)

	assert.Equal(t, Venue, q.Venue)
	assert.Equal(t, "nyc-high-temp-above-85-on-august-26", q.ContractTicker)
	assert.Equal(t, 0.62, q.Price)
	assert.Nil(t, q.YesBid)
	assert.Equal(t, time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC), q.FetchedAt)
}

func TestQuoteUnknownSlug(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := NewGammaClient(srv.URL).Quote(context.Background(), "nope", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestYesPriceMatchingIsCaseInsensitive(t *testing.T) {
	m := APIMarket{
		Slug:          "s",
		Outcomes:      `["YES ", "No"]`,
		OutcomePrices: `["0.3", "0.7"]`,
	}
	p, err := m.YesPrice("yes")
	require.NoError(t, err)
	assert.Equal(t, 0.3, p)
}

func TestYesPriceLengthMismatch(t *testing.T) {
	m := APIMarket{
		Slug:          "s",
		Outcomes:      `["Yes", "No"]`,
		OutcomePrices: `["0.3"]`,
	}
	_, err := m.YesPrice("Yes")
	assert.Error(t, err)
}

func TestYesPriceUnknownLabel(t *testing.T) {
	m := APIMarket{
		Slug:          "s",
		Outcomes:      `["Over", "Under"]`,
		OutcomePrices: `["0.3", "0.7"]`,
	}
	_, err := m.YesPrice("Yes")
	assert.Error(t, err)
}

func TestGetResolutionFromTokens(t *testing.T) {
	body := `[{
	  "slug": "s",
	  "closed": true,
	  "outcomes": "[\"Yes\", \"No\"]",
	  "outcomePrices": "[\"1\", \"0\"]",
	  "tokens": [{"outcome": "Yes", "winner": true}, {"outcome": "No", "winner": false}]
	}]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	res, err := NewGammaClient(srv.URL).GetResolution(context.Background(), "s")
	require.NoError(t, err)
	assert.True(t, res.Closed)
	assert.True(t, res.YesWon)
}

func TestGetResolutionFallsBackToSettledPrice(t *testing.T) {
	body := `[{
	  "slug": "s",
	  "closed": true,
	  "outcomes": "[\"Yes\", \"No\"]",
	  "outcomePrices": "[\"0.01\", \"0.99\"]"
	}]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	res, err := NewGammaClient(srv.URL).GetResolution(context.Background(), "s")
	require.NoError(t, err)
	assert.True(t, res.Closed)
	assert.False(t, res.YesWon)
}

func TestVolumeLiquidityParsing(t *testing.T) {
	m := APIMarket{Volume: "15432.10", Liquidity: "bad"}
	assert.Equal(t, 15432.10, m.VolumeFloat())
	assert.Equal(t, 0.0, m.LiquidityFloat())
}

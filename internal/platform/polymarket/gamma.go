package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/galebot/galebot/internal/domain"
)

// Venue is the venue label stamped on quotes from this client.
const Venue = "polymarket"

// DefaultBaseURL is the Gamma API root.
const DefaultBaseURL = "https://gamma-api.polymarket.com"

// DefaultYesLabel is the outcome label treated as the YES side.
const DefaultYesLabel = "Yes"

// GammaClient is the REST client for the Polymarket Gamma API, which
// provides market discovery, metadata, and prices. No authentication.
type GammaClient struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// NewGammaClient creates a new Gamma API client.
func NewGammaClient(baseURL string) *GammaClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &GammaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
	}
}

// GetMarkets returns a paginated list of markets.
func (g *GammaClient) GetMarkets(ctx context.Context, limit, offset int) ([]APIMarket, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	body, err := g.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: get markets: %w", err)
	}

	var markets []APIMarket
	if err := json.Unmarshal(body, &markets); err != nil {
		return nil, fmt.Errorf("polymarket/gamma: decode markets: %w", err)
	}
	return markets, nil
}

// GetMarketBySlug returns a single market looked up by its URL slug.
func (g *GammaClient) GetMarketBySlug(ctx context.Context, slug string) (APIMarket, error) {
	params := url.Values{}
	params.Set("slug", slug)

	body, err := g.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return APIMarket{}, fmt.Errorf("polymarket/gamma: get market by slug %s: %w", slug, err)
	}

	var markets []APIMarket
	if err := json.Unmarshal(body, &markets); err != nil {
		return APIMarket{}, fmt.Errorf("polymarket/gamma: decode markets: %w", err)
	}
	if len(markets) == 0 {
		return APIMarket{}, fmt.Errorf("polymarket/gamma: slug=%s: %w", slug, domain.ErrNotFound)
	}
	return markets[0], nil
}

// Quote fetches a market by slug and reduces it to a venue quote using the
// price of the outcome matching yesLabel. Gamma has no order book on this
// surface, so the quote carries no bid/ask.
func (g *GammaClient) Quote(ctx context.Context, slug, yesLabel string) (domain.MarketQuote, error) {
	if yesLabel == "" {
		yesLabel = DefaultYesLabel
	}
	m, err := g.GetMarketBySlug(ctx, slug)
	if err != nil {
		return domain.MarketQuote{}, err
	}
	price, err := m.YesPrice(yesLabel)
	if err != nil {
		return domain.MarketQuote{}, err
	}
	return domain.MarketQuote{
		Venue:          Venue,
		ContractTicker: m.Slug,
		EventTicker:    m.ConditionID,
		Title:          m.Question,
		Price:          price,
		FetchedAt:      g.now().UTC(),
	}, nil
}

// Resolution holds the settlement state of a market.
type Resolution struct {
	Closed bool
	YesWon bool // only meaningful when Closed
}

// GetResolution returns whether a market has closed and whether YES won,
// for outcome backfill on resolved weather events.
func (g *GammaClient) GetResolution(ctx context.Context, slug string) (Resolution, error) {
	m, err := g.GetMarketBySlug(ctx, slug)
	if err != nil {
		return Resolution{}, err
	}
	res := Resolution{Closed: m.Closed}
	for _, t := range m.Tokens {
		if strings.EqualFold(t.Outcome, DefaultYesLabel) && t.Winner {
			res.YesWon = true
			break
		}
	}
	// Tokens are not always populated; fall back to the settled YES price.
	if res.Closed && len(m.Tokens) == 0 {
		if price, err := m.YesPrice(DefaultYesLabel); err == nil {
			res.YesWon = price > 0.5
		}
	}
	return res, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doGet sends an unauthenticated GET request to the Gamma API.
func (g *GammaClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

package kalshi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/galebot/galebot/internal/domain"
)

// Venue is the venue label stamped on quotes from this client.
const Venue = "kalshi"

// DefaultBaseURL is the public market-data API root. Market-data endpoints
// need no authentication.
const DefaultBaseURL = "https://api.elections.kalshi.com/trade-api/v2"

// Client is the REST client for the Kalshi public market-data API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a new Kalshi market-data client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
	}
}

// MarketsQuery filters a market listing.
type MarketsQuery struct {
	SeriesTicker string
	EventTicker  string
	Status       string // e.g. "open", "settled"
	Limit        int
	Cursor       string
}

// GetMarkets returns one page of markets plus the cursor for the next page.
// An empty cursor means the listing is exhausted.
func (c *Client) GetMarkets(ctx context.Context, q MarketsQuery) ([]Market, string, error) {
	params := url.Values{}
	if q.SeriesTicker != "" {
		params.Set("series_ticker", q.SeriesTicker)
	}
	if q.EventTicker != "" {
		params.Set("event_ticker", q.EventTicker)
	}
	if q.Status != "" {
		params.Set("status", q.Status)
	}
	if q.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", q.Limit))
	}
	if q.Cursor != "" {
		params.Set("cursor", q.Cursor)
	}

	path := "/markets"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	body, err := c.doGet(ctx, path)
	if err != nil {
		return nil, "", fmt.Errorf("kalshi: get markets: %w", err)
	}

	var resp struct {
		Markets []Market `json:"markets"`
		Cursor  string   `json:"cursor"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, "", fmt.Errorf("kalshi: decode markets: %w", err)
	}

	return resp.Markets, resp.Cursor, nil
}

// GetMarket returns a single market by its ticker.
func (c *Client) GetMarket(ctx context.Context, ticker string) (Market, error) {
	path := fmt.Sprintf("/markets/%s", url.PathEscape(ticker))

	body, err := c.doGet(ctx, path)
	if err != nil {
		return Market{}, fmt.Errorf("kalshi: get market %s: %w", ticker, err)
	}

	var resp struct {
		Market Market `json:"market"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return Market{}, fmt.Errorf("kalshi: decode market: %w", err)
	}

	return resp.Market, nil
}

// Quote fetches a market and reduces it to a venue quote. Bid and ask are
// attached when both sides are nonzero; the quote's price is the last trade
// price. All prices are normalized to probabilities in [0,1].
func (c *Client) Quote(ctx context.Context, ticker string) (domain.MarketQuote, error) {
	m, err := c.GetMarket(ctx, ticker)
	if err != nil {
		return domain.MarketQuote{}, err
	}
	return c.quoteFromMarket(m), nil
}

func (c *Client) quoteFromMarket(m Market) domain.MarketQuote {
	q := domain.MarketQuote{
		Venue:          Venue,
		ContractTicker: m.Ticker,
		EventTicker:    m.EventTicker,
		Title:          m.Title,
		Price:          NormalizePrice(m.LastPrice),
		FetchedAt:      c.now().UTC(),
	}
	if m.YesBid > 0 && m.YesAsk > 0 {
		bid := NormalizePrice(m.YesBid)
		ask := NormalizePrice(m.YesAsk)
		q.YesBid = &bid
		q.YesAsk = &ask
	}
	return q
}

// NormalizePrice maps a Kalshi price to a probability. The REST API reports
// cents while the quote model wants [0,1]; anything above 1 is treated as
// cents.
func NormalizePrice(v float64) float64 {
	if v > 1 {
		return v / 100
	}
	return v
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doGet builds, sends, and reads an unauthenticated GET request.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	fullURL := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := c.checkStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}

	return respBody, nil
}

// checkStatus maps non-2xx HTTP status codes to appropriate errors.
func (c *Client) checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var apiErr ErrorResponse
	_ = json.Unmarshal(body, &apiErr)

	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("kalshi: %s (%s): %w", apiErr.Message, apiErr.Code, domain.ErrNotFound)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("kalshi: unauthorized: %s (%s)", apiErr.Message, apiErr.Code)
	case http.StatusTooManyRequests:
		return fmt.Errorf("kalshi: rate limited: %s (%s)", apiErr.Message, apiErr.Code)
	case http.StatusBadRequest:
		return fmt.Errorf("kalshi: bad request: %s (%s)", apiErr.Message, apiErr.Code)
	default:
		return fmt.Errorf("kalshi: HTTP %d: %s (%s)", statusCode, apiErr.Message, apiErr.Code)
	}
}

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/galebot/galebot/internal/domain"
)

// QuoteCache implements domain.QuoteCache using Redis string values. Each
// quote is stored as JSON at "quote:{venue}:{ticker}" with a TTL equal to
// the staleness window, so an expired key and a stale quote are the same
// thing.
type QuoteCache struct {
	rdb *redis.Client
}

// NewQuoteCache creates a QuoteCache backed by the given Client.
func NewQuoteCache(c *Client) *QuoteCache {
	return &QuoteCache{rdb: c.Underlying()}
}

var _ domain.QuoteCache = (*QuoteCache)(nil)

func quoteKey(venue, ticker string) string {
	return "quote:" + venue + ":" + ticker
}

// SetQuote stores the quote with the given TTL.
func (qc *QuoteCache) SetQuote(ctx context.Context, q domain.MarketQuote, ttl time.Duration) error {
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("redis: marshal quote %s: %w", q.ContractTicker, err)
	}
	if err := qc.rdb.Set(ctx, quoteKey(q.Venue, q.ContractTicker), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set quote %s: %w", q.ContractTicker, err)
	}
	return nil
}

// GetQuote retrieves a cached quote. It returns domain.ErrNotFound when the
// key is missing or has expired.
func (qc *QuoteCache) GetQuote(ctx context.Context, venue, ticker string) (domain.MarketQuote, error) {
	data, err := qc.rdb.Get(ctx, quoteKey(venue, ticker)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.MarketQuote{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.MarketQuote{}, fmt.Errorf("redis: get quote %s: %w", ticker, err)
	}

	var q domain.MarketQuote
	if err := json.Unmarshal(data, &q); err != nil {
		return domain.MarketQuote{}, fmt.Errorf("redis: unmarshal quote %s: %w", ticker, err)
	}
	return q, nil
}

// DeleteQuote removes a cached quote.
func (qc *QuoteCache) DeleteQuote(ctx context.Context, venue, ticker string) error {
	if err := qc.rdb.Del(ctx, quoteKey(venue, ticker)).Err(); err != nil {
		return fmt.Errorf("redis: delete quote %s: %w", ticker, err)
	}
	return nil
}

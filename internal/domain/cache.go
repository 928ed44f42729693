package domain

import (
	"context"
	"time"
)

// QuoteCache is a short-lived cache of venue quotes. Entries expire at the
// staleness window, so a cache hit is by construction a fresh quote.
type QuoteCache interface {
	SetQuote(ctx context.Context, q MarketQuote, ttl time.Duration) error
	GetQuote(ctx context.Context, venue, ticker string) (MarketQuote, error)
	DeleteQuote(ctx context.Context, venue, ticker string) error
}

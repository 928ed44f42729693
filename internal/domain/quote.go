package domain

import "time"

// MarketQuote is a venue-reported price for a binary contract, interpreted as
// the market's implied YES probability. Price must be validated against the
// unit interval and the staleness window before it feeds a signal; the
// Normalizer owns those checks.
type MarketQuote struct {
	Venue          string // "kalshi" or "polymarket"
	ContractTicker string
	EventTicker    string
	Title          string
	Price          float64  // implied YES probability in [0,1]
	YesBid         *float64 // optional best bid, same scale as Price
	YesAsk         *float64 // optional best ask
	FetchedAt      time.Time
}

// Spread returns the bid/ask spread when both sides are quoted.
func (q MarketQuote) Spread() (float64, bool) {
	if q.YesBid == nil || q.YesAsk == nil {
		return 0, false
	}
	return *q.YesAsk - *q.YesBid, true
}

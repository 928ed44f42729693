package market

import (
	"fmt"
	"time"

	"github.com/galebot/galebot/internal/domain"
)

// Normalizer validates raw venue quotes and reduces them to a single implied
// YES probability. Venue clients hand quotes over as fetched; all gatekeeping
// on price validity and age happens here, in one place, for every venue.
type Normalizer struct {
	staleness time.Duration
	now       func() time.Time
}

// NewNormalizer returns a Normalizer that rejects quotes older than the given
// staleness window.
func NewNormalizer(staleness time.Duration) *Normalizer {
	return &Normalizer{staleness: staleness, now: time.Now}
}

// Normalize returns the market-implied YES probability of the quote.
//
// When both bid and ask are present the midpoint is used; otherwise the
// quote's last price stands. A probability outside [0,1] yields
// domain.ErrInvalidPrice; a quote older than the staleness window yields
// domain.ErrStaleQuote. Boundary prices 0 and 1 are valid here and left for
// downstream sizing to handle.
func (n *Normalizer) Normalize(q domain.MarketQuote) (float64, error) {
	age := n.now().Sub(q.FetchedAt)
	if age > n.staleness {
		return 0, fmt.Errorf("market: %s %s quote aged %s: %w",
			q.Venue, q.ContractTicker, age.Truncate(time.Second), domain.ErrStaleQuote)
	}
	p := q.Price
	if q.YesBid != nil && q.YesAsk != nil {
		p = (*q.YesBid + *q.YesAsk) / 2.0
	}
	if p < 0 || p > 1 {
		return 0, fmt.Errorf("market: %s %s price %.4f: %w",
			q.Venue, q.ContractTicker, p, domain.ErrInvalidPrice)
	}
	return p, nil
}

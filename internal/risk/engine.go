package risk

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/galebot/galebot/internal/domain"
)

// Price bounds applied before the Kelly computation. A binary contract priced
// at exactly 0 or 1 has a degenerate Kelly denominator; clamping keeps the
// formula finite while leaving any realistic price untouched.
const (
	minKellyPrice = 0.001
	maxKellyPrice = 0.999
)

// Config holds the position sizing parameters.
type Config struct {
	KellyFraction  float64 // multiplier on the full Kelly fraction, e.g. 0.25
	PerContractCap float64 // hard cap on bankroll fraction per contract, e.g. 0.02
}

// Engine sizes paper positions with fractional Kelly. Sizing never errors on
// an unattractive signal: a signal the formula rejects still produces an
// order, flagged SizingRejected with zero notional, so the decision is kept.
type Engine struct {
	cfg   Config
	now   func() time.Time
	newID func() string
}

// NewEngine returns a sizing engine with the given parameters.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:   cfg,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

// Size computes the stake for a tradable signal against the given bankroll.
//
// The full Kelly fraction for a side that wins with probability p at price q
// is (p - q) / (q * (1 - q)), with q clamped into [0.001, 0.999] first. The
// stake fraction is KellyFraction times that, floored at zero and capped at
// PerContractCap; the notional is fraction times bankroll and is never
// negative. A non-positive bankroll yields domain.ErrZeroBankroll; a
// NO_TRADE signal is a caller bug and errors outright.
func (e *Engine) Size(sig domain.Signal, bankroll float64) (domain.PaperOrder, error) {
	if !sig.Tradable() {
		return domain.PaperOrder{}, fmt.Errorf("risk: size %s: signal is %s", sig.EventID, sig.Decision)
	}
	if bankroll <= 0 {
		return domain.PaperOrder{}, fmt.Errorf("risk: size %s: bankroll %.2f: %w", sig.EventID, bankroll, domain.ErrZeroBankroll)
	}

	p := sig.SideProbability()
	q := ClampPrice(sig.SidePrice())

	fullKelly := (p - q) / (q * (1 - q))
	fraction := e.cfg.KellyFraction * fullKelly

	order := domain.PaperOrder{
		ID:       e.newID(),
		Signal:   sig,
		Side:     sig.Decision,
		PlacedAt: e.now().UTC(),
	}
	if fraction <= 0 {
		order.SizingRejected = true
		return order, nil
	}
	if fraction > e.cfg.PerContractCap {
		fraction = e.cfg.PerContractCap
		order.CapApplied = true
	}
	order.Fraction = fraction
	order.Notional = fraction * bankroll
	return order, nil
}

// ClampPrice bounds a side price into the sizing range. Settlement uses the
// same bounds so a position is always paid at the price it was sized at.
func ClampPrice(q float64) float64 {
	if q < minKellyPrice {
		return minKellyPrice
	}
	if q > maxKellyPrice {
		return maxKellyPrice
	}
	return q
}

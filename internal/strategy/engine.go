package strategy

import (
	"time"

	"github.com/google/uuid"

	"github.com/galebot/galebot/internal/domain"
)

// Rationales attached to signals; stable strings, consumed by the audit trail.
const (
	RationaleEdgeBelowMinimum       = "edge below minimum"
	RationaleEVBelowMinimum         = "EV below minimum"
	RationaleConfidenceBelowMinimum = "confidence below minimum"
	RationalePassedGates            = "edge and EV above minimums"
)

// Config holds the signal gates.
type Config struct {
	MinEdge float64 // minimum |forecast - market| to consider a trade
	MinEV   float64 // minimum per-unit-stake expected value for the chosen side

	// MinMembers gates unanimous forecasts. A probability of exactly 0 or 1
	// from a small ensemble says more about the sample size than the weather,
	// so it is not tradable unless at least this many members agree.
	// Zero disables the gate.
	MinMembers int
}

// Engine converts a (forecast probability, market probability) pair into a
// trade signal. Evaluation is pure: same inputs, same output, no venue or
// storage access. A signal is produced for every evaluation, including
// NO_TRADE, so that skipped opportunities stay explainable.
type Engine struct {
	cfg   Config
	now   func() time.Time
	newID func() string
}

// NewEngine returns a signal engine with the given gates.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:   cfg,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

// Evaluate gates a single opportunity.
//
// The signed edge is forecast minus market. A positive edge proposes buying
// YES, a negative edge buying NO, and an exactly zero edge is never a trade.
// A unanimous forecast from an ensemble smaller than MinMembers is rejected
// before the price gates. The candidate side must then clear both gates in
// order: |edge| >= MinEdge, then per-unit EV >= MinEV, where EV for the side
// with win probability p at price m is p*(1-m) - (1-p)*m. A blocked candidate
// yields a NO_TRADE signal whose rationale names the first gate that failed.
func (e *Engine) Evaluate(snap domain.ForecastSnapshot, contractTicker string, marketProb float64) domain.Signal {
	f := snap.Probability
	m := marketProb
	edge := f - m

	sig := domain.Signal{
		ID:                  e.newID(),
		EventID:             snap.EventID,
		ContractTicker:      contractTicker,
		ForecastProbability: f,
		MarketProbability:   m,
		Edge:                edge,
		Decision:            domain.DecisionNoTrade,
		MemberCount:         snap.MemberCount,
		CreatedAt:           e.now().UTC(),
	}

	if e.cfg.MinMembers > 0 && (f == 0 || f == 1) && snap.MemberCount < e.cfg.MinMembers {
		sig.Rationale = RationaleConfidenceBelowMinimum
		return sig
	}

	if edge == 0 || absEdge(edge) < e.cfg.MinEdge {
		sig.Rationale = RationaleEdgeBelowMinimum
		return sig
	}

	side := domain.DecisionBuyYes
	ev := expectedValue(f, m)
	if edge < 0 {
		side = domain.DecisionBuyNo
		ev = expectedValue(1-f, 1-m)
	}
	if ev < e.cfg.MinEV {
		sig.Rationale = RationaleEVBelowMinimum
		return sig
	}

	sig.Decision = side
	sig.ExpectedValue = ev
	sig.Rationale = RationalePassedGates
	return sig
}

// expectedValue is the per-unit-stake EV of holding the side that wins with
// probability p and costs price per unit: win pays 1-price, loss costs price.
func expectedValue(p, price float64) float64 {
	return p*(1-price) - (1-p)*price
}

func absEdge(edge float64) float64 {
	if edge < 0 {
		return -edge
	}
	return edge
}

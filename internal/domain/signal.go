package domain

import "time"

// Decision is the trade action a signal recommends.
type Decision string

const (
	DecisionBuyYes  Decision = "buy_yes"
	DecisionBuyNo   Decision = "buy_no"
	DecisionNoTrade Decision = "no_trade"
)

// Signal is the decision artifact produced for one (forecast, quote) pair.
// It is created once, never mutated, and always carries a rationale so that
// a NO_TRADE is as auditable as a trade.
type Signal struct {
	ID                  string // UUID
	EventID             string
	ContractTicker      string
	ForecastProbability float64
	MarketProbability   float64
	Edge                float64 // forecast - market, signed
	ExpectedValue       float64 // per-unit-stake EV for the chosen side; 0 for no_trade
	Decision            Decision
	Rationale           string // which gate fired or blocked
	MemberCount         int    // ensemble size behind the forecast probability
	CreatedAt           time.Time
}

// Tradable reports whether the signal recommends opening a position.
func (s Signal) Tradable() bool {
	return s.Decision == DecisionBuyYes || s.Decision == DecisionBuyNo
}

// SidePrice returns the market price of the chosen side: the YES price for
// buy_yes, its complement for buy_no.
func (s Signal) SidePrice() float64 {
	if s.Decision == DecisionBuyNo {
		return 1.0 - s.MarketProbability
	}
	return s.MarketProbability
}

// SideProbability returns the forecast probability of the chosen side winning.
func (s Signal) SideProbability() float64 {
	if s.Decision == DecisionBuyNo {
		return 1.0 - s.ForecastProbability
	}
	return s.ForecastProbability
}

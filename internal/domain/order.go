package domain

import "time"

// PaperOrder is a simulated position produced by the risk engine for an
// accepted signal. No real capital moves; the order exists for ledger and
// backtest purposes only.
//
// SizingRejected distinguishes "signal fired but the Kelly computation did
// not justify a position" from a signal that never fired: such orders carry
// a zero notional and must still be recorded.
type PaperOrder struct {
	ID             string // UUID
	Signal         Signal
	Side           Decision
	Fraction       float64 // fraction of bankroll staked, post-cap
	Notional       float64 // Fraction * bankroll at sizing time
	CapApplied     bool    // the per-contract cap bound the result
	SizingRejected bool    // Kelly fraction floored to zero
	PlacedAt       time.Time
}

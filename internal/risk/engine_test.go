package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galebot/galebot/internal/domain"
)

func buyYesSignal(f, m float64) domain.Signal {
	return domain.Signal{
		ID:                  "sig-1",
		EventID:             "temp_max::NYC::2026-08-26::ge_85.00F",
		ContractTicker:      "HIGHNY-26AUG26-T85",
		ForecastProbability: f,
		MarketProbability:   m,
		Edge:                f - m,
		Decision:            domain.DecisionBuyYes,
	}
}

func TestSizeCapApplied(t *testing.T) {
	eng := NewEngine(Config{KellyFraction: 0.25, PerContractCap: 0.02})

	// Full Kelly = (0.84-0.60)/(0.60*0.40) = 1.0; scaled 0.25 hits the cap.
	order, err := eng.Size(buyYesSignal(0.84, 0.60), 10000)
	require.NoError(t, err)

	assert.True(t, order.CapApplied)
	assert.False(t, order.SizingRejected)
	assert.InDelta(t, 0.02, order.Fraction, 1e-12)
	assert.InDelta(t, 200.0, order.Notional, 1e-9)
	assert.LessOrEqual(t, order.Notional/10000, 0.02+1e-12)
}

func TestSizeBelowCap(t *testing.T) {
	eng := NewEngine(Config{KellyFraction: 0.25, PerContractCap: 0.50})

	// Full Kelly = (0.55-0.50)/(0.50*0.50) = 0.2; scaled 0.05.
	order, err := eng.Size(buyYesSignal(0.55, 0.50), 1000)
	require.NoError(t, err)

	assert.False(t, order.CapApplied)
	assert.InDelta(t, 0.05, order.Fraction, 1e-12)
	assert.InDelta(t, 50.0, order.Notional, 1e-9)
}

func TestSizeNegativeKellyRejected(t *testing.T) {
	eng := NewEngine(Config{KellyFraction: 0.25, PerContractCap: 0.02})

	// Forecast below price on the chosen side: the formula goes negative.
	order, err := eng.Size(buyYesSignal(0.40, 0.60), 10000)
	require.NoError(t, err)

	assert.True(t, order.SizingRejected)
	assert.Zero(t, order.Fraction)
	assert.Zero(t, order.Notional)
	assert.GreaterOrEqual(t, order.Notional, 0.0)
}

func TestSizeZeroBankroll(t *testing.T) {
	eng := NewEngine(Config{KellyFraction: 0.25, PerContractCap: 0.02})

	for _, bankroll := range []float64{0, -100} {
		_, err := eng.Size(buyYesSignal(0.84, 0.60), bankroll)
		assert.ErrorIs(t, err, domain.ErrZeroBankroll, "bankroll %v", bankroll)
	}
}

func TestSizeNoTradeSignalErrors(t *testing.T) {
	eng := NewEngine(Config{KellyFraction: 0.25, PerContractCap: 0.02})

	sig := buyYesSignal(0.84, 0.60)
	sig.Decision = domain.DecisionNoTrade
	_, err := eng.Size(sig, 10000)
	assert.Error(t, err)
}

func TestSizeBuyNoUsesComplementPrice(t *testing.T) {
	eng := NewEngine(Config{KellyFraction: 0.25, PerContractCap: 0.50})

	sig := buyYesSignal(0.20, 0.55)
	sig.Decision = domain.DecisionBuyNo
	sig.Edge = -0.35

	// NO side: p = 0.80, q = 0.45; full Kelly = 0.35/(0.45*0.55).
	order, err := eng.Size(sig, 1000)
	require.NoError(t, err)

	want := 0.25 * (0.80 - 0.45) / (0.45 * 0.55)
	assert.InDelta(t, want, order.Fraction, 1e-12)
}

func TestSizeExtremePriceClamped(t *testing.T) {
	eng := NewEngine(Config{KellyFraction: 1.0, PerContractCap: 1.0})

	// Market at 0 would make the denominator zero without the clamp.
	order, err := eng.Size(buyYesSignal(0.50, 0.0), 1000)
	require.NoError(t, err)

	want := (0.50 - 0.001) / (0.001 * 0.999)
	if want > 1.0 {
		want = 1.0
	}
	assert.InDelta(t, want, order.Fraction, 1e-9)
	assert.True(t, order.CapApplied)
}

func TestSessionSequentialSizing(t *testing.T) {
	eng := NewEngine(Config{KellyFraction: 0.25, PerContractCap: 0.02})
	sess, err := NewBankrollSession(10000)
	require.NoError(t, err)

	first, err := sess.Size(eng, buyYesSignal(0.84, 0.60))
	require.NoError(t, err)
	assert.InDelta(t, 200.0, first.Notional, 1e-9)

	// A losing settlement shrinks the bankroll the next sizing sees.
	assert.InDelta(t, 9800.0, sess.Settle(-200), 1e-9)

	second, err := sess.Size(eng, buyYesSignal(0.84, 0.60))
	require.NoError(t, err)
	assert.InDelta(t, 196.0, second.Notional, 1e-9)
	assert.InDelta(t, 10000.0, sess.Starting(), 1e-12)
}

func TestSessionRejectsNonPositiveStart(t *testing.T) {
	_, err := NewBankrollSession(0)
	assert.ErrorIs(t, err, domain.ErrZeroBankroll)
}

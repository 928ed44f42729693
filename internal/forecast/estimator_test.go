package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galebot/galebot/internal/domain"
)

func testSpec() domain.EventSpec {
	return domain.EventSpec{
		Location:  domain.Location{Label: "NYC", Lat: 40.78, Lon: -73.97, Timezone: "America/New_York"},
		Variable:  domain.VariableTempMax,
		Operator:  domain.OperatorGTE,
		Threshold: 85.0,
		Unit:      "F",
		Date:      time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC),
	}
}

func samplesAboveBelow(above, below int) []domain.EnsembleSample {
	out := make([]domain.EnsembleSample, 0, above+below)
	for i := 0; i < above; i++ {
		out = append(out, domain.EnsembleSample{Member: i, Value: 90.0})
	}
	for i := 0; i < below; i++ {
		out = append(out, domain.EnsembleSample{Member: above + i, Value: 70.0})
	}
	return out
}

func TestEstimateExactFraction(t *testing.T) {
	est := NewEstimator()
	snap, err := est.Estimate(testSpec(), samplesAboveBelow(42, 8), RunInfo{Model: "NOAA_GEFS", Date: "2026-08-25", CycleHourUTC: 12})
	require.NoError(t, err)

	assert.Equal(t, 0.84, snap.Probability)
	assert.Equal(t, 50, snap.MemberCount)
	assert.Equal(t, 42, snap.MembersExceeding)
	assert.Equal(t, "temp_max::NYC::2026-08-26::ge_85.00F", snap.EventID)
	assert.Equal(t, "NOAA_GEFS", snap.Model)
}

func TestEstimateEmptyEnsemble(t *testing.T) {
	est := NewEstimator()
	_, err := est.Estimate(testSpec(), nil, RunInfo{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestEstimateAllMembersUnusable(t *testing.T) {
	est := NewEstimator()
	samples := []domain.EnsembleSample{
		{Member: 0, Value: 9.999e20},
		{Member: 1, Value: math.NaN()},
		{Member: 2, Value: math.Inf(1)},
	}
	_, err := est.Estimate(testSpec(), samples, RunInfo{})
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestEstimateExcludesFillValues(t *testing.T) {
	est := NewEstimator()
	samples := samplesAboveBelow(3, 1)
	samples = append(samples, domain.EnsembleSample{Member: 99, Value: 9.999e20})

	snap, err := est.Estimate(testSpec(), samples, RunInfo{})
	require.NoError(t, err)
	assert.Equal(t, 4, snap.MemberCount)
	assert.Equal(t, 0.75, snap.Probability)
}

func TestEstimateInclusiveThreshold(t *testing.T) {
	est := NewEstimator()
	samples := []domain.EnsembleSample{
		{Member: 0, Value: 85.0}, // exactly at threshold counts for >=
		{Member: 1, Value: 84.99},
	}
	snap, err := est.Estimate(testSpec(), samples, RunInfo{})
	require.NoError(t, err)
	assert.Equal(t, 0.5, snap.Probability)
}

func TestEstimateLTEOperator(t *testing.T) {
	spec := testSpec()
	spec.Operator = domain.OperatorLTE

	est := NewEstimator()
	samples := samplesAboveBelow(1, 3) // 3 below threshold satisfy <=
	snap, err := est.Estimate(spec, samples, RunInfo{})
	require.NoError(t, err)
	assert.Equal(t, 0.75, snap.Probability)
	assert.Equal(t, "temp_max::NYC::2026-08-26::le_85.00F", snap.EventID)
}

func TestEstimateDegenerateProbabilities(t *testing.T) {
	est := NewEstimator()

	snap, err := est.Estimate(testSpec(), samplesAboveBelow(5, 0), RunInfo{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, snap.Probability)

	snap, err = est.Estimate(testSpec(), samplesAboveBelow(0, 5), RunInfo{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, snap.Probability)
}

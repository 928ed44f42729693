package forecast

import (
	"fmt"
	"math"
	"time"

	"github.com/galebot/galebot/internal/domain"
)

// fill value used by the GEFS OPeNDAP endpoint for missing grid cells.
const fillValue = 9.999e20

// RunInfo identifies the model run an ensemble was taken from.
type RunInfo struct {
	Model        string
	Date         string // YYYY-MM-DD
	CycleHourUTC int
}

// Estimator turns raw ensemble member values into an event probability by
// counting members that satisfy the event condition. No distribution is
// fitted; the estimate is the plain relative frequency k/n.
type Estimator struct {
	now func() time.Time
}

// NewEstimator returns an Estimator using the wall clock.
func NewEstimator() *Estimator {
	return &Estimator{now: time.Now}
}

// Estimate computes the probability that the event condition holds, as the
// exact fraction of usable ensemble members satisfying it. Members carrying
// the fill value, NaN, or Inf are excluded before counting. An ensemble with
// no usable members yields domain.ErrInsufficientData.
func (e *Estimator) Estimate(spec domain.EventSpec, samples []domain.EnsembleSample, run RunInfo) (domain.ForecastSnapshot, error) {
	usable := 0
	exceeding := 0
	for _, s := range samples {
		if !usableValue(s.Value) {
			continue
		}
		usable++
		if spec.Satisfies(s.Value) {
			exceeding++
		}
	}
	if usable == 0 {
		return domain.ForecastSnapshot{}, fmt.Errorf("forecast: estimate %s: %w", spec.ID(), domain.ErrInsufficientData)
	}
	return domain.ForecastSnapshot{
		EventID:          spec.ID(),
		Model:            run.Model,
		RunDate:          run.Date,
		RunCycleHourUTC:  run.CycleHourUTC,
		Probability:      float64(exceeding) / float64(usable),
		MemberCount:      usable,
		MembersExceeding: exceeding,
		GeneratedAt:      e.now().UTC(),
	}, nil
}

func usableValue(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	// The fill value comes back through float32 round trips; compare loosely.
	if v >= fillValue*0.999 {
		return false
	}
	return true
}

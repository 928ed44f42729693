package domain

import "time"

// EnsembleSample is one ensemble member's predicted value for the event
// variable, already reduced over the event window (daily max for temp_max,
// daily total for precip_total). Member ordering carries no meaning.
type EnsembleSample struct {
	Member int
	Value  float64
}

// ForecastSnapshot is the output of one probability estimation: the fraction
// of ensemble members whose value satisfies the event condition. Immutable
// once created; persisted snapshots are never updated in place.
type ForecastSnapshot struct {
	EventID          string
	Model            string // forecast system identifier, e.g. "NOAA_GEFS"
	RunDate          string // model run date, YYYY-MM-DD
	RunCycleHourUTC  int    // model cycle, 0/6/12/18
	Probability      float64
	MemberCount      int
	MembersExceeding int // members satisfying the event condition
	GeneratedAt      time.Time
}

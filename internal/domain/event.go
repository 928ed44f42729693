package domain

import (
	"fmt"
	"time"
)

// Variable identifies the meteorological quantity an event is defined over.
type Variable string

const (
	// VariableTempMax is the daily maximum 2m temperature.
	VariableTempMax Variable = "temp_max"
	// VariablePrecipTotal is the daily accumulated precipitation.
	VariablePrecipTotal Variable = "precip_total"
)

// Operator is the comparison applied between a member value and the threshold.
type Operator string

const (
	OperatorGTE Operator = ">="
	OperatorLTE Operator = "<="
)

// Location is a named point on the forecast grid.
type Location struct {
	Label    string  // short label used in event IDs, e.g. "NYC"
	Lat      float64
	Lon      float64
	Timezone string // IANA name, e.g. "America/New_York"
}

// EventSpec is the canonical, immutable description of a forecastable event:
// "will <Variable> at <Location> on <Date> be <Operator> <Threshold> <Unit>?".
// Construct one per market-mapping step and never mutate it afterwards.
type EventSpec struct {
	Location  Location
	Variable  Variable
	Operator  Operator
	Threshold float64
	Unit      string // "F" for temp_max, "in" for precip_total
	Date      time.Time // local calendar date of the event window
}

// ID derives the deterministic identity of the event. The same real-world
// event always maps to the same ID regardless of which market referenced it.
func (e EventSpec) ID() string {
	op := "ge"
	if e.Operator == OperatorLTE {
		op = "le"
	}
	return fmt.Sprintf("%s::%s::%s::%s_%.2f%s",
		e.Variable, e.Location.Label, e.Date.Format("2006-01-02"), op, e.Threshold, e.Unit)
}

// Satisfies reports whether a single realized or forecast value meets the
// event condition. Threshold comparison is inclusive on both operators.
func (e EventSpec) Satisfies(value float64) bool {
	if e.Operator == OperatorLTE {
		return value <= e.Threshold
	}
	return value >= e.Threshold
}

package domain

import "time"

// WeatherMarket is the metadata of a prediction-market contract that has been
// mapped onto a weather event. One row per market slug; refreshed on every
// universe scan.
type WeatherMarket struct {
	Slug           string // venue market slug, primary identifier
	ConditionID    string
	Question       string
	EventTitle     string
	Variable       Variable
	CityLabel      string
	EventDate      time.Time
	ThresholdValue float64
	ThresholdUnit  string
	YesLabel       string
	Volume         float64
	Liquidity      float64
	LastSeenAt     time.Time
}

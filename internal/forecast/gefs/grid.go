package gefs

import (
	"fmt"
	"math"
)

// The GEFS pgrb2ap5 datasets are published on a global 0.5 degree grid:
// latitude index 0..360 from -90, longitude index 0..719 from 0 eastward.
const (
	gridStep  = 0.5
	maxLatIdx = 360
	maxLonIdx = 719
)

// NearestGridIndices maps a coordinate to the closest grid cell. Longitude is
// accepted in either [-180,180] or [0,360) convention.
func NearestGridIndices(lat, lon float64) (latIdx, lonIdx int, err error) {
	if lat < -90 || lat > 90 {
		return 0, 0, fmt.Errorf("gefs: latitude %.4f out of range [-90, 90]", lat)
	}
	lon360 := lon
	for lon360 < 0 {
		lon360 += 360
	}
	for lon360 >= 360 {
		lon360 -= 360
	}
	latIdx = clampIdx(int(math.Round((lat+90)/gridStep)), maxLatIdx)
	lonIdx = clampIdx(int(math.Round(lon360/gridStep)), maxLonIdx)
	return latIdx, lonIdx, nil
}

// KelvinToFahrenheit converts member temperatures into event units.
func KelvinToFahrenheit(k float64) float64 {
	return (k-273.15)*9/5 + 32
}

const mmPerInch = 25.4

// MillimetersToInches converts precipitation totals into event units.
func MillimetersToInches(mm float64) float64 { return mm / mmPerInch }

func clampIdx(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

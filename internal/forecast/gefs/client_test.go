package gefs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galebot/galebot/internal/domain"
)

func nycSpec(date time.Time) domain.EventSpec {
	return domain.EventSpec{
		Location:  domain.Location{Label: "NYC", Lat: 40.7128, Lon: -74.0060, Timezone: "America/New_York"},
		Variable:  domain.VariableTempMax,
		Operator:  domain.OperatorGTE,
		Threshold: 85.0,
		Unit:      "F",
		Date:      date,
	}
}

func TestFindLatestRunProbesNewestFirst(t *testing.T) {
	var probed []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probed = append(probed, r.URL.Path)
		if r.URL.Path == "/gefs20260825/gefs_pgrb2ap5_all_12z.dds" {
			w.Write([]byte("Dataset {\n  Float32 tmp2m[ens = 31];\n} gefs;"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.now = func() time.Time { return time.Date(2026, 8, 25, 20, 0, 0, 0, time.UTC) }

	run, err := c.FindLatestRun(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, 12, run.CycleHour)
	assert.Equal(t, time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC), run.Date)
	assert.Equal(t, srv.URL+"/gefs20260825/gefs_pgrb2ap5_all_12z", run.DatasetBase)
	// The 18z cycle of the same day was tried and rejected first.
	assert.Equal(t, "/gefs20260825/gefs_pgrb2ap5_all_18z.dds", probed[0])

	info := run.Info()
	assert.Equal(t, "NOAA_GEFS", info.Model)
	assert.Equal(t, "2026-08-25", info.Date)
	assert.Equal(t, 12, info.CycleHourUTC)
}

func TestFindLatestRunExhaustsLookback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.FindLatestRun(context.Background(), 1)
	assert.Error(t, err)
}

func TestTemperatureEnsembleOverLocalDate(t *testing.T) {
	// Time axis in ordinal days: 2026-08-26 00Z through 2026-08-27 06Z.
	// In America/New_York (UTC-4) the local date 2026-08-26 spans indices 1-4.
	timeBody := "time, [6]\n739854.0, 739854.25, 739854.5, 739854.75, 739855.0, 739855.25\n"
	fieldBody := `tmp2m, [2][4][1][1]
[0][0], 299.0
[0][1], 303.15
[0][2], 302.0
[0][3], 9.999e20
[1][0], 298.0
[1][1], 300.0
[1][2], 299.5
[1][3], 299.0
`
	var fieldQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.RawQuery == "time":
			w.Write([]byte(timeBody))
		case strings.HasPrefix(r.URL.RawQuery, "tmp2m"):
			fieldQuery = r.URL.RawQuery
			w.Write([]byte(fieldBody))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	run := Run{
		Date:        time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC),
		CycleHour:   12,
		DatasetBase: srv.URL + "/gefs20260825/gefs_pgrb2ap5_all_12z",
	}
	spec := nycSpec(time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC))

	samples, err := c.Ensemble(context.Background(), run, spec)
	require.NoError(t, err)
	require.Len(t, samples, 2)

	// Window [1:4] at the NYC grid cell.
	assert.Contains(t, fieldQuery, "[1:1:4]")
	assert.Contains(t, fieldQuery, "[261][572]")

	// Member 0 peaks at 303.15 K = 86 F; the fill value is ignored.
	assert.Equal(t, 0, samples[0].Member)
	assert.InDelta(t, 86.0, samples[0].Value, 1e-9)
	assert.True(t, spec.Satisfies(samples[0].Value))

	// Member 1 peaks at 300.0 K = 80.33 F.
	assert.InDelta(t, 80.33, samples[1].Value, 0.005)
	assert.False(t, spec.Satisfies(samples[1].Value))
}

func TestPrecipEnsembleCumulativeDifferencing(t *testing.T) {
	timeBody := "time, [6]\n739854.0, 739854.25, 739854.5, 739854.75, 739855.0, 739855.25\n"
	ddsBody := "Dataset {\n    Float32 apcpsfc[ens = 31][time = 65][lat = 361][lon = 720];\n} gefs;"
	// Window is [1:4]; fetch starts one step earlier at index 0 so the
	// cumulative series can be differenced across the day boundary.
	fieldBody := `apcpsfc, [1][5][1][1]
[0][0], 1.0
[0][1], 2.0
[0][2], 4.0
[0][3], 6.0
[0][4], 6.08
`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, ".dds"):
			w.Write([]byte(ddsBody))
		case r.URL.RawQuery == "time":
			w.Write([]byte(timeBody))
		case strings.HasPrefix(r.URL.RawQuery, "apcpsfc"):
			w.Write([]byte(fieldBody))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	run := Run{DatasetBase: srv.URL + "/gefs20260825/gefs_pgrb2ap5_all_12z"}
	spec := nycSpec(time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC))
	spec.Variable = domain.VariablePrecipTotal
	spec.Operator = domain.OperatorGTE
	spec.Threshold = 0.1
	spec.Unit = "in"

	samples, err := c.Ensemble(context.Background(), run, spec)
	require.NoError(t, err)
	require.Len(t, samples, 1)

	// Accumulation rose from 1.0 to 6.08 mm over the day: 5.08 mm = 0.2 in.
	assert.InDelta(t, 0.2, samples[0].Value, 1e-9)
}

func TestEnsembleUnsupportedVariable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("time, [2]\n739854.25, 739854.5\n"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	spec := nycSpec(time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC))
	spec.Variable = "wind_gust"

	_, err := c.Ensemble(context.Background(), Run{DatasetBase: srv.URL + "/d"}, spec)
	assert.Error(t, err)
}

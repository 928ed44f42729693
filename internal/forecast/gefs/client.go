package gefs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/galebot/galebot/internal/domain"
	"github.com/galebot/galebot/internal/forecast"
)

// DefaultBaseURL is the NOMADS OPeNDAP root for GEFS ensemble datasets.
const DefaultBaseURL = "https://nomads.ncep.noaa.gov/dods/gefs"

// Model is the forecast system identifier stamped on snapshots.
const Model = "NOAA_GEFS"

// ensemble axis: control member plus 30 perturbed members.
const memberMaxIdx = 30

// Run identifies one published GEFS model run.
type Run struct {
	Date        time.Time // run date, UTC
	CycleHour   int       // 0, 6, 12 or 18
	DatasetBase string    // OPeNDAP dataset URL without extension
}

// Info returns the run identity in snapshot form.
func (r Run) Info() forecast.RunInfo {
	return forecast.RunInfo{
		Model:        Model,
		Date:         r.Date.Format("2006-01-02"),
		CycleHourUTC: r.CycleHour,
	}
}

// Client reads GEFS ensemble data over the NOMADS OPeNDAP ASCII interface.
// No authentication; the endpoint is public and rate-tolerant but slow, so
// probe requests carry a shorter timeout than field fetches.
type Client struct {
	baseURL    string
	httpClient *http.Client
	probe      *http.Client
	now        func() time.Time
}

// NewClient creates a GEFS client against the given OPeNDAP root.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		probe:      &http.Client{Timeout: 12 * time.Second},
		now:        time.Now,
	}
}

// FindLatestRun probes recent run cycles newest-first and returns the first
// dataset NOMADS actually serves. Publication lags the nominal cycle time by
// several hours, so the latest cycles routinely 404.
func (c *Client) FindLatestRun(ctx context.Context, lookbackDays int) (Run, error) {
	nowUTC := c.now().UTC()
	for dayOffset := 0; dayOffset <= lookbackDays; dayOffset++ {
		runDay := nowUTC.AddDate(0, 0, -dayOffset)
		for _, cycle := range []int{18, 12, 6, 0} {
			base := fmt.Sprintf("%s/gefs%s/gefs_pgrb2ap5_all_%02dz",
				c.baseURL, runDay.Format("20060102"), cycle)
			dds, err := c.getText(ctx, c.probe, base+".dds")
			if err != nil {
				continue
			}
			if strings.HasPrefix(strings.TrimLeft(dds, " \t\r\n"), "Dataset {") {
				return Run{
					Date:        time.Date(runDay.Year(), runDay.Month(), runDay.Day(), 0, 0, 0, 0, time.UTC),
					CycleHour:   cycle,
					DatasetBase: base,
				}, nil
			}
		}
	}
	return Run{}, fmt.Errorf("gefs: no dataset found within %d day lookback", lookbackDays)
}

// Ensemble fetches the per-member reduction of the event variable over the
// event's local calendar date: the daily maximum for temperature, the daily
// total for precipitation. Values come back in the event's unit (F or in),
// one sample per member with at least one valid timestep.
func (c *Client) Ensemble(ctx context.Context, run Run, spec domain.EventSpec) ([]domain.EnsembleSample, error) {
	latIdx, lonIdx, err := NearestGridIndices(spec.Location.Lat, spec.Location.Lon)
	if err != nil {
		return nil, err
	}

	window, err := c.eventWindow(ctx, run, spec)
	if err != nil {
		return nil, err
	}

	switch spec.Variable {
	case domain.VariableTempMax:
		return c.temperatureEnsemble(ctx, run, window, latIdx, lonIdx)
	case domain.VariablePrecipTotal:
		return c.precipEnsemble(ctx, run, window, latIdx, lonIdx)
	default:
		return nil, fmt.Errorf("gefs: unsupported variable %q", spec.Variable)
	}
}

// timeWindow is the slice of the dataset time axis covering the event's
// local calendar date.
type timeWindow struct {
	start, end int
}

func (c *Client) eventWindow(ctx context.Context, run Run, spec domain.EventSpec) (timeWindow, error) {
	loc, err := time.LoadLocation(spec.Location.Timezone)
	if err != nil {
		return timeWindow{}, fmt.Errorf("gefs: load timezone %q: %w", spec.Location.Timezone, err)
	}

	text, err := c.getText(ctx, c.httpClient, run.DatasetBase+".ascii?time")
	if err != nil {
		return timeWindow{}, fmt.Errorf("gefs: fetch time axis: %w", err)
	}
	axis, err := parseASCIIVector(text)
	if err != nil {
		return timeWindow{}, err
	}
	if len(axis) == 0 {
		return timeWindow{}, fmt.Errorf("gefs: empty time axis")
	}

	target := spec.Date.Format("2006-01-02")
	start, end := -1, -1
	for i, v := range axis {
		local := ordinalDayToUTC(v).In(loc)
		if local.Format("2006-01-02") != target {
			continue
		}
		if start == -1 {
			start = i
		}
		end = i
	}
	if start == -1 {
		return timeWindow{}, fmt.Errorf("gefs: no timesteps cover local date %s", target)
	}
	return timeWindow{start: start, end: end}, nil
}

func (c *Client) temperatureEnsemble(ctx context.Context, run Run, w timeWindow, latIdx, lonIdx int) ([]domain.EnsembleSample, error) {
	url := fmt.Sprintf("%s.ascii?tmp2m[0:1:%d][%d:1:%d][%d][%d]",
		run.DatasetBase, memberMaxIdx, w.start, w.end, latIdx, lonIdx)
	text, err := c.getText(ctx, c.httpClient, url)
	if err != nil {
		return nil, fmt.Errorf("gefs: fetch tmp2m: %w", err)
	}
	matrix, err := parseMemberTimeMatrix(text)
	if err != nil {
		return nil, err
	}

	var samples []domain.EnsembleSample
	for member, row := range matrix {
		maxK, seen := 0.0, false
		for _, v := range row {
			if !validValue(v) {
				continue
			}
			if !seen || v > maxK {
				maxK, seen = v, true
			}
		}
		if !seen {
			continue
		}
		samples = append(samples, domain.EnsembleSample{
			Member: member,
			Value:  KelvinToFahrenheit(maxK),
		})
	}
	return samples, nil
}

func (c *Client) precipEnsemble(ctx context.Context, run Run, w timeWindow, latIdx, lonIdx int) ([]domain.EnsembleSample, error) {
	dds, err := c.getText(ctx, c.probe, run.DatasetBase+".dds")
	if err != nil {
		return nil, fmt.Errorf("gefs: fetch dds: %w", err)
	}
	precipVar, err := findPrecipVariable(dds)
	if err != nil {
		return nil, err
	}

	// Fetch one step before the window so cumulative accumulations can be
	// differenced at the day boundary.
	fetchStart := w.start
	if fetchStart > 0 {
		fetchStart--
	}
	offset := w.start - fetchStart

	url := fmt.Sprintf("%s.ascii?%s[0:1:%d][%d:1:%d][%d][%d]",
		run.DatasetBase, precipVar, memberMaxIdx, fetchStart, w.end, latIdx, lonIdx)
	text, err := c.getText(ctx, c.httpClient, url)
	if err != nil {
		return nil, fmt.Errorf("gefs: fetch %s: %w", precipVar, err)
	}
	matrix, err := parseMemberTimeMatrix(text)
	if err != nil {
		return nil, err
	}

	cumulative := isCumulativeMatrix(matrix)
	var samples []domain.EnsembleSample
	for member, row := range matrix {
		if len(row) <= offset {
			continue
		}
		day := row[offset:]

		var totalMM float64
		if cumulative {
			endVal, okEnd := lastValid(day)
			var baseVal float64
			var okBase bool
			if offset > 0 {
				baseVal, okBase = lastValid(row[:offset])
			} else {
				baseVal, okBase = firstValid(day)
			}
			if !okEnd || !okBase {
				continue
			}
			totalMM = endVal - baseVal
			if totalMM < 0 {
				totalMM = 0
			}
		} else {
			for _, v := range day {
				if validValue(v) {
					totalMM += v
				}
			}
		}
		samples = append(samples, domain.EnsembleSample{
			Member: member,
			Value:  MillimetersToInches(totalMM),
		})
	}
	return samples, nil
}

func (c *Client) getText(ctx context.Context, client *http.Client, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "galebot-gefs/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}
	return string(body), nil
}

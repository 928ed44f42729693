// Package service composes the domain engines, venue clients, and stores
// into the operations the application modes run: forecasting, signal
// evaluation, universe scanning, outcome resolution, and backtesting.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/galebot/galebot/internal/domain"
	"github.com/galebot/galebot/internal/forecast"
	"github.com/galebot/galebot/internal/forecast/gefs"
)

// runRefreshInterval bounds how often the latest-run probe is repeated. GEFS
// publishes four cycles a day, so probing more often than this is wasted
// round trips.
const runRefreshInterval = 30 * time.Minute

// ForecastService produces event probabilities from the latest available
// GEFS ensemble run. The run lookup is cached between calls.
type ForecastService struct {
	client       *gefs.Client
	estimator    *forecast.Estimator
	lookbackDays int
	logger       *slog.Logger

	mu        sync.Mutex
	run       gefs.Run
	refreshed time.Time
}

// NewForecastService creates a ForecastService.
func NewForecastService(client *gefs.Client, estimator *forecast.Estimator, lookbackDays int, logger *slog.Logger) *ForecastService {
	return &ForecastService{
		client:       client,
		estimator:    estimator,
		lookbackDays: lookbackDays,
		logger:       logger.With(slog.String("component", "forecast_service")),
	}
}

// Forecast fetches the ensemble for the event from the latest run and turns
// it into a probability snapshot.
func (s *ForecastService) Forecast(ctx context.Context, spec domain.EventSpec) (domain.ForecastSnapshot, error) {
	run, err := s.latestRun(ctx)
	if err != nil {
		return domain.ForecastSnapshot{}, fmt.Errorf("forecast_service: latest run: %w", err)
	}

	samples, err := s.client.Ensemble(ctx, run, spec)
	if err != nil {
		return domain.ForecastSnapshot{}, fmt.Errorf("forecast_service: ensemble %s: %w", spec.ID(), err)
	}

	snap, err := s.estimator.Estimate(spec, samples, run.Info())
	if err != nil {
		return domain.ForecastSnapshot{}, err
	}

	s.logger.DebugContext(ctx, "forecast produced",
		slog.String("event_id", snap.EventID),
		slog.Float64("probability", snap.Probability),
		slog.Int("members", snap.MemberCount),
		slog.String("run_date", snap.RunDate),
		slog.Int("cycle", snap.RunCycleHourUTC),
	)
	return snap, nil
}

// latestRun returns the cached run, probing the server again only after the
// refresh interval has passed.
func (s *ForecastService) latestRun(ctx context.Context) (gefs.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.refreshed.IsZero() && time.Since(s.refreshed) < runRefreshInterval {
		return s.run, nil
	}

	run, err := s.client.FindLatestRun(ctx, s.lookbackDays)
	if err != nil {
		if !s.refreshed.IsZero() {
			// Keep serving the previous run while the probe is failing.
			s.logger.WarnContext(ctx, "run probe failed, keeping previous run",
				slog.String("run_date", s.run.Date.Format("2006-01-02")),
				slog.Int("cycle", s.run.CycleHour),
				slog.String("error", err.Error()),
			)
			return s.run, nil
		}
		return gefs.Run{}, err
	}

	s.run = run
	s.refreshed = time.Now()
	return run, nil
}

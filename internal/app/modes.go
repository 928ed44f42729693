package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/galebot/galebot/internal/backtest"
	"github.com/galebot/galebot/internal/domain"
	"github.com/galebot/galebot/internal/market"
	"github.com/galebot/galebot/internal/pipeline"
	"github.com/galebot/galebot/internal/platform/kalshi"
	"github.com/galebot/galebot/internal/risk"
	"github.com/galebot/galebot/internal/service"
	"github.com/galebot/galebot/internal/strategy"
	"github.com/galebot/galebot/internal/universe"
)

// SignalMode runs the evaluation loop only: quote, forecast, gate, size for
// every market a previous scan discovered.
func (a *App) SignalMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting signal mode")

	signalSvc, err := a.buildSignalService(deps)
	if err != nil {
		return fmt.Errorf("signal mode: %w", err)
	}

	orch := pipeline.NewOrchestrator(nil, signalSvc, nil, nil, a.intervals(), a.logger)
	return orch.Run(ctx)
}

// ScanMode runs universe discovery only, keeping the market store current.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode")

	scanSvc := service.NewScanService(deps.Gamma, deps.MarketStore, a.universeOptions(), a.logger)
	orch := pipeline.NewOrchestrator(scanSvc, nil, nil, nil, a.intervals(), a.logger)
	return orch.Run(ctx)
}

// OutcomeMode runs outcome backfill only.
func (a *App) OutcomeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting outcome mode")

	outcomeSvc := service.NewOutcomeService(
		deps.OutcomeStore, deps.SnapshotStore, deps.Gamma, deps.Notifier, a.logger,
	)
	orch := pipeline.NewOrchestrator(nil, nil, outcomeSvc, nil, a.intervals(), a.logger)
	return orch.Run(ctx)
}

// BacktestMode replays history through the gating and sizing engines, logs
// the aggregate metrics, and exits. The source is the snapshot store unless
// the configuration points at a CSV export or an archived dataset.
func (a *App) BacktestMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting backtest mode")

	engine := backtest.NewEngine(backtest.Config{
		StartingBankroll: a.cfg.Risk.Bankroll,
		Strategy: strategy.Config{
			MinEdge:    a.cfg.Strategy.MinEdge,
			MinEV:      a.cfg.Strategy.MinEV,
			MinMembers: a.cfg.Strategy.MinMembers,
		},
		Risk: risk.Config{
			KellyFraction:  a.cfg.Risk.KellyFraction,
			PerContractCap: a.cfg.Risk.PerContractCap,
		},
	})

	svc := service.NewBacktestService(deps.SnapshotStore, engine, deps.Archiver, a.logger)

	var res domain.BacktestResult
	var err error
	switch {
	case a.cfg.Backtest.CSVPath != "":
		var f *os.File
		f, err = os.Open(a.cfg.Backtest.CSVPath)
		if err != nil {
			return fmt.Errorf("backtest mode: open csv: %w", err)
		}
		defer f.Close()
		res, err = svc.RunFromCSV(ctx, f)
	case a.cfg.Backtest.ArchiveRun != "":
		res, err = svc.RunFromArchive(ctx, deps.BlobReader, a.cfg.Backtest.ArchiveRun)
	default:
		res, err = svc.RunFromStore(ctx, time.Time{}, time.Now().UTC())
	}
	if err != nil {
		return fmt.Errorf("backtest mode: %w", err)
	}

	a.logger.InfoContext(ctx, "backtest complete",
		slog.Int("rows", res.TotalRows),
		slog.Int("trades", res.TotalTrades),
		slog.Float64("win_rate", res.WinRate),
		slog.Float64("total_pnl", res.TotalPnL),
		slog.Float64("return_pct", res.ReturnPct),
		slog.Float64("max_drawdown", res.MaxDrawdown),
		slog.Float64("calibration", res.Calibration),
	)
	return nil
}

// MonitorMode streams live Kalshi quotes for the configured weather series
// into the quote cache. Read-only; no signals are produced.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode",
		slog.Any("series", a.cfg.Kalshi.Series),
	)

	rest := kalshi.NewClient(a.cfg.Kalshi.BaseURL)
	tickers, err := a.openTickers(ctx, rest)
	if err != nil {
		return fmt.Errorf("monitor mode: %w", err)
	}
	if len(tickers) == 0 {
		return fmt.Errorf("monitor mode: no open markets in configured series")
	}

	// Seed the cache with a REST snapshot so consumers have prices before
	// the first tick arrives.
	staleness := a.cfg.Market.Staleness.Duration
	for _, ticker := range tickers {
		q, err := rest.Quote(ctx, ticker)
		if err != nil {
			a.logger.WarnContext(ctx, "monitor: seed quote failed",
				slog.String("ticker", ticker),
				slog.String("error", err.Error()),
			)
			continue
		}
		if err := deps.QuoteCache.SetQuote(ctx, q, staleness); err != nil {
			a.logger.WarnContext(ctx, "monitor: cache quote failed",
				slog.String("ticker", ticker),
				slog.String("error", err.Error()),
			)
		}
	}

	ws := kalshi.NewWSClient(a.cfg.Kalshi.WsURL)
	ws.OnQuote(func(q domain.MarketQuote) {
		if err := deps.QuoteCache.SetQuote(ctx, q, staleness); err != nil {
			a.logger.WarnContext(ctx, "monitor: cache quote failed",
				slog.String("ticker", q.ContractTicker),
				slog.String("error", err.Error()),
			)
			return
		}
		a.logger.DebugContext(ctx, "quote",
			slog.String("ticker", q.ContractTicker),
			slog.Float64("price", q.Price),
		)
	})

	if err := ws.Connect(ctx); err != nil {
		return fmt.Errorf("monitor mode: %w", err)
	}
	defer ws.Close()

	if err := ws.Subscribe(ctx, tickers); err != nil {
		return fmt.Errorf("monitor mode: %w", err)
	}

	a.logger.InfoContext(ctx, "monitoring live quotes", slog.Int("tickers", len(tickers)))
	<-ctx.Done()
	return nil
}

// FullMode runs scan, signal, and outcome loops together, plus ledger
// archival when blob storage is wired.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	signalSvc, err := a.buildSignalService(deps)
	if err != nil {
		return fmt.Errorf("full mode: %w", err)
	}
	scanSvc := service.NewScanService(deps.Gamma, deps.MarketStore, a.universeOptions(), a.logger)
	outcomeSvc := service.NewOutcomeService(
		deps.OutcomeStore, deps.SnapshotStore, deps.Gamma, deps.Notifier, a.logger,
	)

	var ledger *pipeline.LedgerArchiver
	if deps.Archiver != nil {
		ledger = pipeline.NewLedgerArchiver(deps.OrderStore, deps.Archiver, a.logger)
	}

	orch := pipeline.NewOrchestrator(scanSvc, signalSvc, outcomeSvc, ledger, a.intervals(), a.logger)
	return orch.Run(ctx)
}

func (a *App) buildSignalService(deps *Dependencies) (*service.SignalService, error) {
	session, err := risk.NewBankrollSession(a.cfg.Risk.Bankroll)
	if err != nil {
		return nil, fmt.Errorf("bankroll session: %w", err)
	}

	staleness := a.cfg.Market.Staleness.Duration
	return service.NewSignalService(service.SignalServiceConfig{
		Markets:    deps.MarketStore,
		Snapshots:  deps.SnapshotStore,
		Orders:     deps.OrderStore,
		Audit:      deps.AuditStore,
		Quotes:     deps.QuoteCache,
		Venue:      deps.Gamma,
		Forecaster: deps.Forecast,
		Normalizer: market.NewNormalizer(staleness),
		Strategy: strategy.NewEngine(strategy.Config{
			MinEdge:    a.cfg.Strategy.MinEdge,
			MinEV:      a.cfg.Strategy.MinEV,
			MinMembers: a.cfg.Strategy.MinMembers,
		}),
		Session: session,
		Risk: risk.NewEngine(risk.Config{
			KellyFraction:  a.cfg.Risk.KellyFraction,
			PerContractCap: a.cfg.Risk.PerContractCap,
		}),
		Notifier:  deps.Notifier,
		Cities:    a.universeCities(),
		Staleness: staleness,
		Logger:    a.logger,
	}), nil
}

func (a *App) intervals() pipeline.Intervals {
	return pipeline.Intervals{
		Scan:    a.cfg.Pipeline.ScanInterval.Duration,
		Signal:  a.cfg.Pipeline.SignalInterval.Duration,
		Outcome: a.cfg.Pipeline.OutcomeInterval.Duration,
	}
}

func (a *App) universeCities() []universe.City {
	cities := make([]universe.City, 0, len(a.cfg.Universe.Cities))
	for _, c := range a.cfg.Universe.Cities {
		cities = append(cities, universe.City{
			Label:    c.Label,
			Name:     c.Name,
			Aliases:  c.Aliases,
			Lat:      c.Lat,
			Lon:      c.Lon,
			Timezone: c.Timezone,
		})
	}
	return cities
}

func (a *App) universeOptions() universe.Options {
	variables := make([]domain.Variable, 0, len(a.cfg.Universe.Variables))
	for _, v := range a.cfg.Universe.Variables {
		variables = append(variables, domain.Variable(v))
	}
	return universe.Options{
		Cities:        a.universeCities(),
		MinVolumeUSD:  a.cfg.Universe.MinVolumeUSD,
		WindowDaysMin: a.cfg.Universe.WindowDaysMin,
		WindowDaysMax: a.cfg.Universe.WindowDaysMax,
		MaxMarkets:    a.cfg.Universe.MaxMarkets,
		Variables:     variables,
		YesLabel:      a.cfg.Polymarket.YesLabel,
	}
}

// openTickers lists open markets in the configured Kalshi weather series.
func (a *App) openTickers(ctx context.Context, c *kalshi.Client) ([]string, error) {
	var tickers []string
	for _, series := range a.cfg.Kalshi.Series {
		cursor := ""
		for {
			markets, next, err := c.GetMarkets(ctx, kalshi.MarketsQuery{
				SeriesTicker: series,
				Status:       "open",
				Limit:        100,
				Cursor:       cursor,
			})
			if err != nil {
				return nil, fmt.Errorf("list series %s: %w", series, err)
			}
			for _, m := range markets {
				tickers = append(tickers, m.Ticker)
			}
			if next == "" {
				break
			}
			cursor = next
		}
	}
	return tickers, nil
}

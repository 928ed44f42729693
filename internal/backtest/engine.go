package backtest

import (
	"fmt"

	"github.com/galebot/galebot/internal/domain"
	"github.com/galebot/galebot/internal/risk"
	"github.com/galebot/galebot/internal/strategy"
)

// Config holds one backtest run's parameters.
type Config struct {
	StartingBankroll float64
	Strategy         strategy.Config
	Risk             risk.Config
}

// Engine replays historical (forecast, market, outcome) rows through the
// live signal and sizing engines. Replay walks rows strictly in input order,
// compounding the bankroll after each settlement, so identical input and
// configuration always produce an identical result, ledger included.
type Engine struct {
	cfg      Config
	strategy *strategy.Engine
	risk     *risk.Engine
}

// NewEngine returns a backtest engine for the given configuration.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:      cfg,
		strategy: strategy.NewEngine(cfg.Strategy),
		risk:     risk.NewEngine(cfg.Risk),
	}
}

// Run replays the rows and returns the aggregate result.
//
// Rows that carry timestamps must be non-decreasing; a violation yields
// domain.ErrOutOfOrder before any row is processed. Rows without timestamps
// are accepted in input order. Settlement of a won position pays the side's
// complement price per contract, a lost position forfeits the stake, and the
// ending bankroll is exactly the starting bankroll plus the summed PnL.
func (e *Engine) Run(rows []domain.BacktestRow) (domain.BacktestResult, error) {
	if e.cfg.StartingBankroll <= 0 {
		return domain.BacktestResult{}, fmt.Errorf("backtest: starting bankroll %.2f: %w",
			e.cfg.StartingBankroll, domain.ErrZeroBankroll)
	}
	if err := checkOrdering(rows); err != nil {
		return domain.BacktestResult{}, err
	}

	res := domain.BacktestResult{
		StartingBankroll: e.cfg.StartingBankroll,
		TotalRows:        len(rows),
		Trades:           []domain.SettledTrade{},
	}

	session, err := risk.NewBankrollSession(e.cfg.StartingBankroll)
	if err != nil {
		return domain.BacktestResult{}, fmt.Errorf("backtest: %w", err)
	}

	peak := e.cfg.StartingBankroll
	var sumAbsEdge, sumSideProb float64

	for _, row := range rows {
		snap := domain.ForecastSnapshot{
			EventID:     row.EventID,
			Probability: row.ForecastProbability,
		}
		sig := e.strategy.Evaluate(snap, row.ContractTicker, row.MarketProbability)
		if !sig.Tradable() {
			res.SkippedNoTrade++
			continue
		}

		order, err := session.Size(e.risk, sig)
		if err != nil {
			return domain.BacktestResult{}, fmt.Errorf("backtest: %s: %w", row.EventID, err)
		}
		if order.SizingRejected || order.Notional <= 0 {
			res.SkippedSizing++
			continue
		}

		pnl := settle(sig, order.Notional, row.Outcome)
		balance := session.Settle(pnl)

		won := pnl > 0
		if won {
			res.WinningTrades++
		} else {
			res.LosingTrades++
		}
		res.TotalTrades++
		sumAbsEdge += abs(sig.Edge)
		sumSideProb += sig.SideProbability()

		if balance > peak {
			peak = balance
		}
		if dd := peak - balance; dd > res.MaxDrawdown {
			res.MaxDrawdown = dd
		}

		res.Trades = append(res.Trades, domain.SettledTrade{
			EventID:             row.EventID,
			ContractTicker:      row.ContractTicker,
			Side:                sig.Decision,
			ForecastProbability: row.ForecastProbability,
			MarketProbability:   row.MarketProbability,
			Edge:                sig.Edge,
			Stake:               order.Notional,
			PnL:                 pnl,
			Outcome:             row.Outcome,
			BankrollAfter:       balance,
			Timestamp:           row.Timestamp,
		})
	}

	res.EndingBankroll = session.Balance()
	res.TotalPnL = res.EndingBankroll - res.StartingBankroll
	res.ReturnPct = res.TotalPnL / res.StartingBankroll * 100
	if res.TotalTrades > 0 {
		res.WinRate = float64(res.WinningTrades) / float64(res.TotalTrades)
		res.AverageEdge = sumAbsEdge / float64(res.TotalTrades)
		res.Calibration = res.WinRate - sumSideProb/float64(res.TotalTrades)
	}
	return res, nil
}

// settle computes the dollar PnL of a position with the given stake. The
// stake buys stake/q contracts at the side price q; a win pays out 1 per
// contract, a loss forfeits the stake.
func settle(sig domain.Signal, stake float64, outcome int) float64 {
	won := (sig.Decision == domain.DecisionBuyYes && outcome == 1) ||
		(sig.Decision == domain.DecisionBuyNo && outcome == 0)
	if !won {
		return -stake
	}
	q := risk.ClampPrice(sig.SidePrice())
	return stake * (1 - q) / q
}

func checkOrdering(rows []domain.BacktestRow) error {
	var prev *domain.BacktestRow
	for i := range rows {
		if rows[i].Timestamp == nil {
			continue
		}
		if prev != nil && rows[i].Timestamp.Before(*prev.Timestamp) {
			return fmt.Errorf("backtest: row %d (%s) precedes row for %s: %w",
				i, rows[i].EventID, prev.EventID, domain.ErrOutOfOrder)
		}
		prev = &rows[i]
	}
	return nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

package domain

import "time"

// BacktestRow is one historical (forecast, market, outcome) observation.
// This tabular shape is the stable contract between storage/ingestion and
// the backtest engine; the CSV and Postgres exports both produce it with
// exactly these fields:
//
//	event_id, contract_ticker, forecast_probability, market_probability,
//	outcome, timestamp (optional)
type BacktestRow struct {
	EventID             string
	ContractTicker      string
	ForecastProbability float64
	MarketProbability   float64
	Outcome             int // 0 or 1
	Timestamp           *time.Time
}

// SettledTrade is one ledger entry of a backtest run: the signal that fired,
// the stake the risk engine assigned, and the realized result.
type SettledTrade struct {
	EventID             string
	ContractTicker      string
	Side                Decision
	ForecastProbability float64
	MarketProbability   float64
	Edge                float64
	Stake               float64
	PnL                 float64
	Outcome             int
	BankrollAfter       float64
	Timestamp           *time.Time
}

// BacktestResult aggregates one complete replay. It is rebuilt from scratch
// on every run; identical input and configuration yield an identical result,
// ledger order included.
type BacktestResult struct {
	StartingBankroll float64
	EndingBankroll   float64
	TotalRows        int
	TotalTrades      int
	WinningTrades    int
	LosingTrades     int
	SkippedNoTrade   int
	SkippedSizing    int
	WinRate          float64
	TotalPnL         float64
	ReturnPct        float64
	MaxDrawdown      float64 // worst peak-to-trough bankroll decline, in dollars
	AverageEdge      float64 // mean |predicted edge| across settled trades
	// Calibration compares what happened against what the forecasts implied:
	// realized win frequency of the chosen sides minus their mean forecast
	// probability. Near zero means the ensemble probabilities were honest.
	// Summary statistic only; acting on it is an operator decision.
	Calibration float64
	Trades      []SettledTrade
}

package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/galebot/galebot/internal/domain"
)

// Column order of the backtest interchange format. The timestamp column is
// optional on read and always written.
var csvHeader = []string{
	"event_id",
	"contract_ticker",
	"forecast_probability",
	"market_probability",
	"outcome",
	"timestamp",
}

// ReadRows parses backtest rows from CSV. The header must lead with the five
// required columns; a sixth timestamp column (RFC 3339) is optional per row.
func ReadRows(r io.Reader) ([]domain.BacktestRow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("backtest: csv: empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("backtest: csv: read header: %w", err)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}
	hasTimestamp := len(header) >= 6

	var rows []domain.BacktestRow
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("backtest: csv: line %d: %w", line, err)
		}
		row, err := parseRow(rec, hasTimestamp)
		if err != nil {
			return nil, fmt.Errorf("backtest: csv: line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteRows writes rows in the interchange format. Rows without a timestamp
// get an empty timestamp field.
func WriteRows(w io.Writer, rows []domain.BacktestRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("backtest: csv: write header: %w", err)
	}
	for _, row := range rows {
		ts := ""
		if row.Timestamp != nil {
			ts = row.Timestamp.UTC().Format(time.RFC3339)
		}
		rec := []string{
			row.EventID,
			row.ContractTicker,
			strconv.FormatFloat(row.ForecastProbability, 'f', -1, 64),
			strconv.FormatFloat(row.MarketProbability, 'f', -1, 64),
			strconv.Itoa(row.Outcome),
			ts,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("backtest: csv: write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func checkHeader(header []string) error {
	if len(header) < 5 {
		return fmt.Errorf("backtest: csv: header has %d columns, want at least 5", len(header))
	}
	for i, want := range csvHeader[:5] {
		if header[i] != want {
			return fmt.Errorf("backtest: csv: header column %d is %q, want %q", i, header[i], want)
		}
	}
	return nil
}

func parseRow(rec []string, hasTimestamp bool) (domain.BacktestRow, error) {
	if len(rec) < 5 {
		return domain.BacktestRow{}, fmt.Errorf("row has %d fields, want at least 5", len(rec))
	}
	fp, err := strconv.ParseFloat(rec[2], 64)
	if err != nil {
		return domain.BacktestRow{}, fmt.Errorf("forecast_probability %q: %w", rec[2], err)
	}
	mp, err := strconv.ParseFloat(rec[3], 64)
	if err != nil {
		return domain.BacktestRow{}, fmt.Errorf("market_probability %q: %w", rec[3], err)
	}
	outcome, err := strconv.Atoi(rec[4])
	if err != nil || (outcome != 0 && outcome != 1) {
		return domain.BacktestRow{}, fmt.Errorf("outcome %q: want 0 or 1", rec[4])
	}
	row := domain.BacktestRow{
		EventID:             rec[0],
		ContractTicker:      rec[1],
		ForecastProbability: fp,
		MarketProbability:   mp,
		Outcome:             outcome,
	}
	if hasTimestamp && len(rec) >= 6 && rec[5] != "" {
		ts, err := time.Parse(time.RFC3339, rec[5])
		if err != nil {
			return domain.BacktestRow{}, fmt.Errorf("timestamp %q: %w", rec[5], err)
		}
		row.Timestamp = &ts
	}
	return row, nil
}

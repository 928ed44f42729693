package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/galebot/galebot/internal/backtest"
	s3blob "github.com/galebot/galebot/internal/blob/s3"
	"github.com/galebot/galebot/internal/domain"
)

// BacktestService replays historical snapshot/outcome rows through the full
// decision pipeline. Rows can come from the snapshot store, a CSV file, or a
// previously archived dataset; results are optionally archived to object
// storage.
type BacktestService struct {
	snapshots domain.SnapshotStore
	engine    *backtest.Engine
	archiver  *s3blob.Archiver
	logger    *slog.Logger
}

// NewBacktestService creates a BacktestService. snapshots and archiver may
// be nil for CSV-only runs without archival.
func NewBacktestService(snapshots domain.SnapshotStore, engine *backtest.Engine, archiver *s3blob.Archiver, logger *slog.Logger) *BacktestService {
	return &BacktestService{
		snapshots: snapshots,
		engine:    engine,
		archiver:  archiver,
		logger:    logger.With(slog.String("component", "backtest_service")),
	}
}

// RunFromCSV replays rows read from r.
func (s *BacktestService) RunFromCSV(ctx context.Context, r io.Reader) (domain.BacktestResult, error) {
	rows, err := backtest.ReadRows(r)
	if err != nil {
		return domain.BacktestResult{}, fmt.Errorf("backtest_service: read rows: %w", err)
	}
	return s.run(ctx, rows)
}

// RunFromStore replays the stored snapshot/outcome joins captured inside
// [from, to).
func (s *BacktestService) RunFromStore(ctx context.Context, from, to time.Time) (domain.BacktestResult, error) {
	if s.snapshots == nil {
		return domain.BacktestResult{}, fmt.Errorf("backtest_service: no snapshot store wired")
	}
	rows, err := s.snapshots.ListJoined(ctx, from, to)
	if err != nil {
		return domain.BacktestResult{}, fmt.Errorf("backtest_service: load rows: %w", err)
	}
	return s.run(ctx, rows)
}

// RunFromArchive replays the dataset a previous run archived, so any past
// result can be reproduced from its exact input.
func (s *BacktestService) RunFromArchive(ctx context.Context, reader domain.BlobReader, runID string) (domain.BacktestResult, error) {
	if reader == nil {
		return domain.BacktestResult{}, fmt.Errorf("backtest_service: no blob reader wired")
	}

	path := s3blob.DatasetPath(runID)
	rc, err := reader.Get(ctx, path)
	if err != nil {
		return domain.BacktestResult{}, fmt.Errorf("backtest_service: fetch dataset %s: %w", path, err)
	}
	defer rc.Close()

	var rows []domain.BacktestRow
	dec := json.NewDecoder(rc)
	for {
		var row domain.BacktestRow
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return domain.BacktestResult{}, fmt.Errorf("backtest_service: decode dataset %s: %w", path, err)
		}
		rows = append(rows, row)
	}

	return s.run(ctx, rows)
}

func (s *BacktestService) run(ctx context.Context, rows []domain.BacktestRow) (domain.BacktestResult, error) {
	res, err := s.engine.Run(rows)
	if err != nil {
		return domain.BacktestResult{}, err
	}

	s.logger.InfoContext(ctx, "backtest complete",
		slog.Int("rows", res.TotalRows),
		slog.Int("trades", res.TotalTrades),
		slog.Float64("pnl", res.TotalPnL),
		slog.Float64("return_pct", res.ReturnPct),
		slog.Float64("max_drawdown", res.MaxDrawdown),
		slog.Float64("win_rate", res.WinRate),
		slog.Float64("calibration", res.Calibration),
	)

	if s.archiver != nil {
		runID := uuid.NewString()
		ranAt := time.Now().UTC()
		path, err := s.archiver.ArchiveBacktest(ctx, runID, ranAt, res)
		if err != nil {
			s.logger.WarnContext(ctx, "backtest archive failed", slog.String("error", err.Error()))
		} else {
			s.logger.InfoContext(ctx, "backtest archived",
				slog.String("run_id", runID),
				slog.String("path", path),
			)
			if _, err := s.archiver.ArchiveDataset(ctx, runID, rows); err != nil {
				s.logger.WarnContext(ctx, "dataset archive failed", slog.String("error", err.Error()))
			}
		}
	}

	return res, nil
}

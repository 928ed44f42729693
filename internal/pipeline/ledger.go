package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/galebot/galebot/internal/blob/s3"
	"github.com/galebot/galebot/internal/domain"
)

// ledgerBatchSize bounds one archival pass.
const ledgerBatchSize = 1000

// LedgerArchiver copies the recent paper order ledger to object storage.
// Uploads are additive snapshots keyed by month; re-running a pass
// overwrites the month's object with the fresher view.
type LedgerArchiver struct {
	orders   domain.OrderStore
	archiver *s3blob.Archiver
	logger   *slog.Logger
}

// NewLedgerArchiver creates a LedgerArchiver.
func NewLedgerArchiver(orders domain.OrderStore, archiver *s3blob.Archiver, logger *slog.Logger) *LedgerArchiver {
	return &LedgerArchiver{
		orders:   orders,
		archiver: archiver,
		logger:   logger.With(slog.String("component", "ledger_archiver")),
	}
}

// RunOnce uploads the most recent orders.
func (l *LedgerArchiver) RunOnce(ctx context.Context) error {
	orders, err := l.orders.ListRecent(ctx, domain.ListOpts{Limit: ledgerBatchSize})
	if err != nil {
		return fmt.Errorf("pipeline: list orders for archive: %w", err)
	}
	if len(orders) == 0 {
		return nil
	}

	count, err := l.archiver.ArchiveOrders(ctx, orders, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("pipeline: archive orders: %w", err)
	}

	l.logger.InfoContext(ctx, "order ledger archived", slog.Int64("orders", count))
	return nil
}

package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/galebot/galebot/internal/domain"
)

// Archiver uploads run artifacts to object storage: backtest results,
// replay datasets, and the paper order ledger. Uploads never delete from the
// primary store; pruning is a separate explicit step run after an archive
// has been verified.
type Archiver struct {
	writer domain.BlobWriter
	audit  domain.AuditStore
}

// NewArchiver creates a new Archiver. audit may be nil when no decision
// trail is wired (backtest-only runs).
func NewArchiver(writer domain.BlobWriter, audit domain.AuditStore) *Archiver {
	return &Archiver{writer: writer, audit: audit}
}

// ArchiveBacktest uploads a full backtest result, ledger included, as JSON
// at backtests/YYYY/MM/{runID}.json and returns the object path.
func (a *Archiver) ArchiveBacktest(ctx context.Context, runID string, ranAt time.Time, res domain.BacktestResult) (string, error) {
	buf, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", fmt.Errorf("s3blob: marshal backtest result: %w", err)
	}

	path := fmt.Sprintf("backtests/%s/%s.json", ranAt.UTC().Format("2006/01"), runID)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/json"); err != nil {
		return "", fmt.Errorf("s3blob: upload backtest result: %w", err)
	}
	return path, nil
}

// DatasetPath is the object key of a run's replay dataset.
func DatasetPath(runID string) string {
	return fmt.Sprintf("datasets/%s.jsonl", runID)
}

// ArchiveDataset uploads the replay rows behind a backtest as JSONL at
// datasets/{runID}.jsonl, so any result can be reproduced from its exact
// input later.
func (a *Archiver) ArchiveDataset(ctx context.Context, runID string, rows []domain.BacktestRow) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}
	buf, err := marshalJSONL(rows)
	if err != nil {
		return "", fmt.Errorf("s3blob: marshal dataset: %w", err)
	}

	path := DatasetPath(runID)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return "", fmt.Errorf("s3blob: upload dataset: %w", err)
	}
	return path, nil
}

// ArchiveOrders uploads the paper order ledger as JSONL, partitioned by the
// year-month of the cutoff, and records the archival in the audit trail.
// Returns the number of archived orders.
func (a *Archiver) ArchiveOrders(ctx context.Context, orders []domain.PaperOrder, before time.Time) (int64, error) {
	if len(orders) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(orders)
	if err != nil {
		return 0, fmt.Errorf("s3blob: marshal order ledger: %w", err)
	}

	path := fmt.Sprintf("archive/orders/%s.jsonl", before.UTC().Format("2006-01"))
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: upload order ledger: %w", err)
	}

	count := int64(len(orders))
	if a.audit != nil {
		entry := domain.AuditEntry{
			ID:        uuid.NewString(),
			EventID:   "ledger",
			Stage:     "archive",
			Decision:  "uploaded",
			Rationale: "order ledger archived",
			Detail: map[string]any{
				"path":   path,
				"count":  count,
				"before": before.UTC().Format(time.RFC3339),
			},
			CreatedAt: time.Now().UTC(),
		}
		if err := a.audit.Append(ctx, entry); err != nil {
			return count, fmt.Errorf("s3blob: audit order archive: %w", err)
		}
	}
	return count, nil
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

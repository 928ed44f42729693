package s3blob

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galebot/galebot/internal/domain"
)

type fakeWriter struct {
	paths        []string
	contentTypes []string
	bodies       [][]byte
}

func (f *fakeWriter) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	body, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.paths = append(f.paths, path)
	f.contentTypes = append(f.contentTypes, contentType)
	f.bodies = append(f.bodies, body)
	return nil
}

func TestArchiveBacktestPath(t *testing.T) {
	fw := &fakeWriter{}
	arch := NewArchiver(fw, nil)

	ranAt := time.Date(2026, 8, 25, 14, 0, 0, 0, time.UTC)
	res := domain.BacktestResult{
		StartingBankroll: 10000,
		EndingBankroll:   10560,
		TotalRows:        3,
		TotalTrades:      2,
	}

	path, err := arch.ArchiveBacktest(context.Background(), "run-7", ranAt, res)
	require.NoError(t, err)
	assert.Equal(t, "backtests/2026/08/run-7.json", path)
	require.Len(t, fw.paths, 1)
	assert.Equal(t, "application/json", fw.contentTypes[0])
	assert.Contains(t, string(fw.bodies[0]), `"EndingBankroll": 10560`)
}

func TestArchiveDatasetJSONL(t *testing.T) {
	fw := &fakeWriter{}
	arch := NewArchiver(fw, nil)

	ts := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	rows := []domain.BacktestRow{
		{EventID: "e1", ContractTicker: "T1", ForecastProbability: 0.84, MarketProbability: 0.60, Outcome: 1, Timestamp: &ts},
		{EventID: "e2", ContractTicker: "T2", ForecastProbability: 0.30, MarketProbability: 0.55, Outcome: 0},
	}

	path, err := arch.ArchiveDataset(context.Background(), "run-7", rows)
	require.NoError(t, err)
	assert.Equal(t, "datasets/run-7.jsonl", path)

	require.Len(t, fw.bodies, 1)
	lines := strings.Split(strings.TrimRight(string(fw.bodies[0]), "\n"), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"e1"`)
	assert.Contains(t, lines[1], `"e2"`)
}

func TestArchiveDatasetEmptyIsNoop(t *testing.T) {
	fw := &fakeWriter{}
	arch := NewArchiver(fw, nil)

	path, err := arch.ArchiveDataset(context.Background(), "run-7", nil)
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Empty(t, fw.paths)
}

func TestArchiveOrdersPartitionsByMonth(t *testing.T) {
	fw := &fakeWriter{}
	arch := NewArchiver(fw, nil)

	orders := []domain.PaperOrder{
		{ID: "o1", Side: domain.DecisionBuyYes, Notional: 200},
		{ID: "o2", Side: domain.DecisionBuyNo, Notional: 50},
	}
	before := time.Date(2026, 7, 31, 23, 59, 0, 0, time.UTC)

	n, err := arch.ArchiveOrders(context.Background(), orders, before)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.Len(t, fw.paths, 1)
	assert.Equal(t, "archive/orders/2026-07.jsonl", fw.paths[0])
	assert.Equal(t, "application/x-ndjson", fw.contentTypes[0])
}

func TestMarshalJSONLNoHTMLEscaping(t *testing.T) {
	type rec struct {
		URL string
	}
	out, err := marshalJSONL([]rec{{URL: "https://example.com/a?b=1&c=2"}})
	require.NoError(t, err)
	assert.True(t, bytes.Contains(out, []byte("&c=2")))
}

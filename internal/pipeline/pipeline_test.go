package pipeline

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	s3blob "github.com/galebot/galebot/internal/blob/s3"
	"github.com/galebot/galebot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeScanner struct{ calls atomic.Int64 }

func (f *fakeScanner) Scan(ctx context.Context) (int, error) {
	f.calls.Add(1)
	return 0, nil
}

type fakeEvaluator struct{ calls atomic.Int64 }

func (f *fakeEvaluator) RunOnce(ctx context.Context) (int, error) {
	f.calls.Add(1)
	return 0, nil
}

type fakeOutcomeResolver struct{ calls atomic.Int64 }

func (f *fakeOutcomeResolver) ResolveOnce(ctx context.Context, before time.Time) (int, error) {
	f.calls.Add(1)
	return 0, nil
}

func TestOrchestratorRunsEveryLoop(t *testing.T) {
	scanner := &fakeScanner{}
	evaluator := &fakeEvaluator{}
	resolver := &fakeOutcomeResolver{}

	o := NewOrchestrator(scanner, evaluator, resolver, nil, Intervals{
		Scan:    5 * time.Millisecond,
		Signal:  5 * time.Millisecond,
		Outcome: 5 * time.Millisecond,
	}, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, o.Run(ctx))
	assert.GreaterOrEqual(t, scanner.calls.Load(), int64(2))
	assert.GreaterOrEqual(t, evaluator.calls.Load(), int64(2))
	assert.GreaterOrEqual(t, resolver.calls.Load(), int64(2))
}

func TestOrchestratorSkipsMissingLoops(t *testing.T) {
	evaluator := &fakeEvaluator{}
	o := NewOrchestrator(nil, evaluator, nil, nil, Intervals{
		Signal: 5 * time.Millisecond,
	}, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	require.NoError(t, o.Run(ctx))
	assert.GreaterOrEqual(t, evaluator.calls.Load(), int64(1))
}

func TestOrchestratorRejectsZeroInterval(t *testing.T) {
	o := NewOrchestrator(&fakeScanner{}, nil, nil, nil, Intervals{}, testLogger())
	require.Error(t, o.Run(context.Background()))
}

type memOrderStore struct {
	orders []domain.PaperOrder
}

func (m *memOrderStore) Insert(ctx context.Context, o domain.PaperOrder) error {
	m.orders = append(m.orders, o)
	return nil
}

func (m *memOrderStore) GetByID(ctx context.Context, id string) (domain.PaperOrder, error) {
	for _, o := range m.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return domain.PaperOrder{}, domain.ErrNotFound
}

func (m *memOrderStore) ListByEvent(ctx context.Context, eventID string, opts domain.ListOpts) ([]domain.PaperOrder, error) {
	return nil, nil
}

func (m *memOrderStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.PaperOrder, error) {
	return m.orders, nil
}

type captureWriter struct {
	paths []string
}

func (c *captureWriter) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	c.paths = append(c.paths, path)
	return nil
}

func TestLedgerArchiverUploadsRecentOrders(t *testing.T) {
	store := &memOrderStore{orders: []domain.PaperOrder{
		{ID: "o1", Signal: domain.Signal{EventID: "temp_max::NYC::2026-08-28::ge_95.00F"}},
	}}
	writer := &captureWriter{}
	la := NewLedgerArchiver(store, s3blob.NewArchiver(writer, nil), testLogger())

	require.NoError(t, la.RunOnce(context.Background()))
	require.Len(t, writer.paths, 1)
	assert.Regexp(t, `^archive/orders/\d{4}-\d{2}\.jsonl$`, writer.paths[0])
}

func TestLedgerArchiverSkipsEmptyLedger(t *testing.T) {
	writer := &captureWriter{}
	la := NewLedgerArchiver(&memOrderStore{}, s3blob.NewArchiver(writer, nil), testLogger())

	require.NoError(t, la.RunOnce(context.Background()))
	assert.Empty(t, writer.paths)
}

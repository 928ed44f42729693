package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galebot/galebot/internal/domain"
)

type fakeSender struct {
	name   string
	titles []string
	err    error
}

func (f *fakeSender) Send(ctx context.Context, title, message string) error {
	if f.err != nil {
		return f.err
	}
	f.titles = append(f.titles, title)
	return nil
}

func (f *fakeSender) Name() string { return f.name }

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifyFiltersEvents(t *testing.T) {
	fs := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{fs}, []string{EventOrder}, discard())

	require.NoError(t, n.Notify(context.Background(), EventSignal, "sig", "body"))
	require.NoError(t, n.Notify(context.Background(), EventOrder, "ord", "body"))

	assert.Equal(t, []string{"ord"}, fs.titles)
}

func TestNotifyEmptyFilterAllowsAll(t *testing.T) {
	fs := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{fs}, nil, discard())

	require.NoError(t, n.Notify(context.Background(), EventError, "oops", "body"))
	assert.Len(t, fs.titles, 1)
}

func TestDispatchContinuesPastFailedSender(t *testing.T) {
	bad := &fakeSender{name: "bad", err: errors.New("boom")}
	good := &fakeSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, discard())

	err := n.NotifyAll(context.Background(), "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: boom")
	assert.Len(t, good.titles, 1)
}

func TestNotifySignalSkipsNoTrade(t *testing.T) {
	fs := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{fs}, nil, discard())

	sig := domain.Signal{Decision: domain.DecisionNoTrade, ContractTicker: "T"}
	require.NoError(t, n.NotifySignal(context.Background(), sig))
	assert.Empty(t, fs.titles)

	sig.Decision = domain.DecisionBuyYes
	sig.Edge = 0.24
	require.NoError(t, n.NotifySignal(context.Background(), sig))
	require.Len(t, fs.titles, 1)
	assert.Contains(t, fs.titles[0], "BUY_YES")
}

func TestNotifyOrderTitlesBySizingOutcome(t *testing.T) {
	fs := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{fs}, nil, discard())

	o := domain.PaperOrder{
		Signal:   domain.Signal{ContractTicker: "T"},
		Side:     domain.DecisionBuyYes,
		Fraction: 0.02,
		Notional: 200,
		PlacedAt: time.Now(),
	}
	require.NoError(t, n.NotifyOrder(context.Background(), o))

	o.SizingRejected = true
	o.Notional = 0
	require.NoError(t, n.NotifyOrder(context.Background(), o))

	require.Len(t, fs.titles, 2)
	assert.Contains(t, fs.titles[0], "Paper order")
	assert.Contains(t, fs.titles[1], "rejected by sizing")
}

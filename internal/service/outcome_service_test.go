package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galebot/galebot/internal/domain"
	"github.com/galebot/galebot/internal/platform/polymarket"
)

type memOutcomeStore struct {
	outcomes   map[string]domain.Outcome
	unresolved []string
}

func newMemOutcomeStore(unresolved ...string) *memOutcomeStore {
	return &memOutcomeStore{
		outcomes:   make(map[string]domain.Outcome),
		unresolved: unresolved,
	}
}

func (m *memOutcomeStore) Upsert(ctx context.Context, o domain.Outcome) error {
	m.outcomes[o.EventID] = o
	return nil
}

func (m *memOutcomeStore) GetByEvent(ctx context.Context, eventID string) (domain.Outcome, error) {
	o, ok := m.outcomes[eventID]
	if !ok {
		return domain.Outcome{}, domain.ErrNotFound
	}
	return o, nil
}

func (m *memOutcomeStore) ListUnresolvedEvents(ctx context.Context, before time.Time) ([]string, error) {
	return m.unresolved, nil
}

type fakeResolver struct {
	resolutions map[string]polymarket.Resolution
}

func (f *fakeResolver) GetResolution(ctx context.Context, slug string) (polymarket.Resolution, error) {
	res, ok := f.resolutions[slug]
	if !ok {
		return polymarket.Resolution{}, domain.ErrNotFound
	}
	return res, nil
}

func TestResolveOnceRecordsSettledMarkets(t *testing.T) {
	eventID := "temp_max::NYC::2026-08-28::ge_95.00F"
	snaps := &memSnapshotStore{records: []domain.SnapshotRecord{
		{EventID: eventID, ContractTicker: "nyc-high-temp-aug-28"},
	}}
	outcomes := newMemOutcomeStore(eventID)
	resolver := &fakeResolver{resolutions: map[string]polymarket.Resolution{
		"nyc-high-temp-aug-28": {Closed: true, YesWon: true},
	}}

	svc := NewOutcomeService(outcomes, snaps, resolver, nil, testLogger())
	resolved, err := svc.ResolveOnce(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)

	o, err := outcomes.GetByEvent(context.Background(), eventID)
	require.NoError(t, err)
	assert.Equal(t, 1, o.Result)
	assert.Equal(t, "nyc-high-temp-aug-28", o.ContractTicker)
}

func TestResolveOnceSkipsOpenMarkets(t *testing.T) {
	eventID := "temp_max::NYC::2026-08-30::ge_90.00F"
	snaps := &memSnapshotStore{records: []domain.SnapshotRecord{
		{EventID: eventID, ContractTicker: "still-open"},
	}}
	outcomes := newMemOutcomeStore(eventID)
	resolver := &fakeResolver{resolutions: map[string]polymarket.Resolution{
		"still-open": {Closed: false},
	}}

	svc := NewOutcomeService(outcomes, snaps, resolver, nil, testLogger())
	resolved, err := svc.ResolveOnce(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Zero(t, resolved)
	assert.Empty(t, outcomes.outcomes)
}

func TestResolveOnceContinuesPastFailures(t *testing.T) {
	okEvent := "temp_max::NYC::2026-08-28::ge_95.00F"
	badEvent := "temp_max::NYC::2026-08-29::ge_90.00F"
	snaps := &memSnapshotStore{records: []domain.SnapshotRecord{
		{EventID: okEvent, ContractTicker: "resolves"},
		// badEvent has no snapshot row, so its market cannot be found.
	}}
	outcomes := newMemOutcomeStore(badEvent, okEvent)
	resolver := &fakeResolver{resolutions: map[string]polymarket.Resolution{
		"resolves": {Closed: true, YesWon: false},
	}}

	svc := NewOutcomeService(outcomes, snaps, resolver, nil, testLogger())
	resolved, err := svc.ResolveOnce(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)

	o, err := outcomes.GetByEvent(context.Background(), okEvent)
	require.NoError(t, err)
	assert.Zero(t, o.Result)
}

package domain

import (
	"context"
	"time"
)

// ListOpts is the shared pagination contract for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// MarketStore persists weather market metadata discovered by universe scans.
type MarketStore interface {
	Upsert(ctx context.Context, m WeatherMarket) error
	GetBySlug(ctx context.Context, slug string) (WeatherMarket, error)
	ListByEventDate(ctx context.Context, date time.Time, opts ListOpts) ([]WeatherMarket, error)
	ListActive(ctx context.Context, since time.Time, opts ListOpts) ([]WeatherMarket, error)
}

// SnapshotRecord joins a forecast snapshot with the market quote that was
// current when the signal was evaluated. One row per evaluation.
type SnapshotRecord struct {
	ID                  string
	EventID             string
	ContractTicker      string
	ForecastProbability float64
	MarketProbability   float64
	MemberCount         int
	Model               string
	CapturedAt          time.Time
}

// SnapshotStore persists forecast/market probability pairs for later replay.
type SnapshotStore interface {
	Insert(ctx context.Context, s SnapshotRecord) error
	ListByEvent(ctx context.Context, eventID string, opts ListOpts) ([]SnapshotRecord, error)
	ListJoined(ctx context.Context, from, to time.Time) ([]BacktestRow, error)
}

// OutcomeStore persists resolved event outcomes.
type OutcomeStore interface {
	Upsert(ctx context.Context, o Outcome) error
	GetByEvent(ctx context.Context, eventID string) (Outcome, error)
	ListUnresolvedEvents(ctx context.Context, before time.Time) ([]string, error)
}

// OrderStore persists paper orders.
type OrderStore interface {
	Insert(ctx context.Context, o PaperOrder) error
	GetByID(ctx context.Context, id string) (PaperOrder, error)
	ListByEvent(ctx context.Context, eventID string, opts ListOpts) ([]PaperOrder, error)
	ListRecent(ctx context.Context, opts ListOpts) ([]PaperOrder, error)
}

// AuditEntry is one append-only record of a pipeline decision, including
// NO_TRADE evaluations: every skipped trade must remain explainable later.
type AuditEntry struct {
	ID        string
	EventID   string
	Stage     string // "estimate", "normalize", "signal", "size"
	Decision  string
	Rationale string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists the decision trail.
type AuditStore interface {
	Append(ctx context.Context, e AuditEntry) error
	ListByEvent(ctx context.Context, eventID string, opts ListOpts) ([]AuditEntry, error)
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/galebot/galebot/internal/domain"
	"github.com/galebot/galebot/internal/notify"
	"github.com/galebot/galebot/internal/platform/polymarket"
)

// Resolver reports a market's settlement state. *polymarket.GammaClient
// satisfies it.
type Resolver interface {
	GetResolution(ctx context.Context, slug string) (polymarket.Resolution, error)
}

// OutcomeService backfills resolved outcomes for events that have snapshots
// but no result yet. The venue's settlement is the source of truth; a later
// correction overwrites the earlier row.
type OutcomeService struct {
	outcomes  domain.OutcomeStore
	snapshots domain.SnapshotStore
	venue     Resolver
	notifier  *notify.Notifier
	logger    *slog.Logger
}

// NewOutcomeService creates an OutcomeService.
func NewOutcomeService(
	outcomes domain.OutcomeStore,
	snapshots domain.SnapshotStore,
	venue Resolver,
	notifier *notify.Notifier,
	logger *slog.Logger,
) *OutcomeService {
	return &OutcomeService{
		outcomes:  outcomes,
		snapshots: snapshots,
		venue:     venue,
		notifier:  notifier,
		logger:    logger.With(slog.String("component", "outcome_service")),
	}
}

// ResolveOnce checks every unresolved event with snapshots older than before
// against the venue and records outcomes for the markets that have settled.
// Returns the number of events resolved this pass.
func (s *OutcomeService) ResolveOnce(ctx context.Context, before time.Time) (int, error) {
	eventIDs, err := s.outcomes.ListUnresolvedEvents(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("outcome_service: list unresolved: %w", err)
	}

	resolved := 0
	for _, eventID := range eventIDs {
		ok, err := s.resolveEvent(ctx, eventID)
		if err != nil {
			s.logger.WarnContext(ctx, "event resolution skipped",
				slog.String("event_id", eventID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if ok {
			resolved++
		}
	}

	s.logger.InfoContext(ctx, "outcome pass complete",
		slog.Int("unresolved", len(eventIDs)),
		slog.Int("resolved", resolved),
	)
	return resolved, nil
}

// resolveEvent looks up the market behind one event and records its
// settlement. Returns false without error when the market has not closed.
func (s *OutcomeService) resolveEvent(ctx context.Context, eventID string) (bool, error) {
	snaps, err := s.snapshots.ListByEvent(ctx, eventID, domain.ListOpts{Limit: 1})
	if err != nil {
		return false, fmt.Errorf("snapshots for %s: %w", eventID, err)
	}
	if len(snaps) == 0 {
		return false, fmt.Errorf("no snapshot holds a market for %s", eventID)
	}
	slug := snaps[0].ContractTicker

	res, err := s.venue.GetResolution(ctx, slug)
	if err != nil {
		return false, fmt.Errorf("resolution for %s: %w", slug, err)
	}
	if !res.Closed {
		return false, nil
	}

	result := 0
	if res.YesWon {
		result = 1
	}
	outcome := domain.Outcome{
		EventID:        eventID,
		ContractTicker: slug,
		Result:         result,
		ResolvedAt:     time.Now().UTC(),
	}
	if err := s.outcomes.Upsert(ctx, outcome); err != nil {
		return false, fmt.Errorf("record outcome for %s: %w", eventID, err)
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyOutcome(ctx, outcome); err != nil {
			s.logger.WarnContext(ctx, "outcome notification failed", slog.String("error", err.Error()))
		}
	}
	return true, nil
}

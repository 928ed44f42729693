package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/galebot/galebot/internal/domain"
	"github.com/galebot/galebot/internal/market"
	"github.com/galebot/galebot/internal/notify"
	"github.com/galebot/galebot/internal/platform/polymarket"
	"github.com/galebot/galebot/internal/risk"
	"github.com/galebot/galebot/internal/strategy"
	"github.com/galebot/galebot/internal/universe"
)

// Quoter fetches the current YES quote for a market. *polymarket.GammaClient
// satisfies it.
type Quoter interface {
	Quote(ctx context.Context, slug, yesLabel string) (domain.MarketQuote, error)
}

// Forecaster produces an event probability snapshot. *ForecastService
// satisfies it.
type Forecaster interface {
	Forecast(ctx context.Context, spec domain.EventSpec) (domain.ForecastSnapshot, error)
}

// SignalService runs the full evaluation pipeline for one market: quote,
// normalize, forecast, gate, size. Every stage decision is appended to the
// audit trail, NO_TRADE included.
type SignalService struct {
	markets    domain.MarketStore
	snapshots  domain.SnapshotStore
	orders     domain.OrderStore
	audit      domain.AuditStore
	quotes     domain.QuoteCache
	venue      Quoter
	forecaster Forecaster
	normalizer *market.Normalizer
	strategy   *strategy.Engine
	session    *risk.BankrollSession
	riskEng    *risk.Engine
	notifier   *notify.Notifier
	cities     map[string]universe.City
	staleness  time.Duration
	logger     *slog.Logger
}

// SignalServiceConfig bundles the dependencies of NewSignalService; there
// are too many for a positional constructor.
type SignalServiceConfig struct {
	Markets    domain.MarketStore
	Snapshots  domain.SnapshotStore
	Orders     domain.OrderStore
	Audit      domain.AuditStore
	Quotes     domain.QuoteCache
	Venue      Quoter
	Forecaster Forecaster
	Normalizer *market.Normalizer
	Strategy   *strategy.Engine
	Session    *risk.BankrollSession
	Risk       *risk.Engine
	Notifier   *notify.Notifier
	Cities     []universe.City
	Staleness  time.Duration
	Logger     *slog.Logger
}

// NewSignalService creates a SignalService.
func NewSignalService(cfg SignalServiceConfig) *SignalService {
	cities := make(map[string]universe.City, len(cfg.Cities))
	for _, c := range cfg.Cities {
		cities[c.Label] = c
	}
	return &SignalService{
		markets:    cfg.Markets,
		snapshots:  cfg.Snapshots,
		orders:     cfg.Orders,
		audit:      cfg.Audit,
		quotes:     cfg.Quotes,
		venue:      cfg.Venue,
		forecaster: cfg.Forecaster,
		normalizer: cfg.Normalizer,
		strategy:   cfg.Strategy,
		session:    cfg.Session,
		riskEng:    cfg.Risk,
		notifier:   cfg.Notifier,
		cities:     cities,
		staleness:  cfg.Staleness,
		logger:     cfg.Logger.With(slog.String("component", "signal_service")),
	}
}

// RunOnce evaluates every market seen by a recent scan. Per-market failures
// are logged and skipped; the cycle keeps going. Returns the number of
// tradable signals produced.
func (s *SignalService) RunOnce(ctx context.Context) (int, error) {
	since := time.Now().UTC().Add(-24 * time.Hour)
	markets, err := s.markets.ListActive(ctx, since, domain.ListOpts{Limit: 200})
	if err != nil {
		return 0, fmt.Errorf("signal_service: list markets: %w", err)
	}

	tradable := 0
	for _, wm := range markets {
		sig, _, err := s.EvaluateMarket(ctx, wm)
		if err != nil {
			s.logger.WarnContext(ctx, "market evaluation skipped",
				slog.String("slug", wm.Slug),
				slog.String("error", err.Error()),
			)
			continue
		}
		if sig.Tradable() {
			tradable++
		}
	}

	s.logger.InfoContext(ctx, "signal cycle complete",
		slog.Int("markets", len(markets)),
		slog.Int("tradable", tradable),
	)
	return tradable, nil
}

// EvaluateMarket runs the pipeline for one stored market. The returned order
// is nil when the signal is NO_TRADE.
func (s *SignalService) EvaluateMarket(ctx context.Context, wm domain.WeatherMarket) (domain.Signal, *domain.PaperOrder, error) {
	spec, err := s.eventSpec(wm)
	if err != nil {
		return domain.Signal{}, nil, err
	}
	eventID := spec.ID()

	quote, err := s.fetchQuote(ctx, wm.Slug, wm.YesLabel)
	if err != nil {
		return domain.Signal{}, nil, fmt.Errorf("signal_service: quote %s: %w", wm.Slug, err)
	}

	marketProb, err := s.normalizer.Normalize(quote)
	if err != nil {
		s.auditStage(ctx, eventID, "normalize", "rejected", err.Error(), map[string]any{
			"slug":       wm.Slug,
			"fetched_at": quote.FetchedAt,
		})
		if errors.Is(err, domain.ErrStaleQuote) {
			// A stale quote invalidates the whole evaluation, not just the
			// trade. Drop the cached copy so the next cycle refetches.
			_ = s.quotes.DeleteQuote(ctx, quote.Venue, quote.ContractTicker)
		}
		return domain.Signal{}, nil, fmt.Errorf("signal_service: normalize %s: %w", wm.Slug, err)
	}

	snap, err := s.forecaster.Forecast(ctx, spec)
	if err != nil {
		s.auditStage(ctx, eventID, "estimate", "rejected", err.Error(), map[string]any{
			"slug": wm.Slug,
		})
		return domain.Signal{}, nil, fmt.Errorf("signal_service: forecast %s: %w", eventID, err)
	}

	if err := s.snapshots.Insert(ctx, domain.SnapshotRecord{
		ID:                  uuid.NewString(),
		EventID:             eventID,
		ContractTicker:      wm.Slug,
		ForecastProbability: snap.Probability,
		MarketProbability:   marketProb,
		MemberCount:         snap.MemberCount,
		Model:               snap.Model,
		CapturedAt:          time.Now().UTC(),
	}); err != nil {
		return domain.Signal{}, nil, fmt.Errorf("signal_service: persist snapshot %s: %w", eventID, err)
	}

	sig := s.strategy.Evaluate(snap, wm.Slug, marketProb)
	s.auditStage(ctx, eventID, "signal", string(sig.Decision), sig.Rationale, map[string]any{
		"signal_id": sig.ID,
		"forecast":  sig.ForecastProbability,
		"market":    sig.MarketProbability,
		"edge":      sig.Edge,
		"ev":        sig.ExpectedValue,
	})

	if !sig.Tradable() {
		return sig, nil, nil
	}

	order, err := s.session.Size(s.riskEng, sig)
	if err != nil {
		s.auditStage(ctx, eventID, "size", "error", err.Error(), map[string]any{
			"signal_id": sig.ID,
		})
		return sig, nil, fmt.Errorf("signal_service: size %s: %w", eventID, err)
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		return sig, nil, fmt.Errorf("signal_service: persist order %s: %w", order.ID, err)
	}

	sizeDecision := "sized"
	if order.SizingRejected {
		sizeDecision = "sizing_rejected"
	}
	s.auditStage(ctx, eventID, "size", sizeDecision, "", map[string]any{
		"order_id":    order.ID,
		"fraction":    order.Fraction,
		"notional":    order.Notional,
		"cap_applied": order.CapApplied,
	})

	if s.notifier != nil {
		if err := s.notifier.NotifySignal(ctx, sig); err != nil {
			s.logger.WarnContext(ctx, "signal notification failed", slog.String("error", err.Error()))
		}
		if err := s.notifier.NotifyOrder(ctx, order); err != nil {
			s.logger.WarnContext(ctx, "order notification failed", slog.String("error", err.Error()))
		}
	}

	return sig, &order, nil
}

// fetchQuote returns a cached quote when one is fresh enough, falling back
// to the venue. Fetched quotes are cached with the staleness window as TTL.
func (s *SignalService) fetchQuote(ctx context.Context, slug, yesLabel string) (domain.MarketQuote, error) {
	if s.quotes != nil {
		q, err := s.quotes.GetQuote(ctx, polymarket.Venue, slug)
		if err == nil {
			return q, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "quote cache read failed",
				slog.String("slug", slug),
				slog.String("error", err.Error()),
			)
		}
	}

	q, err := s.venue.Quote(ctx, slug, yesLabel)
	if err != nil {
		return domain.MarketQuote{}, err
	}

	if s.quotes != nil {
		if err := s.quotes.SetQuote(ctx, q, s.staleness); err != nil {
			s.logger.WarnContext(ctx, "quote cache write failed",
				slog.String("slug", slug),
				slog.String("error", err.Error()),
			)
		}
	}
	return q, nil
}

// eventSpec rebuilds the event description from stored market metadata. The
// city must still be configured; markets for retired cities cannot be
// forecast.
func (s *SignalService) eventSpec(wm domain.WeatherMarket) (domain.EventSpec, error) {
	city, ok := s.cities[wm.CityLabel]
	if !ok {
		return domain.EventSpec{}, fmt.Errorf("signal_service: unknown city %q for market %s", wm.CityLabel, wm.Slug)
	}
	return domain.EventSpec{
		Location:  city.Location(),
		Variable:  wm.Variable,
		Operator:  domain.OperatorGTE,
		Threshold: wm.ThresholdValue,
		Unit:      wm.ThresholdUnit,
		Date:      wm.EventDate,
	}, nil
}

func (s *SignalService) auditStage(ctx context.Context, eventID, stage, decision, rationale string, detail map[string]any) {
	entry := domain.AuditEntry{
		ID:        uuid.NewString(),
		EventID:   eventID,
		Stage:     stage,
		Decision:  decision,
		Rationale: rationale,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.WarnContext(ctx, "audit append failed",
			slog.String("event_id", eventID),
			slog.String("stage", stage),
			slog.String("error", err.Error()),
		)
	}
}

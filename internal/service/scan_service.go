package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/galebot/galebot/internal/domain"
	"github.com/galebot/galebot/internal/platform/polymarket"
	"github.com/galebot/galebot/internal/universe"
)

const (
	scanPageSize = 100
	scanMaxPages = 20
)

// MarketLister pages through the venue's market listing.
// *polymarket.GammaClient satisfies it.
type MarketLister interface {
	GetMarkets(ctx context.Context, limit, offset int) ([]polymarket.APIMarket, error)
}

// ScanService discovers weather markets on the venue and keeps the market
// store current. Scans are additive; markets that stop appearing simply
// stop having LastSeenAt refreshed.
type ScanService struct {
	venue   MarketLister
	markets domain.MarketStore
	opts    universe.Options
	logger  *slog.Logger
}

// NewScanService creates a ScanService with the given selection options.
func NewScanService(venue MarketLister, markets domain.MarketStore, opts universe.Options, logger *slog.Logger) *ScanService {
	return &ScanService{
		venue:   venue,
		markets: markets,
		opts:    opts,
		logger:  logger.With(slog.String("component", "scan_service")),
	}
}

// Scan pages through the venue's market listing, selects the weather markets
// worth forecasting, and upserts them. Returns the number of selected
// markets.
func (s *ScanService) Scan(ctx context.Context) (int, error) {
	var raw []polymarket.APIMarket
	for page := 0; page < scanMaxPages; page++ {
		batch, err := s.venue.GetMarkets(ctx, scanPageSize, page*scanPageSize)
		if err != nil {
			return 0, fmt.Errorf("scan_service: page %d: %w", page, err)
		}
		raw = append(raw, batch...)
		if len(batch) < scanPageSize {
			break
		}
	}

	candidates := universe.Select(raw, s.opts)
	seenAt := time.Now().UTC()

	stored := 0
	for _, c := range candidates {
		wm := c.WeatherMarket(seenAt)
		if err := s.markets.Upsert(ctx, wm); err != nil {
			s.logger.WarnContext(ctx, "market upsert failed",
				slog.String("slug", wm.Slug),
				slog.String("error", err.Error()),
			)
			continue
		}
		stored++
	}

	s.logger.InfoContext(ctx, "universe scan complete",
		slog.Int("listed", len(raw)),
		slog.Int("selected", len(candidates)),
		slog.Int("stored", stored),
	)
	return stored, nil
}

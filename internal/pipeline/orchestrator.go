// Package pipeline schedules the long-running work loops: universe scans,
// signal evaluation cycles, outcome resolution, and ledger archival.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Scanner discovers markets. *service.ScanService satisfies it.
type Scanner interface {
	Scan(ctx context.Context) (int, error)
}

// Evaluator runs one signal cycle. *service.SignalService satisfies it.
type Evaluator interface {
	RunOnce(ctx context.Context) (int, error)
}

// OutcomeResolver backfills outcomes. *service.OutcomeService satisfies it.
type OutcomeResolver interface {
	ResolveOnce(ctx context.Context, before time.Time) (int, error)
}

// Intervals holds the loop periods.
type Intervals struct {
	Scan    time.Duration
	Signal  time.Duration
	Outcome time.Duration
}

// Orchestrator runs all pipeline loops as one errgroup. Each loop fires
// immediately on start and then on its ticker; a loop iteration failing is
// logged, not fatal. Only context cancellation stops the orchestrator.
type Orchestrator struct {
	scanner   Scanner
	evaluator Evaluator
	resolver  OutcomeResolver
	ledger    *LedgerArchiver
	intervals Intervals
	logger    *slog.Logger
}

// NewOrchestrator creates an Orchestrator. resolver and ledger may be nil;
// the corresponding loops are skipped.
func NewOrchestrator(
	scanner Scanner,
	evaluator Evaluator,
	resolver OutcomeResolver,
	ledger *LedgerArchiver,
	intervals Intervals,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		scanner:   scanner,
		evaluator: evaluator,
		resolver:  resolver,
		ledger:    ledger,
		intervals: intervals,
		logger:    logger.With(slog.String("component", "orchestrator")),
	}
}

// Run blocks until the context is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.InfoContext(ctx, "pipeline starting",
		slog.Duration("scan_interval", o.intervals.Scan),
		slog.Duration("signal_interval", o.intervals.Signal),
		slog.Duration("outcome_interval", o.intervals.Outcome),
	)

	// Loops return nil on cancellation, so g.Wait only surfaces real
	// failures such as a misconfigured interval.
	g, ctx := errgroup.WithContext(ctx)

	if o.scanner != nil {
		g.Go(func() error {
			return o.loop(ctx, "scan", o.intervals.Scan, func(ctx context.Context) error {
				_, err := o.scanner.Scan(ctx)
				return err
			})
		})
	}

	if o.evaluator != nil {
		g.Go(func() error {
			return o.loop(ctx, "signal", o.intervals.Signal, func(ctx context.Context) error {
				_, err := o.evaluator.RunOnce(ctx)
				return err
			})
		})
	}

	if o.resolver != nil {
		g.Go(func() error {
			return o.loop(ctx, "outcome", o.intervals.Outcome, func(ctx context.Context) error {
				_, err := o.resolver.ResolveOnce(ctx, time.Now().UTC())
				return err
			})
		})
	}

	if o.ledger != nil {
		g.Go(func() error {
			return o.loop(ctx, "ledger", 24*time.Hour, o.ledger.RunOnce)
		})
	}

	if err := g.Wait(); err != nil {
		o.logger.Error("pipeline stopped with error", slog.String("error", err.Error()))
		return err
	}
	o.logger.Info("pipeline stopped")
	return nil
}

// loop runs fn immediately and then on every tick until cancellation.
// Iteration errors are logged and the loop keeps going; transient venue or
// store failures must not take the whole process down.
func (o *Orchestrator) loop(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) error {
	if interval <= 0 {
		return fmt.Errorf("pipeline: %s loop needs a positive interval", name)
	}

	run := func() {
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			o.logger.ErrorContext(ctx, "pipeline iteration failed",
				slog.String("loop", name),
				slog.String("error", err.Error()),
			)
		}
	}

	run()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("pipeline loop stopped", slog.String("loop", name))
			return nil
		case <-ticker.C:
			run()
		}
	}
}

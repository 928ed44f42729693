// Package notify fans pipeline alerts out to operator channels (Telegram,
// Discord). Channels are optional; a Notifier with no senders is a silent
// no-op, which keeps call sites unconditional.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/galebot/galebot/internal/domain"
)

// Event types the pipeline emits. The configured allow-list filters on these.
const (
	EventSignal  = "signal"
	EventOrder   = "order"
	EventOutcome = "outcome"
	EventError   = "error"
)

// Sender is one delivery channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	// Name identifies the channel in logs, e.g. "telegram".
	Name() string
}

// Notifier dispatches to all registered senders, filtered by event type.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders. Only event
// types listed in events pass the filter; an empty list allows everything.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify sends to all senders if the event type passes the filter.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", event),
		)
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// NotifySignal reports a tradable signal. NO_TRADE decisions are not worth an
// operator ping and are skipped.
func (n *Notifier) NotifySignal(ctx context.Context, sig domain.Signal) error {
	if !sig.Tradable() {
		return nil
	}
	title := fmt.Sprintf("Signal: %s %s", strings.ToUpper(string(sig.Decision)), sig.ContractTicker)
	msg := fmt.Sprintf("event: %s\nforecast: %.2f  market: %.2f\nedge: %+.3f  EV: %+.3f\nmembers: %d",
		sig.EventID, sig.ForecastProbability, sig.MarketProbability,
		sig.Edge, sig.ExpectedValue, sig.MemberCount)
	return n.Notify(ctx, EventSignal, title, msg)
}

// NotifyOrder reports a sized paper order, including sizing rejections so the
// ledger and the alert stream stay in step.
func (n *Notifier) NotifyOrder(ctx context.Context, o domain.PaperOrder) error {
	var title string
	if o.SizingRejected {
		title = fmt.Sprintf("Order rejected by sizing: %s", o.Signal.ContractTicker)
	} else {
		title = fmt.Sprintf("Paper order: %s %s", strings.ToUpper(string(o.Side)), o.Signal.ContractTicker)
	}
	msg := fmt.Sprintf("notional: $%.2f (%.2f%% of bankroll)\ncap applied: %t",
		o.Notional, o.Fraction*100, o.CapApplied)
	return n.Notify(ctx, EventOrder, title, msg)
}

// NotifyOutcome reports a resolved event.
func (n *Notifier) NotifyOutcome(ctx context.Context, out domain.Outcome) error {
	result := "NO"
	if out.Result == 1 {
		result = "YES"
	}
	title := fmt.Sprintf("Outcome: %s resolved %s", out.ContractTicker, result)
	msg := fmt.Sprintf("event: %s\nresolved at: %s", out.EventID, out.ResolvedAt.Format(time.RFC3339))
	return n.Notify(ctx, EventOutcome, title, msg)
}

// NotifyAll bypasses the event filter.
func (n *Notifier) NotifyAll(ctx context.Context, title, message string) error {
	return n.dispatch(ctx, title, message)
}

// dispatch delivers to every sender. One sender failing does not stop the
// rest; failures are combined into a single error.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		} else {
			n.logger.DebugContext(ctx, "notification sent",
				slog.String("sender", s.Name()),
				slog.String("title", title),
			)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// Package notify delivers operator alerts over one or more channels
// (Telegram, Discord). The control loop uses it for direction flips, which
// are the only events urgent enough to page a human mid-session.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/quantfold/zerodte/internal/domain"
)

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches alerts to all configured senders. A sender failure is
// logged and does not block delivery to the remaining senders.
type Notifier struct {
	senders []Sender
	logger  *slog.Logger
}

// NewNotifier creates a Notifier over the given senders. An empty sender set
// is valid and makes every call a no-op.
func NewNotifier(senders []Sender, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		senders: senders,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// FlipAlert notifies operators that the swarm's direction reversed between
// consecutive cycles.
func (n *Notifier) FlipAlert(ctx context.Context, from, to domain.Direction, sig domain.Signal) error {
	title := fmt.Sprintf("Signal flip: %s to %s", from, to)

	var b strings.Builder
	fmt.Fprintf(&b, "Direction reversed to %s (%s conviction)", to, sig.Conviction)
	if sig.Price > 0 {
		fmt.Fprintf(&b, " at $%.2f", sig.Price)
	}
	if sig.Kind == domain.SignalEntry && sig.Entry > 0 {
		fmt.Fprintf(&b, "\nEntry $%.2f, stop $%.2f, target $%.2f", sig.Entry, sig.Stop, sig.Target)
	}

	return n.dispatch(ctx, title, b.String())
}

// Notify sends an arbitrary alert to all senders.
func (n *Notifier) Notify(ctx context.Context, title, message string) error {
	return n.dispatch(ctx, title, message)
}

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

// Package notify delivers operator alerts to Telegram and Discord. Alerts are
// filtered by event name so operators receive only what they configured.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/alanyoungcy/optionlab/internal/domain"
)

// Alert names accepted in notify.events.
const (
	AlertSolverFailed     = "solver_failed"
	AlertArchiveCompleted = "archive_completed"
	AlertError            = "error"
)

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a short identifier such as "telegram".
	Name() string
}

// Notifier dispatches alerts to every Sender whose event passes the filter.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier for the given senders. An empty events list
// lets every alert through.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Enabled reports whether any sender is configured.
func (n *Notifier) Enabled() bool {
	return len(n.senders) > 0
}

// Notify sends an alert if its event name is allowed.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "notify: event filtered out", slog.String("event", event))
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// Run forwards alert-worthy bus events until ctx is done.
func (n *Notifier) Run(ctx context.Context, bus domain.SignalBus) error {
	quotes, err := bus.Subscribe(ctx, domain.ChannelQuotes)
	if err != nil {
		return fmt.Errorf("notify: subscribe %s: %w", domain.ChannelQuotes, err)
	}
	system, err := bus.Subscribe(ctx, domain.ChannelSystem)
	if err != nil {
		return fmt.Errorf("notify: subscribe %s: %w", domain.ChannelSystem, err)
	}

	for {
		var raw []byte
		var ok bool
		select {
		case <-ctx.Done():
			return nil
		case raw, ok = <-quotes:
		case raw, ok = <-system:
		}
		if !ok {
			return nil
		}
		ev, err := domain.UnmarshalEvent(raw)
		if err != nil {
			n.logger.WarnContext(ctx, "notify: bad bus payload", slog.String("error", err.Error()))
			continue
		}
		alert, title, message, ok := FormatEvent(ev)
		if !ok {
			continue
		}
		if err := n.Notify(ctx, alert, title, message); err != nil {
			n.logger.ErrorContext(ctx, "notify: alert not delivered",
				slog.String("alert", alert),
				slog.String("error", err.Error()),
			)
		}
	}
}

// FormatEvent maps a bus event to an alert. It returns false for events that
// never alert, such as computed quotes.
func FormatEvent(ev domain.Event) (alert, title, message string, ok bool) {
	switch ev.Type {
	case domain.EventSolverFailed:
		return AlertSolverFailed, "Solver failed", describe(ev.Data), true
	case domain.EventArchiveComplete:
		return AlertArchiveCompleted, "Archive completed", describe(ev.Data), true
	}
	return "", "", "", false
}

// describe renders data as sorted "key: value" lines.
func describe(data map[string]any) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %v", k, data[k])
	}
	return b.String()
}

// dispatch sends to every sender; one failure does not stop the rest.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "notify: sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notify: sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

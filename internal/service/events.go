package service

import (
	"context"
	"log/slog"

	"github.com/alanyoungcy/optionlab/internal/domain"
)

// publisher sends events to the bus and, when a stream is given, appends
// them to it. A nil bus makes every call a no-op so the services also run
// without Redis. Failures are logged and never returned.
type publisher struct {
	bus    domain.SignalBus
	logger *slog.Logger
}

func (p publisher) publish(ctx context.Context, channel, stream string, ev domain.Event) {
	if p.bus == nil {
		return
	}
	payload, err := ev.Marshal()
	if err != nil {
		p.logger.WarnContext(ctx, "service: encode event failed",
			slog.String("event", ev.Type),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := p.bus.Publish(ctx, channel, payload); err != nil {
		p.logger.WarnContext(ctx, "service: publish event failed",
			slog.String("event", ev.Type),
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
	if stream == "" {
		return
	}
	if err := p.bus.StreamAppend(ctx, stream, payload); err != nil {
		p.logger.WarnContext(ctx, "service: stream append failed",
			slog.String("event", ev.Type),
			slog.String("stream", stream),
			slog.String("error", err.Error()),
		)
	}
}

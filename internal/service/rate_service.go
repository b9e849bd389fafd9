package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/optionlab/internal/domain"
)

// RateService supplies the risk-free rate for quotes that carry none. The
// pricing engine never sees where a rate came from.
type RateService struct {
	cache       domain.RateCache
	events      publisher
	defaultRate float64
	maxAge      time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

// NewRateService creates a RateService. cache and bus may be nil, in which
// case every lookup returns defaultRate. A zero maxAge never expires the
// cached rate.
func NewRateService(
	cache domain.RateCache,
	bus domain.SignalBus,
	defaultRate float64,
	maxAge time.Duration,
	logger *slog.Logger,
) *RateService {
	return &RateService{
		cache:       cache,
		events:      publisher{bus: bus, logger: logger},
		defaultRate: defaultRate,
		maxAge:      maxAge,
		now:         time.Now,
		logger:      logger,
	}
}

// RateInfo is the current rate with its provenance.
type RateInfo struct {
	Rate      float64           `json:"rate"`
	Source    domain.RateSource `json:"source"`
	UpdatedAt *time.Time        `json:"updated_at,omitempty"`
}

// Current returns the cached rate, falling back to the default when the
// cache is empty, stale or unreachable.
func (s *RateService) Current(ctx context.Context) RateInfo {
	fallback := RateInfo{Rate: s.defaultRate, Source: domain.RateSourceDefault}
	if s.cache == nil {
		return fallback
	}

	rate, ts, err := s.cache.GetRate(ctx)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fallback
	case err != nil:
		s.logger.WarnContext(ctx, "rate_service: cache read failed, using default",
			slog.String("error", err.Error()),
		)
		return fallback
	case s.maxAge > 0 && s.now().Sub(ts) > s.maxAge:
		s.logger.DebugContext(ctx, "rate_service: cached rate is stale",
			slog.Time("updated_at", ts),
			slog.Duration("max_age", s.maxAge),
		)
		return fallback
	}
	return RateInfo{Rate: rate, Source: domain.RateSourceCache, UpdatedAt: &ts}
}

// Set stores a new rate and announces it on the rate channel.
func (s *RateService) Set(ctx context.Context, rate float64) (RateInfo, error) {
	if err := domain.CheckFinite("rate", rate); err != nil {
		return RateInfo{}, fmt.Errorf("rate_service: set: %w", err)
	}
	if s.cache == nil {
		return RateInfo{}, errors.New("rate_service: set: no rate cache configured")
	}

	ts := s.now().UTC()
	if err := s.cache.SetRate(ctx, rate, ts); err != nil {
		return RateInfo{}, fmt.Errorf("rate_service: set: %w", err)
	}
	s.logger.InfoContext(ctx, "rate_service: rate updated", slog.Float64("rate", rate))

	s.events.publish(ctx, domain.ChannelRate, "", domain.NewEvent(domain.EventRateUpdated, map[string]any{
		"rate":       rate,
		"updated_at": ts.Format(time.RFC3339),
	}))
	return RateInfo{Rate: rate, Source: domain.RateSourceCache, UpdatedAt: &ts}, nil
}

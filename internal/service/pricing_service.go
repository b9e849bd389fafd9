package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/optionlab/internal/domain"
	"github.com/alanyoungcy/optionlab/internal/pricing"
)

const (
	// DaysPerYear converts calendar days to year fractions.
	DaysPerYear = 365.25
	// MinTimeToExpiry floors the expiry derived from a date so that same-day
	// and past expirations still price.
	MinTimeToExpiry = 0.001
)

// RateProvider supplies a rate when the request has none.
type RateProvider interface {
	Current(ctx context.Context) RateInfo
}

// PricingService turns calculator requests into quotes. It decides which
// input is missing, runs the matching solver, and attaches greeks, curves
// and display strings. Computed quotes are cached and announced on the bus.
type PricingService struct {
	solver  *pricing.Solver
	sampler *pricing.CurveSampler
	rates   RateProvider
	cache   domain.QuoteCache
	bus     domain.SignalBus
	events  publisher
	now     func() time.Time
	logger  *slog.Logger
}

// NewPricingService creates a PricingService. cache and bus may be nil.
func NewPricingService(
	solver *pricing.Solver,
	rates RateProvider,
	cache domain.QuoteCache,
	bus domain.SignalBus,
	logger *slog.Logger,
) *PricingService {
	return &PricingService{
		solver:  solver,
		sampler: pricing.NewCurveSampler(logger),
		rates:   rates,
		cache:   cache,
		bus:     bus,
		events:  publisher{bus: bus, logger: logger},
		now:     time.Now,
		logger:  logger,
	}
}

// WithClock replaces the clock used for expiration dates.
func (s *PricingService) WithClock(now func() time.Time) *PricingService {
	s.now = now
	return s
}

// Quote resolves req into a full quote.
func (s *PricingService) Quote(ctx context.Context, req domain.QuoteRequest) (domain.Quote, error) {
	typ, err := domain.ParseOptionType(req.OptionType)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("pricing_service: quote: %w", err)
	}
	t, err := s.timeToExpiry(req)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("pricing_service: quote: %w", err)
	}

	rate := RateInfo{Source: domain.RateSourceRequest}
	if req.Rate != nil {
		rate.Rate = *req.Rate
	} else {
		rate = s.rates.Current(ctx)
	}

	in := domain.OptionInputs{
		Type:         typ,
		Strike:       req.Strike,
		TimeToExpiry: t,
		Rate:         rate.Rate,
		Volatility:   req.Volatility,
		Spot:         req.Spot,
		MarketPrice:  req.MarketPrice,
	}
	res, err := domain.Classify(in)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("pricing_service: quote: %w", err)
	}
	key := fingerprint(in, req.IncludeCurves)
	if q, ok := s.cached(ctx, key); ok {
		// Equal rates from different sources share an entry.
		q.RateSource = rate.Source
		return q, nil
	}
	q, err := s.resolve(ctx, res)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("pricing_service: quote: %w", err)
	}
	q.RateSource = rate.Source

	if q.Greeks, err = pricing.GreeksSpec(q.Spec); err != nil {
		return domain.Quote{}, fmt.Errorf("pricing_service: quote: %w", err)
	}
	q.ThetaPerDay = q.Greeks.ThetaPerDay()

	if req.IncludeCurves {
		if q.Curves, err = s.defaultCurves(ctx, q.Spec); err != nil {
			return domain.Quote{}, fmt.Errorf("pricing_service: quote: %w", err)
		}
	}
	q.Display = display(q.Spec, q.MarketPrice)
	q.ComputedAt = s.now().UTC()

	s.store(ctx, key, q)
	s.events.publish(ctx, domain.ChannelQuotes, domain.StreamQuotes,
		domain.NewEvent(domain.EventQuoteComputed, domain.QuoteEventData(q)))
	return q, nil
}

// resolve runs whichever computation the variant calls for.
func (s *PricingService) resolve(ctx context.Context, res domain.Resolution) (domain.Quote, error) {
	q := domain.Quote{Solved: res.Missing()}

	switch v := res.(type) {
	case domain.Resolved:
		p, err := pricing.PriceSpec(v.Spec)
		if err != nil {
			return domain.Quote{}, err
		}
		q.Spec, q.MarketPrice = v.Spec, p

	case domain.NeedsVolatility:
		r, err := s.solver.ImpliedVolatility(v.Type, v.Spot, v.Strike, v.TimeToExpiry, v.Rate, v.MarketPrice)
		if err != nil {
			s.solverFailed(ctx, res, v.Type, v.Strike, v.MarketPrice, err)
			return domain.Quote{}, err
		}
		q.Spec, q.MarketPrice = v.WithVolatility(r.Value), v.MarketPrice
		q.Solver = r.Stats("hybrid newton/bisection")

	case domain.NeedsSpot:
		r, err := s.solver.ImpliedSpot(v.Type, v.Strike, v.TimeToExpiry, v.Rate, v.Volatility, v.MarketPrice)
		if err != nil {
			s.solverFailed(ctx, res, v.Type, v.Strike, v.MarketPrice, err)
			return domain.Quote{}, err
		}
		q.Spec, q.MarketPrice = v.WithSpot(r.Value), v.MarketPrice
		q.Solver = r.Stats("geometric bisection")

	default:
		return domain.Quote{}, fmt.Errorf("unhandled resolution %T", res)
	}
	return q, nil
}

// solverFailed logs the failure and, for convergence failures, publishes a
// solver.failed event. Bound violations are caller errors and stay quiet.
func (s *PricingService) solverFailed(ctx context.Context, res domain.Resolution, typ domain.OptionType, strike, target float64, err error) {
	s.logger.InfoContext(ctx, "pricing_service: solve failed",
		slog.String("solving", res.Missing()),
		slog.String("error", err.Error()),
	)
	var ce *domain.ConvergenceError
	if !errors.As(err, &ce) {
		return
	}
	s.events.publish(ctx, domain.ChannelQuotes, "", domain.NewEvent(domain.EventSolverFailed, map[string]any{
		"solver":       ce.Solver,
		"iterations":   ce.Iterations,
		"residual":     ce.Residual,
		"reason":       ce.Reason,
		"option_type":  string(typ),
		"strike":       strike,
		"market_price": target,
	}))
}

// CurveRequest asks for one price curve. A nil Range or zero Points uses the
// axis defaults.
type CurveRequest struct {
	Spec   domain.OptionSpec `json:"spec"`
	Axis   string            `json:"axis"`
	Range  *domain.Range     `json:"range,omitempty"`
	Points int               `json:"points,omitempty"`
}

// Curve samples a single axis of a resolved spec.
func (s *PricingService) Curve(_ context.Context, req CurveRequest) (domain.CurveSeries, error) {
	axis, err := domain.ParseAxis(req.Axis)
	if err != nil {
		return domain.CurveSeries{}, fmt.Errorf("pricing_service: curve: %w", err)
	}
	if err := req.Spec.Validate(); err != nil {
		return domain.CurveSeries{}, fmt.Errorf("pricing_service: curve: %w", err)
	}
	rng, n := pricing.DefaultRange(req.Spec, axis)
	if req.Range != nil {
		rng = *req.Range
	}
	if req.Points != 0 {
		n = req.Points
	}
	series, err := s.sampler.Sample(req.Spec, axis, rng, n)
	if err != nil {
		return domain.CurveSeries{}, fmt.Errorf("pricing_service: curve: %w", err)
	}
	return series, nil
}

// defaultCurves samples every axis concurrently, keeping axis order.
func (s *PricingService) defaultCurves(ctx context.Context, spec domain.OptionSpec) ([]domain.CurveSeries, error) {
	curves := make([]domain.CurveSeries, len(domain.Axes))
	g, _ := errgroup.WithContext(ctx)
	for i, axis := range domain.Axes {
		g.Go(func() error {
			c, err := s.sampler.SampleDefault(spec, axis)
			if err != nil {
				return err
			}
			curves[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return curves, nil
}

// RecentQuotes returns up to limit of the newest quote events.
func (s *PricingService) RecentQuotes(ctx context.Context, limit int) ([]domain.Event, error) {
	if s.bus == nil {
		return nil, nil
	}
	msgs, err := s.bus.StreamRevRange(ctx, domain.StreamQuotes, limit)
	if err != nil {
		return nil, fmt.Errorf("pricing_service: recent quotes: %w", err)
	}
	out := make([]domain.Event, 0, len(msgs))
	for _, m := range msgs {
		ev, err := domain.UnmarshalEvent(m.Payload)
		if err != nil {
			s.logger.WarnContext(ctx, "pricing_service: skipping undecodable stream entry",
				slog.String("id", m.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// QuoteHistoryEntry is one stored quote event and its stream id.
type QuoteHistoryEntry struct {
	ID    string       `json:"id"`
	Event domain.Event `json:"event"`
}

// QuoteHistory is a page of the quote stream, oldest first. Next is the
// cursor for the following page.
type QuoteHistory struct {
	Quotes []QuoteHistoryEntry `json:"quotes"`
	Next   string              `json:"next"`
}

// QuoteHistory pages forward through stored quote events after the stream
// id after. An empty after starts from the oldest retained entry.
func (s *PricingService) QuoteHistory(ctx context.Context, after string, limit int) (QuoteHistory, error) {
	if after == "" {
		after = "0-0"
	}
	if !validStreamID(after) {
		return QuoteHistory{}, fmt.Errorf("pricing_service: quote history: %w",
			&domain.DomainError{Field: "after", Value: after, Reason: "must be a stream id like 1700000000000-0"})
	}
	page := QuoteHistory{Quotes: []QuoteHistoryEntry{}, Next: after}
	if s.bus == nil {
		return page, nil
	}

	msgs, err := s.bus.StreamRead(ctx, domain.StreamQuotes, after, limit)
	if err != nil {
		return QuoteHistory{}, fmt.Errorf("pricing_service: quote history: %w", err)
	}
	for _, m := range msgs {
		page.Next = m.ID
		ev, err := domain.UnmarshalEvent(m.Payload)
		if err != nil {
			s.logger.WarnContext(ctx, "pricing_service: skipping undecodable stream entry",
				slog.String("id", m.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		page.Quotes = append(page.Quotes, QuoteHistoryEntry{ID: m.ID, Event: ev})
	}
	return page, nil
}

// validStreamID accepts "<ms>" or "<ms>-<seq>".
func validStreamID(id string) bool {
	ms, seq, found := strings.Cut(id, "-")
	if _, err := strconv.ParseUint(ms, 10, 64); err != nil {
		return false
	}
	if found {
		if _, err := strconv.ParseUint(seq, 10, 64); err != nil {
			return false
		}
	}
	return true
}

// timeToExpiry takes the explicit year fraction when given, otherwise the
// calendar days from today to the expiration date.
func (s *PricingService) timeToExpiry(req domain.QuoteRequest) (float64, error) {
	if req.TimeToExpiry != nil {
		return *req.TimeToExpiry, nil
	}
	date := strings.TrimSpace(req.ExpirationDate)
	if date == "" {
		return 0, &domain.DomainError{Field: "time_to_expiry", Reason: "set time_to_expiry or expiration_date"}
	}
	exp, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return 0, &domain.DomainError{Field: "expiration_date", Value: date, Reason: "must be YYYY-MM-DD"}
	}
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	days := exp.Sub(today).Hours() / 24
	return math.Max(days/DaysPerYear, MinTimeToExpiry), nil
}

func (s *PricingService) cached(ctx context.Context, key string) (domain.Quote, bool) {
	if s.cache == nil {
		return domain.Quote{}, false
	}
	q, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "pricing_service: quote cache read failed",
				slog.String("error", err.Error()),
			)
		}
		return domain.Quote{}, false
	}
	return q, true
}

func (s *PricingService) store(ctx context.Context, key string, q domain.Quote) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, q); err != nil {
		s.logger.WarnContext(ctx, "pricing_service: quote cache write failed",
			slog.String("error", err.Error()),
		)
	}
}

// fingerprint identifies a classified request for the quote cache. Classify
// has rejected non-finite values, so encoding cannot fail.
func fingerprint(in domain.OptionInputs, curves bool) string {
	b, _ := json.Marshal(struct {
		In     domain.OptionInputs
		Curves bool
	}{in, curves})
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

var hundred = decimal.NewFromInt(100)

// display rounds the headline numbers for presentation. Money and
// percentages use two decimals, time four.
func display(spec domain.OptionSpec, price float64) domain.QuoteDisplay {
	return domain.QuoteDisplay{
		Price:         decimal.NewFromFloat(price).StringFixed(2),
		Spot:          decimal.NewFromFloat(spec.Spot).StringFixed(2),
		Strike:        decimal.NewFromFloat(spec.Strike).StringFixed(2),
		VolatilityPct: decimal.NewFromFloat(spec.Volatility).Mul(hundred).StringFixed(2),
		RatePct:       decimal.NewFromFloat(spec.Rate).Mul(hundred).StringFixed(2),
		TimeToExpiry:  decimal.NewFromFloat(spec.TimeToExpiry).StringFixed(4),
	}
}

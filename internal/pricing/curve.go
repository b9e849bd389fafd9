package pricing

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/floats"

	"github.com/alanyoungcy/optionlab/internal/domain"
)

// Default sample counts per axis.
const (
	SpotPoints       = 41
	VolatilityPoints = 51
	TimePoints       = 91
	RatePoints       = 101
)

// CurveSampler sweeps one input of a resolved spec and prices every sample.
// Out-of-domain samples are skipped and logged so one bad point does not
// blank a chart.
type CurveSampler struct {
	logger *slog.Logger
}

// NewCurveSampler returns a sampler that logs skipped points to logger.
// A nil logger discards them.
func NewCurveSampler(logger *slog.Logger) *CurveSampler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CurveSampler{logger: logger.With(slog.String("component", "curve_sampler"))}
}

var discardSampler = NewCurveSampler(nil)

// SampleCurve is Sample on a sampler that does not log.
func SampleCurve(spec domain.OptionSpec, axis domain.Axis, rng domain.Range, n int) (domain.CurveSeries, error) {
	return discardSampler.Sample(spec, axis, rng, n)
}

// Sample prices n evenly spaced values of axis over rng, endpoints included,
// holding every other field of spec fixed.
func (c *CurveSampler) Sample(spec domain.OptionSpec, axis domain.Axis, rng domain.Range, n int) (domain.CurveSeries, error) {
	if _, err := domain.ParseAxis(string(axis)); err != nil {
		return domain.CurveSeries{}, fmt.Errorf("pricing: sample curve: %w", err)
	}
	if n < 2 {
		return domain.CurveSeries{}, fmt.Errorf("pricing: sample curve: %w",
			&domain.DomainError{Field: "points", Value: n, Reason: "need at least 2 points"})
	}
	if err := domain.CheckFinite("range.min", rng.Min); err != nil {
		return domain.CurveSeries{}, fmt.Errorf("pricing: sample curve: %w", err)
	}
	if err := domain.CheckFinite("range.max", rng.Max); err != nil {
		return domain.CurveSeries{}, fmt.Errorf("pricing: sample curve: %w", err)
	}
	if rng.Min > rng.Max {
		return domain.CurveSeries{}, fmt.Errorf("pricing: sample curve: %w",
			&domain.DomainError{Field: "range", Value: rng, Reason: "min exceeds max"})
	}
	// The fixed fields have to be valid on their own; 1 is in-domain for every axis.
	if err := spec.With(axis, 1).Validate(); err != nil {
		return domain.CurveSeries{}, fmt.Errorf("pricing: sample curve: %w", err)
	}

	xs := floats.Span(make([]float64, n), rng.Min, rng.Max)
	series := domain.CurveSeries{
		Axis:   axis,
		Range:  rng,
		Points: make([]domain.CurvePoint, 0, n),
	}
	for _, x := range xs {
		p, err := PriceSpec(spec.With(axis, x))
		if err != nil {
			series.Skipped++
			c.logger.Debug("pricing: skipping curve sample",
				slog.String("axis", string(axis)),
				slog.Float64("x", x),
				slog.String("error", err.Error()),
			)
			continue
		}
		series.Points = append(series.Points, domain.CurvePoint{X: x, Price: p})
	}

	if series.Skipped > 0 {
		c.logger.Info("pricing: curve sampled with gaps",
			slog.String("axis", string(axis)),
			slog.Int("points", len(series.Points)),
			slog.Int("skipped", series.Skipped),
		)
	}
	return series, nil
}

// DefaultRange returns the stock chart window for axis around spec:
// spot 0.8S..1.2S, volatility 0.5σ..1.5σ, time 0.1T..1.9T and rate 0..r.
// A zero rate sweeps 0..10% and a negative one r..0.
func DefaultRange(spec domain.OptionSpec, axis domain.Axis) (domain.Range, int) {
	v := spec.Value(axis)
	switch axis {
	case domain.AxisSpot:
		return domain.Range{Min: 0.8 * v, Max: 1.2 * v}, SpotPoints
	case domain.AxisVolatility:
		return domain.Range{Min: 0.5 * v, Max: 1.5 * v}, VolatilityPoints
	case domain.AxisTimeToExpiry:
		return domain.Range{Min: 0.1 * v, Max: 1.9 * v}, TimePoints
	case domain.AxisRate:
		switch {
		case v > 0:
			return domain.Range{Min: 0, Max: v}, RatePoints
		case v < 0:
			return domain.Range{Min: v, Max: 0}, RatePoints
		default:
			return domain.Range{Min: 0, Max: 0.10}, RatePoints
		}
	}
	return domain.Range{}, 0
}

// SampleDefault samples axis over its DefaultRange.
func (c *CurveSampler) SampleDefault(spec domain.OptionSpec, axis domain.Axis) (domain.CurveSeries, error) {
	rng, n := DefaultRange(spec, axis)
	return c.Sample(spec, axis, rng, n)
}

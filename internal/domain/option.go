package domain

import (
	"math"
	"strings"
)

// OptionType distinguishes calls from puts.
type OptionType string

const (
	OptionCall OptionType = "call"
	OptionPut  OptionType = "put"
)

// ParseOptionType accepts "call" or "put" in any case.
func ParseOptionType(s string) (OptionType, error) {
	switch OptionType(strings.ToLower(strings.TrimSpace(s))) {
	case OptionCall:
		return OptionCall, nil
	case OptionPut:
		return OptionPut, nil
	}
	return "", &DomainError{Field: "option_type", Value: s, Reason: "must be call or put"}
}

// Valid reports whether t is a known option type.
func (t OptionType) Valid() bool {
	return t == OptionCall || t == OptionPut
}

// OptionSpec is a fully resolved European option. Values are never mutated
// once built; resolving a missing input produces a new OptionSpec.
type OptionSpec struct {
	Type         OptionType `json:"option_type"`
	Spot         float64    `json:"spot"`
	Strike       float64    `json:"strike"`
	TimeToExpiry float64    `json:"time_to_expiry"` // years
	Rate         float64    `json:"rate"`           // continuously compounded, 0.05 = 5%
	Volatility   float64    `json:"volatility"`     // annualised, 0.2 = 20%
}

// Validate checks every field against the model's domain.
func (s OptionSpec) Validate() error {
	if !s.Type.Valid() {
		return &DomainError{Field: "option_type", Value: string(s.Type), Reason: "must be call or put"}
	}
	if err := CheckPositive("spot", s.Spot); err != nil {
		return err
	}
	if err := CheckPositive("strike", s.Strike); err != nil {
		return err
	}
	if err := CheckPositive("time_to_expiry", s.TimeToExpiry); err != nil {
		return err
	}
	if err := CheckFinite("rate", s.Rate); err != nil {
		return err
	}
	return CheckPositive("volatility", s.Volatility)
}

// With returns a copy of s with the value on axis replaced by x.
func (s OptionSpec) With(axis Axis, x float64) OptionSpec {
	switch axis {
	case AxisSpot:
		s.Spot = x
	case AxisVolatility:
		s.Volatility = x
	case AxisTimeToExpiry:
		s.TimeToExpiry = x
	case AxisRate:
		s.Rate = x
	}
	return s
}

// Value returns the field of s selected by axis.
func (s OptionSpec) Value(axis Axis) float64 {
	switch axis {
	case AxisSpot:
		return s.Spot
	case AxisVolatility:
		return s.Volatility
	case AxisTimeToExpiry:
		return s.TimeToExpiry
	case AxisRate:
		return s.Rate
	}
	return math.NaN()
}

// CheckPositive returns a DomainError unless v is finite and > 0.
func CheckPositive(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &DomainError{Field: field, Value: v, Reason: "must be finite"}
	}
	if v <= 0 {
		return &DomainError{Field: field, Value: v, Reason: "must be positive"}
	}
	return nil
}

// CheckFinite returns a DomainError if v is NaN or infinite.
func CheckFinite(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &DomainError{Field: field, Value: v, Reason: "must be finite"}
	}
	return nil
}

// Greeks holds first-order sensitivities plus gamma.
// Vega and rho are per 1.00 change in volatility and rate; theta is per year.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Vega  float64 `json:"vega"`
	Theta float64 `json:"theta"`
	Rho   float64 `json:"rho"`
}

// ThetaPerDay converts the annual theta to calendar days.
func (g Greeks) ThetaPerDay() float64 {
	return g.Theta / 365
}

// Axis names the input swept by a curve.
type Axis string

const (
	AxisSpot         Axis = "spot"
	AxisVolatility   Axis = "volatility"
	AxisTimeToExpiry Axis = "time_to_expiry"
	AxisRate         Axis = "rate"
)

// Axes lists every sweepable input in display order.
var Axes = []Axis{AxisSpot, AxisVolatility, AxisTimeToExpiry, AxisRate}

// ParseAxis validates a curve axis name.
func ParseAxis(s string) (Axis, error) {
	a := Axis(strings.ToLower(strings.TrimSpace(s)))
	switch a {
	case AxisSpot, AxisVolatility, AxisTimeToExpiry, AxisRate:
		return a, nil
	}
	return "", &DomainError{Field: "axis", Value: s, Reason: "must be spot, volatility, time_to_expiry or rate"}
}

// Range is an inclusive interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// CurvePoint is a single sampled price.
type CurvePoint struct {
	X     float64 `json:"x"`
	Price float64 `json:"price"`
}

// CurveSeries is a plot-ready price curve along one axis.
type CurveSeries struct {
	Axis    Axis         `json:"axis"`
	Range   Range        `json:"range"`
	Points  []CurvePoint `json:"points"`
	Skipped int          `json:"skipped"`
}

// Xs returns the sampled x values.
func (c CurveSeries) Xs() []float64 {
	xs := make([]float64, len(c.Points))
	for i, p := range c.Points {
		xs[i] = p.X
	}
	return xs
}

// Prices returns the sampled prices.
func (c CurveSeries) Prices() []float64 {
	ys := make([]float64, len(c.Points))
	for i, p := range c.Points {
		ys[i] = p.Price
	}
	return ys
}

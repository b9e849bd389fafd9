// Package pricing implements the Black-Scholes engine: closed-form prices and
// Greeks for European options, implied volatility and implied spot solvers,
// and curve sampling for charts. Every function is pure and safe for
// concurrent use.
package pricing

import (
	"fmt"
	"math"

	"github.com/alanyoungcy/optionlab/internal/domain"
)

// Price returns the Black-Scholes value of a European option.
func Price(typ domain.OptionType, s, k, t, r, sigma float64) (float64, error) {
	if err := checkInputs(typ, s, k, t, r, sigma); err != nil {
		return 0, fmt.Errorf("pricing: price: %w", err)
	}
	v := price(typ, s, k, t, r, sigma)
	if !finite(v) {
		return 0, fmt.Errorf("pricing: price: %w", errOutOfRange(v))
	}
	return v, nil
}

// PriceSpec prices a resolved spec.
func PriceSpec(spec domain.OptionSpec) (float64, error) {
	return Price(spec.Type, spec.Spot, spec.Strike, spec.TimeToExpiry, spec.Rate, spec.Volatility)
}

// Intrinsic is the payoff of immediate exercise.
func Intrinsic(typ domain.OptionType, s, k float64) float64 {
	if typ == domain.OptionPut {
		return math.Max(k-s, 0)
	}
	return math.Max(s-k, 0)
}

// Bounds returns the no-arbitrage price range of a European option:
// [max(0, S-Ke^-rT), S] for a call and [max(0, Ke^-rT-S), Ke^-rT] for a put.
func Bounds(typ domain.OptionType, s, k, t, r float64) (lower, upper float64) {
	pvk := k * math.Exp(-r*t)
	if typ == domain.OptionPut {
		return math.Max(pvk-s, 0), pvk
	}
	return math.Max(s-pvk, 0), s
}

func checkInputs(typ domain.OptionType, s, k, t, r, sigma float64) error {
	if !typ.Valid() {
		return &domain.DomainError{Field: "option_type", Value: string(typ), Reason: "must be call or put"}
	}
	if err := domain.CheckPositive("spot", s); err != nil {
		return err
	}
	if err := domain.CheckPositive("strike", k); err != nil {
		return err
	}
	if err := domain.CheckPositive("time_to_expiry", t); err != nil {
		return err
	}
	if err := domain.CheckFinite("rate", r); err != nil {
		return err
	}
	if err := domain.CheckPositive("volatility", sigma); err != nil {
		return err
	}
	// d1 divides by sigma*sqrt(T), which must survive as a positive float.
	if vsqrt := sigma * math.Sqrt(t); vsqrt < math.SmallestNonzeroFloat64 || math.IsInf(vsqrt, 0) {
		return &domain.DomainError{Field: "volatility", Value: sigma, Reason: "volatility * sqrt(time_to_expiry) is out of range"}
	}
	return nil
}

// finite reports whether every value is a real number.
func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func errOutOfRange(v any) error {
	return &domain.DomainError{Field: "inputs", Value: v, Reason: "result is not representable as a finite number"}
}

func d1d2(s, k, t, r, sigma float64) (d1, d2 float64) {
	vsqrt := sigma * math.Sqrt(t)
	d1 = (math.Log(s/k) + (r+0.5*sigma*sigma)*t) / vsqrt
	return d1, d1 - vsqrt
}

// price assumes validated inputs.
func price(typ domain.OptionType, s, k, t, r, sigma float64) float64 {
	d1, d2 := d1d2(s, k, t, r, sigma)
	pvk := k * math.Exp(-r*t)
	var v float64
	if typ == domain.OptionPut {
		v = pvk*NormCDF(-d2) - s*NormCDF(-d1)
	} else {
		v = s*NormCDF(d1) - pvk*NormCDF(d2)
	}
	// Cancellation can leave a few ulps below zero far out of the money.
	return math.Max(v, 0)
}

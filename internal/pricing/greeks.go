package pricing

import (
	"fmt"
	"math"

	"github.com/alanyoungcy/optionlab/internal/domain"
)

// Greeks returns the analytic sensitivities of the Black-Scholes price.
// Vega and rho are per 1.00 change of their input, theta is per year.
func Greeks(typ domain.OptionType, s, k, t, r, sigma float64) (domain.Greeks, error) {
	if err := checkInputs(typ, s, k, t, r, sigma); err != nil {
		return domain.Greeks{}, fmt.Errorf("pricing: greeks: %w", err)
	}
	g := greeks(typ, s, k, t, r, sigma)
	if !finite(g.Delta, g.Gamma, g.Vega, g.Theta, g.Rho) {
		return domain.Greeks{}, fmt.Errorf("pricing: greeks: %w", errOutOfRange(g))
	}
	return g, nil
}

// GreeksSpec computes Greeks for a resolved spec.
func GreeksSpec(spec domain.OptionSpec) (domain.Greeks, error) {
	return Greeks(spec.Type, spec.Spot, spec.Strike, spec.TimeToExpiry, spec.Rate, spec.Volatility)
}

func greeks(typ domain.OptionType, s, k, t, r, sigma float64) domain.Greeks {
	sqrtT := math.Sqrt(t)
	d1, d2 := d1d2(s, k, t, r, sigma)
	pdf := NormPDF(d1)
	pvk := k * math.Exp(-r*t)

	g := domain.Greeks{
		Gamma: pdf / (s * sigma * sqrtT),
		Vega:  s * pdf * sqrtT,
	}
	decay := -s * pdf * sigma / (2 * sqrtT)
	if typ == domain.OptionPut {
		g.Delta = NormCDF(d1) - 1
		g.Theta = decay + r*pvk*NormCDF(-d2)
		g.Rho = -t * pvk * NormCDF(-d2)
	} else {
		g.Delta = NormCDF(d1)
		g.Theta = decay - r*pvk*NormCDF(d2)
		g.Rho = t * pvk * NormCDF(d2)
	}
	return g
}

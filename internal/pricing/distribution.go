package pricing

import "gonum.org/v1/gonum/stat/distuv"

// NormCDF is the standard normal cumulative distribution. It is erfc based
// and saturates to exactly 0 or 1 in the tails.
func NormCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// NormPDF is the standard normal density.
func NormPDF(x float64) float64 {
	return distuv.UnitNormal.Prob(x)
}

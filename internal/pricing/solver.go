package pricing

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/alanyoungcy/optionlab/internal/domain"
)

// SolverConfig bounds the work and precision of the implied solvers.
type SolverConfig struct {
	// Tolerance on the price residual, scaled by max(1, target).
	Tolerance     float64
	MaxIterations int

	VolLower   float64
	VolUpper   float64
	InitialVol float64
	// VegaFloor is the smallest vega trusted for a Newton step.
	VegaFloor float64

	// The spot bracket starts at [K*SpotLowerFactor, K*SpotUpperFactor] and
	// is widened by ExpansionFactor at most MaxExpansions times.
	SpotLowerFactor float64
	SpotUpperFactor float64
	ExpansionFactor float64
	MaxExpansions   int
}

// DefaultSolverConfig returns the standard solver settings.
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		Tolerance:       1e-6,
		MaxIterations:   100,
		VolLower:        1e-6,
		VolUpper:        5.0,
		InitialVol:      0.2,
		VegaFloor:       1e-8,
		SpotLowerFactor: 0.01,
		SpotUpperFactor: 100,
		ExpansionFactor: 10,
		MaxExpansions:   8,
	}
}

// Validate reports every inconsistent setting at once.
func (c SolverConfig) Validate() error {
	var errs []string
	if !(c.Tolerance > 0) {
		errs = append(errs, "tolerance must be positive")
	}
	if c.MaxIterations < 1 {
		errs = append(errs, "max_iterations must be at least 1")
	}
	if !(c.VolLower > 0) || !(c.VolUpper > c.VolLower) {
		errs = append(errs, "volatility bracket must satisfy 0 < lower < upper")
	}
	if c.VegaFloor < 0 {
		errs = append(errs, "vega_floor must not be negative")
	}
	if !(c.SpotLowerFactor > 0) || !(c.SpotUpperFactor > c.SpotLowerFactor) {
		errs = append(errs, "spot bracket factors must satisfy 0 < lower < upper")
	}
	if !(c.ExpansionFactor > 1) {
		errs = append(errs, "expansion_factor must be greater than 1")
	}
	if c.MaxExpansions < 0 {
		errs = append(errs, "max_expansions must not be negative")
	}
	if len(errs) > 0 {
		return errors.New("pricing: solver config: " + strings.Join(errs, "; "))
	}
	return nil
}

func (c SolverConfig) tolerance(target float64) float64 {
	return c.Tolerance * math.Max(1, math.Abs(target))
}

// Solver inverts the pricing formula. It holds only configuration and is
// safe for concurrent use.
type Solver struct {
	cfg SolverConfig
}

// NewSolver validates cfg and returns a Solver.
func NewSolver(cfg SolverConfig) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Solver{cfg: cfg}, nil
}

// Config returns the solver settings.
func (s *Solver) Config() SolverConfig { return s.cfg }

var defaultSolver = &Solver{cfg: DefaultSolverConfig()}

// SolveVol returns the volatility that reproduces target using default settings.
func SolveVol(typ domain.OptionType, s, k, t, r, target float64) (float64, error) {
	res, err := defaultSolver.ImpliedVolatility(typ, s, k, t, r, target)
	if err != nil {
		return 0, err
	}
	return res.Value, nil
}

// SolveSpot returns the underlying price that reproduces target using
// default settings.
func SolveSpot(typ domain.OptionType, k, t, r, sigma, target float64) (float64, error) {
	res, err := defaultSolver.ImpliedSpot(typ, k, t, r, sigma, target)
	if err != nil {
		return 0, err
	}
	return res.Value, nil
}

// ImpliedVolatility solves price(sigma) = target with the hybrid
// Newton/bisection search over [VolLower, VolUpper], using vega as slope.
//
// A target outside the no-arbitrage bounds fails with NoArbitrageBoundError.
// A target within tolerance of either bound returns the matching end of the
// volatility bracket. A target inside the bounds that no volatility in the
// bracket can reach fails with ConvergenceError.
func (s *Solver) ImpliedVolatility(typ domain.OptionType, spot, k, t, r, target float64) (Result, error) {
	if err := checkSolveInputs(typ, "spot", spot, k, t, r, target); err != nil {
		return Result{}, fmt.Errorf("pricing: implied volatility: %w", err)
	}
	cfg := s.cfg
	tol := cfg.tolerance(target)

	lower, upper := Bounds(typ, spot, k, t, r)
	if target < lower-tol || target > upper+tol {
		return Result{}, fmt.Errorf("pricing: implied volatility: %w",
			&domain.NoArbitrageBoundError{Target: target, Lower: lower, Upper: upper})
	}

	atVol := func(sigma float64) float64 { return price(typ, spot, k, t, r, sigma) }
	pLo, pHi := atVol(cfg.VolLower), atVol(cfg.VolUpper)
	switch {
	case math.Abs(target-lower) <= tol || math.Abs(target-pLo) <= tol:
		return edgeResult(cfg.VolLower, pLo-target), nil
	case math.Abs(target-upper) <= tol || math.Abs(target-pHi) <= tol:
		return edgeResult(cfg.VolUpper, pHi-target), nil
	case target < pLo || target > pHi:
		side := "below"
		if target > pHi {
			side = "above"
		}
		return Result{State: StateExhausted, Path: []State{StateExhausted}}, fmt.Errorf("pricing: implied volatility: %w",
			&domain.ConvergenceError{
				Solver:   "implied volatility",
				Residual: math.Min(math.Abs(target-pLo), math.Abs(target-pHi)),
				Reason:   fmt.Sprintf("target needs volatility %s [%g, %g]", side, cfg.VolLower, cfg.VolUpper),
			})
	}

	h := Hybrid{
		Name:       "implied volatility",
		Tolerance:  tol,
		SlopeFloor: cfg.VegaFloor,
		MaxIter:    cfg.MaxIterations,
	}
	res, err := h.Solve(func(sigma float64) (float64, float64) {
		g := greeks(typ, spot, k, t, r, sigma)
		return atVol(sigma) - target, g.Vega
	}, cfg.VolLower, cfg.VolUpper, cfg.InitialVol)
	if err != nil {
		return res, fmt.Errorf("pricing: implied volatility: %w", err)
	}
	return res, nil
}

// ImpliedSpot solves price(S) = target by bisection on a log scale. Price
// is monotone in S, so the bracket is widened geometrically until its
// endpoint prices straddle the target.
//
// A negative target, or a put target above the discounted strike, fails
// with NoArbitrageBoundError. An endpoint already within tolerance is
// returned as is.
func (s *Solver) ImpliedSpot(typ domain.OptionType, k, t, r, sigma, target float64) (Result, error) {
	if err := checkSolveInputs(typ, "volatility", sigma, k, t, r, target); err != nil {
		return Result{}, fmt.Errorf("pricing: implied spot: %w", err)
	}
	cfg := s.cfg
	tol := cfg.tolerance(target)

	upper := math.Inf(1)
	if typ == domain.OptionPut {
		upper = k * math.Exp(-r*t)
	}
	if target < -tol || target > upper+tol {
		return Result{}, fmt.Errorf("pricing: implied spot: %w",
			&domain.NoArbitrageBoundError{Target: target, Lower: 0, Upper: upper})
	}

	// Orient the residual so it increases with S for both types.
	sign := 1.0
	if typ == domain.OptionPut {
		sign = -1
	}
	residual := func(x float64) float64 { return price(typ, x, k, t, r, sigma) - target }

	lo, hi := k*cfg.SpotLowerFactor, k*cfg.SpotUpperFactor
	expansions := 0
	for {
		fLo, fHi := residual(lo), residual(hi)
		if math.Abs(fLo) <= tol {
			res := edgeResult(lo, fLo)
			res.Expansions = expansions
			return res, nil
		}
		if math.Abs(fHi) <= tol {
			res := edgeResult(hi, fHi)
			res.Expansions = expansions
			return res, nil
		}
		if sign*fLo < 0 && sign*fHi > 0 {
			break
		}
		if expansions >= cfg.MaxExpansions {
			return Result{Expansions: expansions, State: StateExhausted, Path: []State{StateExhausted}},
				fmt.Errorf("pricing: implied spot: %w", &domain.ConvergenceError{
					Solver:     "implied spot",
					Iterations: expansions,
					Residual:   math.Min(math.Abs(fLo), math.Abs(fHi)),
					Reason:     fmt.Sprintf("bracket [%g, %g] does not straddle target", lo, hi),
				})
		}
		if sign*fLo > 0 {
			lo /= cfg.ExpansionFactor
		}
		if sign*fHi < 0 {
			hi *= cfg.ExpansionFactor
		}
		expansions++
	}

	h := Hybrid{
		Name:      "implied spot",
		Tolerance: tol,
		MaxIter:   cfg.MaxIterations,
		Midpoint:  geometricMid,
	}
	res, err := h.Solve(func(x float64) (float64, float64) {
		return sign * residual(x), math.NaN()
	}, lo, hi, geometricMid(lo, hi))
	res.Expansions = expansions
	res.Residual *= sign
	if err != nil {
		return res, fmt.Errorf("pricing: implied spot: %w", err)
	}
	return res, nil
}

func edgeResult(x, residual float64) Result {
	return Result{
		Value:    x,
		Residual: residual,
		State:    StateConverged,
		Path:     []State{StateConverged},
	}
}

func checkSolveInputs(typ domain.OptionType, knownField string, known, k, t, r, target float64) error {
	if !typ.Valid() {
		return &domain.DomainError{Field: "option_type", Value: string(typ), Reason: "must be call or put"}
	}
	if err := domain.CheckPositive(knownField, known); err != nil {
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
	return domain.CheckFinite("market_price", target)
}

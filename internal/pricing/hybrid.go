package pricing

import (
	"math"

	"github.com/alanyoungcy/optionlab/internal/domain"
)

// State is a transition of the bracketed root finder.
type State int

const (
	// StateNewton means the next iterate came from a Newton step.
	StateNewton State = iota
	// StateBisection means the next iterate is the bracket midpoint.
	StateBisection
	// StateConverged is terminal: the residual met tolerance.
	StateConverged
	// StateExhausted is terminal: the iteration budget ran out.
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateNewton:
		return "newton"
	case StateBisection:
		return "bisection"
	case StateConverged:
		return "converged"
	case StateExhausted:
		return "exhausted"
	}
	return "unknown"
}

// Objective returns the residual at x and its slope. The residual must be
// non-decreasing in x across the bracket. A NaN slope disables Newton steps.
type Objective func(x float64) (residual, slope float64)

// Result describes a finished solve.
type Result struct {
	Value          float64
	Residual       float64
	Iterations     int
	NewtonSteps    int
	BisectionSteps int
	Expansions     int
	State          State
	// Path records one state per evaluated iterate, ending in a terminal state.
	Path []State
}

// Stats converts r for reporting.
func (r Result) Stats(method string) *domain.SolverStats {
	return &domain.SolverStats{
		Method:         method,
		Iterations:     r.Iterations,
		NewtonSteps:    r.NewtonSteps,
		BisectionSteps: r.BisectionSteps,
		Expansions:     r.Expansions,
	}
}

// Hybrid is a safeguarded Newton solver. Each iteration evaluates the
// residual, tightens the bracket by its sign, and then either takes the
// Newton step or, when the slope is under SlopeFloor or the step would leave
// the bracket, falls back to the bracket midpoint.
type Hybrid struct {
	Name       string
	Tolerance  float64
	SlopeFloor float64
	MaxIter    int
	// Midpoint splits the bracket for bisection steps. Nil means arithmetic.
	Midpoint func(lo, hi float64) float64
}

// Solve searches [lo, hi] for a root of f starting at x0. When x0 is not
// strictly inside the bracket the search starts at the midpoint.
func (h Hybrid) Solve(f Objective, lo, hi, x0 float64) (Result, error) {
	mid := h.Midpoint
	if mid == nil {
		mid = arithmeticMid
	}
	x := x0
	if !(x > lo && x < hi) {
		x = mid(lo, hi)
	}

	var res Result
	for {
		fx, slope := f(x)
		res.Iterations++
		res.Value = x
		res.Residual = fx

		if math.Abs(fx) < h.Tolerance {
			res.State = StateConverged
			res.Path = append(res.Path, StateConverged)
			return res, nil
		}
		if res.Iterations >= h.MaxIter || math.IsNaN(fx) {
			res.State = StateExhausted
			res.Path = append(res.Path, StateExhausted)
			return res, &domain.ConvergenceError{
				Solver:     h.Name,
				Iterations: res.Iterations,
				Residual:   fx,
				Reason:     "iteration budget exhausted",
			}
		}

		if fx > 0 {
			hi = x
		} else {
			lo = x
		}

		next, nx := h.step(x, fx, slope, lo, hi, mid)
		res.Path = append(res.Path, next)
		if next == StateNewton {
			res.NewtonSteps++
		} else {
			res.BisectionSteps++
		}
		x = nx
	}
}

// step picks the transition out of an evaluated iterate.
func (h Hybrid) step(x, fx, slope, lo, hi float64, mid func(lo, hi float64) float64) (State, float64) {
	if slope >= h.SlopeFloor {
		cand := x - fx/slope
		if cand > lo && cand < hi {
			return StateNewton, cand
		}
	}
	return StateBisection, mid(lo, hi)
}

func arithmeticMid(lo, hi float64) float64 {
	return lo + 0.5*(hi-lo)
}

func geometricMid(lo, hi float64) float64 {
	return math.Sqrt(lo) * math.Sqrt(hi)
}

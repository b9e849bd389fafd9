package pricing_test

import (
	"errors"
	"math"
	"testing"

	"github.com/alanyoungcy/optionlab/internal/domain"
	"github.com/alanyoungcy/optionlab/internal/pricing"
)

func linear(root float64) pricing.Objective {
	return func(x float64) (float64, float64) { return x - root, 1 }
}

func TestHybridNewtonPath(t *testing.T) {
	h := pricing.Hybrid{Name: "linear", Tolerance: 1e-12, SlopeFloor: 1e-8, MaxIter: 10}
	res, err := h.Solve(linear(2), 0, 10, 1)
	if err != nil {
		t.Fatal(err)
	}
	want := []pricing.State{pricing.StateNewton, pricing.StateConverged}
	if len(res.Path) != len(want) || res.Path[0] != want[0] || res.Path[1] != want[1] {
		t.Fatalf("path: expected %v, got %v", want, res.Path)
	}
	if res.Value != 2 || res.Iterations != 2 || res.NewtonSteps != 1 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestHybridFlatSlopeBisects(t *testing.T) {
	h := pricing.Hybrid{Name: "flat", Tolerance: 1e-9, SlopeFloor: 1e-8, MaxIter: 100}
	res, err := h.Solve(func(x float64) (float64, float64) { return x - 2, 0 }, 0, 10, 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.NewtonSteps != 0 {
		t.Errorf("expected no Newton steps below the slope floor, got %d", res.NewtonSteps)
	}
	for _, s := range res.Path[:len(res.Path)-1] {
		if s != pricing.StateBisection {
			t.Fatalf("expected only bisection steps, got %v", res.Path)
		}
	}
	if !approxEqual(res.Value, 2, 1e-9) {
		t.Errorf("expected root 2, got %v", res.Value)
	}
}

func TestHybridFallsBackWhenNewtonLeavesBracket(t *testing.T) {
	// Newton on atan diverges from far starting points.
	f := func(x float64) (float64, float64) {
		d := x - 1
		return math.Atan(d), 1 / (1 + d*d)
	}
	h := pricing.Hybrid{Name: "atan", Tolerance: 1e-10, SlopeFloor: 1e-8, MaxIter: 100}
	res, err := h.Solve(f, -10, 10, 5)
	if err != nil {
		t.Fatal(err)
	}
	if res.Path[0] != pricing.StateBisection {
		t.Errorf("expected first step to bisect, got %v", res.Path[0])
	}
	if res.NewtonSteps == 0 {
		t.Errorf("expected Newton steps once inside the basin")
	}
	if !approxEqual(res.Value, 1, 1e-9) {
		t.Errorf("expected root 1, got %v", res.Value)
	}
}

func TestHybridExhausted(t *testing.T) {
	h := pricing.Hybrid{Name: "slow", Tolerance: 1e-15, MaxIter: 3}
	res, err := h.Solve(func(x float64) (float64, float64) { return x - math.Pi, math.NaN() }, 0, 10, 1)
	var ce *domain.ConvergenceError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConvergenceError, got %v", err)
	}
	if ce.Iterations != 3 || ce.Solver != "slow" {
		t.Errorf("unexpected error %+v", ce)
	}
	if res.State != pricing.StateExhausted || res.Path[len(res.Path)-1] != pricing.StateExhausted {
		t.Errorf("expected exhausted state, got %v", res.Path)
	}
}

func TestHybridStartOutsideBracket(t *testing.T) {
	h := pricing.Hybrid{Name: "mid", Tolerance: 1e-12, SlopeFloor: 1e-8, MaxIter: 10}
	res, err := h.Solve(linear(5), 0, 10, -3)
	if err != nil {
		t.Fatal(err)
	}
	if res.Iterations != 1 || res.Value != 5 {
		t.Errorf("expected immediate convergence at midpoint, got %+v", res)
	}
}

func TestStateString(t *testing.T) {
	names := map[pricing.State]string{
		pricing.StateNewton:    "newton",
		pricing.StateBisection: "bisection",
		pricing.StateConverged: "converged",
		pricing.StateExhausted: "exhausted",
	}
	for s, want := range names {
		if s.String() != want {
			t.Errorf("%d: expected %q, got %q", s, want, s.String())
		}
	}
}

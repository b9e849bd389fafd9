package pricing_test

import (
	"errors"
	"math"
	"testing"

	"github.com/alanyoungcy/optionlab/internal/domain"
	"github.com/alanyoungcy/optionlab/internal/pricing"
)

const solverTol = 1e-6

func mustPrice(t *testing.T, typ domain.OptionType, s, k, tt, r, sigma float64) float64 {
	t.Helper()
	p, err := pricing.Price(typ, s, k, tt, r, sigma)
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	return p
}

func newSolver(t *testing.T, cfg pricing.SolverConfig) *pricing.Solver {
	t.Helper()
	s, err := pricing.NewSolver(cfg)
	if err != nil {
		t.Fatalf("NewSolver: %v", err)
	}
	return s
}

func TestSolveVolReferenceScenario(t *testing.T) {
	t.Run("Call", func(t *testing.T) {
		target := mustPrice(t, domain.OptionCall, 100, 100, 1, 0.05, 0.2)
		sigma, err := pricing.SolveVol(domain.OptionCall, 100, 100, 1, 0.05, target)
		if err != nil {
			t.Fatalf("SolveVol: %v", err)
		}
		if !approxEqual(sigma, 0.2, 1e-6) {
			t.Errorf("expected 0.2, got %v", sigma)
		}
	})

	t.Run("CallQuotedPrice", func(t *testing.T) {
		sigma, err := pricing.SolveVol(domain.OptionCall, 100, 100, 1, 0.05, 10.4506)
		if err != nil {
			t.Fatalf("SolveVol: %v", err)
		}
		if !approxEqual(sigma, 0.2, 1e-4) {
			t.Errorf("expected ~0.2, got %v", sigma)
		}
	})

	t.Run("Put", func(t *testing.T) {
		sigma, err := pricing.SolveVol(domain.OptionPut, 100, 100, 1, 0.05, 5.573526022256971)
		if err != nil {
			t.Fatalf("SolveVol: %v", err)
		}
		if !approxEqual(sigma, 0.2, 1e-6) {
			t.Errorf("expected 0.2, got %v", sigma)
		}
	})
}

func TestSolveVolRoundTrip(t *testing.T) {
	for _, typ := range []domain.OptionType{domain.OptionCall, domain.OptionPut} {
		for _, s := range []float64{90, 100, 110} {
			for _, tt := range []float64{0.5, 1, 2} {
				for _, sigma := range []float64{0.15, 0.3, 0.6} {
					target := mustPrice(t, typ, s, 100, tt, 0.03, sigma)
					got, err := pricing.SolveVol(typ, s, 100, tt, 0.03, target)
					if err != nil {
						t.Fatalf("%s S=%v T=%v sigma=%v: %v", typ, s, tt, sigma, err)
					}
					g, _ := pricing.Greeks(typ, s, 100, tt, 0.03, sigma)
					allowed := math.Max(1e-6, 2*solverTol*math.Max(1, target)/g.Vega)
					if !approxEqual(got, sigma, allowed) {
						t.Errorf("%s S=%v T=%v: expected sigma %v, got %v", typ, s, tt, sigma, got)
					}
				}
			}
		}
	}
}

func TestSolveSpotRoundTrip(t *testing.T) {
	for _, typ := range []domain.OptionType{domain.OptionCall, domain.OptionPut} {
		for _, s := range []float64{60, 90, 100, 110, 150} {
			for _, tt := range []float64{0.5, 1, 2} {
				const sigma = 0.3
				target := mustPrice(t, typ, s, 100, tt, 0.03, sigma)
				got, err := pricing.SolveSpot(typ, 100, tt, 0.03, sigma, target)
				if err != nil {
					t.Fatalf("%s S=%v T=%v: %v", typ, s, tt, err)
				}
				g, _ := pricing.Greeks(typ, s, 100, tt, 0.03, sigma)
				allowed := 2*solverTol*math.Max(1, target)/math.Abs(g.Delta) + 1e-9
				if !approxEqual(got, s, allowed) {
					t.Errorf("%s T=%v: expected S=%v, got %v (allowed %v)", typ, tt, s, got, allowed)
				}
				if resid := mustPrice(t, typ, got, 100, tt, 0.03, sigma) - target; math.Abs(resid) > solverTol*math.Max(1, target) {
					t.Errorf("%s S=%v T=%v: residual %v", typ, s, tt, resid)
				}
			}
		}
	}
}

func TestSolveSpotExpandsBracket(t *testing.T) {
	// Needs S around 2e4, beyond the initial [1, 1e4] bracket.
	target := mustPrice(t, domain.OptionCall, 20000, 100, 1, 0.05, 0.2)

	res, err := newSolver(t, pricing.DefaultSolverConfig()).ImpliedSpot(domain.OptionCall, 100, 1, 0.05, 0.2, target)
	if err != nil {
		t.Fatalf("ImpliedSpot: %v", err)
	}
	if res.Expansions < 1 {
		t.Errorf("expected at least one bracket expansion, got %d", res.Expansions)
	}
	if !approxEqual(res.Value, 20000, 0.05) {
		t.Errorf("expected S=20000, got %v", res.Value)
	}

	cfg := pricing.DefaultSolverConfig()
	cfg.MaxExpansions = 0
	_, err = newSolver(t, cfg).ImpliedSpot(domain.OptionCall, 100, 1, 0.05, 0.2, target)
	var ce *domain.ConvergenceError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConvergenceError without expansions, got %v", err)
	}
}

func TestSolveVolNoArbitrage(t *testing.T) {
	t.Run("CallAboveSpot", func(t *testing.T) {
		_, err := pricing.SolveVol(domain.OptionCall, 100, 100, 1, 0.05, 101)
		var nae *domain.NoArbitrageBoundError
		if !errors.As(err, &nae) {
			t.Fatalf("expected NoArbitrageBoundError, got %v", err)
		}
		if nae.Upper != 100 {
			t.Errorf("upper bound: expected 100, got %v", nae.Upper)
		}
	})

	t.Run("CallBelowIntrinsic", func(t *testing.T) {
		_, err := pricing.SolveVol(domain.OptionCall, 120, 100, 1, 0.05, 10)
		if !errors.Is(err, domain.ErrNoArbitrageBound) {
			t.Fatalf("expected ErrNoArbitrageBound, got %v", err)
		}
	})

	t.Run("PutAboveDiscountedStrike", func(t *testing.T) {
		_, err := pricing.SolveVol(domain.OptionPut, 100, 100, 1, 0.05, 96)
		if !errors.Is(err, domain.ErrNoArbitrageBound) {
			t.Fatalf("expected ErrNoArbitrageBound, got %v", err)
		}
	})

	t.Run("NegativeTarget", func(t *testing.T) {
		_, err := pricing.SolveVol(domain.OptionPut, 100, 100, 1, 0.05, -1)
		if !errors.Is(err, domain.ErrNoArbitrageBound) {
			t.Fatalf("expected ErrNoArbitrageBound, got %v", err)
		}
	})
}

func TestSolveSpotNoArbitrage(t *testing.T) {
	_, err := pricing.SolveSpot(domain.OptionPut, 100, 1, 0.05, 0.2, 96)
	if !errors.Is(err, domain.ErrNoArbitrageBound) {
		t.Fatalf("put above discounted strike: expected ErrNoArbitrageBound, got %v", err)
	}
	_, err = pricing.SolveSpot(domain.OptionCall, 100, 1, 0.05, 0.2, -0.5)
	if !errors.Is(err, domain.ErrNoArbitrageBound) {
		t.Fatalf("negative call target: expected ErrNoArbitrageBound, got %v", err)
	}
}

func TestSolveVolEdgePolicy(t *testing.T) {
	cfg := pricing.DefaultSolverConfig()
	lower, upper := pricing.Bounds(domain.OptionCall, 120, 100, 1, 0.05)

	sigma, err := pricing.SolveVol(domain.OptionCall, 120, 100, 1, 0.05, lower+1e-8)
	if err != nil {
		t.Fatalf("at lower bound: %v", err)
	}
	if sigma != cfg.VolLower {
		t.Errorf("at lower bound: expected %v, got %v", cfg.VolLower, sigma)
	}

	sigma, err = pricing.SolveVol(domain.OptionCall, 120, 100, 1, 0.05, upper-1e-8)
	if err != nil {
		t.Fatalf("at upper bound: %v", err)
	}
	if sigma != cfg.VolUpper {
		t.Errorf("at upper bound: expected %v, got %v", cfg.VolUpper, sigma)
	}
}

func TestSolveVolOutsideBracket(t *testing.T) {
	// Achievable in theory (below S) but only with sigma > 5.
	_, err := pricing.SolveVol(domain.OptionCall, 100, 100, 1, 0.05, 99.9)
	var ce *domain.ConvergenceError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConvergenceError, got %v", err)
	}
}

func TestSolveVolIterationBudget(t *testing.T) {
	cfg := pricing.DefaultSolverConfig()
	cfg.MaxIterations = 1
	target := mustPrice(t, domain.OptionCall, 100, 100, 1, 0.05, 0.9)

	res, err := newSolver(t, cfg).ImpliedVolatility(domain.OptionCall, 100, 100, 1, 0.05, target)
	var ce *domain.ConvergenceError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConvergenceError, got %v", err)
	}
	if ce.Iterations != 1 || res.State != pricing.StateExhausted {
		t.Errorf("expected exhaustion after 1 iteration, got %d (%v)", ce.Iterations, res.State)
	}
}

func TestSolverDomainErrors(t *testing.T) {
	if _, err := pricing.SolveVol(domain.OptionCall, 0, 100, 1, 0.05, 10); !errors.Is(err, domain.ErrDomain) {
		t.Errorf("zero spot: expected ErrDomain, got %v", err)
	}
	if _, err := pricing.SolveVol(domain.OptionCall, 100, 100, 1, 0.05, math.NaN()); !errors.Is(err, domain.ErrDomain) {
		t.Errorf("NaN target: expected ErrDomain, got %v", err)
	}
	if _, err := pricing.SolveSpot(domain.OptionPut, 100, 0, 0.05, 0.2, 5); !errors.Is(err, domain.ErrDomain) {
		t.Errorf("zero time: expected ErrDomain, got %v", err)
	}
	if _, err := pricing.SolveSpot(domain.OptionPut, 100, 1, 0.05, -0.2, 5); !errors.Is(err, domain.ErrDomain) {
		t.Errorf("negative vol: expected ErrDomain, got %v", err)
	}
}

func TestSolverConfigValidate(t *testing.T) {
	if err := pricing.DefaultSolverConfig().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	cfg := pricing.DefaultSolverConfig()
	cfg.Tolerance = 0
	cfg.VolUpper = cfg.VolLower
	cfg.ExpansionFactor = 1
	if _, err := pricing.NewSolver(cfg); err == nil {
		t.Fatal("expected validation error")
	}
}

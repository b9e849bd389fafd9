package pricing_test

import (
	"errors"
	"math"
	"testing"

	"github.com/alanyoungcy/optionlab/internal/domain"
	"github.com/alanyoungcy/optionlab/internal/pricing"
)

func TestGreeksReferenceScenario(t *testing.T) {
	g, err := pricing.Greeks(domain.OptionCall, 100, 100, 1, 0.05, 0.2)
	if err != nil {
		t.Fatal(err)
	}
	if !approxEqual(g.Delta, 0.6368, 1e-4) {
		t.Errorf("delta: expected 0.6368, got %v", g.Delta)
	}
	if !approxEqual(g.Gamma, 0.018762, 1e-6) {
		t.Errorf("gamma: got %v", g.Gamma)
	}
	if !approxEqual(g.Vega, 37.524, 1e-3) {
		t.Errorf("vega: got %v", g.Vega)
	}
	if !approxEqual(g.Theta, -6.414, 1e-3) {
		t.Errorf("theta: got %v", g.Theta)
	}
	if !approxEqual(g.Rho, 53.232, 1e-3) {
		t.Errorf("rho: got %v", g.Rho)
	}
	if !approxEqual(g.ThetaPerDay(), g.Theta/365, 1e-15) {
		t.Errorf("theta per day: got %v", g.ThetaPerDay())
	}
}

func TestGreeksMatchFiniteDifferences(t *testing.T) {
	for _, typ := range []domain.OptionType{domain.OptionCall, domain.OptionPut} {
		for _, m := range grid {
			g, err := pricing.Greeks(typ, m.s, m.k, m.t, m.r, m.sigma)
			if err != nil {
				t.Fatal(err)
			}
			p := func(s, tt, r, sigma float64) float64 {
				v, err := pricing.Price(typ, s, m.k, tt, r, sigma)
				if err != nil {
					t.Fatal(err)
				}
				return v
			}

			hs := 1e-3 * m.s
			delta := (p(m.s+hs, m.t, m.r, m.sigma) - p(m.s-hs, m.t, m.r, m.sigma)) / (2 * hs)
			hg := 1e-3 * m.s
			gamma := (p(m.s+hg, m.t, m.r, m.sigma) - 2*p(m.s, m.t, m.r, m.sigma) + p(m.s-hg, m.t, m.r, m.sigma)) / (hg * hg)
			const hv = 1e-5
			vega := (p(m.s, m.t, m.r, m.sigma+hv) - p(m.s, m.t, m.r, m.sigma-hv)) / (2 * hv)
			ht := 1e-5 * m.t
			theta := -(p(m.s, m.t+ht, m.r, m.sigma) - p(m.s, m.t-ht, m.r, m.sigma)) / (2 * ht)
			const hr = 1e-5
			rho := (p(m.s, m.t, m.r+hr, m.sigma) - p(m.s, m.t, m.r-hr, m.sigma)) / (2 * hr)

			checks := []struct {
				name      string
				got, want float64
			}{
				{"delta", g.Delta, delta},
				{"gamma", g.Gamma, gamma},
				{"vega", g.Vega, vega},
				{"theta", g.Theta, theta},
				{"rho", g.Rho, rho},
			}
			for _, c := range checks {
				if !relClose(c.got, c.want, 1e-4) {
					t.Errorf("%s %+v %s: analytic %v, numeric %v", typ, m, c.name, c.got, c.want)
				}
			}
		}
	}
}

func TestGreeksCallPutRelations(t *testing.T) {
	for _, m := range grid {
		c, _ := pricing.Greeks(domain.OptionCall, m.s, m.k, m.t, m.r, m.sigma)
		p, _ := pricing.Greeks(domain.OptionPut, m.s, m.k, m.t, m.r, m.sigma)
		if !approxEqual(c.Delta-p.Delta, 1, 1e-12) {
			t.Errorf("%+v: delta_call - delta_put = %v", m, c.Delta-p.Delta)
		}
		if c.Gamma != p.Gamma || c.Vega != p.Vega {
			t.Errorf("%+v: gamma/vega differ between call and put", m)
		}
		if c.Vega <= 0 {
			t.Errorf("%+v: vega %v not positive", m, c.Vega)
		}
	}
}

func TestGreeksOverflowIsDomainError(t *testing.T) {
	// Gamma divides by S*sigma*sqrt(T), which here is below 1e-309.
	p, err := pricing.Price(domain.OptionCall, 1e-300, 1e-300, 1, 0, 1e-10)
	if err != nil || math.IsNaN(p) || math.IsInf(p, 0) {
		t.Fatalf("price: %v %v", p, err)
	}
	if _, err := pricing.Greeks(domain.OptionCall, 1e-300, 1e-300, 1, 0, 1e-10); !errors.Is(err, domain.ErrDomain) {
		t.Errorf("expected ErrDomain, got %v", err)
	}
}

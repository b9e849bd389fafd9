package pricing_test

import (
	"errors"
	"math"
	"testing"

	"github.com/alanyoungcy/optionlab/internal/domain"
	"github.com/alanyoungcy/optionlab/internal/pricing"
)

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func relClose(got, want, rel float64) bool {
	return math.Abs(got-want) <= rel*math.Max(math.Abs(want), 1e-2)
}

type market struct {
	s, k, t, r, sigma float64
}

var grid = []market{
	{100, 100, 1, 0.05, 0.2},
	{90, 100, 0.5, 0.03, 0.3},
	{120, 100, 2, 0.01, 0.25},
	{100, 80, 0.25, 0.08, 0.6},
	{75, 100, 1.5, -0.01, 0.4},
	{100, 130, 3, 0.02, 0.15},
}

func TestPriceReferenceScenario(t *testing.T) {
	call, err := pricing.Price(domain.OptionCall, 100, 100, 1, 0.05, 0.2)
	if err != nil {
		t.Fatalf("call price: %v", err)
	}
	if !approxEqual(call, 10.450583572185565, 1e-9) {
		t.Errorf("call: expected 10.4506, got %v", call)
	}

	put, err := pricing.Price(domain.OptionPut, 100, 100, 1, 0.05, 0.2)
	if err != nil {
		t.Fatalf("put price: %v", err)
	}
	if !approxEqual(put, 5.573526022256971, 1e-9) {
		t.Errorf("put: expected 5.5735, got %v", put)
	}
}

func TestPutCallParity(t *testing.T) {
	for _, m := range grid {
		call, err := pricing.Price(domain.OptionCall, m.s, m.k, m.t, m.r, m.sigma)
		if err != nil {
			t.Fatalf("%+v: call: %v", m, err)
		}
		put, err := pricing.Price(domain.OptionPut, m.s, m.k, m.t, m.r, m.sigma)
		if err != nil {
			t.Fatalf("%+v: put: %v", m, err)
		}
		want := m.s - m.k*math.Exp(-m.r*m.t)
		if got := call - put; math.Abs(got-want) > 1e-8*math.Max(m.s, m.k) {
			t.Errorf("%+v: call-put = %v, want %v", m, got, want)
		}
	}
}

func TestPriceMonotonicity(t *testing.T) {
	t.Run("IncreasingInVolatility", func(t *testing.T) {
		for _, typ := range []domain.OptionType{domain.OptionCall, domain.OptionPut} {
			prev := -1.0
			for sigma := 0.05; sigma <= 2.0; sigma += 0.05 {
				p, err := pricing.Price(typ, 100, 100, 1, 0.05, sigma)
				if err != nil {
					t.Fatal(err)
				}
				if p <= prev {
					t.Fatalf("%s: price(%v)=%v not above %v", typ, sigma, p, prev)
				}
				prev = p
			}
		}
	})

	t.Run("SpotDirection", func(t *testing.T) {
		prevCall, prevPut := -1.0, math.Inf(1)
		for s := 50.0; s <= 150; s += 5 {
			call, err := pricing.Price(domain.OptionCall, s, 100, 1, 0.05, 0.2)
			if err != nil {
				t.Fatal(err)
			}
			put, err := pricing.Price(domain.OptionPut, s, 100, 1, 0.05, 0.2)
			if err != nil {
				t.Fatal(err)
			}
			if call <= prevCall {
				t.Fatalf("call not increasing at S=%v", s)
			}
			if put >= prevPut {
				t.Fatalf("put not decreasing at S=%v", s)
			}
			prevCall, prevPut = call, put
		}
	})
}

func TestPriceNearExpiry(t *testing.T) {
	const tiny = 1e-12
	for _, s := range []float64{80, 100, 120} {
		for _, typ := range []domain.OptionType{domain.OptionCall, domain.OptionPut} {
			p, err := pricing.Price(typ, s, 100, tiny, 0.05, 0.2)
			if err != nil {
				t.Fatal(err)
			}
			if want := pricing.Intrinsic(typ, s, 100); !approxEqual(p, want, 1e-4) {
				t.Errorf("%s S=%v: got %v, want intrinsic %v", typ, s, p, want)
			}
		}
	}
}

func TestPriceDomainErrors(t *testing.T) {
	cases := []struct {
		name              string
		typ               domain.OptionType
		s, k, t, r, sigma float64
	}{
		{"ZeroSpot", domain.OptionCall, 0, 100, 1, 0.05, 0.2},
		{"NegativeStrike", domain.OptionCall, 100, -1, 1, 0.05, 0.2},
		{"ZeroTime", domain.OptionPut, 100, 100, 0, 0.05, 0.2},
		{"ZeroVol", domain.OptionPut, 100, 100, 1, 0.05, 0},
		{"NaNRate", domain.OptionCall, 100, 100, 1, math.NaN(), 0.2},
		{"InfSpot", domain.OptionCall, math.Inf(1), 100, 1, 0.05, 0.2},
		{"BadType", domain.OptionType("straddle"), 100, 100, 1, 0.05, 0.2},
		{"VolTimeUnderflow", domain.OptionCall, 100, 100, 1e-300, 0, 1e-300},
		{"VolTimeOverflow", domain.OptionPut, 100, 100, 1e300, 0.05, 1e300},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := pricing.Price(tc.typ, tc.s, tc.k, tc.t, tc.r, tc.sigma)
			var de *domain.DomainError
			if !errors.As(err, &de) {
				t.Fatalf("expected DomainError, got %v", err)
			}
			if _, err := pricing.Greeks(tc.typ, tc.s, tc.k, tc.t, tc.r, tc.sigma); !errors.Is(err, domain.ErrDomain) {
				t.Fatalf("greeks: expected ErrDomain, got %v", err)
			}
		})
	}
}

func TestPriceAlwaysFinite(t *testing.T) {
	extremes := []market{
		{1e-8, 100, 1, 0.05, 0.2},
		{1e8, 100, 1, 0.05, 0.2},
		{100, 100, 1e-12, 0.05, 0.2},
		{100, 100, 100, 0.05, 3},
		{100, 100, 1, 0.05, 1e-9},
	}
	for _, m := range extremes {
		for _, typ := range []domain.OptionType{domain.OptionCall, domain.OptionPut} {
			p, err := pricing.Price(typ, m.s, m.k, m.t, m.r, m.sigma)
			if err != nil {
				t.Fatalf("%s %+v: %v", typ, m, err)
			}
			if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
				t.Errorf("%s %+v: price %v", typ, m, p)
			}
		}
	}
}

func TestBounds(t *testing.T) {
	lo, hi := pricing.Bounds(domain.OptionCall, 100, 100, 1, 0.05)
	if !approxEqual(lo, 100-100*math.Exp(-0.05), 1e-12) || hi != 100 {
		t.Errorf("call bounds: [%v, %v]", lo, hi)
	}
	lo, hi = pricing.Bounds(domain.OptionPut, 100, 100, 1, 0.05)
	if lo != 0 || !approxEqual(hi, 100*math.Exp(-0.05), 1e-12) {
		t.Errorf("put bounds: [%v, %v]", lo, hi)
	}
}

func TestNormDistribution(t *testing.T) {
	if got := pricing.NormCDF(0); !approxEqual(got, 0.5, 1e-15) {
		t.Errorf("N(0) = %v", got)
	}
	if got := pricing.NormCDF(math.Inf(1)); got != 1 {
		t.Errorf("N(+Inf) = %v", got)
	}
	if got := pricing.NormCDF(math.Inf(-1)); got != 0 {
		t.Errorf("N(-Inf) = %v", got)
	}
	if got := pricing.NormCDF(-40); got != 0 && !(got > 0 && got < 1e-300) {
		t.Errorf("N(-40) = %v", got)
	}
	if got := pricing.NormPDF(0); !approxEqual(got, 1/math.Sqrt(2*math.Pi), 1e-15) {
		t.Errorf("phi(0) = %v", got)
	}
	if got := pricing.NormCDF(1.96); !approxEqual(got, 0.9750021048517795, 1e-12) {
		t.Errorf("N(1.96) = %v", got)
	}
}

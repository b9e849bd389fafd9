package domain

import "time"

// QuoteRequest is the calculator form as submitted by a caller. Volatility
// and rate are decimals (0.2 means 20%). Expiry is given either directly in
// years or as an ISO date.
type QuoteRequest struct {
	OptionType     string   `json:"option_type"`
	Strike         float64  `json:"strike"`
	Spot           *float64 `json:"spot,omitempty"`
	Volatility     *float64 `json:"volatility,omitempty"`
	MarketPrice    *float64 `json:"market_price,omitempty"`
	Rate           *float64 `json:"rate,omitempty"`
	TimeToExpiry   *float64 `json:"time_to_expiry,omitempty"`
	ExpirationDate string   `json:"expiration_date,omitempty"` // YYYY-MM-DD
	IncludeCurves  bool     `json:"include_curves,omitempty"`
}

// RateSource records where the risk-free rate of a quote came from.
type RateSource string

const (
	RateSourceRequest RateSource = "request"
	RateSourceCache   RateSource = "cache"
	RateSourceDefault RateSource = "default"
)

// SolverStats summarises a root-finding run.
type SolverStats struct {
	Method         string `json:"method"`
	Iterations     int    `json:"iterations"`
	NewtonSteps    int    `json:"newton_steps"`
	BisectionSteps int    `json:"bisection_steps"`
	Expansions     int    `json:"expansions,omitempty"`
}

// QuoteDisplay holds rounded presentation strings.
type QuoteDisplay struct {
	Price         string `json:"price"`
	Spot          string `json:"spot"`
	Strike        string `json:"strike"`
	VolatilityPct string `json:"volatility_pct"`
	RatePct       string `json:"rate_pct"`
	TimeToExpiry  string `json:"time_to_expiry"`
}

// Quote is the fully resolved answer to a QuoteRequest.
type Quote struct {
	Spec        OptionSpec    `json:"spec"`
	MarketPrice float64       `json:"market_price"`
	Solved      string        `json:"solved"`
	Greeks      Greeks        `json:"greeks"`
	ThetaPerDay float64       `json:"theta_per_day"`
	Solver      *SolverStats  `json:"solver,omitempty"`
	RateSource  RateSource    `json:"rate_source"`
	Display     QuoteDisplay  `json:"display"`
	Curves      []CurveSeries `json:"curves,omitempty"`
	ComputedAt  time.Time     `json:"computed_at"`
}

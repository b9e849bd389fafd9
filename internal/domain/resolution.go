package domain

// OptionInputs is the partial bundle a caller supplies. Exactly one of
// Volatility, Spot and MarketPrice must be nil.
type OptionInputs struct {
	Type         OptionType
	Strike       float64
	TimeToExpiry float64
	Rate         float64
	Volatility   *float64
	Spot         *float64
	MarketPrice  *float64
}

// Resolution is the outcome of classifying an OptionInputs. It is one of
// Resolved, NeedsVolatility or NeedsSpot.
type Resolution interface {
	// Missing names the input that has to be computed.
	Missing() string
	resolution()
}

// Resolved carries a complete spec; only the price is left to evaluate.
type Resolved struct {
	Spec OptionSpec
}

// NeedsVolatility carries everything but sigma.
type NeedsVolatility struct {
	Type         OptionType
	Spot         float64
	Strike       float64
	TimeToExpiry float64
	Rate         float64
	MarketPrice  float64
}

// NeedsSpot carries everything but the underlying price.
type NeedsSpot struct {
	Type         OptionType
	Strike       float64
	TimeToExpiry float64
	Rate         float64
	Volatility   float64
	MarketPrice  float64
}

func (Resolved) Missing() string        { return "market_price" }
func (NeedsVolatility) Missing() string { return "volatility" }
func (NeedsSpot) Missing() string       { return "spot" }

func (Resolved) resolution()        {}
func (NeedsVolatility) resolution() {}
func (NeedsSpot) resolution()       {}

// WithVolatility returns the resolved spec for the solved sigma.
func (n NeedsVolatility) WithVolatility(sigma float64) OptionSpec {
	return OptionSpec{
		Type:         n.Type,
		Spot:         n.Spot,
		Strike:       n.Strike,
		TimeToExpiry: n.TimeToExpiry,
		Rate:         n.Rate,
		Volatility:   sigma,
	}
}

// WithSpot returns the resolved spec for the solved spot.
func (n NeedsSpot) WithSpot(spot float64) OptionSpec {
	return OptionSpec{
		Type:         n.Type,
		Spot:         spot,
		Strike:       n.Strike,
		TimeToExpiry: n.TimeToExpiry,
		Rate:         n.Rate,
		Volatility:   n.Volatility,
	}
}

// Classify validates in and decides, once, which input has to be solved for.
func Classify(in OptionInputs) (Resolution, error) {
	var missing []string
	if in.Volatility == nil {
		missing = append(missing, "volatility")
	}
	if in.Spot == nil {
		missing = append(missing, "spot")
	}
	if in.MarketPrice == nil {
		missing = append(missing, "market_price")
	}
	if len(missing) != 1 {
		return nil, &AmbiguousInputError{Missing: missing}
	}

	if !in.Type.Valid() {
		return nil, &DomainError{Field: "option_type", Value: string(in.Type), Reason: "must be call or put"}
	}
	if err := CheckPositive("strike", in.Strike); err != nil {
		return nil, err
	}
	if err := CheckPositive("time_to_expiry", in.TimeToExpiry); err != nil {
		return nil, err
	}
	if err := CheckFinite("rate", in.Rate); err != nil {
		return nil, err
	}
	if in.Volatility != nil {
		if err := CheckPositive("volatility", *in.Volatility); err != nil {
			return nil, err
		}
	}
	if in.Spot != nil {
		if err := CheckPositive("spot", *in.Spot); err != nil {
			return nil, err
		}
	}
	if in.MarketPrice != nil {
		p := *in.MarketPrice
		if err := CheckFinite("market_price", p); err != nil {
			return nil, err
		}
		if p < 0 {
			return nil, &DomainError{Field: "market_price", Value: p, Reason: "must not be negative"}
		}
	}

	switch missing[0] {
	case "volatility":
		return NeedsVolatility{
			Type:         in.Type,
			Spot:         *in.Spot,
			Strike:       in.Strike,
			TimeToExpiry: in.TimeToExpiry,
			Rate:         in.Rate,
			MarketPrice:  *in.MarketPrice,
		}, nil
	case "spot":
		return NeedsSpot{
			Type:         in.Type,
			Strike:       in.Strike,
			TimeToExpiry: in.TimeToExpiry,
			Rate:         in.Rate,
			Volatility:   *in.Volatility,
			MarketPrice:  *in.MarketPrice,
		}, nil
	default:
		return Resolved{Spec: OptionSpec{
			Type:         in.Type,
			Spot:         *in.Spot,
			Strike:       in.Strike,
			TimeToExpiry: in.TimeToExpiry,
			Rate:         in.Rate,
			Volatility:   *in.Volatility,
		}}, nil
	}
}

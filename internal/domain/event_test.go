package domain_test

import (
	"testing"
	"time"

	"github.com/alanyoungcy/optionlab/internal/domain"
)

func TestEventEncoding(t *testing.T) {
	q := domain.Quote{
		Spec:        domain.OptionSpec{Type: domain.OptionPut, Spot: 100, Strike: 95, TimeToExpiry: 0.5, Rate: 0.04, Volatility: 0.25},
		MarketPrice: 4.2,
		Solved:      "market_price",
		RateSource:  domain.RateSourceCache,
	}
	ev := domain.Event{
		Type: domain.EventQuoteComputed,
		Time: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Data: domain.QuoteEventData(q),
	}

	b, err := ev.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := domain.UnmarshalEvent(b)
	if err != nil {
		t.Fatalf("UnmarshalEvent: %v", err)
	}
	if got.Type != ev.Type || !got.Time.Equal(ev.Time) {
		t.Errorf("envelope: expected %s@%v, got %s@%v", ev.Type, ev.Time, got.Type, got.Time)
	}
	if got.Data["option_type"] != "put" || got.Data["price"] != 4.2 || got.Data["rate_source"] != "cache" {
		t.Errorf("data: %v", got.Data)
	}
}

func TestEventRejectsUnencodableData(t *testing.T) {
	ev := domain.NewEvent("bad", map[string]any{"ch": make(chan int)})
	if _, err := ev.Marshal(); err == nil {
		t.Fatal("expected an error for a channel value")
	}
}

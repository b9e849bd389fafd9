package domain

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Bus channels and streams.
const (
	ChannelQuotes    = "quotes"
	ChannelRate      = "rate"
	ChannelScenarios = "scenarios"
	ChannelSystem    = "system"

	StreamQuotes = "stream:quotes"
)

// Event types published on the bus.
const (
	EventQuoteComputed   = "quote.computed"
	EventSolverFailed    = "solver.failed"
	EventRateUpdated     = "rate.updated"
	EventScenarioSaved   = "scenario.saved"
	EventArchiveComplete = "archive.completed"
)

// Event is the envelope carried on the signal bus and forwarded to
// WebSocket clients. Data values must be representable as a
// google.protobuf.Struct (numbers, strings, bools, nested maps and slices).
type Event struct {
	Type string         `json:"type"`
	Time time.Time      `json:"time"`
	Data map[string]any `json:"data"`
}

// NewEvent stamps an event with the current UTC time.
func NewEvent(typ string, data map[string]any) Event {
	return Event{Type: typ, Time: time.Now().UTC(), Data: data}
}

// Marshal encodes the event as a binary protobuf Struct.
func (e Event) Marshal() ([]byte, error) {
	data := e.Data
	if data == nil {
		data = map[string]any{}
	}
	s, err := structpb.NewStruct(map[string]any{
		"type": e.Type,
		"time": e.Time.UTC().Format(time.RFC3339Nano),
		"data": data,
	})
	if err != nil {
		return nil, fmt.Errorf("domain: encode event %s: %w", e.Type, err)
	}
	b, err := proto.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("domain: marshal event %s: %w", e.Type, err)
	}
	return b, nil
}

// UnmarshalEvent decodes an event produced by Event.Marshal.
func UnmarshalEvent(b []byte) (Event, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(b, &s); err != nil {
		return Event{}, fmt.Errorf("domain: unmarshal event: %w", err)
	}
	m := s.AsMap()

	var ev Event
	ev.Type, _ = m["type"].(string)
	if ts, ok := m["time"].(string); ok {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return Event{}, fmt.Errorf("domain: event time: %w", err)
		}
		ev.Time = t
	}
	ev.Data, _ = m["data"].(map[string]any)
	return ev, nil
}

// QuoteEventData flattens a quote into bus-safe values.
func QuoteEventData(q Quote) map[string]any {
	return map[string]any{
		"option_type":    string(q.Spec.Type),
		"spot":           q.Spec.Spot,
		"strike":         q.Spec.Strike,
		"time_to_expiry": q.Spec.TimeToExpiry,
		"rate":           q.Spec.Rate,
		"volatility":     q.Spec.Volatility,
		"price":          q.MarketPrice,
		"solved":         q.Solved,
		"delta":          q.Greeks.Delta,
		"gamma":          q.Greeks.Gamma,
		"vega":           q.Greeks.Vega,
		"theta":          q.Greeks.Theta,
		"rho":            q.Greeks.Rho,
		"rate_source":    string(q.RateSource),
	}
}

package domain

import "time"

// Scenario is a named, saved calculator input.
type Scenario struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Request   QuoteRequest `json:"request"`
	CreatedAt time.Time    `json:"created_at"`
}

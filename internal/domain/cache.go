package domain

import (
	"context"
	"time"
)

// RateCache holds the most recently supplied risk-free rate.
type RateCache interface {
	SetRate(ctx context.Context, rate float64, ts time.Time) error
	GetRate(ctx context.Context) (float64, time.Time, error)
}

// QuoteCache memoises computed quotes by request fingerprint.
type QuoteCache interface {
	Get(ctx context.Context, key string) (Quote, error)
	Set(ctx context.Context, key string, q Quote) error
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// StreamMessage represents a single entry from a Redis stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub and durable streams.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
	StreamRevRange(ctx context.Context, stream string, count int) ([]StreamMessage, error)
}

package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/optionlab/internal/domain"
)

// rateKey is the hash holding the current risk-free rate with fields "rate"
// and "ts" (Unix nanoseconds).
const rateKey = "rate:current"

// RateCache implements domain.RateCache using a Redis hash.
type RateCache struct {
	rdb *redis.Client
}

// NewRateCache creates a RateCache backed by the given Client.
func NewRateCache(c *Client) *RateCache {
	return &RateCache{rdb: c.Underlying()}
}

// SetRate stores the rate and the time it was observed.
func (rc *RateCache) SetRate(ctx context.Context, rate float64, ts time.Time) error {
	if err := rc.rdb.HSet(ctx, rateKey, encodeRate(rate, ts)).Err(); err != nil {
		return fmt.Errorf("redis: set rate: %w", err)
	}
	return nil
}

// GetRate returns the stored rate, or domain.ErrNotFound when none was set.
func (rc *RateCache) GetRate(ctx context.Context) (float64, time.Time, error) {
	vals, err := rc.rdb.HGetAll(ctx, rateKey).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: get rate: %w", err)
	}
	return decodeRate(vals)
}

func encodeRate(rate float64, ts time.Time) map[string]any {
	return map[string]any{
		"rate": strconv.FormatFloat(rate, 'f', -1, 64),
		"ts":   strconv.FormatInt(ts.UnixNano(), 10),
	}
}

func decodeRate(vals map[string]string) (float64, time.Time, error) {
	rateStr, ok := vals["rate"]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	rate, err := strconv.ParseFloat(rateStr, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse rate: %w", err)
	}

	tsStr, ok := vals["ts"]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	tsNano, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse rate ts: %w", err)
	}
	return rate, time.Unix(0, tsNano).UTC(), nil
}

// Compile-time interface check.
var _ domain.RateCache = (*RateCache)(nil)

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/optionlab/internal/domain"
)

// QuoteCache implements domain.QuoteCache by storing JSON-encoded quotes
// under "quote:{key}" with a fixed TTL.
type QuoteCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewQuoteCache creates a QuoteCache. A zero ttl keeps entries until evicted.
func NewQuoteCache(c *Client, ttl time.Duration) *QuoteCache {
	return &QuoteCache{rdb: c.Underlying(), ttl: ttl}
}

func quoteKey(key string) string {
	return "quote:" + key
}

// Get returns the cached quote or domain.ErrNotFound.
func (qc *QuoteCache) Get(ctx context.Context, key string) (domain.Quote, error) {
	raw, err := qc.rdb.Get(ctx, quoteKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Quote{}, domain.ErrNotFound
		}
		return domain.Quote{}, fmt.Errorf("redis: get quote %s: %w", key, err)
	}
	var q domain.Quote
	if err := json.Unmarshal(raw, &q); err != nil {
		return domain.Quote{}, fmt.Errorf("redis: decode quote %s: %w", key, err)
	}
	return q, nil
}

// Set stores q under key.
func (qc *QuoteCache) Set(ctx context.Context, key string, q domain.Quote) error {
	raw, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("redis: encode quote %s: %w", key, err)
	}
	if err := qc.rdb.Set(ctx, quoteKey(key), raw, qc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set quote %s: %w", key, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.QuoteCache = (*QuoteCache)(nil)

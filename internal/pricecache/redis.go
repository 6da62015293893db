package pricecache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	redis "github.com/redis/go-redis/v9"

	"github.com/jaimin0609/tee-pricing/internal/domain/promo"
)

const keyPrefix = "pricequote:"

// Redis implements Cache on a Redis server.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a Redis cache from a redis:// URL.
func NewRedis(url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	return &Redis{client: redis.NewClient(opts)}, nil
}

// Ping verifies connectivity, for readiness checks.
func (c *Redis) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *Redis) Close() error {
	return c.client.Close()
}

// GetQuote returns the cached quote for a product, if present.
func (c *Redis) GetQuote(ctx context.Context, productID string) (*promo.Quote, bool, error) {
	val, err := c.client.Get(ctx, keyPrefix+productID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "get quote")
	}

	var q promo.Quote
	if err := json.Unmarshal([]byte(val), &q); err != nil {
		return nil, false, errors.Wrap(err, "decode quote")
	}
	return &q, true, nil
}

// SetQuote stores a quote with the given TTL.
func (c *Redis) SetQuote(ctx context.Context, productID string, q *promo.Quote, ttl time.Duration) error {
	if q == nil {
		return nil
	}
	payload, err := json.Marshal(q)
	if err != nil {
		return errors.Wrap(err, "encode quote")
	}
	return c.client.Set(ctx, keyPrefix+productID, payload, ttl).Err()
}

// InvalidateAll removes every cached quote. Called whenever promotions or
// coupons change so stale prices never outlive an admin edit by more than a
// request.
func (c *Redis) InvalidateAll(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, keyPrefix+"*", 500).Result()
		if err != nil {
			return errors.Wrap(err, "scan quote keys")
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return errors.Wrap(err, "delete quote keys")
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
